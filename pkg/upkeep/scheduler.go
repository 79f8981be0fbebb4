package upkeep

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/StrathCole/oracle-validator/pkg/logging"
)

// AssetLister returns every asset with a registered binding.
type AssetLister interface {
	Assets(ctx context.Context) ([]common.Address, error)
}

// Run summarizes one scheduled check/perform cycle.
type Run struct {
	ID        uuid.UUID
	Checked   int
	Performed bool
}

// Scheduler drives the adapter on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	cron    *cron.Cron
	adapter *Adapter
	lister  AssetLister
	assets  []common.Address
	timeout time.Duration
	logger  *logging.Logger
}

// NewScheduler creates a scheduler. When assets is empty every registered asset
// is checked on each run.
func NewScheduler(adapter *Adapter, lister AssetLister, schedule string, assets []common.Address, timeout time.Duration, logger *logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		adapter: adapter,
		lister:  lister,
		assets:  assets,
		timeout: timeout,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSchedule, schedule, err)
	}
	return s, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.logger.Info("Upkeep scheduler started", "assets", len(s.assets))
	s.cron.Start()
}

// Stop stops the schedule and waits for a running cycle to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Upkeep run still in progress at shutdown")
	}
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	// Failures are logged and counted; the next tick tries again.
	_, _ = s.RunOnce(ctx)
}

// RunOnce performs a single check and, when needed, perform cycle.
func (s *Scheduler) RunOnce(ctx context.Context) (Run, error) {
	run := Run{ID: uuid.New()}
	logger := s.logger.With("run_id", run.ID.String())

	assets := s.assets
	if len(assets) == 0 {
		var err error
		assets, err = s.lister.Assets(ctx)
		if err != nil {
			logger.Error("Failed to list assets", "error", err)
			return run, err
		}
	}
	run.Checked = len(assets)
	if len(assets) == 0 {
		logger.Debug("No assets to check")
		return run, nil
	}

	payload, err := s.adapter.Codec().Encode(assets)
	if err != nil {
		logger.Error("Failed to encode assets", "error", err)
		return run, err
	}

	needed, performData, err := s.adapter.CheckUpkeep(ctx, payload)
	if err != nil {
		logger.Error("Upkeep check failed", "error", err)
		return run, err
	}
	if !needed {
		logger.Debug("Upkeep not needed", "assets", len(assets))
		return run, nil
	}

	if err := s.adapter.PerformUpkeep(ctx, performData); err != nil {
		logger.Error("Upkeep perform failed", "error", err)
		return run, err
	}
	run.Performed = true
	logger.Info("Upkeep performed", "assets", len(assets))
	return run, nil
}
