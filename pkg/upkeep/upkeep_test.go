package upkeep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	assetA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	assetB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Check(ctx context.Context, assets []common.Address) ([]common.Address, error) {
	args := m.Called(ctx, assets)
	out, _ := args.Get(0).([]common.Address)
	return out, args.Error(1)
}

func (m *MockValidator) Update(ctx context.Context, assets []common.Address) ([]common.Address, error) {
	args := m.Called(ctx, assets)
	out, _ := args.Get(0).([]common.Address)
	return out, args.Error(1)
}

type staticLister []common.Address

func (l staticLister) Assets(context.Context) ([]common.Address, error) { return l, nil }

func TestCodecLayout(t *testing.T) {
	c, err := NewCodec()
	require.NoError(t, err)

	empty, err := c.Encode(nil)
	require.NoError(t, err)
	assert.Len(t, empty, 64)

	data, err := c.Encode([]common.Address{assetA, assetB})
	require.NoError(t, err)
	require.Len(t, data, 128)
	assert.Equal(t, common.LeftPadBytes([]byte{0x20}, 32), data[:32])
	assert.Equal(t, common.LeftPadBytes([]byte{2}, 32), data[32:64])
	assert.Equal(t, common.LeftPadBytes(assetA.Bytes(), 32), data[64:96])

	decoded, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{assetA, assetB}, decoded)
}

func TestCodecRejectsMalformed(t *testing.T) {
	c, err := NewCodec()
	require.NoError(t, err)

	data, err := c.Encode([]common.Address{assetA, assetB})
	require.NoError(t, err)

	for name, payload := range map[string][]byte{
		"empty":     nil,
		"short":     {0x01, 0x02},
		"truncated": data[:96],
	} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decode(payload)
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestCheckUpkeep(t *testing.T) {
	v := &MockValidator{}
	a, err := NewAdapter(v, nil)
	require.NoError(t, err)
	ctx := context.Background()

	payload, err := a.Codec().Encode([]common.Address{assetA, assetB})
	require.NoError(t, err)

	v.On("Check", ctx, []common.Address{assetA, assetB}).Return([]common.Address{assetB}, nil).Once()
	needed, performData, err := a.CheckUpkeep(ctx, payload)
	require.NoError(t, err)
	assert.True(t, needed)
	decoded, err := a.Codec().Decode(performData)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{assetB}, decoded)

	v.On("Check", ctx, []common.Address{assetA, assetB}).Return([]common.Address{}, nil).Once()
	needed, performData, err = a.CheckUpkeep(ctx, payload)
	require.NoError(t, err)
	assert.False(t, needed)
	decoded, err = a.Codec().Decode(performData)
	require.NoError(t, err)
	assert.Empty(t, decoded)

	v.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	v.AssertExpectations(t)
}

func TestCheckUpkeepErrors(t *testing.T) {
	v := &MockValidator{}
	a, err := NewAdapter(v, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = a.CheckUpkeep(ctx, []byte{0xde, 0xad})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	boom := errors.New("boom")
	payload, err := a.Codec().Encode([]common.Address{assetA})
	require.NoError(t, err)
	v.On("Check", ctx, []common.Address{assetA}).Return(nil, boom)
	_, _, err = a.CheckUpkeep(ctx, payload)
	assert.ErrorIs(t, err, boom)
}

func TestPerformUpkeepRecomputes(t *testing.T) {
	v := &MockValidator{}
	a, err := NewAdapter(v, nil)
	require.NoError(t, err)
	ctx := context.Background()

	performData, err := a.Codec().Encode([]common.Address{assetB})
	require.NoError(t, err)

	v.On("Update", ctx, []common.Address{assetB}).Return([]common.Address{}, nil)
	require.NoError(t, a.PerformUpkeep(ctx, performData))
	v.AssertExpectations(t)

	assert.ErrorIs(t, a.PerformUpkeep(ctx, nil), ErrInvalidPayload)
}

func TestSchedulerRunOnce(t *testing.T) {
	v := &MockValidator{}
	a, err := NewAdapter(v, nil)
	require.NoError(t, err)
	ctx := context.Background()

	s, err := NewScheduler(a, staticLister{assetA, assetB}, "@every 1m", nil, time.Second, nil)
	require.NoError(t, err)

	v.On("Check", ctx, []common.Address{assetA, assetB}).Return([]common.Address{assetA}, nil)
	v.On("Update", ctx, []common.Address{assetA}).Return([]common.Address{assetA}, nil)

	run, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.Equal(t, 2, run.Checked)
	assert.True(t, run.Performed)
	v.AssertExpectations(t)
}

func TestSchedulerConfiguredAssetsAndNothingToDo(t *testing.T) {
	v := &MockValidator{}
	a, err := NewAdapter(v, nil)
	require.NoError(t, err)
	ctx := context.Background()

	s, err := NewScheduler(a, staticLister{assetA, assetB}, "*/5 * * * *", []common.Address{assetB}, 0, nil)
	require.NoError(t, err)

	v.On("Check", ctx, []common.Address{assetB}).Return([]common.Address{}, nil)
	run, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Checked)
	assert.False(t, run.Performed)
	v.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)

	empty, err := NewScheduler(a, staticLister{}, "@hourly", nil, 0, nil)
	require.NoError(t, err)
	run, err = empty.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, run.Checked)
}

func TestSchedulerInvalidSchedule(t *testing.T) {
	a, err := NewAdapter(&MockValidator{}, nil)
	require.NoError(t, err)

	_, err = NewScheduler(a, staticLister{}, "every now and then", nil, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestSchedulerStartStop(t *testing.T) {
	a, err := NewAdapter(&MockValidator{}, nil)
	require.NoError(t, err)
	s, err := NewScheduler(a, staticLister{}, "@every 1h", nil, 0, nil)
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
