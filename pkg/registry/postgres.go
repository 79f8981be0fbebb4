package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/lib/pq" // postgres driver
)

const defaultTable = "feed_bindings"

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// PostgresStore keeps bindings in a postgres table.
type PostgresStore struct {
	db    *sql.DB
	table string
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres opens a lib/pq connection and wraps it in a store.
func OpenPostgres(dsn, table string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	store, err := NewPostgresStore(db, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStore wraps an existing database handle.
func NewPostgresStore(db *sql.DB, table string) (*PostgresStore, error) {
	if table == "" {
		table = defaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}
	return &PostgresStore{db: db, table: table}, nil
}

// EnsureSchema creates the bindings table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
	asset       TEXT PRIMARY KEY,
	symbol      TEXT NOT NULL,
	decimals    SMALLINT NOT NULL,
	denominator BIGINT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", s.table, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, asset common.Address) (FeedBinding, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT symbol, decimals, denominator FROM `+s.table+` WHERE asset = $1`,
		assetKey(asset))

	var (
		b           FeedBinding
		decimals    int64
		denominator int64
	)
	if err := row.Scan(&b.Symbol, &decimals, &denominator); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FeedBinding{}, false, nil
		}
		return FeedBinding{}, false, err
	}
	if err := fillNumeric(&b, decimals, denominator); err != nil {
		return FeedBinding{}, false, fmt.Errorf("%s: %w", asset.Hex(), err)
	}
	return b, true, nil
}

// Put implements Store.
func (s *PostgresStore) Put(ctx context.Context, asset common.Address, binding FeedBinding) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.table+` (asset, symbol, decimals, denominator, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (asset) DO UPDATE SET
	symbol = EXCLUDED.symbol,
	decimals = EXCLUDED.decimals,
	denominator = EXCLUDED.denominator,
	updated_at = NOW()`,
		assetKey(asset), binding.Symbol, int64(binding.Decimals), int64(binding.Denominator))
	return err
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT asset, symbol, decimals, denominator FROM `+s.table+` ORDER BY asset`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			asset       string
			b           FeedBinding
			decimals    int64
			denominator int64
		)
		if err := rows.Scan(&asset, &b.Symbol, &decimals, &denominator); err != nil {
			return nil, err
		}
		if !common.IsHexAddress(asset) {
			return nil, fmt.Errorf("%w: asset %q", ErrCorruptBinding, asset)
		}
		if err := fillNumeric(&b, decimals, denominator); err != nil {
			return nil, fmt.Errorf("%s: %w", asset, err)
		}
		entries = append(entries, Entry{Asset: common.HexToAddress(asset), Binding: b})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func fillNumeric(b *FeedBinding, decimals, denominator int64) error {
	if decimals < 0 || decimals > 255 {
		return fmt.Errorf("%w: decimals %d", ErrCorruptBinding, decimals)
	}
	if denominator < 0 || denominator > int64(^uint32(0)) {
		return fmt.Errorf("%w: denominator %d", ErrCorruptBinding, denominator)
	}
	b.Decimals = uint8(decimals)
	b.Denominator = uint32(denominator)
	return nil
}

func assetKey(asset common.Address) string {
	return strings.ToLower(asset.Hex())
}
