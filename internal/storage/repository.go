package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"costledger/internal/core"
	"costledger/internal/ledger"
	applog "costledger/internal/log"

	_ "modernc.org/sqlite"
)

// Options tune a SQLiteRepository.
type Options struct {
	// Location is used to derive year/month/day at insert time.
	Location *time.Location
	Logger   *slog.Logger
}

// SQLiteRepository is the durable ledger backend.
type SQLiteRepository struct {
	db      *sql.DB
	path    string
	version uint
	loc     *time.Location
	logger  *slog.Logger
}

var (
	_ ledger.Store        = (*SQLiteRepository)(nil)
	_ ledger.PeriodReader = (*SQLiteRepository)(nil)
)

// DBPath returns where the store named name lives inside dataDir.
func DBPath(dataDir, name string) string {
	return filepath.Join(dataDir, name+".db")
}

// Open opens (creating if needed) the store identified by name and schema
// version inside dataDir.
func Open(dataDir, name string, version uint, opts Options) (*SQLiteRepository, error) {
	if name == "" {
		return nil, errors.New("store name is required")
	}
	return NewSQLiteRepository(DBPath(dataDir, name), version, opts)
}

// NewSQLiteRepository opens the database file at dbPath and migrates it to
// version.
func NewSQLiteRepository(dbPath string, version uint, opts Options) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath, version); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite has a single writer; one connection serializes transactions
	// instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000; PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	logger := applog.ForComponent(opts.Logger, applog.ComponentStorage)
	logger.Info("Ledger store opened", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		path:    dbPath,
		version: version,
		loc:     loc,
		logger:  logger,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (r *SQLiteRepository) Path() string { return r.path }

// SchemaVersion returns the schema version the store was opened at.
func (r *SQLiteRepository) SchemaVersion() uint { return r.version }

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// AddCost implements ledger.CostWriter.
func (r *SQLiteRepository) AddCost(ctx context.Context, rec core.CostRecord) (core.StoredRecord, error) {
	if err := rec.Validate(); err != nil {
		return core.StoredRecord{}, err
	}
	// calendar fields first, the ID is filled in after the insert
	stored := core.NewStoredRecord(0, rec, r.loc)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.StoredRecord{}, core.WriteError("begin", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO costs (sum, currency, category, description, date_iso, year, month, day)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Sum.String(), rec.Currency, rec.Category, rec.Description,
		core.FormatISO(rec.DateISO), stored.Year, stored.Month, stored.Day)
	if err != nil {
		return core.StoredRecord{}, core.WriteError("insert cost", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.StoredRecord{}, core.WriteError("insert cost", err)
	}
	if err := tx.Commit(); err != nil {
		return core.StoredRecord{}, core.WriteError("commit", err)
	}
	stored.ID = id

	r.logger.InfoContext(ctx, "Cost saved to SQLite",
		applog.FieldCostID, id,
		applog.FieldSum, rec.Sum.String(),
		applog.FieldCurrency, rec.Currency,
		applog.FieldCategory, rec.Category,
		applog.FieldYear, stored.Year,
		applog.FieldMonth, stored.Month)

	return stored, nil
}

const selectCosts = `SELECT id, sum, currency, category, description, date_iso, year, month, day FROM costs`

// GetAllRaw implements ledger.CostReader.
func (r *SQLiteRepository) GetAllRaw(ctx context.Context) ([]core.StoredRecord, error) {
	return r.query(ctx, "get all costs", selectCosts+` ORDER BY id`)
}

// ListCostsByDate implements ledger.CostReader using idx_costs_date_iso.
func (r *SQLiteRepository) ListCostsByDate(ctx context.Context, from, to time.Time) ([]core.StoredRecord, error) {
	return r.query(ctx, "list costs by date",
		selectCosts+` WHERE date_iso >= ? AND date_iso < ? ORDER BY date_iso, id`,
		core.FormatISO(from), core.FormatISO(to))
}

// ListCostsByMonth implements ledger.PeriodReader.
func (r *SQLiteRepository) ListCostsByMonth(ctx context.Context, year, month int) ([]core.StoredRecord, error) {
	return r.query(ctx, "list costs by month",
		selectCosts+` WHERE year = ? AND month = ? ORDER BY id`, year, month)
}

// ListCostsByYear implements ledger.PeriodReader.
func (r *SQLiteRepository) ListCostsByYear(ctx context.Context, year int) ([]core.StoredRecord, error) {
	return r.query(ctx, "list costs by year",
		selectCosts+` WHERE year = ? ORDER BY id`, year)
}

func (r *SQLiteRepository) query(ctx context.Context, op, q string, args ...any) ([]core.StoredRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, core.ReadError(op, err)
	}
	defer rows.Close()

	out := make([]core.StoredRecord, 0)
	for rows.Next() {
		var (
			rec     core.StoredRecord
			sum     string
			dateISO string
		)
		if err := rows.Scan(&rec.ID, &sum, &rec.Currency, &rec.Category, &rec.Description,
			&dateISO, &rec.Year, &rec.Month, &rec.Day); err != nil {
			return nil, core.ReadError(op, err)
		}
		if rec.Sum, err = decimal.NewFromString(sum); err != nil {
			return nil, core.ReadError(op, fmt.Errorf("cost %d: bad sum %q: %w", rec.ID, sum, err))
		}
		if rec.DateISO, err = core.ParseISO(dateISO); err != nil {
			return nil, core.ReadError(op, fmt.Errorf("cost %d: bad date %q: %w", rec.ID, dateISO, err))
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, core.ReadError(op, err)
	}
	return out, nil
}

// GetSetting implements ledger.SettingsStore.
func (r *SQLiteRepository) GetSetting(ctx context.Context, key string) (any, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, core.ReadError("get setting", err)
	}
	v, err := ledger.DecodeSetting(raw)
	if err != nil {
		return nil, false, core.ReadError("get setting", err)
	}
	return v, true, nil
}

// SetSetting implements ledger.SettingsStore.
func (r *SQLiteRepository) SetSetting(ctx context.Context, key string, value any) error {
	raw, err := ledger.EncodeSetting(value)
	if err != nil {
		return core.WriteError("set setting", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, raw)
	if err != nil {
		return core.WriteError("set setting", err)
	}
	r.logger.InfoContext(ctx, "Setting saved", applog.FieldKey, key)
	return nil
}
