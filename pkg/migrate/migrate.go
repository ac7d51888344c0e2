package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
)

// DefaultDir is where new migration files are written during development.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the schema compiled into the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

type Option func(*options)

type options struct {
	fsys    fs.FS
	dialect goose.Dialect
}

// WithFS replaces the embedded migrations, e.g. with os.DirFS for a local dir.
func WithFS(fsys fs.FS) Option {
	return func(o *options) { o.fsys = fsys }
}

func WithDialect(dialect goose.Dialect) Option {
	return func(o *options) { o.dialect = dialect }
}

// Migrator applies the QuickCart schema through a goose provider.
type Migrator struct {
	provider *goose.Provider
	logg     *logger.Logger
}

func New(db *sql.DB, logg *logger.Logger, opts ...Option) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	o := options{fsys: Migrations(), dialect: goose.DialectPostgres}
	for _, opt := range opts {
		opt(&o)
	}
	if logg == nil {
		logg = logger.Nop()
	}
	provider, err := goose.NewProvider(o.dialect, db, o.fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider, logg: logg}, nil
}

func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	m.logResults(ctx, results)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	result, err := m.provider.Down(ctx)
	if result != nil {
		m.logResults(ctx, []*goose.MigrationResult{result})
	}
	if err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// To migrates up or down until the database sits at target.
func (m *Migrator) To(ctx context.Context, target int64) error {
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}
	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil
	case current < target:
		results, err = m.provider.UpTo(ctx, target)
	default:
		results, err = m.provider.DownTo(ctx, target)
	}
	m.logResults(ctx, results)
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	return m.provider.Status(ctx)
}

func (m *Migrator) logResults(ctx context.Context, results []*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		fields := map[string]any{
			"version":     res.Source.Version,
			"file":        path.Base(res.Source.Path),
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		}
		if res.Error != nil {
			m.logg.Error(m.logg.WithFields(ctx, fields), "migrate.failed", res.Error)
			continue
		}
		m.logg.Info(m.logg.WithFields(ctx, fields), "migrate.applied")
	}
}

// ParseVersion reads a YYYYMMDDHHMMSS version as used in migration filenames.
func ParseVersion(value string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", value)
	}
	return v, nil
}

// Validate checks every .sql file in fsys without a database: goose must be
// able to read a version from the name, versions must be unique, and both
// directions must be annotated.
func Validate(fsys fs.FS) error {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return goose.ErrNoMigrations
	}
	seen := make(map[int64]string, len(names))
	for _, name := range names {
		version, err := goose.NumericComponent(name)
		if err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
		if prev, ok := seen[version]; ok {
			return fmt.Errorf("duplicate migration version %d in %q and %q", version, prev, name)
		}
		seen[version] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(body), marker) {
				return fmt.Errorf("migration %q missing %q", name, marker)
			}
		}
	}
	return nil
}

// Create writes an empty timestamped SQL migration into dir.
func Create(dir, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name is required")
	}
	return goose.Create(nil, dir, name, "sql")
}
