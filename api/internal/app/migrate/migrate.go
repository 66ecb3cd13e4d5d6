package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/KhushalAcharya29/real-estate-app/db/migrations"
)

const commandTimeout = time.Minute

// Runner applies and inspects schema migrations.
type Runner struct {
	pool   *pgxpool.Pool
	dsn    string
	source fs.FS
	origin string
	log    *slog.Logger
}

// New returns a migration runner backed by goose. An empty dir selects the
// migrations compiled into the binary.
func New(pool *pgxpool.Pool, dsn, dir string, log *slog.Logger) (Runner, error) {
	if pool == nil {
		return Runner{}, errors.New("nil pool provided")
	}
	if strings.TrimSpace(dsn) == "" {
		return Runner{}, errors.New("empty database dsn")
	}
	if log == nil {
		log = slog.Default()
	}
	source, origin, err := resolveSource(dir)
	if err != nil {
		return Runner{}, err
	}
	return Runner{pool: pool, dsn: dsn, source: source, origin: origin, log: log}, nil
}

func resolveSource(dir string) (fs.FS, string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return migrations.FS, "embedded", nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, "", fmt.Errorf("locate migrations dir: %w", err)
	}
	if !info.IsDir() {
		return nil, "", fmt.Errorf("migrations path %s is not a directory", dir)
	}
	return os.DirFS(dir), dir, nil
}

// Ensure applies pending migrations.
func (r Runner) Ensure(ctx context.Context) error {
	return r.withProvider(ctx, func(ctx context.Context, p *goose.Provider) error {
		r.log.Info("applying migrations", "source", r.origin)
		results, err := p.Up(ctx)
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		for _, res := range results {
			r.log.Info("migration applied", "version", res.Source.Version, "duration_ms", res.Duration.Milliseconds())
		}
		r.log.Info("migrations up to date", "applied", len(results))
		return nil
	})
}

// Status logs every known migration with its state.
func (r Runner) Status(ctx context.Context) error {
	return r.withProvider(ctx, func(ctx context.Context, p *goose.Provider) error {
		statuses, err := p.Status(ctx)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		for _, st := range statuses {
			attrs := []any{"version", st.Source.Version, "state", string(st.State)}
			if !st.AppliedAt.IsZero() {
				attrs = append(attrs, "applied_at", st.AppliedAt.Format(time.RFC3339))
			}
			r.log.Info("migration", attrs...)
		}
		return nil
	})
}

// Down rolls back the latest migration, or down to targetVersion when it is positive.
func (r Runner) Down(ctx context.Context, targetVersion int64) error {
	return r.withProvider(ctx, func(ctx context.Context, p *goose.Provider) error {
		if targetVersion > 0 {
			r.log.Info("rolling back migrations", "target", targetVersion)
			if _, err := p.DownTo(ctx, targetVersion); err != nil {
				return fmt.Errorf("rollback to version %d: %w", targetVersion, err)
			}
		} else {
			r.log.Info("rolling back latest migration")
			if _, err := p.Down(ctx); err != nil {
				return fmt.Errorf("rollback latest migration: %w", err)
			}
		}
		r.log.Info("rollback complete")
		return nil
	})
}

// Ping ensures the database connection is alive.
func (r Runner) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close releases underlying connections.
func (r Runner) Close() {
	r.pool.Close()
}

func (r Runner) withProvider(ctx context.Context, fn func(context.Context, *goose.Provider) error) error {
	db, err := sql.Open("pgx", r.dsn)
	if err != nil {
		return fmt.Errorf("open sql connection: %w", err)
	}
	defer db.Close()

	runCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	if err := db.PingContext(runCtx); err != nil {
		return fmt.Errorf("ping sql connection: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, r.source)
	if err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}
	return fn(runCtx, provider)
}
