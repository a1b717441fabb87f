package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"igcrawler/pkg/config"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/models"
)

// PostgresArchive stores posts in one table keyed by postid
type PostgresArchive struct {
	pool   *pgxpool.Pool
	table  string
	logger logger.Logger
}

// OpenPostgres connects and creates the table when it does not exist
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig, log logger.Logger) (*PostgresArchive, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing db config: %w", err)
	}
	poolCfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	a := &PostgresArchive{
		pool:   pool,
		table:  pgx.Identifier{cfg.Table}.Sanitize(),
		logger: log,
	}
	if _, err := pool.Exec(ctx, createTableSQL(a.table)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", cfg.Table, err)
	}

	log.WithField("table", cfg.Table).Info("Archive opened")
	return a, nil
}

func createTableSQL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		postid       TEXT PRIMARY KEY,
		username     TEXT NOT NULL,
		userid       TEXT NOT NULL,
		created_time TIMESTAMPTZ NOT NULL,
		code         TEXT NOT NULL,
		tags         TEXT[] NOT NULL,
		img_url      TEXT NOT NULL
	)`
}

func insertSQL(table string) string {
	return `INSERT INTO ` + table + ` (postid, username, userid, created_time, code, tags, img_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (postid) DO NOTHING`
}

// IDs selects the postid column
func (a *PostgresArchive) IDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := a.pool.Query(ctx, `SELECT postid FROM `+a.table)
	if err != nil {
		return nil, fmt.Errorf("failed to query post ids: %w", err)
	}

	list, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read post ids: %w", err)
	}

	ids := make(map[string]struct{}, len(list))
	for _, id := range list {
		ids[id] = struct{}{}
	}
	return ids, nil
}

// Append inserts posts in one transaction; conflicting postids are left alone
func (a *PostgresArchive) Append(ctx context.Context, posts []models.Post) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	written := 0
	err := pgx.BeginFunc(ctx, a.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		query := insertSQL(a.table)
		for _, p := range posts {
			batch.Queue(query, p.ID, p.Username, p.UserID, p.CreatedAt, p.Permalink, p.Tags, p.ImageURL)
		}

		br := tx.SendBatch(ctx, batch)
		for _, p := range posts {
			tag, err := br.Exec()
			if err != nil {
				br.Close()
				return fmt.Errorf("failed to insert post %s: %w", p.ID, err)
			}
			written += int(tag.RowsAffected())
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}

	a.logger.InfoWithFields("Archive appended", map[string]interface{}{
		"written":    written,
		"duplicates": len(posts) - written,
	})
	return written, nil
}

// Close releases the pool
func (a *PostgresArchive) Close(ctx context.Context) error {
	a.pool.Close()
	return nil
}
