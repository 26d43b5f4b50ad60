package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-while/go-pugblog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PostgresStore keeps posts in a postgres table keyed by UUID
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

const postgresSchema = `CREATE TABLE IF NOT EXISTS posts (
	seq BIGSERIAL UNIQUE,
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL CHECK (length(btrim(title)) > 0),
	body TEXT NOT NULL CHECK (length(btrim(body)) > 0),
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// OpenPostgres connects a pool to dsn and creates the posts table
func OpenPostgres(ctx context.Context, dsn string, maxConns int32) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create posts table: %w", err)
	}
	log.Info().Str("host", cfg.ConnConfig.Host).Msg("connected to postgres")

	return &PostgresStore{
		pool: pool,
		// postgres timestamps have microsecond precision
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}, nil
}

func scanPostgresPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	if err := row.Scan(&p.ID, &p.Title, &p.Body, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func validPostgresID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.String() == id
}

func (s *PostgresStore) FindAll(ctx context.Context) ([]*models.Post, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, title, body, created_at, updated_at FROM posts ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		p, err := scanPostgresPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}
	return posts, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Post, error) {
	if !validPostgresID(id) {
		return nil, ErrPostNotFound
	}
	p, err := scanPostgresPost(s.pool.QueryRow(ctx,
		`SELECT id, title, body, created_at, updated_at FROM posts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post by ID %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) Insert(ctx context.Context, p *models.Post) error {
	now := s.now()
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO posts (id, title, body, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		id, p.Title, p.Body, now)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, id, title, body string) (*models.Post, error) {
	if !validPostgresID(id) {
		return nil, ErrPostNotFound
	}
	p, err := scanPostgresPost(s.pool.QueryRow(ctx,
		`UPDATE posts SET title = $2, body = $3, updated_at = $4 WHERE id = $1
		 RETURNING id, title, body, created_at, updated_at`,
		id, title, body, s.now()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to update post ID %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if !validPostgresID(id) {
		return ErrPostNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post ID %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
