package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-while/go-pugblog/internal/models"
)

// --- Post Queries ---

// parseSQLiteID maps an opaque post ID onto the integer primary key.
// Only the form scanPost issues is accepted, so "001" or "+1" miss.
func parseSQLiteID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 || strconv.FormatInt(n, 10) != id {
		return 0, false
	}
	return n, true
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		p  models.Post
		id int64
	)
	if err := row.Scan(&id, &p.Title, &p.Body, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ID = strconv.FormatInt(id, 10)
	return &p, nil
}

// FindAll returns all posts ordered by insertion
const query_FindAllPosts = `SELECT id, title, body, created_at, updated_at FROM posts ORDER BY id ASC`

func (s *SQLiteStore) FindAll(ctx context.Context) ([]*models.Post, error) {
	rows, err := s.db.QueryContext(ctx, query_FindAllPosts)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
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

// FindByID returns a post by ID
const query_FindPostByID = `SELECT id, title, body, created_at, updated_at FROM posts WHERE id = ?`

func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*models.Post, error) {
	n, ok := parseSQLiteID(id)
	if !ok {
		return nil, ErrPostNotFound
	}
	p, err := scanPost(s.db.QueryRowContext(ctx, query_FindPostByID, n))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post by ID %d: %w", n, err)
	}
	return p, nil
}

// Insert creates a new post
const query_InsertPost = `INSERT INTO posts (title, body, created_at, updated_at) VALUES (?, ?, ?, ?)`

func (s *SQLiteStore) Insert(ctx context.Context, p *models.Post) error {
	now := s.now()
	result, err := s.db.ExecContext(ctx, query_InsertPost, p.Title, p.Body, now, now)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for post: %w", err)
	}

	p.ID = strconv.FormatInt(id, 10)
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// Update replaces title and body of an existing post
const query_UpdatePost = `UPDATE posts SET title = ?, body = ?, updated_at = ? WHERE id = ?`

func (s *SQLiteStore) Update(ctx context.Context, id, title, body string) (*models.Post, error) {
	n, ok := parseSQLiteID(id)
	if !ok {
		return nil, ErrPostNotFound
	}

	result, err := s.db.ExecContext(ctx, query_UpdatePost, title, body, s.now(), n)
	if err != nil {
		return nil, fmt.Errorf("failed to update post ID %d: %w", n, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows for post ID %d: %w", n, err)
	}
	if affected == 0 {
		return nil, ErrPostNotFound
	}
	return s.FindByID(ctx, id)
}

// Delete removes a post
const query_DeletePost = `DELETE FROM posts WHERE id = ?`

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	n, ok := parseSQLiteID(id)
	if !ok {
		return ErrPostNotFound
	}

	result, err := s.db.ExecContext(ctx, query_DeletePost, n)
	if err != nil {
		return fmt.Errorf("failed to delete post ID %d: %w", n, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows for post ID %d: %w", n, err)
	}
	if affected == 0 {
		return ErrPostNotFound
	}
	return nil
}
