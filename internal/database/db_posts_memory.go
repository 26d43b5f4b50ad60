package database

import (
	"context"
	"sync"
	"time"

	"github.com/go-while/go-pugblog/internal/models"
	"github.com/google/uuid"
)

// MemoryStore keeps posts in process memory. Used by tests and the
// default configuration; contents are lost on restart.
type MemoryStore struct {
	mux   sync.RWMutex
	posts map[string]*models.Post
	order []string
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts: make(map[string]*models.Post),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) FindAll(ctx context.Context) ([]*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mux.RLock()
	defer m.mux.RUnlock()

	posts := make([]*models.Post, 0, len(m.order))
	for _, id := range m.order {
		p := *m.posts[id]
		posts = append(posts, &p)
	}
	return posts, nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id string) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mux.RLock()
	defer m.mux.RUnlock()

	stored, ok := m.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	p := *stored
	return &p, nil
}

func (m *MemoryStore) Insert(ctx context.Context, p *models.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mux.Lock()
	defer m.mux.Unlock()

	now := m.now()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now

	stored := *p
	m.posts[p.ID] = &stored
	m.order = append(m.order, p.ID)
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, id, title, body string) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mux.Lock()
	defer m.mux.Unlock()

	stored, ok := m.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	stored.Title = title
	stored.Body = body
	stored.UpdatedAt = m.now()

	p := *stored
	return &p, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mux.Lock()
	defer m.mux.Unlock()

	if _, ok := m.posts[id]; !ok {
		return ErrPostNotFound
	}
	delete(m.posts, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
