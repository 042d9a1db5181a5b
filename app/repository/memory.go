package repository

import (
	"context"
	"sync"

	"github.com/vibast-solutions/ms-go-account/app/entity"
)

// MemoryUserRepository keeps users in process memory. It backs STORE=memory and
// the service tests. Returned users are copies; changes persist only through Update.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users *memoryUsers
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: newMemoryUsers()}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users.Create(ctx, user)
}

func (r *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users.FindByEmail(ctx, email)
}

func (r *MemoryUserRepository) FindByID(ctx context.Context, id uint64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users.FindByID(ctx, id)
}

func (r *MemoryUserRepository) Update(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users.Update(ctx, user)
}

// Atomic serializes fn against every other store operation and restores the
// previous contents when fn fails.
func (r *MemoryUserRepository) Atomic(ctx context.Context, fn func(store UserStore) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.users.clone()
	if err := fn(r.users); err != nil {
		r.users = snapshot
		return err
	}
	return nil
}

func (r *MemoryUserRepository) Ping(context.Context) error {
	return nil
}

type memoryUsers struct {
	nextID  uint64
	byID    map[uint64]entity.User
	byEmail map[string]uint64
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{
		byID:    make(map[uint64]entity.User),
		byEmail: make(map[string]uint64),
	}
}

func (m *memoryUsers) clone() *memoryUsers {
	c := &memoryUsers{
		nextID:  m.nextID,
		byID:    make(map[uint64]entity.User, len(m.byID)),
		byEmail: make(map[string]uint64, len(m.byEmail)),
	}
	for id, u := range m.byID {
		c.byID[id] = u
	}
	for email, id := range m.byEmail {
		c.byEmail[email] = id
	}
	return c
}

func (m *memoryUsers) Create(_ context.Context, user *entity.User) error {
	if _, ok := m.byEmail[user.Email]; ok {
		return ErrDuplicateKey
	}
	m.nextID++
	user.ID = m.nextID
	m.byID[user.ID] = *user
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *memoryUsers) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return nil, nil
	}
	return m.FindByID(ctx, id)
}

func (m *memoryUsers) FindByID(_ context.Context, id uint64) (*entity.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memoryUsers) Update(_ context.Context, user *entity.User) error {
	stored, ok := m.byID[user.ID]
	if !ok {
		return ErrNotFound
	}
	stored.PasswordHash = user.PasswordHash
	stored.IsConfirmed = user.IsConfirmed
	stored.ConfirmedOn = user.ConfirmedOn
	stored.PendingResetToken = user.PendingResetToken
	m.byID[user.ID] = stored
	return nil
}

func (m *memoryUsers) Atomic(_ context.Context, fn func(store UserStore) error) error {
	return fn(m)
}

func (m *memoryUsers) Ping(context.Context) error {
	return nil
}
