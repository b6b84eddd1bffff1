package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xaenox/readlater-bot/internal/models"
)

type stateEntry struct {
	state     models.ConversationState
	expiresAt time.Time
}

// MemoryStorage implements Storage and StateStore in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	users  map[int64]*models.UserRegistration
	pins   map[int64]*models.PinnedContent
	states map[int64]stateEntry
	now    func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:  make(map[int64]*models.UserRegistration),
		pins:   make(map[int64]*models.PinnedContent),
		states: make(map[int64]stateEntry),
		now:    time.Now,
	}
}

// WithClock replaces the clock used for timestamps and state expiry
func (s *MemoryStorage) WithClock(now func() time.Time) *MemoryStorage {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// User methods
func (s *MemoryStorage) GetUser(ctx context.Context, userID int64) (*models.UserRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, exists := s.users[userID]; exists {
		u := *user
		return &u, nil
	}
	return nil, nil
}

func (s *MemoryStorage) SaveUser(ctx context.Context, user *models.UserRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, exists := s.users[user.UserID]; exists {
		existing.WorkspaceToken = user.WorkspaceToken
		existing.DatabaseID = user.DatabaseID
		existing.UpdatedAt = now
		return nil
	}

	u := *user
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[user.UserID] = &u
	return nil
}

func (s *MemoryStorage) SetDeliveryTime(ctx context.Context, userID int64, deliveryTime string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return ErrUserNotFound
	}
	user.DeliveryTime = deliveryTime
	user.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStorage) DeleteUser(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, userID)
	return nil
}

func (s *MemoryStorage) ListScheduledUsers(ctx context.Context) ([]*models.UserRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.UserRegistration, 0, len(s.users))
	for _, user := range s.users {
		if user.DeliveryTime == "" {
			continue
		}
		u := *user
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users, nil
}

// Pin methods
func (s *MemoryStorage) GetPin(ctx context.Context, userID int64) (*models.PinnedContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pin, exists := s.pins[userID]; exists {
		p := *pin
		return &p, nil
	}
	return nil, nil
}

func (s *MemoryStorage) SavePin(ctx context.Context, pin *models.PinnedContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *pin
	s.pins[pin.UserID] = &p
	return nil
}

func (s *MemoryStorage) DeletePin(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pins, userID)
	return nil
}

// State methods
func (s *MemoryStorage) GetState(ctx context.Context, userID int64) (*models.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.states[userID]
	if !exists {
		return nil, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.states, userID)
		return nil, nil
	}
	st := entry.state
	return &st, nil
}

func (s *MemoryStorage) PutState(ctx context.Context, state *models.ConversationState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state.UserID] = stateEntry{
		state:     *state,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStorage) DeleteState(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, userID)
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
