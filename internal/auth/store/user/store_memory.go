package user

import (
	"context"
	"sync"

	"bucketlist/internal/auth/models"
	id "bucketlist/pkg/domain"
	"bucketlist/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in maps guarded by a RWMutex. Records are
// copied in and out so callers cannot mutate stored state.
type InMemoryUserStore struct {
	mu     sync.RWMutex
	nextID id.UserID
	users  map[id.UserID]*models.User
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[id.UserID]*models.User)}
}

// Create assigns the next ID and stores the user.
func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUniqueLocked(user, 0); err != nil {
		return err
	}
	s.nextID++
	user.ID = s.nextID
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		return cloneUser(u), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryUserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Update replaces the mutable fields of an existing user.
func (s *InMemoryUserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if err := s.checkUniqueLocked(user, user.ID); err != nil {
		return err
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *InMemoryUserStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.users, userID)
	return nil
}

// Exists reports whether userID is registered.
func (s *InMemoryUserStore) Exists(_ context.Context, userID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok, nil
}

func (s *InMemoryUserStore) checkUniqueLocked(user *models.User, self id.UserID) error {
	for uid, u := range s.users {
		if uid != self && u.Username == user.Username {
			return ErrUsernameTaken
		}
	}
	for uid, u := range s.users {
		if uid != self && u.Email == user.Email {
			return ErrEmailTaken
		}
	}
	return nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return &c
}
