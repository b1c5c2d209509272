package user

import (
	"context"
	"testing"

	"bucketlist/internal/auth/models"
	id "bucketlist/pkg/domain"
	"bucketlist/pkg/platform/sentinel"

	"github.com/stretchr/testify/suite"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemoryUserStore
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = New()
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func newUser(username, email string) *models.User {
	return &models.User{Username: username, Email: email, PasswordHash: []byte("hash")}
}

func (s *InMemoryUserStoreSuite) TestCreate() {
	ctx := context.Background()

	s.Run("assigns increasing ids", func() {
		a := newUser("alice", "alice@example.com")
		b := newUser("bob", "bob@example.com")
		s.Require().NoError(s.store.Create(ctx, a))
		s.Require().NoError(s.store.Create(ctx, b))
		s.Equal(id.UserID(1), a.ID)
		s.Equal(id.UserID(2), b.ID)
	})

	s.Run("rejects duplicate username before email", func() {
		err := s.store.Create(ctx, newUser("alice", "bob@example.com"))
		s.Require().ErrorIs(err, ErrUsernameTaken)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("rejects duplicate email", func() {
		err := s.store.Create(ctx, newUser("carol", "alice@example.com"))
		s.Require().ErrorIs(err, ErrEmailTaken)
	})
}

// TestLookupBehavior tests user retrieval by ID, username and email.
func (s *InMemoryUserStoreSuite) TestLookupBehavior() {
	ctx := context.Background()
	user := newUser("jane", "jane.doe@example.com")
	s.Require().NoError(s.store.Create(ctx, user))

	s.Run("returns user by ID when exists", func() {
		found, err := s.store.FindByID(ctx, user.ID)
		s.Require().NoError(err)
		s.Equal(user, found)
	})

	s.Run("returns user by username and email", func() {
		found, err := s.store.FindByUsername(ctx, "jane")
		s.Require().NoError(err)
		s.Equal(user.ID, found.ID)

		found, err = s.store.FindByEmail(ctx, "jane.doe@example.com")
		s.Require().NoError(err)
		s.Equal(user.ID, found.ID)
	})

	s.Run("returned records are copies", func() {
		found, err := s.store.FindByID(ctx, user.ID)
		s.Require().NoError(err)
		found.Username = "mutated"
		again, err := s.store.FindByID(ctx, user.ID)
		s.Require().NoError(err)
		s.Equal("jane", again.Username)
	})

	s.Run("returns ErrNotFound for unknown keys", func() {
		_, err := s.store.FindByID(ctx, id.UserID(999))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.FindByUsername(ctx, "missing")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.FindByEmail(ctx, "missing@example.com")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryUserStoreSuite) TestUpdate() {
	ctx := context.Background()
	a := newUser("alice", "alice@example.com")
	b := newUser("bob", "bob@example.com")
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	s.Run("keeping own username is not a conflict", func() {
		a.Email = "alice@new.example.com"
		s.Require().NoError(s.store.Update(ctx, a))
		found, err := s.store.FindByEmail(ctx, "alice@new.example.com")
		s.Require().NoError(err)
		s.Equal(a.ID, found.ID)
	})

	s.Run("taking another user's username conflicts", func() {
		clash := *a
		clash.Username = "bob"
		s.Require().ErrorIs(s.store.Update(ctx, &clash), ErrUsernameTaken)
	})

	s.Run("unknown user", func() {
		ghost := newUser("ghost", "ghost@example.com")
		ghost.ID = 404
		s.Require().ErrorIs(s.store.Update(ctx, ghost), sentinel.ErrNotFound)
	})
}

func (s *InMemoryUserStoreSuite) TestDelete() {
	ctx := context.Background()

	s.Run("deletes user and makes them unfindable", func() {
		user := newUser("deleteme", "delete.me@example.com")
		s.Require().NoError(s.store.Create(ctx, user))
		s.Require().NoError(s.store.Delete(ctx, user.ID))

		_, err := s.store.FindByID(ctx, user.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		exists, err := s.store.Exists(ctx, user.ID)
		s.Require().NoError(err)
		s.False(exists)
	})

	s.Run("returns ErrNotFound when deleting non-existent user", func() {
		s.Require().ErrorIs(s.store.Delete(ctx, id.UserID(12345)), sentinel.ErrNotFound)
	})
}
