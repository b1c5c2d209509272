package bucketlist

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"bucketlist/internal/bucketlist/models"
	id "bucketlist/pkg/domain"
	"bucketlist/pkg/platform/sentinel"
)

// InMemoryStore keeps bucketlists in a map guarded by a RWMutex. Listings are
// ordered by id.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID id.BucketlistID
	lists  map[id.BucketlistID]*models.Bucketlist
}

func New() *InMemoryStore {
	return &InMemoryStore{lists: make(map[id.BucketlistID]*models.Bucketlist)}
}

func (s *InMemoryStore) Create(_ context.Context, b *models.Bucketlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTakenLocked(b.Name, 0) {
		return ErrNameTaken
	}
	s.nextID++
	b.ID = s.nextID
	s.lists[b.ID] = clone(b)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, bucketlistID id.BucketlistID) (*models.Bucketlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.lists[bucketlistID]; ok {
		return clone(b), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByName(_ context.Context, name string) (*models.Bucketlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.lists {
		if b.Name == name {
			return clone(b), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) OwnerOf(_ context.Context, bucketlistID id.BucketlistID) (id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.lists[bucketlistID]; ok {
		return b.CreatedBy, nil
	}
	return 0, sentinel.ErrNotFound
}

func (s *InMemoryStore) Update(_ context.Context, b *models.Bucketlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[b.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.nameTakenLocked(b.Name, b.ID) {
		return ErrNameTaken
	}
	s.lists[b.ID] = clone(b)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, bucketlistID id.BucketlistID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[bucketlistID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.lists, bucketlistID)
	return nil
}

func (s *InMemoryStore) ListByOwner(_ context.Context, ownerID id.UserID, offset, limit int) ([]models.Bucketlist, error) {
	return s.window(s.owned(ownerID, ""), offset, limit), nil
}

func (s *InMemoryStore) CountByOwner(_ context.Context, ownerID id.UserID) (int, error) {
	return len(s.owned(ownerID, "")), nil
}

// SearchByOwner matches names starting with prefix, case-sensitively.
func (s *InMemoryStore) SearchByOwner(_ context.Context, ownerID id.UserID, prefix string, offset, limit int) ([]models.Bucketlist, error) {
	return s.window(s.owned(ownerID, prefix), offset, limit), nil
}

func (s *InMemoryStore) CountSearchByOwner(_ context.Context, ownerID id.UserID, prefix string) (int, error) {
	return len(s.owned(ownerID, prefix)), nil
}

func (s *InMemoryStore) IDsByOwner(_ context.Context, ownerID id.UserID) ([]id.BucketlistID, error) {
	owned := s.owned(ownerID, "")
	ids := make([]id.BucketlistID, len(owned))
	for i, b := range owned {
		ids[i] = b.ID
	}
	return ids, nil
}

func (s *InMemoryStore) DeleteByOwner(_ context.Context, ownerID id.UserID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for bid, b := range s.lists {
		if b.CreatedBy == ownerID {
			delete(s.lists, bid)
			n++
		}
	}
	return n, nil
}

// owned returns ownerID's bucketlists with the given name prefix, sorted by id.
func (s *InMemoryStore) owned(ownerID id.UserID, prefix string) []models.Bucketlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Bucketlist
	for _, b := range s.lists {
		if b.CreatedBy == ownerID && strings.HasPrefix(b.Name, prefix) {
			out = append(out, *clone(b))
		}
	}
	slices.SortFunc(out, func(a, b models.Bucketlist) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (s *InMemoryStore) window(all []models.Bucketlist, offset, limit int) []models.Bucketlist {
	offset = max(offset, 0)
	if offset >= len(all) {
		return []models.Bucketlist{}
	}
	end := min(offset+limit, len(all))
	return all[offset:end]
}

func (s *InMemoryStore) nameTakenLocked(name string, self id.BucketlistID) bool {
	for _, b := range s.lists {
		if b.Name == name && b.ID != self {
			return true
		}
	}
	return false
}

func clone(b *models.Bucketlist) *models.Bucketlist {
	c := *b
	c.Items = nil
	return &c
}
