package item

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"bucketlist/internal/bucketlist/models"
	id "bucketlist/pkg/domain"
	"bucketlist/pkg/platform/sentinel"
)

// InMemoryStore keeps items in a map guarded by a RWMutex. Every lookup is
// scoped to the parent bucketlist.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID id.ItemID
	items  map[id.ItemID]models.Item
}

func New() *InMemoryStore {
	return &InMemoryStore{items: make(map[id.ItemID]models.Item)}
}

func (s *InMemoryStore) Create(_ context.Context, it *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTakenLocked(it.BucketlistID, it.Name, 0) {
		return ErrNameTaken
	}
	s.nextID++
	it.ID = s.nextID
	s.items[it.ID] = *it
	return nil
}

// FindByID returns the item only when it belongs to bucketlistID.
func (s *InMemoryStore) FindByID(_ context.Context, itemID id.ItemID, bucketlistID id.BucketlistID) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[itemID]
	if !ok || it.BucketlistID != bucketlistID {
		return nil, sentinel.ErrNotFound
	}
	return &it, nil
}

func (s *InMemoryStore) Update(_ context.Context, it *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[it.ID]
	if !ok || existing.BucketlistID != it.BucketlistID {
		return sentinel.ErrNotFound
	}
	if s.nameTakenLocked(it.BucketlistID, it.Name, it.ID) {
		return ErrNameTaken
	}
	s.items[it.ID] = *it
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, itemID id.ItemID, bucketlistID id.BucketlistID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok || it.BucketlistID != bucketlistID {
		return sentinel.ErrNotFound
	}
	delete(s.items, itemID)
	return nil
}

func (s *InMemoryStore) ListByBucketlist(_ context.Context, bucketlistID id.BucketlistID) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Item{}
	for _, it := range s.items {
		if it.BucketlistID == bucketlistID {
			out = append(out, it)
		}
	}
	sortItems(out)
	return out, nil
}

// ListByBucketlists groups the items of every listed bucketlist.
func (s *InMemoryStore) ListByBucketlists(_ context.Context, bucketlistIDs []id.BucketlistID) (map[id.BucketlistID][]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.BucketlistID][]models.Item, len(bucketlistIDs))
	for _, it := range s.items {
		if slices.Contains(bucketlistIDs, it.BucketlistID) {
			out[it.BucketlistID] = append(out[it.BucketlistID], it)
		}
	}
	for _, items := range out {
		sortItems(items)
	}
	return out, nil
}

func (s *InMemoryStore) DeleteByBucketlists(_ context.Context, bucketlistIDs []id.BucketlistID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for itemID, it := range s.items {
		if slices.Contains(bucketlistIDs, it.BucketlistID) {
			delete(s.items, itemID)
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) nameTakenLocked(bucketlistID id.BucketlistID, name string, self id.ItemID) bool {
	for _, it := range s.items {
		if it.BucketlistID == bucketlistID && it.Name == name && it.ID != self {
			return true
		}
	}
	return false
}

func sortItems(items []models.Item) {
	slices.SortFunc(items, func(a, b models.Item) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
