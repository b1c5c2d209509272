package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"bucketlist/internal/audit"
	"bucketlist/internal/bucketlist/metrics"
	"bucketlist/internal/bucketlist/models"
	liststore "bucketlist/internal/bucketlist/store/bucketlist"
	itemstore "bucketlist/internal/bucketlist/store/item"
	id "bucketlist/pkg/domain"
	dErrors "bucketlist/pkg/domain-errors"
	"bucketlist/pkg/platform/tx"
)

const (
	alice id.UserID = 1
	bob   id.UserID = 2
)

type ServiceSuite struct {
	suite.Suite
	lists   *liststore.InMemoryStore
	items   *itemstore.InMemoryStore
	sink    *audit.MemorySink
	service *Service
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.lists = liststore.New()
	s.items = itemstore.New()
	s.sink = audit.NewMemorySink()
	s.now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.service = New(s.lists, s.items,
		WithMetrics(metrics.New(prometheus.NewRegistry())),
		WithAuditPublisher(syncPublisher{s.sink}),
		WithClock(func() time.Time { return s.now }),
	)
}

// syncPublisher writes straight to a sink so assertions need no draining.
type syncPublisher struct{ sink audit.Sink }

func (p syncPublisher) Emit(ctx context.Context, e audit.Event) error {
	return p.sink.Write(ctx, []audit.Event{e})
}

func (s *ServiceSuite) mustCreate(owner id.UserID, name string) *models.Bucketlist {
	b, err := s.service.CreateBucketlist(context.Background(), owner, name)
	s.Require().NoError(err)
	return b
}

func (s *ServiceSuite) mustItem(parent id.BucketlistID, name string) *models.Item {
	it, err := s.service.CreateItem(context.Background(), parent, name, false)
	s.Require().NoError(err)
	return it
}

func (s *ServiceSuite) TestCreateBucketlist() {
	ctx := context.Background()

	s.Run("stamps owner and timestamps", func() {
		b := s.mustCreate(alice, "bucket 1")
		s.Equal(alice, b.CreatedBy)
		s.Equal(s.now, b.DateCreated)
		s.Equal(s.now, b.DateModified)
		s.NotNil(b.Items)
	})

	s.Run("names are unique across owners", func() {
		_, err := s.service.CreateBucketlist(ctx, bob, "bucket 1")
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeConflict, MsgBucketlistNameTaken))
	})

	s.Run("blank name is a bad request", func() {
		_, err := s.service.CreateBucketlist(ctx, alice, "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Equal([]audit.Action{audit.EventBucketlistCreated}, s.sink.Actions())
}

func (s *ServiceSuite) TestOwnerIsolation() {
	ctx := context.Background()
	b := s.mustCreate(alice, "private")

	_, err := s.service.GetBucketlist(ctx, b.ID, bob)
	s.Require().ErrorIs(err, dErrors.New(dErrors.CodeNotFound, MsgBucketlistNotFound))

	page, err := s.service.ListBucketlists(ctx, bob, models.ListQuery{})
	s.Require().NoError(err)
	s.Empty(page.Bucketlists)
	s.Equal(models.MsgNoBucketlists, page.Message)

	page, err = s.service.ListBucketlists(ctx, bob, models.ListQuery{Search: "priv"})
	s.Require().NoError(err)
	s.Empty(page.Bucketlists)
}

func (s *ServiceSuite) TestUpdateBucketlist() {
	ctx := context.Background()
	b := s.mustCreate(alice, "old")
	s.mustCreate(alice, "taken")
	s.now = s.now.Add(time.Hour)

	s.Run("absent name leaves it untouched but bumps date_modified", func() {
		got, err := s.service.UpdateBucketlist(ctx, b.ID, alice, nil)
		s.Require().NoError(err)
		s.Equal("old", got.Name)
		s.Equal(s.now, got.DateModified)
	})

	s.Run("rename", func() {
		name := "new"
		got, err := s.service.UpdateBucketlist(ctx, b.ID, alice, &name)
		s.Require().NoError(err)
		s.Equal("new", got.Name)
	})

	s.Run("rename to a taken name", func() {
		name := "taken"
		_, err := s.service.UpdateBucketlist(ctx, b.ID, alice, &name)
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeConflict, MsgBucketlistNameTaken))
	})

	s.Run("owner is rewritten to the caller", func() {
		got, err := s.service.UpdateBucketlist(ctx, b.ID, bob, nil)
		s.Require().NoError(err)
		s.Equal(bob, got.CreatedBy)
	})

	s.Run("unknown id", func() {
		_, err := s.service.UpdateBucketlist(ctx, 999, alice, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestDeleteBucketlistCascades() {
	ctx := context.Background()
	b := s.mustCreate(alice, "doomed")
	it := s.mustItem(b.ID, "swim")
	other := s.mustCreate(alice, "kept")
	s.mustItem(other.ID, "run")

	s.Require().NoError(s.service.DeleteBucketlist(ctx, b.ID))

	_, err := s.service.GetBucketlist(ctx, b.ID, alice)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.items.FindByID(ctx, it.ID, b.ID)
	s.Error(err)
	name := "x"
	_, err = s.service.UpdateItem(ctx, it.ID, b.ID, &name, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	kept, err := s.service.GetBucketlist(ctx, other.ID, alice)
	s.Require().NoError(err)
	s.Len(kept.Items, 1)

	err = s.service.DeleteBucketlist(ctx, b.ID)
	s.Require().ErrorIs(err, dErrors.New(dErrors.CodeNotFound, MsgBucketlistNotFound))
}

func (s *ServiceSuite) TestDeleteByOwner() {
	ctx := context.Background()
	a1 := s.mustCreate(alice, "a1")
	s.mustItem(a1.ID, "i1")
	a2 := s.mustCreate(alice, "a2")
	s.mustItem(a2.ID, "i2")
	b1 := s.mustCreate(bob, "b1")
	s.mustItem(b1.ID, "i3")

	s.Require().NoError(s.service.DeleteByOwner(ctx, alice))

	page, err := s.service.ListBucketlists(ctx, alice, models.ListQuery{})
	s.Require().NoError(err)
	s.Empty(page.Bucketlists)
	left, err := s.items.ListByBucketlists(ctx, []id.BucketlistID{a1.ID, a2.ID})
	s.Require().NoError(err)
	s.Empty(left)

	bobs, err := s.service.GetBucketlist(ctx, b1.ID, bob)
	s.Require().NoError(err)
	s.Len(bobs.Items, 1)
}

func (s *ServiceSuite) TestItems() {
	ctx := context.Background()
	b := s.mustCreate(alice, "trip")
	other := s.mustCreate(alice, "other")

	it := s.mustItem(b.ID, "swim")
	s.False(it.Done)

	s.Run("names unique per parent", func() {
		_, err := s.service.CreateItem(ctx, b.ID, "swim", true)
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeConflict, MsgItemNameTaken))
		_, err = s.service.CreateItem(ctx, other.ID, "swim", true)
		s.NoError(err)
	})

	s.Run("missing parent", func() {
		_, err := s.service.CreateItem(ctx, 999, "x", false)
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeNotFound, MsgBucketlistNotFound))
	})

	s.Run("update only supplied fields", func() {
		done := true
		got, err := s.service.UpdateItem(ctx, it.ID, b.ID, nil, &done)
		s.Require().NoError(err)
		s.Equal("swim", got.Name)
		s.True(got.Done)
	})

	s.Run("item under the wrong parent is not found", func() {
		done := false
		_, err := s.service.UpdateItem(ctx, it.ID, other.ID, nil, &done)
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeNotFound, MsgItemNotFound))
		s.Require().ErrorIs(s.service.DeleteItem(ctx, it.ID, other.ID), dErrors.New(dErrors.CodeNotFound, MsgItemNotFound))
	})

	s.Run("list and delete", func() {
		items, err := s.service.ListItems(ctx, b.ID)
		s.Require().NoError(err)
		s.Len(items, 1)

		s.Require().NoError(s.service.DeleteItem(ctx, it.ID, b.ID))
		items, err = s.service.ListItems(ctx, b.ID)
		s.Require().NoError(err)
		s.Empty(items)
	})
}

func (s *ServiceSuite) TestListBucketlistsPagination() {
	ctx := context.Background()
	for i := 1; i <= 120; i++ {
		s.mustCreate(alice, fmt.Sprintf("list %03d", i))
	}
	first := s.mustCreate(alice, "with items")
	s.mustItem(first.ID, "a")

	s.Run("limit is clamped to 100", func() {
		page, err := s.service.ListBucketlists(ctx, alice, models.ListQuery{Limit: 200, BaseURL: "http://h"})
		s.Require().NoError(err)
		s.Len(page.Bucketlists, 100)
		s.Equal(100, page.Limit)
		s.Equal(2, page.Pages)
		s.True(page.HasNext)
		s.Require().NotNil(page.NextPage)
		s.Equal("http://h/bucketlists?limit=100&page=2", *page.NextPage)
		s.Nil(page.PreviousPage)
	})

	s.Run("ordered by id with items embedded", func() {
		page, err := s.service.ListBucketlists(ctx, alice, models.ListQuery{Page: 2, Limit: 100})
		s.Require().NoError(err)
		s.Len(page.Bucketlists, 21)
		last := page.Bucketlists[len(page.Bucketlists)-1]
		s.Equal(first.ID, last.ID)
		s.Len(last.Items, 1)
		s.NotNil(page.Bucketlists[0].Items)
		s.False(page.HasNext)
		s.Nil(page.NextPage)
	})

	s.Run("page beyond the last is empty but successful", func() {
		page, err := s.service.ListBucketlists(ctx, alice, models.ListQuery{Page: 50, Limit: 20})
		s.Require().NoError(err)
		s.Empty(page.Bucketlists)
		s.False(page.HasNext)
		s.Equal(models.MsgNoBucketlists, page.Message)
	})
}

func (s *ServiceSuite) TestListBucketlistsSearch() {
	ctx := context.Background()
	s.mustCreate(alice, "bucket 1")
	s.mustCreate(alice, "bucket 2")
	s.mustCreate(alice, "my bucket")
	s.mustCreate(bob, "bucket of bob")

	page, err := s.service.ListBucketlists(ctx, alice, models.ListQuery{Search: "bucket", Limit: 1, BaseURL: "http://h"})
	s.Require().NoError(err)
	s.Require().Len(page.Bucketlists, 1)
	s.Equal("bucket 1", page.Bucketlists[0].Name)
	s.Equal(2, page.Total)
	s.Require().NotNil(page.NextPage)
	s.Equal("http://h/bucketlists?q=bucket&page=2", *page.NextPage)
}

type failingLists struct {
	*liststore.InMemoryStore
}

func (failingLists) CountByOwner(context.Context, id.UserID) (int, error) {
	return 0, errors.New("db down")
}

func (failingLists) Delete(context.Context, id.BucketlistID) error {
	return errors.New("db down")
}

func (s *ServiceSuite) TestStorageFailuresAreInternal() {
	ctx := context.Background()
	svc := New(failingLists{s.lists}, s.items)

	_, err := svc.ListBucketlists(ctx, alice, models.ListQuery{})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	b := s.mustCreate(alice, "x")
	err = svc.DeleteBucketlist(ctx, b.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

// ownerlessLists behaves like Postgres when the owner's user row is gone.
type ownerlessLists struct {
	*liststore.InMemoryStore
}

func (ownerlessLists) Create(context.Context, *models.Bucketlist) error {
	return fmt.Errorf("insert bucketlist: %w", liststore.ErrUnknownOwner)
}

func (s *ServiceSuite) TestCreateForDeletedOwnerIsUnauthorized() {
	svc := New(ownerlessLists{s.lists}, s.items)

	_, err := svc.CreateBucketlist(context.Background(), alice, "orphan")
	s.Require().ErrorIs(err, dErrors.New(dErrors.CodeUnauthorized, MsgOwnerUnknown))
	s.False(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// countingRunner records how many units of work went through the boundary.
type countingRunner struct {
	tx.LockRunner
	mu    sync.Mutex
	calls int
}

func (r *countingRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.LockRunner.RunInTx(ctx, fn)
}

func (s *ServiceSuite) TestCreateItemRunsInTransaction() {
	ctx := context.Background()
	runner := &countingRunner{}
	svc := New(s.lists, s.items, WithTxRunner(runner))
	b, err := svc.CreateBucketlist(ctx, alice, "trip")
	s.Require().NoError(err)

	s.Run("parent check and insert share one unit of work", func() {
		before := runner.calls
		_, err := svc.CreateItem(ctx, b.ID, "swim", false)
		s.Require().NoError(err)
		s.Equal(before+1, runner.calls)
	})

	s.Run("a missing parent aborts before the insert", func() {
		_, err := svc.CreateItem(ctx, 999, "swim", false)
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeNotFound, MsgBucketlistNotFound))
		items, err := s.items.ListByBucketlist(ctx, 999)
		s.Require().NoError(err)
		s.Empty(items)
	})
}

func (s *ServiceSuite) TestCreateItemRacingDeleteLeavesNoOrphans() {
	ctx := context.Background()
	b := s.mustCreate(alice, "doomed")

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			_, err := s.service.CreateItem(ctx, b.ID, fmt.Sprintf("item %d", i), false)
			if err != nil {
				s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "unexpected error: %v", err)
			}
		})
	}
	wg.Go(func() {
		s.NoError(s.service.DeleteBucketlist(ctx, b.ID))
	})
	wg.Wait()

	items, err := s.items.ListByBucketlist(ctx, b.ID)
	s.Require().NoError(err)
	s.Empty(items)
}

// vanishingParent reports the parent as present but the insert hits the
// foreign key, as when a delete commits between the two statements.
type vanishingParent struct {
	*itemstore.InMemoryStore
}

func (vanishingParent) Create(context.Context, *models.Item) error {
	return fmt.Errorf("insert item: %w", itemstore.ErrUnknownBucketlist)
}

func (s *ServiceSuite) TestCreateItemForVanishedParentIsBucketlistNotFound() {
	b := s.mustCreate(alice, "gone")
	svc := New(s.lists, vanishingParent{s.items})

	_, err := svc.CreateItem(context.Background(), b.ID, "swim", false)
	s.Require().ErrorIs(err, dErrors.New(dErrors.CodeNotFound, MsgBucketlistNotFound))
}
