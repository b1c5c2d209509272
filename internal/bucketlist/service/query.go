package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"bucketlist/internal/bucketlist/models"
	id "bucketlist/pkg/domain"
	dErrors "bucketlist/pkg/domain-errors"
)

const (
	modeDefault = "default"
	modeSearch  = "search"
)

// ListBucketlists returns one page of ownerID's bucketlists, each with its
// full item list. Search mode and default mode are separate paths with
// their own counts.
func (s *Service) ListBucketlists(ctx context.Context, ownerID id.UserID, q models.ListQuery) (*models.Page, error) {
	q = q.Normalized()
	mode := modeDefault
	if q.IsSearch() {
		mode = modeSearch
	}

	ctx, span := tracer.Start(ctx, "bucketlist.List")
	defer span.End()
	span.SetAttributes(
		attribute.String("list.mode", mode),
		attribute.Int("list.page", q.Page),
		attribute.Int("list.limit", q.Limit),
	)
	defer s.metrics.ObserveList(mode, time.Now())

	var (
		lists []models.Bucketlist
		total int
		err   error
	)
	if q.IsSearch() {
		lists, total, err = s.searchPage(ctx, ownerID, q)
	} else {
		lists, total, err = s.defaultPage(ctx, ownerID, q)
	}
	if err != nil {
		return nil, err
	}

	if err := s.embedItems(ctx, lists); err != nil {
		return nil, err
	}
	return models.NewPage(q, lists, total), nil
}

func (s *Service) defaultPage(ctx context.Context, ownerID id.UserID, q models.ListQuery) ([]models.Bucketlist, int, error) {
	total, err := s.lists.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count bucketlists")
	}
	lists, err := s.lists.ListByOwner(ctx, ownerID, q.Offset(), q.Limit)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list bucketlists")
	}
	return lists, total, nil
}

func (s *Service) searchPage(ctx context.Context, ownerID id.UserID, q models.ListQuery) ([]models.Bucketlist, int, error) {
	total, err := s.lists.CountSearchByOwner(ctx, ownerID, q.Search)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count bucketlist search")
	}
	lists, err := s.lists.SearchByOwner(ctx, ownerID, q.Search, q.Offset(), q.Limit)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search bucketlists")
	}
	return lists, total, nil
}

// embedItems loads the items of every bucketlist on the page in one call.
func (s *Service) embedItems(ctx context.Context, lists []models.Bucketlist) error {
	if len(lists) == 0 {
		return nil
	}
	ids := make([]id.BucketlistID, len(lists))
	for i, b := range lists {
		ids[i] = b.ID
	}
	grouped, err := s.items.ListByBucketlists(ctx, ids)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load items")
	}
	for i := range lists {
		items := grouped[lists[i].ID]
		if items == nil {
			items = []models.Item{}
		}
		lists[i].Items = items
	}
	return nil
}
