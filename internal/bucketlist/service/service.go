package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"bucketlist/internal/audit"
	"bucketlist/internal/bucketlist/metrics"
	"bucketlist/internal/bucketlist/models"
	liststore "bucketlist/internal/bucketlist/store/bucketlist"
	itemstore "bucketlist/internal/bucketlist/store/item"
	"bucketlist/pkg/attrs"
	id "bucketlist/pkg/domain"
	dErrors "bucketlist/pkg/domain-errors"
	"bucketlist/pkg/platform/sentinel"
	"bucketlist/pkg/platform/tx"
	"bucketlist/pkg/requestcontext"
)

var tracer = otel.Tracer("bucketlist/internal/bucketlist/service")

// Client-facing messages.
const (
	MsgBucketlistNameTaken = "Bucketlist name already taken!"
	MsgBucketlistNotFound  = "Bucketlist not found"
	MsgItemNameTaken       = "Item name already taken!"
	MsgItemNotFound        = "Item not found!"
	MsgOwnerUnknown        = "user no longer exists"
)

type BucketlistStore interface {
	Create(ctx context.Context, b *models.Bucketlist) error
	FindByID(ctx context.Context, bucketlistID id.BucketlistID) (*models.Bucketlist, error)
	FindByName(ctx context.Context, name string) (*models.Bucketlist, error)
	Update(ctx context.Context, b *models.Bucketlist) error
	Delete(ctx context.Context, bucketlistID id.BucketlistID) error
	ListByOwner(ctx context.Context, ownerID id.UserID, offset, limit int) ([]models.Bucketlist, error)
	CountByOwner(ctx context.Context, ownerID id.UserID) (int, error)
	SearchByOwner(ctx context.Context, ownerID id.UserID, prefix string, offset, limit int) ([]models.Bucketlist, error)
	CountSearchByOwner(ctx context.Context, ownerID id.UserID, prefix string) (int, error)
	IDsByOwner(ctx context.Context, ownerID id.UserID) ([]id.BucketlistID, error)
	DeleteByOwner(ctx context.Context, ownerID id.UserID) (int64, error)
}

type ItemStore interface {
	Create(ctx context.Context, it *models.Item) error
	FindByID(ctx context.Context, itemID id.ItemID, bucketlistID id.BucketlistID) (*models.Item, error)
	Update(ctx context.Context, it *models.Item) error
	Delete(ctx context.Context, itemID id.ItemID, bucketlistID id.BucketlistID) error
	ListByBucketlist(ctx context.Context, bucketlistID id.BucketlistID) ([]models.Item, error)
	ListByBucketlists(ctx context.Context, bucketlistIDs []id.BucketlistID) (map[id.BucketlistID][]models.Item, error)
	DeleteByBucketlists(ctx context.Context, bucketlistIDs []id.BucketlistID) (int64, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages the user -> bucketlist -> item hierarchy. Every operation
// takes the owner or parent explicitly; callers are expected to have passed
// the access gate for the parent bucketlist.
type Service struct {
	lists          BucketlistStore
	items          ItemStore
	tx             tx.Runner
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	now            func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTxRunner sets the transaction boundary used for cascading deletes and
// item creation.
func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) {
		if runner != nil {
			s.tx = runner
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(lists BucketlistStore, items ItemStore, opts ...Option) *Service {
	s := &Service{
		lists: lists,
		items: items,
		tx:    &tx.LockRunner{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBucketlist checks the name against every bucketlist in the dataset,
// not just the owner's, before inserting.
func (s *Service) CreateBucketlist(ctx context.Context, ownerID id.UserID, name string) (*models.Bucketlist, error) {
	if err := models.ValidateName(name); err != nil {
		return nil, err
	}
	if _, err := s.lists.FindByName(ctx, name); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, MsgBucketlistNameTaken)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check bucketlist name")
	}

	now := s.now().UTC()
	b := &models.Bucketlist{
		Name:         name,
		CreatedBy:    ownerID,
		DateCreated:  now,
		DateModified: now,
	}
	if err := s.lists.Create(ctx, b); err != nil {
		return nil, translateListErr(err, "failed to create bucketlist")
	}
	b.Items = []models.Item{}

	s.metrics.IncBucketlistsCreated()
	s.logAudit(ctx, audit.EventBucketlistCreated, ownerID, b.ID.String())
	return b, nil
}

// GetBucketlist returns the bucketlist with its items when ownerID owns it.
func (s *Service) GetBucketlist(ctx context.Context, bucketlistID id.BucketlistID, ownerID id.UserID) (*models.Bucketlist, error) {
	b, err := s.ownedBucketlist(ctx, bucketlistID, ownerID)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListByBucketlist(ctx, bucketlistID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load items")
	}
	b.Items = items
	return b, nil
}

// UpdateBucketlist renames the bucketlist when name is set. The owner is
// always rewritten to ownerID, which is a no-op for the current owner.
func (s *Service) UpdateBucketlist(ctx context.Context, bucketlistID id.BucketlistID, ownerID id.UserID, name *string) (*models.Bucketlist, error) {
	b, err := s.lists.FindByID(ctx, bucketlistID)
	if err != nil {
		return nil, translateListErr(err, "failed to load bucketlist")
	}
	if name != nil {
		if err := models.ValidateName(*name); err != nil {
			return nil, err
		}
		b.Name = *name
	}
	b.CreatedBy = ownerID
	b.DateModified = s.now().UTC()

	if err := s.lists.Update(ctx, b); err != nil {
		return nil, translateListErr(err, "failed to update bucketlist")
	}
	s.logAudit(ctx, audit.EventBucketlistUpdated, ownerID, b.ID.String())
	return b, nil
}

// DeleteBucketlist removes the bucketlist and its items atomically.
func (s *Service) DeleteBucketlist(ctx context.Context, bucketlistID id.BucketlistID) error {
	ctx, span := tracer.Start(ctx, "bucketlist.Delete")
	defer span.End()
	span.SetAttributes(attribute.Int64("bucketlist.id", int64(bucketlistID)))

	var removedItems int64
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		n, err := s.items.DeleteByBucketlists(ctx, []id.BucketlistID{bucketlistID})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete items")
		}
		removedItems = n
		if err := s.lists.Delete(ctx, bucketlistID); err != nil {
			return translateListErr(err, "failed to delete bucketlist")
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, "delete bucketlist")
		return asDomainErr(err, "failed to delete bucketlist")
	}

	s.metrics.IncBucketlistsDeleted()
	s.metrics.AddCascade("items", removedItems)
	s.logAudit(ctx, audit.EventBucketlistDeleted, requestcontext.UserID(ctx), bucketlistID.String(),
		"items_removed", removedItems)
	return nil
}

// DeleteByOwner removes every bucketlist ownerID owns along with their items.
// It does not open its own transaction; callers wrap it together with the
// user delete.
func (s *Service) DeleteByOwner(ctx context.Context, ownerID id.UserID) error {
	ids, err := s.lists.IDsByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list owned bucketlists: %w", err)
	}
	items, err := s.items.DeleteByBucketlists(ctx, ids)
	if err != nil {
		return fmt.Errorf("delete owned items: %w", err)
	}
	lists, err := s.lists.DeleteByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("delete owned bucketlists: %w", err)
	}
	s.metrics.AddCascade("items", items)
	s.metrics.AddCascade("bucketlists", lists)
	return nil
}

// ListItems returns every item of the bucketlist, ordered by id.
func (s *Service) ListItems(ctx context.Context, bucketlistID id.BucketlistID) ([]models.Item, error) {
	items, err := s.items.ListByBucketlist(ctx, bucketlistID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load items")
	}
	return items, nil
}

// CreateItem adds an item; names are unique within the parent only. The
// parent check and the insert share a transaction so a concurrent
// DeleteBucketlist cannot leave the item behind.
func (s *Service) CreateItem(ctx context.Context, bucketlistID id.BucketlistID, name string, done bool) (*models.Item, error) {
	if err := models.ValidateName(name); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	it := &models.Item{
		Name:         name,
		Done:         done,
		BucketlistID: bucketlistID,
		DateCreated:  now,
		DateModified: now,
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.lists.FindByID(ctx, bucketlistID); err != nil {
			return translateListErr(err, "failed to load bucketlist")
		}
		if err := s.items.Create(ctx, it); err != nil {
			return translateItemErr(err, "failed to create item")
		}
		return nil
	})
	if err != nil {
		return nil, asDomainErr(err, "failed to create item")
	}
	s.metrics.IncItemsCreated()
	s.logAudit(ctx, audit.EventItemCreated, requestcontext.UserID(ctx), it.ID.String(),
		"bucketlist_id", bucketlistID)
	return it, nil
}

// UpdateItem applies name and done when set. The item must belong to
// bucketlistID.
func (s *Service) UpdateItem(ctx context.Context, itemID id.ItemID, bucketlistID id.BucketlistID, name *string, done *bool) (*models.Item, error) {
	it, err := s.items.FindByID(ctx, itemID, bucketlistID)
	if err != nil {
		return nil, translateItemErr(err, "failed to load item")
	}
	if name != nil {
		if err := models.ValidateName(*name); err != nil {
			return nil, err
		}
		it.Name = *name
	}
	if done != nil {
		it.Done = *done
	}
	it.DateModified = s.now().UTC()

	if err := s.items.Update(ctx, it); err != nil {
		return nil, translateItemErr(err, "failed to update item")
	}
	return it, nil
}

func (s *Service) DeleteItem(ctx context.Context, itemID id.ItemID, bucketlistID id.BucketlistID) error {
	if err := s.items.Delete(ctx, itemID, bucketlistID); err != nil {
		return translateItemErr(err, "failed to delete item")
	}
	s.metrics.IncItemsDeleted()
	s.logAudit(ctx, audit.EventItemDeleted, requestcontext.UserID(ctx), itemID.String(),
		"bucketlist_id", bucketlistID)
	return nil
}

func (s *Service) ownedBucketlist(ctx context.Context, bucketlistID id.BucketlistID, ownerID id.UserID) (*models.Bucketlist, error) {
	b, err := s.lists.FindByID(ctx, bucketlistID)
	if err != nil {
		return nil, translateListErr(err, "failed to load bucketlist")
	}
	if b.CreatedBy != ownerID {
		return nil, dErrors.New(dErrors.CodeNotFound, MsgBucketlistNotFound)
	}
	return b, nil
}

func translateListErr(err error, msg string) error {
	switch {
	case errors.Is(err, liststore.ErrNameTaken):
		return dErrors.New(dErrors.CodeConflict, MsgBucketlistNameTaken)
	case errors.Is(err, liststore.ErrUnknownOwner):
		return dErrors.New(dErrors.CodeUnauthorized, MsgOwnerUnknown)
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, MsgBucketlistNotFound)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func translateItemErr(err error, msg string) error {
	switch {
	case errors.Is(err, itemstore.ErrNameTaken):
		return dErrors.New(dErrors.CodeConflict, MsgItemNameTaken)
	case errors.Is(err, itemstore.ErrUnknownBucketlist):
		return dErrors.New(dErrors.CodeNotFound, MsgBucketlistNotFound)
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, MsgItemNotFound)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func asDomainErr(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) logAudit(ctx context.Context, event audit.Action, userID id.UserID, subject string, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if s.logger != nil {
		args := append([]any{
			"event", string(event),
			"log_type", "audit",
			"user_id", userID,
			"subject", subject,
			"request_id", requestID,
		}, attributes...)
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Action:    event,
		UserID:    userID,
		Subject:   subject,
		RequestID: requestID,
		Attrs:     attrs.ToMap(attributes),
	})
}

