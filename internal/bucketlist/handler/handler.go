package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"bucketlist/internal/access"
	"bucketlist/internal/bucketlist/models"
	id "bucketlist/pkg/domain"
	dErrors "bucketlist/pkg/domain-errors"
	"bucketlist/pkg/platform/httputil"
	"bucketlist/pkg/requestcontext"
)

const (
	msgBucketlistDeleted = "Bucketlist successfully deleted"
	msgItemDeleted       = "Bucketlistitem successfully deleted"
	msgNoItems           = "No items found"
)

type Service interface {
	CreateBucketlist(ctx context.Context, ownerID id.UserID, name string) (*models.Bucketlist, error)
	GetBucketlist(ctx context.Context, bucketlistID id.BucketlistID, ownerID id.UserID) (*models.Bucketlist, error)
	UpdateBucketlist(ctx context.Context, bucketlistID id.BucketlistID, ownerID id.UserID, name *string) (*models.Bucketlist, error)
	DeleteBucketlist(ctx context.Context, bucketlistID id.BucketlistID) error
	ListBucketlists(ctx context.Context, ownerID id.UserID, q models.ListQuery) (*models.Page, error)
	ListItems(ctx context.Context, bucketlistID id.BucketlistID) ([]models.Item, error)
	CreateItem(ctx context.Context, bucketlistID id.BucketlistID, name string, done bool) (*models.Item, error)
	UpdateItem(ctx context.Context, itemID id.ItemID, bucketlistID id.BucketlistID, name *string, done *bool) (*models.Item, error)
	DeleteItem(ctx context.Context, itemID id.ItemID, bucketlistID id.BucketlistID) error
}

// Gate wraps routes with token and ownership checks.
type Gate interface {
	Middleware(targetFn access.TargetFunc) func(http.Handler) http.Handler
}

type Handler struct {
	service Service
	gate    Gate
	logger  *slog.Logger
	baseURL string
}

// New creates a bucketlist handler. baseURL prefixes pagination links; when
// empty it is derived from each request.
func New(service Service, gate Gate, logger *slog.Logger, baseURL string) *Handler {
	return &Handler{service: service, gate: gate, logger: logger, baseURL: strings.TrimRight(baseURL, "/")}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/bucketlists", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.gate.Middleware(access.Authenticated))
			r.Get("/", h.HandleList)
			r.Post("/", h.HandleCreate)
		})
		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.gate.Middleware(access.BucketlistParam("id")))
			r.Get("/", h.HandleGet)
			r.Put("/", h.HandleUpdate)
			r.Delete("/", h.HandleDelete)
			r.Get("/items", h.HandleListItems)
			r.Post("/items", h.HandleCreateItem)
			r.Put("/items/{item_id}", h.HandleUpdateItem)
			r.Delete("/items/{item_id}", h.HandleDeleteItem)
		})
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := h.listQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.service.ListBucketlists(ctx, requestcontext.UserID(ctx), q)
	if err != nil {
		h.logFailure(ctx, "failed to list bucketlists", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPageResponse(page))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateBucketlistRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	b, err := h.service.CreateBucketlist(ctx, requestcontext.UserID(ctx), req.Name)
	if err != nil {
		h.logFailure(ctx, "failed to create bucketlist", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toBucketlistResponse(b))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	b, err := h.service.GetBucketlist(ctx, bucketlistID(r), requestcontext.UserID(ctx))
	if err != nil {
		h.logFailure(ctx, "failed to get bucketlist", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBucketlistResponse(b))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[UpdateBucketlistRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	b, err := h.service.UpdateBucketlist(ctx, bucketlistID(r), requestcontext.UserID(ctx), req.Name)
	if err != nil {
		h.logFailure(ctx, "failed to update bucketlist", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBucketlistResponse(b))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.DeleteBucketlist(ctx, bucketlistID(r)); err != nil {
		h.logFailure(ctx, "failed to delete bucketlist", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: msgBucketlistDeleted})
}

func (h *Handler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := h.service.ListItems(ctx, bucketlistID(r))
	if err != nil {
		h.logFailure(ctx, "failed to list items", err)
		httputil.WriteError(w, err)
		return
	}
	resp := itemsResponse{Items: toItemResponses(items)}
	if len(items) == 0 {
		resp.Message = msgNoItems
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateItemRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	done := req.Done != nil && *req.Done
	it, err := h.service.CreateItem(ctx, bucketlistID(r), req.Name, done)
	if err != nil {
		h.logFailure(ctx, "failed to create item", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toItemResponse(*it))
}

func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemID, err := itemIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateItemRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	it, err := h.service.UpdateItem(ctx, itemID, bucketlistID(r), req.Name, req.Done)
	if err != nil {
		h.logFailure(ctx, "failed to update item", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toItemResponse(*it))
}

func (h *Handler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemID, err := itemIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteItem(ctx, itemID, bucketlistID(r)); err != nil {
		h.logFailure(ctx, "failed to delete item", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: msgItemDeleted})
}

func (h *Handler) listQuery(r *http.Request) (models.ListQuery, error) {
	values := r.URL.Query()
	page, err := optionalInt(values.Get("page"), "page")
	if err != nil {
		return models.ListQuery{}, err
	}
	limit, err := optionalInt(values.Get("limit"), "limit")
	if err != nil {
		return models.ListQuery{}, err
	}
	return models.ListQuery{
		Page:    page,
		Limit:   limit,
		Search:  values.Get("q"),
		BaseURL: h.requestBaseURL(r),
	}, nil
}

func (h *Handler) requestBaseURL(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
		return
	}
	h.logger.InfoContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
}

func optionalInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be an integer")
	}
	return n, nil
}

// bucketlistID reads the path id. The access gate has already parsed and
// authorized it, so a parse failure here cannot happen on a routed request.
func bucketlistID(r *http.Request) id.BucketlistID {
	v, _ := id.ParseBucketlistID(chi.URLParam(r, "id"))
	return v
}

func itemIDParam(r *http.Request) (id.ItemID, error) {
	v, err := id.ParseItemID(chi.URLParam(r, "item_id"))
	if err != nil {
		return 0, dErrors.New(dErrors.CodeNotFound, "Item not found!")
	}
	return v, nil
}
