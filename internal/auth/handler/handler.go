package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bucketlist/internal/access"
	"bucketlist/internal/auth/models"
	id "bucketlist/pkg/domain"
	dErrors "bucketlist/pkg/domain-errors"
	"bucketlist/pkg/platform/httputil"
	"bucketlist/pkg/requestcontext"
)

const (
	msgRegistered  = "user registered successfully"
	msgLoggedOut   = "successfully logged out"
	msgUserDeleted = "user deleted"
)

// Service defines the account operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.LoginResult, error)
	Logout(ctx context.Context, userID id.UserID, jti string, expiresAt time.Time) error
	GetUser(ctx context.Context, userID id.UserID) (*models.User, error)
	UpdateUser(ctx context.Context, userID id.UserID, update models.UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, userID id.UserID, jti string, expiresAt time.Time) error
}

type Gate interface {
	Middleware(targetFn access.TargetFunc) func(http.Handler) http.Handler
}

// Handler wires account endpoints to the auth service.
type Handler struct {
	service  Service
	gate     Gate
	logger   *slog.Logger
	throttle func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithThrottle guards the credential endpoints, typically with a per-IP
// rate limit.
func WithThrottle(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.throttle = mw
	}
}

func New(service Service, gate Gate, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, gate: gate, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the public auth endpoints and the token-protected profile
// endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.throttle != nil {
			r.Use(h.throttle)
		}
		r.Post("/auth/register", h.HandleRegister)
		r.Post("/auth/login", h.HandleLogin)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Middleware(access.Authenticated))
		r.Post("/auth/logout", h.HandleLogout)
		r.Get("/users/me", h.HandleGetMe)
		r.Put("/users/me", h.HandleUpdateMe)
		r.Delete("/users/me", h.HandleDeleteMe)
	})
}

// HandleRegister handles POST /auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, err := h.service.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestID,
			"username", req.Username,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		"request_id", requestID,
		"user_id", user.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, registerResponse{
		Message: msgRegistered,
		User:    toUserResponse(user),
	})
}

// HandleLogin handles POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestID,
			"username", req.Username,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLoginResponse(res))
}

// HandleLogout handles POST /auth/logout. The gate has already validated the
// token and recorded its jti in the request context.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	info, ok := requestcontext.Token(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, access.MsgMissingToken))
		return
	}
	if err := h.service.Logout(ctx, requestcontext.UserID(ctx), info.ID, info.ExpiresAt); err != nil {
		h.logger.ErrorContext(ctx, "logout failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: msgLoggedOut})
}

func (h *Handler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.service.GetUser(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[UpdateUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	user, err := h.service.UpdateUser(ctx, requestcontext.UserID(ctx), req.toUpdate())
	if err != nil {
		h.logger.WarnContext(ctx, "user update failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	tok, _ := requestcontext.Token(ctx)
	if err := h.service.DeleteUser(ctx, userID, tok.ID, tok.ExpiresAt); err != nil {
		h.logger.ErrorContext(ctx, "user deletion failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: msgUserDeleted})
}
