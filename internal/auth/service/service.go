package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,TokenIssuer,RevocationList,OwnedResources,AuditPublisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"

	"bucketlist/internal/audit"
	"bucketlist/internal/auth/device"
	"bucketlist/internal/auth/models"
	userstore "bucketlist/internal/auth/store/user"
	jwttoken "bucketlist/internal/jwt_token"
	"bucketlist/internal/platform/metrics"
	"bucketlist/pkg/attrs"
	id "bucketlist/pkg/domain"
	dErrors "bucketlist/pkg/domain-errors"
	"bucketlist/pkg/platform/sentinel"
	"bucketlist/pkg/platform/tx"
	"bucketlist/pkg/requestcontext"
)

var tracer = otel.Tracer("bucketlist/internal/auth/service")

// Messages surfaced to clients.
const (
	msgUserExists         = "user already exists"
	msgEmailExists        = "email already exists"
	msgInvalidCredentials = "invalid username or password"
	msgUserNotFound       = "user not found"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, userID id.UserID) error
}

type TokenIssuer interface {
	Issue(userID id.UserID) (*jwttoken.IssuedToken, error)
}

type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// OwnedResources removes everything a user owns. It runs inside the same
// transaction as the user delete.
type OwnedResources interface {
	DeleteByOwner(ctx context.Context, ownerID id.UserID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service holds credentials and issues tokens for verified users.
type Service struct {
	users          UserStore
	tokens         TokenIssuer
	revocations    RevocationList
	owned          OwnedResources
	tx             tx.Runner
	bcryptCost     int
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	now            func() time.Time
	// dummyHash keeps Verify's cost uniform for unknown usernames.
	dummyHash []byte
}

type Option func(s *Service)

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

func WithRevocationList(trl RevocationList) Option {
	return func(s *Service) {
		s.revocations = trl
	}
}

// WithOwnedResources enables cascading user deletes.
func WithOwnedResources(owned OwnedResources) Option {
	return func(s *Service) {
		s.owned = owned
	}
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) {
		if runner != nil {
			s.tx = runner
		}
	}
}

func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
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

// New constructs a Service.
func New(users UserStore, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		users:      users,
		tokens:     tokens,
		tx:         &tx.LockRunner{},
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), s.bcryptCost)
	return s
}

// Register creates a user after validating input and checking username,
// then email, for collisions.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer span.End()

	email = models.NormalizeEmail(email)
	if err := models.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := models.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := models.ValidatePassword(password); err != nil {
		return nil, err
	}

	if err := s.ensureUsernameFree(ctx, username, 0); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := s.now().UTC()
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		span.SetStatus(codes.Error, "create user")
		return nil, translateUserWriteErr(err, "failed to create user")
	}
	span.SetAttributes(attribute.Int64("user.id", int64(user.ID)))

	s.logAudit(ctx, audit.EventUserRegistered, user.ID, "username", user.Username)
	if s.metrics != nil {
		s.metrics.IncrementUsersCreated()
	}
	return user, nil
}

// Verify checks credentials. Unknown usernames and wrong passwords fail
// identically.
func (s *Service) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, dErrors.New(dErrors.CodeUnauthorized, msgInvalidCredentials)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, msgInvalidCredentials)
	}
	return user, nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (*models.LoginResult, error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()

	user, err := s.Verify(ctx, username, password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.logAudit(ctx, audit.EventLoginFailed, 0, "username", username)
		}
		return nil, err
	}

	issued, err := s.tokens.Issue(user.ID)
	if err != nil {
		span.SetStatus(codes.Error, "issue token")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.logAudit(ctx, audit.EventLoginSucceeded, user.ID,
		"device", device.ParseUserAgent(requestcontext.UserAgent(ctx)),
		"client_ip", requestcontext.ClientIP(ctx),
	)
	return &models.LoginResult{
		User:      user,
		Token:     issued.Token,
		TokenID:   issued.ID,
		ExpiresAt: issued.ExpiresAt,
		ExpiresIn: issued.ExpiresAt.Sub(s.now()),
	}, nil
}

// Logout revokes the token identified by jti until it would have expired.
func (s *Service) Logout(ctx context.Context, userID id.UserID, jti string, expiresAt time.Time) error {
	if s.revocations == nil {
		return dErrors.New(dErrors.CodeInternal, "token revocation is not configured")
	}
	if jti == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "Invalid token. Please log in again.")
	}
	if err := s.revoke(ctx, jti, expiresAt); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventTokenRevoked, userID, "jti", jti)
	return nil
}

// revoke keeps jti on the revocation list until expiresAt. Tokens that are
// already expired need no entry.
func (s *Service) revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.RevokeToken(ctx, jti, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	return nil
}

// UserExists reports whether userID still has a user row. The access gate
// uses it to turn away tokens that outlived their user.
func (s *Service) UserExists(ctx context.Context, userID id.UserID) (bool, error) {
	_, err := s.users.FindByID(ctx, userID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("find user %d: %w", userID, err)
	}
	return true, nil
}

func (s *Service) GetUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, msgUserNotFound)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// UpdateUser applies the supplied fields only. Uniqueness is re-checked for
// a changed username or email.
func (s *Service) UpdateUser(ctx context.Context, userID id.UserID, update models.UserUpdate) (*models.User, error) {
	if update.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "no fields to update")
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var changed []string
	if update.Username != nil && *update.Username != user.Username {
		if err := models.ValidateUsername(*update.Username); err != nil {
			return nil, err
		}
		if err := s.ensureUsernameFree(ctx, *update.Username, userID); err != nil {
			return nil, err
		}
		user.Username = *update.Username
		changed = append(changed, "username")
	}
	if update.Email != nil {
		email := models.NormalizeEmail(*update.Email)
		if email != user.Email {
			if err := models.ValidateEmail(email); err != nil {
				return nil, err
			}
			if err := s.ensureEmailFree(ctx, email, userID); err != nil {
				return nil, err
			}
			user.Email = email
			changed = append(changed, "email")
		}
	}
	if update.Password != nil {
		if err := models.ValidatePassword(*update.Password); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*update.Password), s.bcryptCost)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
		}
		user.PasswordHash = hash
		changed = append(changed, "password")
	}

	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, msgUserNotFound)
		}
		return nil, translateUserWriteErr(err, "failed to update user")
	}
	s.logAudit(ctx, audit.EventUserUpdated, userID, "fields", changed)
	return user, nil
}

// DeleteUser removes the user and everything they own in one transaction.
// DeleteUser removes the user and everything they own in one transaction,
// then revokes jti, the token the request was made with.
func (s *Service) DeleteUser(ctx context.Context, userID id.UserID, jti string, expiresAt time.Time) error {
	ctx, span := tracer.Start(ctx, "auth.DeleteUser")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", int64(userID)))

	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if s.owned != nil {
			if err := s.owned.DeleteByOwner(ctx, userID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user bucketlists")
			}
		}
		if err := s.users.Delete(ctx, userID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, msgUserNotFound)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, "delete user")
		if _, ok := dErrors.As(err); ok {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
	}

	s.logAudit(ctx, audit.EventUserDeleted, userID)

	if s.revocations != nil && jti != "" {
		if err := s.revoke(ctx, jti, expiresAt); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "token left active after user deletion",
				"user_id", userID,
				"error", err,
			)
		}
	}
	return nil
}

func (s *Service) ensureUsernameFree(ctx context.Context, username string, self id.UserID) error {
	existing, err := s.users.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check username")
	case existing.ID != self:
		return dErrors.New(dErrors.CodeConflict, msgUserExists)
	}
	return nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string, self id.UserID) error {
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email")
	case existing.ID != self:
		return dErrors.New(dErrors.CodeConflict, msgEmailExists)
	}
	return nil
}

// translateUserWriteErr maps store uniqueness failures that slipped past the
// pre-checks (concurrent registration) onto the same conflicts.
func translateUserWriteErr(err error, msg string) error {
	switch {
	case errors.Is(err, userstore.ErrUsernameTaken):
		return dErrors.New(dErrors.CodeConflict, msgUserExists)
	case errors.Is(err, userstore.ErrEmailTaken):
		return dErrors.New(dErrors.CodeConflict, msgEmailExists)
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, msgUserExists)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) logAudit(ctx context.Context, event audit.Action, userID id.UserID, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if s.logger != nil {
		args := append([]any{"event", string(event), "log_type", "audit", "user_id", userID}, attributes...)
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	// Failed logins have no user id; the attempted username is the subject.
	subject := attrs.ExtractString(attributes, "username")
	if !userID.IsNil() {
		subject = strconv.FormatInt(int64(userID), 10)
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Action:    event,
		UserID:    userID,
		Subject:   subject,
		RequestID: requestID,
		Attrs:     attrs.ToMap(attributes),
	})
}
