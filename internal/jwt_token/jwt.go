package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "bucketlist/pkg/domain"
)

// DefaultTTL is the access token lifetime when none is configured.
const DefaultTTL = 20 * time.Minute

// Validation failures. Every error returned by ValidateToken is exactly one of these.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims are the registered claims carried by an access token. Subject holds
// the user id in decimal.
type Claims struct {
	UserID id.UserID `json:"-"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token with the identifiers needed for logout.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	ttl        time.Duration
	clock      func() time.Time
}

// Option configures a JWTService.
type Option func(*JWTService)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *JWTService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock injects the time source used for both issuing and validation.
func WithClock(clock func() time.Time) Option {
	return func(s *JWTService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewJWTService(signingKey string, opts ...Option) *JWTService {
	s := &JWTService{
		signingKey: []byte(signingKey),
		ttl:        DefaultTTL,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL reports the configured token lifetime.
func (s *JWTService) TTL() time.Duration { return s.ttl }

// Issue signs an HS256 access token for userID.
func (s *JWTService) Issue(userID id.UserID) (*IssuedToken, error) {
	now := s.clock()
	expiresAt := now.Add(s.ttl)
	jti := uuid.NewString()

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        jti,
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return nil, err
	}
	return &IssuedToken{Token: signedToken, ID: jti, ExpiresAt: expiresAt.Truncate(time.Second)}, nil
}

// ValidateToken verifies signature, algorithm and expiry and decodes the
// subject. There is no clock-skew leeway.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	claims.UserID = userID
	return claims, nil
}
