package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"cruise-booking/internal/model"
)

// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
var ErrInvalidToken = model.NewDomainError(model.ErrCodeUnauthorised, "Invalid or expired token")

// Claims holds the typed JWT payload. The user id is the subject.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserLookup fills profile fields the token did not carry.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Resolver maps a raw bearer token to an Identity.
type Resolver interface {
	// Resolve returns the guest identity for an empty token and
	// ErrInvalidToken for a token that fails validation.
	Resolve(ctx context.Context, token string) (Identity, error)
}

type jwtResolver struct {
	secret []byte
	issuer string
	users  UserLookup
	now    func() time.Time
	logger zerolog.Logger
}

// NewResolver creates an HS256 resolver. users may be nil.
func NewResolver(secret, issuer string, users UserLookup, logger zerolog.Logger) Resolver {
	return &jwtResolver{
		secret: []byte(secret),
		issuer: issuer,
		users:  users,
		now:    time.Now,
		logger: logger.With().Str("component", "identity-resolver").Logger(),
	}
}

func (r *jwtResolver) Resolve(ctx context.Context, raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Guest(), nil
	}

	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithTimeFunc(r.now),
		jwt.WithExpirationRequired(),
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		r.logger.Debug().Err(err).Msg("token rejected")
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Subject == model.GuestUserID {
		return Identity{}, ErrInvalidToken
	}

	id := Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   claims.Role,
	}
	if id.Role == "" {
		id.Role = model.RoleUser
	}

	if (id.Email == "" || id.Name == "") && r.users != nil {
		r.enrich(ctx, &id)
	}

	// A cancelled request must not fall through as a partially resolved caller.
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}

	return id, nil
}

func (r *jwtResolver) enrich(ctx context.Context, id *Identity) {
	user, err := r.users.GetByID(ctx, id.UserID)
	if err != nil {
		if !errors.Is(err, model.ErrUserNotFound) {
			r.logger.Warn().Err(err).Str("user_id", id.UserID).Msg("failed to load user profile")
		}
		return
	}
	if id.Email == "" {
		id.Email = user.Email
	}
	if id.Name == "" {
		id.Name = user.DisplayName
	}
}

// IssueToken signs an HS256 token for id, valid for ttl from now.
func IssueToken(secret, issuer string, id Identity, ttl time.Duration, now time.Time) (string, error) {
	if id.IsGuest() {
		return "", fmt.Errorf("cannot issue a token for a guest identity")
	}

	claims := Claims{
		Email: id.Email,
		Name:  id.Name,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
