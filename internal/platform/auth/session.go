package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session captures the authenticated back-office principal extracted from a
// signed session token. IsContentManager selects the deferred (task) commit
// path for every product edit the session performs.
type Session struct {
	UserID           string
	RoleSlug         string
	CompanySlug      string
	IsContentManager bool
}

var (
	// ErrTokenInvalid indicates the session token failed signature or claim validation.
	ErrTokenInvalid = errors.New("auth: session token is invalid")
	// ErrTokenExpired indicates the session token is past its expiry.
	ErrTokenExpired = errors.New("auth: session token is expired")
)

type sessionClaims struct {
	RoleSlug         string `json:"role"`
	CompanySlug      string `json:"company,omitempty"`
	IsContentManager bool   `json:"contentManager,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HMAC-signed session tokens issued by the back office.
type Verifier struct {
	secret []byte
	issuer string
	clock  func() time.Time
}

// VerifierOption customises the Verifier.
type VerifierOption func(*Verifier)

// WithClock overrides the time source used for expiry checks.
func WithClock(clock func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if clock != nil {
			v.clock = clock
		}
	}
}

// NewVerifier constructs a Verifier for the given signing secret and issuer.
func NewVerifier(secret, issuer string, opts ...VerifierOption) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: session secret is required")
	}
	v := &Verifier{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v, nil
}

// Verify parses and validates the token, returning the session it encodes.
func (v *Verifier) Verify(tokenString string) (Session, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Session{}, ErrTokenInvalid
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.clock),
	)

	var claims sessionClaims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, ErrTokenExpired
		}
		return Session{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return Session{}, fmt.Errorf("%w: unexpected issuer", ErrTokenInvalid)
	}

	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return Session{}, fmt.Errorf("%w: subject is required", ErrTokenInvalid)
	}

	return Session{
		UserID:           userID,
		RoleSlug:         strings.TrimSpace(claims.RoleSlug),
		CompanySlug:      strings.TrimSpace(claims.CompanySlug),
		IsContentManager: claims.IsContentManager,
	}, nil
}

// IssueToken signs a session token for the given session. Used by tests and
// the local development seeder; production tokens come from the SSO gateway.
func (v *Verifier) IssueToken(session Session, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := v.clock()
	claims := sessionClaims{
		RoleSlug:         session.RoleSlug,
		CompanySlug:      session.CompanySlug,
		IsContentManager: session.IsContentManager,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

type contextKey string

const sessionContextKey contextKey = "github.com/vintora/catalog-api/internal/platform/auth/session"

// WithSession stores the session on the context.
func WithSession(ctx context.Context, session Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext retrieves the authenticated session, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	session, ok := ctx.Value(sessionContextKey).(Session)
	return session, ok
}
