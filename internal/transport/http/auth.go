package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles recognized by the API.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Actor is the verified (identity, role) pair the authentication collaborator
// supplies. The core trusts it and performs no credential checks of its own.
type Actor struct {
	ID   string
	Role string
}

type actorKeyType struct{}

var actorKey actorKeyType

// ActorFrom returns the authenticated actor stored by the JWT middleware.
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// AuthService verifies HS256 bearer tokens carrying a subject and role claim.
type AuthService struct {
	hmac []byte
}

func NewAuthService(secret string) *AuthService {
	return &AuthService{hmac: []byte(secret)}
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken mints a token for an identity/role pair. Exposed for tests and
// for operators bootstrapping accounts from the CLI.
func (a *AuthService) IssueToken(sub, role string) (string, error) {
	now := time.Now()
	c := &claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(8 * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.hmac)
}

func (a *AuthService) parse(tokenStr string) (Actor, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.hmac, nil
	})
	if err != nil || !token.Valid {
		return Actor{}, fmt.Errorf("invalid token")
	}
	c, ok := token.Claims.(*claims)
	if !ok || c.Subject == "" || c.Role == "" {
		return Actor{}, fmt.Errorf("invalid token claims")
	}
	return Actor{ID: c.Subject, Role: c.Role}, nil
}

// Middleware authenticates the Authorization bearer header, or a token query
// parameter for websocket clients that cannot set headers.
func (a *AuthService) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := ""
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tokenStr = strings.TrimPrefix(h, "Bearer ")
		} else if q := r.URL.Query().Get("token"); q != "" {
			tokenStr = q
		}
		if tokenStr == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		actor, err := a.parse(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

// RequireRole rejects authenticated actors whose role does not match.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok || actor.Role != role {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
