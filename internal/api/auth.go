package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/amelfeddag/SanoX-public/internal/appointment"
)

const principalKey contextKey = "principal"

// Claims is the bearer token issued by the auth service.
type Claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	ProfileID string `json:"profile_id"`
}

// Principal is the authenticated caller. ProfileID is the patient or doctor id.
type Principal struct {
	UserID    uuid.UUID
	ProfileID uuid.UUID
	Role      appointment.Role
}

// IssueToken signs an HS256 token. Used by tooling and tests; production
// tokens come from the auth service.
func IssueToken(secret []byte, userID, profileID uuid.UUID, role appointment.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:      string(role),
		ProfileID: profileID.String(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parsePrincipal(secret []byte, tokenStr string) (Principal, bool) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Principal{}, false
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, false
	}
	profileID, err := uuid.Parse(claims.ProfileID)
	if err != nil {
		return Principal{}, false
	}

	role := appointment.Role(claims.Role)
	if role != appointment.RolePatient && role != appointment.RoleDoctor {
		return Principal{}, false
	}
	return Principal{UserID: userID, ProfileID: profileID, Role: role}, true
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid authorization format")
				return
			}

			p, ok := parsePrincipal(secret, parts[1])
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets only callers with role through.
func RequireRole(role appointment.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "missing principal")
				return
			}
			if p.Role != role {
				writeError(w, http.StatusForbidden, "forbidden", "only a "+string(role)+" can do this")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
