package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/formalis/backoffice/internal/domain"
)

type contextKey string

const ViewerKey contextKey = "viewer"

// Auth validates the bearer token and puts the viewer context (id, view
// mode, admin role) on the request. The messaging module only ever reads it.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"Missing or invalid token"}}`, http.StatusUnauthorized)
				return
			}

			tokenStr := strings.TrimPrefix(header, "Bearer ")

			viewer, err := ViewerFromToken(tokenStr, jwtSecret)
			if err != nil {
				http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"Invalid or expired token"}}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ViewerKey, viewer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ViewerFromToken parses and validates a JWT and builds the viewer context
// from its claims: sub (user id), mode (view mode), role (optional admin role).
func ViewerFromToken(tokenStr, secret string) (domain.Viewer, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		if err == nil {
			err = jwt.ErrTokenInvalidClaims
		}
		return domain.Viewer{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Viewer{}, jwt.ErrTokenInvalidClaims
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return domain.Viewer{}, err
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return domain.Viewer{}, err
	}

	mode := domain.ViewApprenant
	if raw, ok := claims["mode"].(string); ok && domain.ViewMode(raw).IsValid() {
		mode = domain.ViewMode(raw)
	}

	viewer := domain.Viewer{ID: userID, Mode: mode}
	if raw, ok := claims["role"].(string); ok {
		if role, err := domain.ParseAdminRole(raw); err == nil {
			viewer.Role = &role
		}
	}
	return viewer, nil
}

// GetViewer extracts the viewer from the request context.
func GetViewer(ctx context.Context) domain.Viewer {
	return ctx.Value(ViewerKey).(domain.Viewer)
}
