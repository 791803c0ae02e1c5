package middleware

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/archivesurmer-backend/api/responses"
	"github.com/angelmondragon/archivesurmer-backend/api/validators"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
)

const adminTokenHeader = "X-Admin-Token"

// RequireAdminToken gates moderation routes behind the shared admin token.
// The token is read from the Authorization bearer, X-Admin-Token, the
// admin_token query parameter, or an admin_token field in a JSON body.
func RequireAdminToken(expected string, logg *logger.Logger) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if expected == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "moderation token is not configured"))
				return
			}

			provided, err := adminTokenFrom(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized moderation request."))
				return
			}
			if logg != nil {
				ctx = logg.WithActor(ctx, "admin", "")
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func adminTokenFrom(r *http.Request) (string, error) {
	if token := validators.BearerToken(r.Header.Get("Authorization")); token != "" {
		return token, nil
	}
	if token := strings.TrimSpace(r.Header.Get(adminTokenHeader)); token != "" {
		return token, nil
	}
	if token := strings.TrimSpace(r.URL.Query().Get("admin_token")); token != "" {
		return token, nil
	}
	if r.Body == nil || r.Method == http.MethodGet {
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, validators.DefaultBodyLimit))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		AdminToken string `json:"admin_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}
	return strings.TrimSpace(payload.AdminToken), nil
}
