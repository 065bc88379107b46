package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/vintora/catalog-api/internal/platform/auth"
	"github.com/vintora/catalog-api/internal/platform/httpx"
	"github.com/vintora/catalog-api/internal/platform/i18n"
	"github.com/vintora/catalog-api/internal/services"
)

// decodeJSON parses a bounded JSON body into dst. On failure it writes the
// transport-level error response and reports false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxEditRequestBody)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			httpx.WriteError(ctx, w, http.StatusRequestEntityTooLarge, "request body exceeds allowed size")
		case errors.Is(err, io.EOF):
			httpx.WriteError(ctx, w, http.StatusBadRequest, "request body is required")
		default:
			httpx.WriteError(ctx, w, http.StatusBadRequest, "invalid JSON payload")
		}
		return false
	}
	return true
}

// requireActor extracts the authenticated session as a service-level actor.
func requireActor(w http.ResponseWriter, r *http.Request) (services.Actor, bool) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok || strings.TrimSpace(session.UserID) == "" {
		httpx.WriteError(r.Context(), w, http.StatusUnauthorized, "authentication required")
		return services.Actor{}, false
	}
	return services.Actor{
		UserID:           session.UserID,
		RoleSlug:         session.RoleSlug,
		CompanySlug:      session.CompanySlug,
		IsContentManager: session.IsContentManager,
	}, true
}

// resolveLocale negotiates the response locale. An explicit locale query
// parameter wins over the Accept-Language header.
func resolveLocale(r *http.Request, locales i18n.Locales) string {
	if hint := strings.TrimSpace(r.URL.Query().Get("locale")); hint != "" {
		return locales.Resolve(hint)
	}
	return locales.Resolve(r.Header.Get(acceptLanguageHeader))
}
