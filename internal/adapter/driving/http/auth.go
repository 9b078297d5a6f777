package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/sorenkv/glance/internal/core/domain"
)

type contextKey struct{ name string }

var identityKey = &contextKey{name: "identity"}

// WithIdentity resolves the bearer token into a trusted identity and stashes
// it on the request context. Handlers never read identity claims from the
// request body.
func (h *Handler) WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, domain.ErrUnauthenticated)
			return
		}

		userID, err := h.Identity.Resolve(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(r *http.Request) domain.UserID {
	id, _ := r.Context().Value(identityKey).(domain.UserID)
	return id
}
