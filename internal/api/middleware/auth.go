package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/healthradar/internal/api/response"
	"github.com/kiranshivaraju/healthradar/internal/store"
	"github.com/kiranshivaraju/healthradar/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// KeyPrefixLen is how many leading characters of a raw key are stored in the
// clear for lookup.
const KeyPrefixLen = 8

var errUnknownKey = errors.New("unknown api key")

// Auth resolves API keys to health workers and enforces scopes.
type Auth struct {
	store store.Store
}

func NewAuth(s store.Store) *Auth {
	return &Auth{store: s}
}

// Authenticate accepts the key as "Authorization: Bearer hr_..." or in the
// X-API-Key header. On success the worker ID, key prefix and scopes are put
// on the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey := presentedKey(r)
		if rawKey == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}
		if len(rawKey) < KeyPrefixLen || !strings.HasPrefix(rawKey, apiKeyPrefix) {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key format", nil)
			return
		}

		key, err := a.lookup(r.Context(), rawKey)
		if errors.Is(err, errUnknownKey) {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key", nil)
			return
		}
		if err != nil {
			slog.Error("api key lookup failed", "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to validate API key", nil)
			return
		}

		// Best effort: a failed touch never rejects the request.
		if err := a.store.UpdateAPIKeyLastUsed(context.WithoutCancel(r.Context()), key.ID); err != nil {
			slog.Warn("updating api key last_used_at", "key_prefix", key.KeyPrefix, "error", err)
		}

		ctx := SetWorkerID(r.Context(), key.WorkerID)
		ctx = setKeyPrefix(ctx, key.KeyPrefix)
		ctx = SetScopes(ctx, key.Scopes)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// lookup finds the live key whose bcrypt hash matches rawKey.
func (a *Auth) lookup(ctx context.Context, rawKey string) (*models.APIKey, error) {
	candidates, err := a.store.GetAPIKeyByPrefix(ctx, rawKey[:KeyPrefixLen])
	if err != nil {
		return nil, fmt.Errorf("list keys by prefix: %w", err)
	}
	for _, k := range candidates {
		if k.DeletedAt != nil {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(k.KeyHash), []byte(rawKey)) == nil {
			return k, nil
		}
	}
	return nil, errUnknownKey
}

// RequireScope rejects requests whose API key lacks scope with 403.
func (a *Auth) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HasScope(r, scope) {
				response.Error(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions",
					map[string]any{"required_scope": scope})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presentedKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
