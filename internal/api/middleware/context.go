package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	workerIDKey     contextKey = "worker_id"
	keyPrefixKey    contextKey = "key_prefix"
	apiKeyScopesKey contextKey = "api_key_scopes"
)

// SetWorkerID stores the authenticated health worker's ID.
func SetWorkerID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, workerIDKey, id)
}

// GetWorkerID returns the health worker bound to the request's API key.
func GetWorkerID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(workerIDKey).(uuid.UUID)
	return id, ok
}

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

// SetScopes stores the API key scopes. Exported for handler tests.
func SetScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, apiKeyScopesKey, scopes)
}

// GetScopes returns the scopes of the request's API key.
func GetScopes(r *http.Request) []string {
	scopes, _ := r.Context().Value(apiKeyScopesKey).([]string)
	return scopes
}

// HasScope reports whether the request's API key carries scope.
func HasScope(r *http.Request, scope string) bool {
	for _, s := range GetScopes(r) {
		if s == scope {
			return true
		}
	}
	return false
}

// ExportedKeyPrefixKey returns the context key for key_prefix (for testing).
func ExportedKeyPrefixKey() contextKey {
	return keyPrefixKey
}
