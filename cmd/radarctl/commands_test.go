package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/healthradar/internal/ai"
	"github.com/kiranshivaraju/healthradar/internal/ai/mock"
	"github.com/kiranshivaraju/healthradar/internal/cache"
	"github.com/kiranshivaraju/healthradar/internal/config"
	"github.com/kiranshivaraju/healthradar/internal/ingest"
	"github.com/kiranshivaraju/healthradar/internal/store"
	"github.com/kiranshivaraju/healthradar/internal/store/storetest"
	"github.com/kiranshivaraju/healthradar/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// ─── fakes ───────────────────────────────────────────────────────────────────

type kvCache struct {
	mu   sync.Mutex
	vals map[string][]byte
}

func newKVCache() *kvCache { return &kvCache{vals: map[string][]byte{}} }

func (c *kvCache) Set(_ context.Context, k string, v []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals[k] = v
	return nil
}
func (c *kvCache) Get(_ context.Context, k string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vals[k]
	return v, ok, nil
}
func (c *kvCache) Delete(_ context.Context, k string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.vals, k)
	return nil
}
func (c *kvCache) Ping(_ context.Context) error { return nil }
func (c *kvCache) SetJobStatus(_ context.Context, _ uuid.UUID, _ string, _ time.Duration) error {
	return nil
}
func (c *kvCache) GetJobStatus(_ context.Context, _ uuid.UUID) (string, bool, error) {
	return "", false, nil
}
func (c *kvCache) Incr(_ context.Context, k string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := strconv.ParseInt(string(c.vals[k]), 10, 64)
	n++
	c.vals[k] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}
func (c *kvCache) IncrWithExpiry(ctx context.Context, k string, _ time.Duration) (int64, error) {
	return c.Incr(ctx, k)
}

var _ cache.Cache = (*kvCache)(nil)

// ─── harness ─────────────────────────────────────────────────────────────────

type harness struct {
	st       *storetest.Store
	cache    *kvCache
	migrated []string
}

func newHarness() *harness {
	return &harness{st: storetest.New(), cache: newKVCache()}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("REDIS_URL", "")
	t.Setenv("AI_PROVIDER", "ollama")
	t.Setenv("TEXTBEE_API_KEY", "")
	t.Setenv("SMS_CONTACTS_FILE", filepath.Join(t.TempDir(), "contacts.yaml"))
	t.Setenv("SMS_SEND_INTERVAL", "0s")

	c := &cli{
		openStore: func(_ context.Context, _ string) (store.Store, func(), error) {
			return h.st, func() {}, nil
		},
		openCache: func(_ context.Context, _ string) (cache.Cache, func(), error) {
			return h.cache, func() {}, nil
		},
		migrate: func(url, dir string) error {
			h.migrated = append(h.migrated, url+"|"+dir)
			return nil
		},
		newAI: func(_ context.Context, _ config.AIConfig) (*ai.Service, error) {
			return ai.NewService(mock.NewMockProvider(), time.Second), nil
		},
	}
	root := newRootCmd(c)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) writeCSV(t *testing.T, municipality string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Municipality,DiseaseName,CaseCount,Date\n"+municipality+",Dengue,4,2025-03-01\n"), 0o600))
	return path
}

func (h *harness) seedWorker(t *testing.T, municipality string) *models.HealthWorker {
	t.Helper()
	w := &models.HealthWorker{
		ID:           uuid.New(),
		FirstName:    "Test",
		LastName:     "Worker",
		Email:        strings.ToLower(municipality) + "@healthradar.test",
		Municipality: municipality,
	}
	require.NoError(t, h.st.CreateHealthWorker(context.Background(), w))
	return w
}

// ─── tests ───────────────────────────────────────────────────────────────────

func TestMigrate_UsesDirFlag(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "migrate", "--dir", "db/migrations")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied")
	assert.Equal(t, []string{"postgres://test|db/migrations"}, h.migrated)
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	h := newHarness()

	_, err := h.run(t, "migrate", "--database-url", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}

func TestWorkerCreateAndList(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "worker", "create",
		"--first-name", "Maria", "--last-name", "Santos",
		"--email", "Maria@Example.org", "--municipality", "Consolacion")
	require.NoError(t, err)
	assert.Contains(t, out, "Maria Santos\tConsolacion")

	out, err = h.run(t, "worker", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "maria@example.org")
	assert.Contains(t, out, "MUNICIPALITY")
}

func TestWorkerCreate_InvalidEmail(t *testing.T) {
	h := newHarness()

	_, err := h.run(t, "worker", "create", "--email", "nope", "--municipality", "Mandaue")
	require.Error(t, err)
}

func TestKeyCreate_PrintsVerifiableKey(t *testing.T) {
	h := newHarness()
	w := h.seedWorker(t, "Mandaue")

	out, err := h.run(t, "key", "create", "--worker", w.ID.String(), "--scopes", "read,admin")
	require.NoError(t, err)
	raw := strings.TrimSpace(out)
	require.True(t, strings.HasPrefix(raw, "hr_"), raw)

	keys, err := h.st.ListAPIKeys(context.Background(), w.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, []string{"read", "admin"}, keys[0].Scopes)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(keys[0].KeyHash), []byte(raw)))
}

func TestKeyCreate_UnknownWorker(t *testing.T) {
	h := newHarness()

	_, err := h.run(t, "key", "create", "--worker", uuid.NewString())
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestIngest_WritesFile(t *testing.T) {
	h := newHarness()
	w := h.seedWorker(t, "Mandaue")
	path := filepath.Join(t.TempDir(), "cases.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Municipality,DiseaseName,CaseCount,Date\nMandaue,Dengue,4,2025-03-01\nMandaue,Measles,1,2025-03-01\n"), 0o600))

	out, err := h.run(t, "ingest", path, "--worker", w.ID.String(), "--settle-delay", "0s")
	require.NoError(t, err)
	assert.Contains(t, out, `"municipality_batch": "Mandaue-1"`)
	assert.Contains(t, out, `"success_count": 2`)
	assert.Equal(t, 2, h.st.Creates())
}

func TestIngest_RejectsForeignRows(t *testing.T) {
	h := newHarness()
	w := h.seedWorker(t, "Mandaue")
	path := filepath.Join(t.TempDir(), "cases.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Municipality,DiseaseName,CaseCount,Date\nLiloan,Dengue,4,2025-03-01\n"), 0o600))

	_, err := h.run(t, "ingest", path, "--worker", w.ID.String(), "--settle-delay", "0s")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ingest.ErrValidation))
	assert.Zero(t, h.st.Creates())
}

func TestIngest_AdvancesSharedCounter(t *testing.T) {
	h := newHarness()
	w := h.seedWorker(t, "Mandaue")
	path := filepath.Join(t.TempDir(), "cases.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Municipality,DiseaseName,CaseCount,Date\nMandaue,Dengue,4,2025-03-01\n"), 0o600))

	_, err := h.run(t, "ingest", path, "--worker", w.ID.String(), "--settle-delay", "0s", "--redis-url", "redis://fake")
	require.NoError(t, err)

	out, err := h.run(t, "counter", "--redis-url", "redis://fake")
	require.NoError(t, err)
	assert.Contains(t, out, "uploads: 1 (next broadcast in 3)")

	out, err = h.run(t, "counter", "--redis-url", "redis://fake", "--reset")
	require.NoError(t, err)
	assert.Contains(t, out, "uploads: 0 (next broadcast in 4)")
}

func TestIngest_MilestoneUploadBroadcasts(t *testing.T) {
	h := newHarness()
	w := h.seedWorker(t, "Mandaue")
	path := h.writeCSV(t, "Mandaue")
	args := []string{"ingest", path, "--worker", w.ID.String(), "--settle-delay", "0s", "--redis-url", "redis://fake"}

	for i := 1; i <= 3; i++ {
		out, err := h.run(t, args...)
		require.NoError(t, err)
		assert.Contains(t, out, `"milestone": false`)
	}
	assert.Empty(t, h.st.Results())

	out, err := h.run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, `"upload_count": 4`)
	assert.Contains(t, out, `"milestone": true`)

	// The command waits for the broadcast, so its result is already stored.
	results := h.st.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "mock", results[0].Provider)
	transitions := h.st.Transitions()
	require.NotEmpty(t, transitions)
	assert.Equal(t, models.JobStatusCompleted, transitions[len(transitions)-1].Status)
}

func TestIngest_CadenceFollowsConfig(t *testing.T) {
	h := newHarness()
	t.Setenv("NOTIFY_EVERY_UPLOADS", "2")
	w := h.seedWorker(t, "Mandaue")
	path := h.writeCSV(t, "Mandaue")
	args := []string{"ingest", path, "--worker", w.ID.String(), "--settle-delay", "0s", "--redis-url", "redis://fake"}

	_, err := h.run(t, args...)
	require.NoError(t, err)
	out, err := h.run(t, "counter", "--redis-url", "redis://fake")
	require.NoError(t, err)
	assert.Contains(t, out, "uploads: 1 (next broadcast in 1)")

	out, err = h.run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, `"milestone": true`)
	assert.Len(t, h.st.Results(), 1)
}

func TestIngest_WithoutRedisIsNotCounted(t *testing.T) {
	h := newHarness()
	w := h.seedWorker(t, "Mandaue")
	path := h.writeCSV(t, "Mandaue")

	for i := 0; i < 4; i++ {
		out, err := h.run(t, "ingest", path, "--worker", w.ID.String(), "--settle-delay", "0s")
		require.NoError(t, err)
		assert.Contains(t, out, `"upload_count": 0`)
	}
	assert.Empty(t, h.st.Results())
	assert.Empty(t, h.cache.vals)
}

func TestIngest_CountedUploadNeedsServerConfig(t *testing.T) {
	h := newHarness()
	w := h.seedWorker(t, "Mandaue")
	path := h.writeCSV(t, "Mandaue")
	t.Setenv("AI_PROVIDER", "")

	c := &cli{
		openStore: func(_ context.Context, _ string) (store.Store, func(), error) { return h.st, func() {}, nil },
		openCache: func(_ context.Context, _ string) (cache.Cache, func(), error) { return h.cache, func() {}, nil },
	}
	root := newRootCmd(c)
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"ingest", path, "--worker", w.ID.String(), "--settle-delay", "0s",
		"--database-url", "postgres://test", "--redis-url", "redis://fake"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AI_PROVIDER")
	assert.Zero(t, h.st.Creates())
}

func TestCounter_RequiresRedis(t *testing.T) {
	h := newHarness()

	_, err := h.run(t, "counter")
	require.Error(t, err)
}

func TestPurge(t *testing.T) {
	h := newHarness()
	h.st.Seed(
		&models.CaseRecord{ID: uuid.New(), Municipality: "Mandaue", DiseaseName: "Dengue", CaseCount: "1"},
		&models.CaseRecord{ID: uuid.New(), Municipality: "Lilo-an", DiseaseName: "Dengue", CaseCount: "2"},
		&models.CaseRecord{ID: uuid.New(), Municipality: "Liloan", DiseaseName: "Measles", CaseCount: "3"},
	)

	_, err := h.run(t, "purge")
	require.Error(t, err)
	_, err = h.run(t, "purge", "--all", "--municipality", "Mandaue")
	require.Error(t, err)

	out, err := h.run(t, "purge", "--municipality", "liloan")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 2 case records")

	out, err = h.run(t, "purge", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 1 case records")
}
