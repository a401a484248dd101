package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/healthradar/internal/store"
	"github.com/kiranshivaraju/healthradar/internal/store/storetest"
	"github.com/kiranshivaraju/healthradar/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sleepRecorder records requested pauses without sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (r *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauses = append(r.pauses, d)
	return nil
}

func (r *sleepRecorder) Pauses() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.pauses...)
}

func TestWriter_GroupsAndMetadata(t *testing.T) {
	st := storetest.New()
	rec := &sleepRecorder{}
	w := NewWriter(st, 10, 500*time.Millisecond, rec.Sleep)
	up := Uploader{ID: uuid.New(), Email: "ana@mandaue.gov.ph", Municipality: "Mandaue"}

	res := w.Write(context.Background(), rowsFor("Mandaue", 12), 3, up)

	assert.Equal(t, 12, res.SuccessCount)
	assert.Zero(t, res.ErrorCount)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 2, res.Groups)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, rec.Pauses())

	recs, err := st.ListCaseRecords(context.Background(), store.CaseFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 12)

	groups := map[int]int{}
	indexes := map[int]bool{}
	for _, r := range recs {
		groups[r.UploadBatchNumber]++
		indexes[r.RecordIndex] = true
		assert.Equal(t, 3, r.BatchNumber)
		assert.Equal(t, "Mandaue-3", r.MunicipalityBatch)
		assert.Equal(t, up.ID, r.UploadedBy)
		assert.Equal(t, up.Email, r.UploadedByEmail)
		assert.Equal(t, "Mandaue", r.UploadedByMunicipality)
		assert.True(t, r.IsLatestBatch)
		assert.False(t, r.UploadedAt.IsZero())
		assert.False(t, r.CreatedAt.IsZero())
		assert.Equal(t, r.UploadedAt, r.CreatedAt)
		assert.NotEqual(t, uuid.Nil, r.ID)
	}
	assert.Equal(t, map[int]int{1: 10, 2: 2}, groups)
	assert.Len(t, indexes, 12)
}

func TestWriter_NoPauseForSingleGroup(t *testing.T) {
	rec := &sleepRecorder{}
	w := NewWriter(storetest.New(), 10, 500*time.Millisecond, rec.Sleep)

	res := w.Write(context.Background(), rowsFor("Mandaue", 10), 1, Uploader{Municipality: "Mandaue"})
	assert.Equal(t, 1, res.Groups)
	assert.Empty(t, rec.Pauses())
}

func TestWriter_PartialFailure(t *testing.T) {
	st := storetest.New()
	st.CreateCaseHook = func(r *models.CaseRecord) error {
		if r.RecordIndex == 2 || r.RecordIndex == 11 {
			return errors.New("deadline exceeded")
		}
		return nil
	}
	rec := &sleepRecorder{}
	w := NewWriter(st, 10, 0, rec.Sleep)

	res := w.Write(context.Background(), rowsFor("Mandaue", 12), 1, Uploader{Municipality: "Mandaue"})

	assert.Equal(t, 10, res.SuccessCount)
	assert.Equal(t, 2, res.ErrorCount)
	assert.Equal(t, []string{
		"Record 3: deadline exceeded",
		"Record 12: deadline exceeded",
	}, res.Errors)
	assert.Equal(t, 10, st.Creates())
}

func TestWriter_GroupsDoNotOverlap(t *testing.T) {
	st := storetest.New()
	var inFlight, maxInFlight atomic.Int32
	var currentGroup atomic.Int32
	var overlap atomic.Bool
	st.CreateCaseHook = func(r *models.CaseRecord) error {
		if prev := currentGroup.Swap(int32(r.UploadBatchNumber)); prev > int32(r.UploadBatchNumber) {
			overlap.Store(true)
		}
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		return nil
	}
	w := NewWriter(st, 5, 0, nil)

	res := w.Write(context.Background(), rowsFor("Mandaue", 23), 1, Uploader{Municipality: "Mandaue"})

	assert.Equal(t, 23, res.SuccessCount)
	assert.Equal(t, 5, res.Groups)
	assert.LessOrEqual(t, maxInFlight.Load(), int32(5))
	assert.False(t, overlap.Load())
}

func TestNewWriter_Defaults(t *testing.T) {
	w := NewWriter(storetest.New(), 0, -1, nil)
	assert.Equal(t, DefaultGroupSize, w.groupSize)
	assert.Equal(t, DefaultGroupPause, w.pause)
	assert.NotNil(t, w.sleep)
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, Sleep(context.Background(), 0))
}
