package delivery

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/mattjoyce/hookguard/internal/signature"
	"github.com/mattjoyce/hookguard/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "hookguard.db")
	db, err := storage.OpenSQLite(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return New(db)
}

var (
	acceptedResult = signature.Result{
		Valid:   true,
		Reason:  signature.ReasonOK,
		Payload: signature.PayloadForm,
		Variant: signature.VariantWithoutPort,
	}
	rejectedResult = signature.Result{
		Reason:  signature.ReasonSignatureMismatch,
		Payload: signature.PayloadJSON,
	}
)

func TestStoreRecordAndGet(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	body := []byte("foo=1&bar=2")
	id, err := s.Record(ctx, RecordRequest{
		Endpoint:   "/webhook/twilio",
		URL:        "https://hooks.example.com/webhook/twilio",
		Result:     acceptedResult,
		Body:       body,
		RemoteAddr: "203.0.113.7",
		RequestID:  "req-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	d, err := s.Get(ctx, id)
	require.NoError(t, err)

	digest := blake3.Sum256(body)
	assert.Equal(t, id, d.ID)
	assert.Equal(t, "/webhook/twilio", d.Endpoint)
	assert.Equal(t, "https://hooks.example.com/webhook/twilio", d.URL)
	assert.Equal(t, StatusAccepted, d.Status)
	assert.Equal(t, "ok", d.Reason)
	assert.Equal(t, "form", d.PayloadKind)
	assert.Equal(t, "without_port", d.MatchedVariant)
	assert.Equal(t, body, d.Body)
	assert.Equal(t, len(body), d.BodySize)
	assert.Equal(t, hex.EncodeToString(digest[:]), d.BodyDigest)
	assert.Equal(t, "203.0.113.7", d.RemoteAddr)
	assert.Equal(t, "req-1", d.RequestID)
	assert.False(t, d.CreatedAt.IsZero())
}

func TestStoreRecordRejectedDropsBody(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	body := []byte(`{"forged":true}`)
	id, err := s.Record(ctx, RecordRequest{
		Endpoint: "/webhook/twilio",
		URL:      "https://hooks.example.com/webhook/twilio?bodySHA256=00",
		Result:   rejectedResult,
		Body:     body,
	})
	require.NoError(t, err)

	d, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, d.Status)
	assert.Equal(t, "signature_mismatch", d.Reason)
	assert.Equal(t, "json", d.PayloadKind)
	assert.Equal(t, "none", d.MatchedVariant)
	assert.Nil(t, d.Body)
	assert.Equal(t, len(body), d.BodySize)
	assert.NotEmpty(t, d.BodyDigest)
}

func TestStoreRecordRequiresEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.Record(context.Background(), RecordRequest{Result: acceptedResult})
	assert.Error(t, err)
}

func TestStoreGetNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDeliveryNotFound)
}

func TestStoreListFilters(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []struct {
		endpoint string
		result   signature.Result
	}{
		{"/webhook/a", acceptedResult},
		{"/webhook/a", rejectedResult},
		{"/webhook/b", acceptedResult},
		{"/webhook/b", rejectedResult},
		{"/webhook/b", rejectedResult},
	}
	var ids []string
	for i, r := range records {
		at := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return at }
		id, err := s.Record(ctx, RecordRequest{Endpoint: r.endpoint, URL: "https://example.com" + r.endpoint, Result: r.result})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, ids[4], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[4].ID)

	rejected, err := s.List(ctx, Filter{Status: StatusRejected})
	require.NoError(t, err)
	assert.Len(t, rejected, 3)

	b, err := s.List(ctx, Filter{Endpoint: "/webhook/b", Status: StatusRejected})
	require.NoError(t, err)
	assert.Len(t, b, 2)

	limited, err := s.List(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStorePrune(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	for _, age := range []time.Duration{48 * time.Hour, 36 * time.Hour, time.Hour} {
		at := now.Add(-age)
		s.now = func() time.Time { return at }
		_, err := s.Record(ctx, RecordRequest{Endpoint: "/webhook/a", URL: "https://example.com/webhook/a", Result: acceptedResult})
		require.NoError(t, err)
	}

	s.now = func() time.Time { return now }
	n, err := s.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, left, 1)

	_, err = s.Prune(ctx, 0)
	assert.Error(t, err)
}

func TestStoreStats(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	for _, r := range []signature.Result{acceptedResult, acceptedResult, rejectedResult} {
		_, err := s.Record(ctx, RecordRequest{Endpoint: "/webhook/a", URL: "https://example.com/webhook/a", Result: r})
		require.NoError(t, err)
	}

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []StatRow{
		{Status: StatusAccepted, Reason: "ok", Count: 2},
		{Status: StatusRejected, Reason: "signature_mismatch", Count: 1},
	}, stats)
}
