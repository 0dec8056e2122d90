package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coursewatch/coursewatch-api/internal/models"
	"github.com/coursewatch/coursewatch-api/pkg/config"
)

const feedPayload = `{
  "course_title": "Programming III",
  "term_data": {
    "1252": {
      "enrollment_data": {
        "instructors": {"Remzi Arpaci-Dusseau": "remzi@example.edu", "Andrea Arpaci-Dusseau": "andrea@example.edu"}
      }
    }
  }
}`

func newTestClient(t *testing.T, url string, cache DocumentCache) *CourseClient {
	t.Helper()
	cfg := config.UpstreamConfig{
		BaseURL:        url,
		RequestTimeout: 5 * time.Second,
		CacheTTL:       time.Minute,
		CacheEnabled:   cache != nil,
	}
	return NewCourseClient(cfg, nil, nil, cache, zap.NewNop())
}

func TestCourseClientFetchBuildsCanonicalDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/course/COMPSCI_537.json", r.URL.Path)
		w.Write([]byte(feedPayload))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	doc, err := client.Fetch(context.Background(), "1252", "COMP SCI", "537")
	require.NoError(t, err)

	assert.Equal(t, "Programming III", doc.Title)
	assert.Equal(t, "COMP SCI", doc.Subject)
	require.Len(t, doc.Sections, 2, "one section per instructor")
	for _, section := range doc.Sections {
		assert.GreaterOrEqual(t, section.OpenSeats, 0)
		assert.GreaterOrEqual(t, section.WaitlistOpen, 0)
		assert.Contains(t, []models.SectionStatus{models.SectionStatusOpen, models.SectionStatusWaitlist, models.SectionStatusClosed}, section.Status)
	}
}

func TestCourseClientFetchUnknownTermFallsBackToDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"course_title": "Calculus"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	doc, err := client.Fetch(context.Background(), "1254", "MATH", "221")
	require.NoError(t, err)
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "001", doc.Sections[0].SectionID)
	assert.Equal(t, "TBA", doc.Sections[0].Instructor)
}

func TestCourseClientNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	_, err := client.Fetch(context.Background(), "1252", "COMP SCI", "999")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsRetryable(err))
}

func TestCourseClientRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	_, err := client.Fetch(context.Background(), "1252", "COMP SCI", "400")
	require.Error(t, err)
	assert.True(t, IsRetryable(err))

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindRateLimited, fe.Kind)
	assert.Equal(t, 30*time.Second, fe.RetryAfter)
}

func TestCourseClientServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	_, err := client.Fetch(context.Background(), "1252", "COMP SCI", "400")
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.False(t, IsNotFound(err))
}

type memoryCache struct {
	entries map[string][]byte
	hits    int32
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return assert.AnError
	}
	atomic.AddInt32(&m.hits, 1)
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = map[string][]byte{}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func TestCourseClientUsesDocumentCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(feedPayload))
	}))
	defer srv.Close()

	cache := &memoryCache{}
	client := newTestClient(t, srv.URL, cache)

	_, err := client.Fetch(context.Background(), "1252", "COMP SCI", "537")
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), "1252", "COMP SCI", "537")
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "second fetch should hit the cache")
	assert.EqualValues(t, 1, atomic.LoadInt32(&cache.hits))
}

type stubGate struct {
	delay time.Duration
	calls int32
}

func (g *stubGate) Acquire(ctx context.Context) error {
	atomic.AddInt32(&g.calls, 1)
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	return nil
}

func TestCourseClientReportsGateWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedPayload))
	}))
	defer srv.Close()

	cfg := config.UpstreamConfig{
		BaseURL:        srv.URL,
		RequestTimeout: 5 * time.Second,
		CacheTTL:       time.Minute,
		CacheEnabled:   true,
	}
	gate := &stubGate{delay: 10 * time.Millisecond}
	var waits []time.Duration
	client := NewCourseClient(cfg, gate, func(d time.Duration) { waits = append(waits, d) }, &memoryCache{}, zap.NewNop())

	_, err := client.Fetch(context.Background(), "1252", "COMP SCI", "537")
	require.NoError(t, err)
	require.Len(t, waits, 1)
	assert.GreaterOrEqual(t, waits[0], 10*time.Millisecond)

	// Cache hits never touch the gate.
	_, err = client.Fetch(context.Background(), "1252", "COMP SCI", "537")
	require.NoError(t, err)
	assert.Len(t, waits, 1)
	assert.EqualValues(t, 1, atomic.LoadInt32(&gate.calls))
}
