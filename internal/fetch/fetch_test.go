package fetch

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/docuverse/internal/ai"
	"github.com/hpungsan/docuverse/internal/db"
	"github.com/hpungsan/docuverse/internal/engine"
	"github.com/hpungsan/docuverse/internal/errors"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	sqlDB, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return engine.New(sqlDB)
}

func TestHTTPKey_SendsTokenAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "tok", r.Header.Get("X-Authentication-Token"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(&Env{Engine: newEngine(t), Token: "tok"})
	for i := 0; i < 2; i++ {
		data, err := c.Get(context.Background(), srv.URL+"/posts/1")
		require.NoError(t, err)
		assert.Equal(t, `{"ok":true}`, string(data))
	}
	assert.Equal(t, int32(1), hits.Load())

	_, err := c.GetFresh(context.Background(), srv.URL+"/posts/1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTPKey_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPKey(srv.URL, &Env{Token: "tok"}).Compute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRequestFailed))
}

func TestHTTPKey_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "ftp://x", "::::", "http://"} {
		_, err := NewHTTPKey(u, &Env{Token: "tok"}).Compute(context.Background())
		assert.True(t, errors.Is(err, errors.ErrRequestFailed), "url %q: err = %v", u, err)
	}
}

func TestHTTPKey_MissingToken(t *testing.T) {
	_, err := NewHTTPKey("https://freefeed.net/v2/posts/1", &Env{}).Compute(context.Background())
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestHTTPKey_Identity(t *testing.T) {
	k := NewHTTPKey("https://a", &Env{Token: "secret"})
	_, fields, err := engine.CacheID(k.KeyType(), k.Version(), k)
	require.NoError(t, err)
	assert.Equal(t, `{"url":"https://a"}`, fields)
	assert.Equal(t, 5, k.Version())
}

func TestCompletionKey_JoinsParts(t *testing.T) {
	gen := &ai.Static{Candidates: []ai.Candidate{{Parts: []string{"a", "b"}}, {Parts: []string{"c"}}}}
	res, err := NewCompletionKey("p", &Env{Generator: gen}).Compute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a b", "c"}, res.Response)
}

func TestCompletionKey_ZeroCandidates(t *testing.T) {
	gen := &ai.Static{}
	_, err := NewCompletionKey("p", &Env{Generator: gen}).Compute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRequestFailed))
}

func TestCompletionKey_NoGenerator(t *testing.T) {
	_, err := NewCompletionKey("p", &Env{}).Compute(context.Background())
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestCompletionKey_LogsCritical(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: LevelCritical, ReplaceAttr: ReplaceLevel}))

	gen := &ai.Static{Candidates: ai.Texts("answer")}
	_, err := NewCompletionKey("question", &Env{Generator: gen, Logger: logger}).Compute(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "level=CRITICAL"), out)
	assert.Contains(t, out, "question")
	assert.Contains(t, out, "answer")
}

func TestCompletionKey_JitterHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &ai.Static{Candidates: ai.Texts("x")}
	env := &Env{Generator: gen, JitterMin: time.Hour, JitterMax: 2 * time.Hour}
	_, err := NewCompletionKey("p", env).Compute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_CompleteCaches(t *testing.T) {
	var calls atomic.Int32
	gen := &ai.Static{Func: func(prompt string) ([]ai.Candidate, error) {
		calls.Add(1)
		return ai.Texts("r:" + prompt), nil
	}}
	c := NewClient(&Env{Engine: newEngine(t), Generator: gen})

	for i := 0; i < 3; i++ {
		res, err := c.Complete(context.Background(), "same")
		require.NoError(t, err)
		assert.Equal(t, []string{"r:same"}, res)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestJitterBounds(t *testing.T) {
	env := &Env{JitterMin: 10 * time.Millisecond, JitterMax: 20 * time.Millisecond}
	for i := 0; i < 100; i++ {
		d := env.jitter()
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.LessOrEqual(t, d, 20*time.Millisecond)
	}
	assert.Equal(t, time.Duration(0), (&Env{}).jitter())
	assert.Equal(t, 5*time.Millisecond, (&Env{JitterMin: 5 * time.Millisecond}).jitter())
}
