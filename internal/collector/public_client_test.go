package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/plandit-scraper/internal/domain"
)

func listingBody(after string, ids ...string) string {
	children := ""
	for i, id := range ids {
		if i > 0 {
			children += ","
		}
		children += fmt.Sprintf(`{"kind":"t3","data":{"id":%q,"title":"t","permalink":"/r/go/comments/%s/"}}`, id, id)
	}
	return fmt.Sprintf(`{"data":{"after":%q,"children":[%s]}}`, after, children)
}

func newTestClient(t *testing.T, mirrors ...string) *PublicClient {
	t.Helper()
	pc, err := NewPublicClient(Options{
		Mirrors:   mirrors,
		UserAgent: "test-agent",
		Timeout:   2 * time.Second,
		RateEvery: time.Millisecond,
		Backoff:   time.Millisecond,
	})
	require.NoError(t, err)
	return pc
}

func TestFetchPageFailover(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	var hits atomic.Int32
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/r/golang/new.json", r.URL.Path)
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		fmt.Fprint(w, listingBody("cursor1", "a", "b"))
	}))
	defer good.Close()

	pc := newTestClient(t, bad.URL, good.URL)

	page, err := pc.FetchPage(context.Background(), domain.Target{Name: "golang"}, "", 25)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.Len(t, page.Items, 2)
	assert.Equal(t, "cursor1", page.After)
}

func TestFetchPageAllMirrorsFailed(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	pc := newTestClient(t, down.URL, down.URL)

	_, err := pc.FetchPage(context.Background(), domain.Target{Name: "golang"}, "", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllMirrorsFailed)
}

func TestFetchPageRateLimitedThenRecovers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, listingBody("", "a"))
	}))
	defer srv.Close()

	// Same base twice so the shuffled walk hits the server again after
	// the 429 backoff.
	pc := newTestClient(t, srv.URL, srv.URL)

	page, err := pc.FetchPage(context.Background(), domain.Target{Name: "golang"}, "", 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestFetchPageMalformedBodyFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	}))
	defer srv.Close()

	pc := newTestClient(t, srv.URL)

	_, err := pc.FetchPage(context.Background(), domain.Target{Name: "golang"}, "", 10)
	assert.ErrorIs(t, err, ErrAllMirrorsFailed)
}

func TestFetchPagePassesCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "t3_prev", r.URL.Query().Get("after"))
		fmt.Fprint(w, listingBody("", "a"))
	}))
	defer srv.Close()

	pc := newTestClient(t, srv.URL)
	_, err := pc.FetchPage(context.Background(), domain.Target{Name: "golang"}, "t3_prev", 10)
	require.NoError(t, err)
}

func TestFetchPageUserTarget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/someone/submitted.json", r.URL.Path)
		fmt.Fprint(w, listingBody("", "a"))
	}))
	defer srv.Close()

	pc := newTestClient(t, srv.URL)
	_, err := pc.FetchPage(context.Background(), domain.Target{Name: "someone", IsUser: true}, "", 10)
	require.NoError(t, err)
}

func TestFetchCommentListingUsesCanonical(t *testing.T) {
	canonical := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/go/comments/abc/.json", r.URL.Path)
		fmt.Fprint(w, `[{"data":{}},{"data":{}}]`)
	}))
	defer canonical.Close()

	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("comment fetch must not rotate to secondary mirrors")
	}))
	defer other.Close()

	pc := newTestClient(t, canonical.URL, other.URL)

	body, err := pc.FetchCommentListing(context.Background(), "/r/go/comments/abc/")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"data":{}},{"data":{}}]`, string(body))
}

func TestDownloadNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	pc := newTestClient(t, srv.URL)

	_, err := pc.Download(context.Background(), srv.URL+"/img.jpg", time.Second)
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.False(t, se.RateLimited())
}

func TestRegistryShuffledKeepsMembers(t *testing.T) {
	reg := NewRegistry([]string{"a", "b", "c"})
	assert.Equal(t, "a", reg.Canonical())

	got := reg.Shuffled()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 3, reg.Len())
}
