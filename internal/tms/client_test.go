package tms_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/washops/fleetbot/internal/tms"
)

func newClient(t *testing.T, baseURL string) *tms.Client {
	t.Helper()
	return tms.New(tms.Config{
		BaseURL:  baseURL,
		Email:    "ops@example.com",
		Password: "hunter2",
		Timeout:  5 * time.Second,
	}, zaptest.NewLogger(t))
}

// signInCounter serves /api/v1/sign-in, handing out tok-1, tok-2, ... and
// counting calls.
type signInCounter struct {
	mu    sync.Mutex
	calls int
}

func (s *signInCounter) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls++
		n := s.calls
		s.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: tms.AuthCookieName, Value: fmt.Sprintf("tok-%d", n)})
		w.WriteHeader(http.StatusOK)
	}
}

func (s *signInCounter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestFetchUnitsSignsInOnceAndSendsIDs(t *testing.T) {
	var signIn signInCounter
	var gotBody []byte
	var gotCookie string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/sign-in", signIn.handler())
	mux.HandleFunc("/api/v1/project/29/unit/full", func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		if ck, err := r.Cookie(tms.AuthCookieName); err == nil {
			gotCookie = ck.Value
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":101,"location_name":"Downtown","status":{"type":"ok","online_type":"ok"}}]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newClient(t, srv.URL)
	payload, err := client.FetchUnits(context.Background(), 29, []int64{101, 202})
	require.NoError(t, err)

	assert.Equal(t, "[101,202]", string(gotBody))
	assert.Equal(t, "tok-1", gotCookie)
	require.Len(t, payload.Units, 1)
	assert.Equal(t, int64(101), payload.Units[0].ID)
	assert.Equal(t, "Downtown", payload.Units[0].DisplayName())
	assert.Equal(t, http.StatusOK, payload.Status)
	assert.JSONEq(t, "[101,202]", string(payload.RequestBody))
	assert.Contains(t, string(payload.Raw), `"id":101`)

	// Second fetch reuses the token instead of signing in again.
	_, err = client.FetchUnits(context.Background(), 29, []int64{101})
	require.NoError(t, err)
	assert.Equal(t, 1, signIn.count())
}

func TestFetchUnitsRetriesOnceOn401(t *testing.T) {
	var signIn signInCounter
	refreshes := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/sign-in", signIn.handler())
	mux.HandleFunc("/api/v1/project/29/unit/full", func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie(tms.AuthCookieName)
		if err != nil || ck.Value == "tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":101,"status":{"type":"ok","online_type":"ok"}}]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newClient(t, srv.URL)
	client.OnTokenRefresh = func() { refreshes++ }

	payload, err := client.FetchUnits(context.Background(), 29, []int64{101})
	require.NoError(t, err)
	require.Len(t, payload.Units, 1)

	// Exactly one sign-in beyond the initial one, and the refresh callback
	// fired for it.
	assert.Equal(t, 2, signIn.count())
	assert.Equal(t, 1, refreshes)
}

func TestFetchUnitsSecondUnauthorizedIsTerminal(t *testing.T) {
	var signIn signInCounter

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/sign-in", signIn.handler())
	mux.HandleFunc("/api/v1/project/29/unit/full", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newClient(t, srv.URL)
	_, err := client.FetchUnits(context.Background(), 29, []int64{101})
	require.Error(t, err)
	assert.ErrorIs(t, err, tms.ErrAuthFailed)
	assert.Equal(t, 2, signIn.count())
}

func TestSignInFailures(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/v1/sign-in", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		err := newClient(t, srv.URL).SignIn(context.Background())
		assert.ErrorIs(t, err, tms.ErrAuthFailed)
	})

	t.Run("missing cookie", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/v1/sign-in", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		err := newClient(t, srv.URL).SignIn(context.Background())
		assert.ErrorIs(t, err, tms.ErrAuthFailed)
	})
}

func TestFetchUnitsRemoteAPIError(t *testing.T) {
	var signIn signInCounter
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/sign-in", signIn.handler())
	mux.HandleFunc("/api/v1/project/29/unit/full", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream unavailable")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newClient(t, srv.URL).FetchUnits(context.Background(), 29, []int64{101})
	require.Error(t, err)

	var apiErr *tms.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, apiErr.Snippet, "upstream unavailable")
}

func TestFetchUnitsMalformedSnapshot(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not an array", `{"oops":1}`},
		{"missing unit id", `[{"location_name":"Downtown"}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var signIn signInCounter
			mux := http.NewServeMux()
			mux.HandleFunc("/api/v1/sign-in", signIn.handler())
			mux.HandleFunc("/api/v1/project/29/unit/full", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, tc.body)
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()

			_, err := newClient(t, srv.URL).FetchUnits(context.Background(), 29, []int64{101})
			assert.ErrorIs(t, err, tms.ErrMalformedSnapshot)
		})
	}
}

func TestFetchTransactionsPaginates(t *testing.T) {
	var signIn signInCounter
	var mu sync.Mutex
	requests := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/sign-in", signIn.handler())
	mux.HandleFunc("/api/v1/org/org-7/transactions", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()

		q := r.URL.Query()
		assert.Equal(t, "2026-08-01", q.Get("from"))
		assert.Equal(t, "2026-08-21", q.Get("to"))
		assert.Equal(t, "2", q.Get("max-count"))

		w.Header().Set("Content-Type", "application/json")
		switch q.Get("next-id") {
		case "":
			fmt.Fprint(w, `{"items":[{"id":1,"payment":{"approved":true}},{"id":2,"payment":{"approved":true}}],"next_id":"p2"}`)
		case "p2":
			fmt.Fprint(w, `{"items":[{"id":3,"payment":{"approved":true}}],"next_id":"p3"}`)
		case "p3":
			fmt.Fprint(w, `{"items":[{"id":4,"payment":{"approved":true}}],"next_id":null}`)
		default:
			t.Errorf("unexpected next-id %q", q.Get("next-id"))
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	items, err := newClient(t, srv.URL).FetchTransactions(context.Background(), "org-7", from, to, 2)
	require.NoError(t, err)

	var ids []int64
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, ids)
	assert.Equal(t, 3, requests)
	assert.Equal(t, 1, signIn.count())
}

func TestRedactHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Cookie", tms.AuthCookieName+"=super-secret")
	h.Set("Authorization", "Bearer super-secret")
	h.Set("Content-Type", "application/json")

	r := tms.RedactHeaders(h)
	assert.Equal(t, tms.AuthCookieName+"=***REDACTED***", r.Get("Cookie"))
	assert.Equal(t, "Bearer ***REDACTED***", r.Get("Authorization"))
	assert.Equal(t, "application/json", r.Get("Content-Type"))

	// The input header is left alone.
	assert.Equal(t, tms.AuthCookieName+"=super-secret", h.Get("Cookie"))

	assert.NotNil(t, tms.RedactHeaders(nil))
}
