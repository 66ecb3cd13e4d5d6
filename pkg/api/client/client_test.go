package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	refreshes atomic.Int32
	access    atomic.Value
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{}
	api.access.Store("a1")
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Invalid credentials"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: accessCookieName, Value: api.access.Load().(string), Path: "/", HttpOnly: true})
		http.SetCookie(w, &http.Cookie{Name: refreshCookieName, Value: "r1", Path: "/", HttpOnly: true})
		_ = json.NewEncoder(w).Encode(map[string]any{"user": User{ID: "u1", Email: body["email"], Role: "agent"}})
	})
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(refreshCookieName)
		if err != nil || c.Value != "r1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		api.refreshes.Add(1)
		api.access.Store("a2")
		http.SetCookie(w, &http.Cookie{Name: accessCookieName, Value: "a2", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: refreshCookieName, Value: "r1", Path: "/"})
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Token refreshed"})
	})
	mux.HandleFunc("GET /api/v1/properties/agent/my-properties", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(accessCookieName)
		if err != nil || c.Value != "a2" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Invalid token"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []Property{{ID: "p1", Title: "Loft"}}})
	})
	mux.HandleFunc("GET /api/v1/properties", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		_ = json.NewEncoder(w).Encode(PropertyPage{Total: 1, Page: 2, Data: []Property{{ID: q.Get("city") + "-" + q.Get("minPrice")}}})
	})
	mux.HandleFunc("GET /api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":null}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api, srv
}

func TestLoginStoresSessionAndRefreshesOnUnauthorized(t *testing.T) {
	api, srv := newFakeAPI(t)
	cli, err := New(srv.URL)
	require.NoError(t, err)

	user, err := cli.Login(context.Background(), "a@x.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, Session{AccessToken: "a1", RefreshToken: "r1"}, cli.Session())

	props, err := cli.MyProperties(context.Background())
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "Loft", props[0].Title)
	assert.Equal(t, int32(1), api.refreshes.Load())
	assert.Equal(t, "a2", cli.Session().AccessToken)
}

func TestLoginErrorCarriesMessage(t *testing.T) {
	_, srv := newFakeAPI(t)
	cli, err := New(srv.URL)
	require.NoError(t, err)

	_, err = cli.Login(context.Background(), "a@x.io", "nope")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	var apiErr APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
}

func TestWithoutAutoRefreshSurfaces401(t *testing.T) {
	api, srv := newFakeAPI(t)
	cli, err := New(srv.URL, WithoutAutoRefresh())
	require.NoError(t, err)
	cli.SetSession(Session{AccessToken: "stale", RefreshToken: "r1"})

	_, err = cli.MyProperties(context.Background())
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(0), api.refreshes.Load())
}

func TestListPropertiesEncodesQuery(t *testing.T) {
	_, srv := newFakeAPI(t)
	cli, err := New(srv.URL)
	require.NoError(t, err)

	minPrice := 1500.5
	page, err := cli.ListProperties(context.Background(), PropertyQuery{City: "Austin", MinPrice: &minPrice, Page: 2})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Austin-1500.5", page.Data[0].ID)
	assert.Equal(t, 2, page.Page)
}

func TestMeReturnsNilUser(t *testing.T) {
	_, srv := newFakeAPI(t)
	cli, err := New(srv.URL)
	require.NoError(t, err)

	user, err := cli.Me(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestNewNormalisesBaseURL(t *testing.T) {
	cli, err := New("localhost:5000/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", cli.baseURL.String())

	cli, err = New("")
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, cli.baseURL.String())
}
