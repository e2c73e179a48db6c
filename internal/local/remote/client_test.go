package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zange-app/zange/backend/internal/local/store"
)

func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "password1" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"ok": false, "error": "invalid credentials"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "tok-1", Path: "/"})
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "user": map[string]interface{}{"id": 7, "email": "me@x.io"}})
	})
	mux.HandleFunc("/api/me", func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie(SessionCookie)
		if err != nil || ck.Value != "tok-1" {
			writeJSON(w, http.StatusOK, map[string]interface{}{"ok": false, "user": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "user": map[string]interface{}{"id": 7, "email": "me@x.io"}})
	})
	mux.HandleFunc("/api/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "items": []map[string]interface{}{
			{"id": 1, "text": "hi", "owner": map[string]interface{}{"nickname": "anonymous"}, "reactionCounts": map[string]int{"pray": 2}},
		}})
	})
	mux.HandleFunc("/reactions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"ok": false, "error": "zange not found"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := fakeServer(t)
	tokens := store.New(store.NewMemoryBackend())
	c := NewClient(srv.URL+"/", tokens)

	email, err := c.CurrentEmail(ctx)
	require.NoError(t, err)
	assert.Empty(t, email)

	_, err = c.Login(ctx, "me@x.io", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	u, err := c.Login(ctx, "me@x.io", "password1")
	require.NoError(t, err)
	assert.Equal(t, uint(7), u.ID)

	tok, err := tokens.SessionToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	// A fresh client sharing the token store is still signed in.
	email, err = NewClient(srv.URL, tokens).CurrentEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "me@x.io", email)

	require.NoError(t, c.Logout(ctx))
	tok, err = tokens.SessionToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestFeedAndErrors(t *testing.T) {
	ctx := context.Background()
	srv := fakeServer(t)
	c := NewClient(srv.URL, nil)

	items, err := c.Feed(ctx, 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].ReactionCounts["pray"])
	assert.Nil(t, items[0].Owner.ID)

	_, err = c.React(ctx, ReactRequest{ZangeID: 99, Type: "pray"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "zange not found", apiErr.Message)
}
