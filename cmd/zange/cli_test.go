package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zange-app/zange/backend/internal/apperrors"
	"github.com/zange-app/zange/backend/internal/local/aggregator"
	"github.com/zange-app/zange/backend/internal/local/store"
	"github.com/zange-app/zange/backend/internal/repositories"
	"github.com/zange-app/zange/backend/internal/router"
	"github.com/zange-app/zange/backend/internal/testdb"
	"github.com/zange-app/zange/backend/pkg/config"
)

// newTestCLI shares one in-memory backend across invocations, the way the
// store file persists between real runs.
func newTestCLI(apiURL string) *cli {
	backend := store.NewMemoryBackend()
	return &cli{
		cfg:    &config.Config{Env: "test", APIBaseURL: apiURL},
		logger: zap.NewNop(),
		openBackend: func(context.Context, *config.Config) (store.Backend, func(), error) {
			return backend, func() {}, nil
		},
	}
}

func run(c *cli, args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// runLocal never consults a server.
func runLocal(t *testing.T, c *cli, args ...string) string {
	t.Helper()
	out, err := run(c, append(args, "--offline")...)
	require.NoError(t, err, out)
	return out
}

func postedID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	require.Len(t, fields, 2, out)
	require.Equal(t, "posted", fields[0])
	return fields[1]
}

func signedUpID(t *testing.T, out string) string {
	t.Helper()
	start, end := strings.Index(out, "["), strings.Index(out, "]")
	require.True(t, start >= 0 && end > start, out)
	return out[start+1 : end]
}

func TestPostReactCommentNotify(t *testing.T) {
	c := newTestCLI("")

	assert.Contains(t, runLocal(t, c, "seed"), "seeded")
	assert.Contains(t, runLocal(t, c, "seed"), "already")

	out := runLocal(t, c, "signup", "u1@x.io", "password1", "--nickname", "U1")
	assert.Contains(t, out, "signed up as u1@x.io")

	id := postedID(t, runLocal(t, c, "post", "late again", "--target", "上司"))

	timeline := runLocal(t, c, "timeline")
	late, seed := strings.Index(timeline, "late again"), strings.Index(timeline, "会議中に")
	require.True(t, late >= 0 && seed >= 0, timeline)
	assert.Less(t, late, seed)
	assert.Contains(t, timeline, "to: 上司")

	out = runLocal(t, c, "react", id, "pray")
	assert.Contains(t, out, "pray → 1")
	assert.Contains(t, out, "pray: 1")

	// Repeating as the same user changes nothing.
	out = runLocal(t, c, "react", id, "pray")
	assert.Contains(t, out, "pray: 1")
	assert.NotContains(t, out, "→")

	runLocal(t, c, "logout")
	runLocal(t, c, "signup", "u2@x.io", "password2", "--nickname", "U2")

	out = runLocal(t, c, "comment", id, "sorry")
	assert.Contains(t, out, "comments: 1")
	assert.Contains(t, out, "U2: sorry")

	_, err := run(c, "comment", id, strings.Repeat("ご", aggregator.MaxCommentLength+1), "--offline")
	assert.True(t, errors.Is(err, apperrors.ErrValidation), "got %v", err)

	runLocal(t, c, "logout")
	runLocal(t, c, "login", "u1@x.io", "password1")

	out = runLocal(t, c, "notifications")
	assert.Contains(t, out, "unread: 1")
	assert.Contains(t, out, "U2 さんがあなたの投稿にコメントしました")

	out = runLocal(t, c, "notifications", "--read-all")
	assert.Contains(t, out, "unread: 0")
	assert.Contains(t, out, "* ")
	assert.NotContains(t, runLocal(t, c, "notifications"), "* ")

	show := runLocal(t, c, "show", id)
	assert.Contains(t, show, "- U2: sorry")
}

func TestAnonymousPostAndReactions(t *testing.T) {
	c := newTestCLI("")

	assert.Contains(t, runLocal(t, c, "whoami"), store.AnonymousName)
	id := postedID(t, runLocal(t, c, "post", "forgot the milk", "-t", "家族，自分"))

	runLocal(t, c, "react", id, "wakaru")
	out := runLocal(t, c, "react", id, "wakaru")
	assert.Contains(t, out, "wakaru: 2")

	timeline := runLocal(t, c, "timeline")
	assert.Contains(t, timeline, store.AnonymousName)
	assert.Contains(t, timeline, "わかる 2")
	assert.Contains(t, timeline, "to: 家族、自分")

	_, err := run(c, "post", "no target", "--offline")
	assert.Error(t, err)

	_, err = run(c, "react", "12345", "pray", "--offline")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "got %v", err)
}

func TestPrivatePostsAndSearch(t *testing.T) {
	c := newTestCLI("")

	_, err := run(c, "mine", "--offline")
	assert.ErrorIs(t, err, errNotSignedIn)

	runLocal(t, c, "signup", "me@x.io", "password1")
	runLocal(t, c, "post", "secret one", "-t", "self", "--private")
	runLocal(t, c, "post", "overslept", "-t", "Boss", "--tag", "#早起き")

	timeline := runLocal(t, c, "timeline")
	assert.NotContains(t, timeline, "secret one")
	assert.Contains(t, timeline, "tags: #早起き")

	assert.Equal(t, timeline, runLocal(t, c, "search"))
	assert.Contains(t, runLocal(t, c, "search", "boss"), "overslept")
	assert.Contains(t, runLocal(t, c, "search", "早起き"), "overslept")
	assert.Contains(t, runLocal(t, c, "search", "nothing-here"), "no zanges")

	mine := runLocal(t, c, "mine")
	assert.Contains(t, mine, "secret one")
	assert.Contains(t, mine, "private")
	assert.NotContains(t, runLocal(t, c, "mine", "over"), "secret one")
}

func TestEditAndDeleteOwnership(t *testing.T) {
	c := newTestCLI("")

	runLocal(t, c, "signup", "owner@x.io", "password1")
	id := postedID(t, runLocal(t, c, "post", "first draft", "-t", "team"))

	runLocal(t, c, "edit", id, "--text", "second draft")
	show := runLocal(t, c, "show", id)
	assert.Contains(t, show, "second draft")
	assert.Contains(t, show, "to: team")

	runLocal(t, c, "logout")
	runLocal(t, c, "signup", "other@x.io", "password1")
	_, err := run(c, "delete", id, "--offline")
	assert.ErrorIs(t, err, aggregator.ErrNotOwner)

	runLocal(t, c, "logout")
	runLocal(t, c, "login", "owner@x.io", "password1")
	assert.Contains(t, runLocal(t, c, "delete", id), "deleted "+id)
	assert.Contains(t, runLocal(t, c, "timeline"), "no zanges")
}

func TestFollowAndUserPage(t *testing.T) {
	c := newTestCLI("")

	aliceID := signedUpID(t, runLocal(t, c, "signup", "alice@x.io", "password1", "--nickname", "alice"))
	runLocal(t, c, "post", "alice's zange", "-t", "cat")
	runLocal(t, c, "logout")
	bobID := signedUpID(t, runLocal(t, c, "signup", "bob@x.io", "password1", "--nickname", "bob"))

	_, err := run(c, "follow", bobID, "--offline")
	assert.Error(t, err)

	runLocal(t, c, "follow", aliceID)
	runLocal(t, c, "follow", aliceID)

	page := runLocal(t, c, "user", aliceID)
	assert.Contains(t, page, "following 0  followers 1")
	assert.Contains(t, page, "you follow this user")
	assert.Contains(t, page, "alice's zange")
	assert.Contains(t, page, "(following)")

	runLocal(t, c, "unfollow", aliceID)
	page = runLocal(t, c, "user", aliceID)
	assert.Contains(t, page, "following 0  followers 0")
	assert.NotContains(t, page, "you follow this user")
}

func TestProfile(t *testing.T) {
	c := newTestCLI("")

	_, err := run(c, "profile", "--offline")
	assert.ErrorIs(t, err, errNotSignedIn)

	runLocal(t, c, "signup", "p@x.io", "password1", "--nickname", "before")
	out := runLocal(t, c, "profile", "--nickname", "after", "--bio", "早起きします")
	assert.Contains(t, out, "nickname: after")
	assert.Contains(t, out, "bio:      早起きします")
	assert.Contains(t, out, "avatar:   "+store.DefaultAvatar)

	assert.Contains(t, runLocal(t, c, "whoami"), "after p@x.io")
	assert.Contains(t, runLocal(t, c, "profile"), "nickname: after")
}

func TestImportLegacy(t *testing.T) {
	c := newTestCLI("")
	assert.Contains(t, runLocal(t, c, "import-legacy", "x@x.io"), "nothing to import")
	assert.Contains(t, runLocal(t, c, "import-legacy", "x@x.io"), "nothing to import")

	_, err := run(c, "import-legacy", " ", "--offline")
	assert.True(t, errors.Is(err, apperrors.ErrValidation), "got %v", err)
}

func TestStamps(t *testing.T) {
	out := runLocal(t, newTestCLI(""), "stamps")
	assert.Contains(t, out, "pray")
	assert.Contains(t, out, "🙏")
	assert.Contains(t, out, "わかる")
}

func TestRemoteSessionAndFeed(t *testing.T) {
	db := testdb.Open(t, repositories.Models()...)
	e := echo.New()
	router.SetupRoutes(e, router.Options{
		DB:     db,
		Config: &config.Config{Env: "test", JWTSecret: "test-secret"},
		Logger: zap.NewNop(),
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	body, err := json.Marshal(map[string]interface{}{"text": "remote one", "targets": []string{"上司"}, "ownerEmail": "b@x.io"})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/zanges", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.NotZero(t, created.ID)
	zangeID := strconv.FormatUint(uint64(created.ID), 10)

	c := newTestCLI(srv.URL)

	out, err := run(c, "signup", "--remote", "A@x.io", "password1", "--nickname", "A")
	require.NoError(t, err, out)
	assert.Contains(t, out, "signed in on the server as a@x.io")

	token, err := c.store.SessionToken(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	out, err = run(c, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "a@x.io")

	out, err = run(c, "feed")
	require.NoError(t, err, out)
	assert.Contains(t, out, "remote one")
	assert.Contains(t, out, "to: 上司")

	out, err = run(c, "remote-react", zangeID, "pray")
	require.NoError(t, err, out)
	assert.Contains(t, out, "reacted: true")
	assert.Contains(t, out, "pray 1")

	out, err = run(c, "remote-react", zangeID, "pray")
	require.NoError(t, err, out)
	assert.Contains(t, out, "reacted: false")

	_, err = run(c, "remote-react", "999", "pray")
	assert.Error(t, err)

	out, err = run(c, "logout")
	require.NoError(t, err, out)
	token, err = c.store.SessionToken(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)

	out, err = run(c, "login", "--remote", "a@x.io", "wrong-pass")
	assert.Error(t, err, out)
}
