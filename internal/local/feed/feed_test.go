package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zange-app/zange/backend/internal/apperrors"
	"github.com/zange-app/zange/backend/internal/local/aggregator"
	"github.com/zange-app/zange/backend/internal/local/identity"
	"github.com/zange-app/zange/backend/internal/local/store"
)

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T, posts []store.Post, users []store.User) (*store.Store, *Feed) {
	t.Helper()
	ctx := context.Background()
	s := store.New(store.NewMemoryBackend())
	require.NoError(t, s.SavePosts(ctx, posts))
	require.NoError(t, s.SaveUsers(ctx, users))
	return s, New(s, identity.NewResolver(s))
}

func ids(posts []store.Post) []int64 {
	out := make([]int64, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func fixture() []store.Post {
	return []store.Post{
		{ID: 1, Text: "Overslept", Targets: []string{"Boss"}, FutureTag: "#早起き", Scope: "public", Timestamp: base.Add(1 * time.Minute), OwnerID: "u_a"},
		{ID: 2, Text: "secret", Targets: []string{"self"}, Scope: "private", Timestamp: base.Add(2 * time.Minute), OwnerID: "u_a"},
		{ID: 3, Text: "ate the cake", LegacyTarget: "妹への懺悔", Scope: "public", Timestamp: base.Add(3 * time.Minute), OwnerProfile: &store.OwnerSnapshot{Nickname: "bee"}},
		{ID: 4, Text: "old one", LegacyOwner: "me", Timestamp: base, Targets: []string{"friend"}},
		{ID: 5, Text: "same time", Targets: []string{"x"}, Scope: "public", Timestamp: base.Add(1 * time.Minute)},
	}
}

func TestListTimeline(t *testing.T) {
	_, f := setup(t, fixture(), nil)
	posts, err := f.ListTimeline(context.Background())
	require.NoError(t, err)
	// Private post 2 is excluded; equal timestamps keep stored order.
	assert.Equal(t, []int64{3, 1, 5, 4}, ids(posts))
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	_, f := setup(t, fixture(), nil)

	cases := []struct {
		keyword string
		want    []int64
	}{
		{"OVERSLEPT", []int64{1}},
		{"boss", []int64{1}},
		{"早起き", []int64{1}},
		{"妹", []int64{3}},
		{"懺悔", []int64{}},
		{"secret", []int64{}},
	}
	for _, tc := range cases {
		t.Run(tc.keyword, func(t *testing.T) {
			posts, err := f.Search(ctx, tc.keyword)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(posts))
		})
	}
}

func TestEmptySearchEqualsTimeline(t *testing.T) {
	ctx := context.Background()
	_, f := setup(t, fixture(), nil)

	timeline, err := f.ListTimeline(ctx)
	require.NoError(t, err)
	for _, kw := range []string{"", "   "} {
		got, err := f.Search(ctx, kw)
		require.NoError(t, err)
		assert.Equal(t, timeline, got)
	}
}

func TestListOwnPosts(t *testing.T) {
	ctx := context.Background()
	_, f := setup(t, fixture(), nil)
	me := &store.User{ID: "u_a"}

	posts, err := f.ListOwnPosts(ctx, me, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 4}, ids(posts))

	posts, err = f.ListOwnPosts(ctx, me, "SECRET")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(posts))

	posts, err = f.ListOwnPosts(ctx, nil, "")
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestListUserPosts(t *testing.T) {
	ctx := context.Background()
	users := []store.User{
		{ID: "u_a", Profile: store.Profile{Nickname: "ay"}},
		{ID: "u_b", Profile: store.Profile{Nickname: "bee"}},
	}
	_, f := setup(t, fixture(), users)

	posts, err := f.ListUserPosts(ctx, "u_a")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(posts))

	posts, err = f.ListUserPosts(ctx, "u_b")
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(posts))

	_, err = f.ListUserPosts(ctx, "u_z")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"集中します", "早起き", "run"}, SplitTags("#集中します ＃早起き、run"))
	assert.Empty(t, SplitTags(""))
}

func TestCards(t *testing.T) {
	ctx := context.Background()
	users := []store.User{
		{ID: "u_a", Profile: store.Profile{Nickname: "ay"}},
		{ID: "u_b", Profile: store.Profile{Nickname: "bee"}, Following: []string{"u_a"}},
	}
	posts := fixture()
	posts[0].Comments = []store.Comment{{Text: "1"}, {Text: "2"}, {Text: "3"}}
	posts[0].Reactions = map[string]int{"pray": 2, "wakaru": 1, "zange": 0}
	_, f := setup(t, posts, users)
	viewer := &users[1]

	timeline, err := f.ListTimeline(ctx)
	require.NoError(t, err)
	cards, err := f.Cards(ctx, timeline, viewer)
	require.NoError(t, err)
	require.Len(t, cards, 4)

	// Post 3 carries bee's snapshot and resolves to the viewer.
	assert.Equal(t, "u_b", cards[0].Owner.OwnerID)
	assert.True(t, cards[0].Owner.Inferred)
	assert.False(t, cards[0].Follow.Show)
	assert.Equal(t, []string{"妹"}, cards[0].Targets)

	c := cards[1]
	assert.Equal(t, "ay", c.Owner.Nickname)
	assert.Equal(t, identity.Affordance{Show: true, Following: true}, c.Follow)
	assert.Equal(t, 3, c.CommentCount)
	assert.Equal(t, []store.Comment{{Text: "2"}, {Text: "3"}}, c.Preview)
	assert.Equal(t, []ReactionCount{
		{Key: "pray", Count: 2}, {Key: "laugh"}, {Key: "sympathy"}, {Key: "growth"}, {Key: "wakaru", Count: 1},
	}, c.Reactions)
}

// A full walk through posting, reacting and commenting between two users.
func TestPostReactCommentScenario(t *testing.T) {
	ctx := context.Background()
	s := store.New(store.NewMemoryBackend())
	require.NoError(t, s.SaveUsers(ctx, []store.User{
		{ID: "U1", Email: "u1@x.io", Profile: store.Profile{Nickname: "one"}},
		{ID: "U2", Email: "u2@x.io", Profile: store.Profile{Nickname: "two"}},
	}))
	r := identity.NewResolver(s)
	agg := aggregator.New(s, nil, nil)
	f := New(s, r)

	u1, err := s.User(ctx, "U1")
	require.NoError(t, err)
	u2, err := s.User(ctx, "U2")
	require.NoError(t, err)

	_, err = s.SeedIfEmpty(ctx, time.Now())
	require.NoError(t, err)

	p, err := agg.CreatePost(ctx, aggregator.Draft{Text: "late again", Targets: []string{"boss"}}, &u1, identity.Snapshot(&u1))
	require.NoError(t, err)

	timeline, err := f.ListTimeline(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, timeline)
	assert.Equal(t, p.ID, timeline[0].ID)

	n, err := agg.ApplyReaction(ctx, p.ID, "pray", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = agg.ApplyComment(ctx, p.ID, "", "sorry", &u2)
	require.NoError(t, err)

	got, err := s.Post(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Comments, 1)

	list, err := s.Notifications(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, store.NotificationComment, list[0].Kind)
}
