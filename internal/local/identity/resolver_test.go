package identity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zange-app/zange/backend/internal/apperrors"
	"github.com/zange-app/zange/backend/internal/local/store"
)

type fakeSession struct {
	email string
	err   error
	calls int
}

func (f *fakeSession) CurrentEmail(context.Context) (string, error) {
	f.calls++
	return f.email, f.err
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("u_%d", n)
	}
}

func setup(t *testing.T, opts ...Option) (*store.Store, *Resolver) {
	t.Helper()
	s := store.New(store.NewMemoryBackend())
	opts = append([]Option{WithIDGenerator(sequentialIDs())}, opts...)
	return s, NewResolver(s, opts...)
}

func TestResolveActingUserNobody(t *testing.T) {
	_, r := setup(t)
	u, err := r.ResolveActingUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestResolveActingUserLocalSession(t *testing.T) {
	ctx := context.Background()
	s, r := setup(t)
	require.NoError(t, s.SaveUsers(ctx, []store.User{{ID: "u_a", Email: "a@x.io"}}))
	require.NoError(t, s.SetActiveUserID(ctx, "u_a"))

	u, err := r.ResolveActingUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u_a", u.ID)
}

func TestShadowUserFromServerOwnerIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, r := setup(t)
	require.NoError(t, s.SetActiveOwner(ctx, "Me@X.io"))
	require.NoError(t, s.SaveProfile(ctx, "me@x.io", store.Profile{Nickname: "zange"}))

	first, err := r.ResolveActingUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "me@x.io", first.Email)
	assert.Equal(t, "zange", first.Profile.Nickname)
	assert.Equal(t, store.DefaultAvatar, first.Profile.Avatar)

	// Drop the local binding; the same shadow user must come back.
	require.NoError(t, s.SetActiveUserID(ctx, ""))
	second, err := r.ResolveActingUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	active, err := s.ActiveUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active)
}

func TestShadowUserImportsLegacyProfile(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemoryBackend()
	s := store.New(b)
	r := NewResolver(s, WithIDGenerator(sequentialIDs()))
	require.NoError(t, b.Put(ctx, store.KeyLegacyProfile, []byte(`{"nickname":"legacy","avatar":"a.png"}`)))
	require.NoError(t, s.SetActiveOwner(ctx, "me@x.io"))

	u, err := r.ResolveActingUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "legacy", u.Profile.Nickname)
	assert.Equal(t, "a.png", u.Profile.Avatar)
}

func TestShadowUserNicknameFallsBackToEmail(t *testing.T) {
	ctx := context.Background()
	_, r := setup(t)
	u, err := r.EnsureShadowUser(ctx, "who@x.io")
	require.NoError(t, err)
	assert.Equal(t, "who@x.io", u.Profile.Nickname)
}

func TestSessionSourceConsulted(t *testing.T) {
	ctx := context.Background()
	src := &fakeSession{email: "Remote@X.io"}
	s, r := setup(t, WithSession(src))

	u, err := r.ResolveActingUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "remote@x.io", u.Email)

	owner, err := s.ActiveOwner(ctx)
	require.NoError(t, err)
	assert.Equal(t, "remote@x.io", owner)

	_, err = r.ResolveActingUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
}

func TestSessionSourceFailureMeansAnonymous(t *testing.T) {
	_, r := setup(t, WithSession(&fakeSession{err: errors.New("offline")}))
	u, err := r.ResolveActingUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestResolveDisplayOwner(t *testing.T) {
	ctx := context.Background()
	s, r := setup(t)
	require.NoError(t, s.SaveUsers(ctx, []store.User{
		{ID: "u_a", Profile: store.Profile{Nickname: "alice", Avatar: "alice.png"}},
		{ID: "u_b", Profile: store.Profile{Nickname: "twin"}},
		{ID: "u_c", Profile: store.Profile{Nickname: "twin"}},
	}))

	t.Run("explicit owner id", func(t *testing.T) {
		d, err := r.ResolveDisplayOwner(ctx, store.Post{OwnerID: "u_a", OwnerProfile: &store.OwnerSnapshot{Nickname: "stale"}})
		require.NoError(t, err)
		assert.Equal(t, "u_a", d.OwnerID)
		assert.Equal(t, "alice", d.Nickname)
		assert.Equal(t, "alice.png", d.Avatar)
		assert.False(t, d.Inferred)
	})

	t.Run("unique nickname is inferred", func(t *testing.T) {
		post := store.Post{OwnerProfile: &store.OwnerSnapshot{Nickname: "alice"}}
		d, err := r.ResolveDisplayOwner(ctx, post)
		require.NoError(t, err)
		assert.Equal(t, "u_a", d.OwnerID)
		assert.True(t, d.Inferred)
		assert.Empty(t, post.OwnerID)
	})

	t.Run("ambiguous nickname stays unresolved", func(t *testing.T) {
		d, err := r.ResolveDisplayOwner(ctx, store.Post{OwnerProfile: &store.OwnerSnapshot{Nickname: "twin", Avatar: "t.png"}})
		require.NoError(t, err)
		assert.Empty(t, d.OwnerID)
		assert.Equal(t, "twin", d.Nickname)
		assert.Equal(t, "t.png", d.Avatar)
	})

	t.Run("no identity at all", func(t *testing.T) {
		d, err := r.ResolveDisplayOwner(ctx, store.Post{})
		require.NoError(t, err)
		assert.True(t, d.Anonymous())
		assert.Equal(t, store.DefaultAvatar, d.Avatar)
		assert.False(t, FollowAffordance(&store.User{ID: "u_a"}, d).Show)
	})

	t.Run("inference disabled", func(t *testing.T) {
		r2 := NewResolver(s, WithNicknameInference(false))
		d, err := r2.ResolveDisplayOwner(ctx, store.Post{OwnerProfile: &store.OwnerSnapshot{Nickname: "alice"}})
		require.NoError(t, err)
		assert.Empty(t, d.OwnerID)
		assert.Equal(t, "alice", d.Nickname)
	})
}

func TestFollowAffordance(t *testing.T) {
	owner := DisplayOwner{OwnerID: "u_b", Known: true}
	viewer := &store.User{ID: "u_a", Following: []string{"u_b"}}

	assert.Equal(t, Affordance{Show: true, Following: true}, FollowAffordance(viewer, owner))
	assert.Equal(t, Affordance{}, FollowAffordance(nil, owner))
	assert.Equal(t, Affordance{}, FollowAffordance(&store.User{ID: "u_b"}, owner))
}

func TestIsOwnPost(t *testing.T) {
	me := &store.User{ID: "u_a"}
	assert.True(t, IsOwnPost(me, store.Post{OwnerID: "u_a"}))
	assert.False(t, IsOwnPost(me, store.Post{OwnerID: "u_b"}))
	assert.True(t, IsOwnPost(me, store.Post{LegacyOwner: "me"}))
	assert.False(t, IsOwnPost(nil, store.Post{LegacyOwner: "me"}))
}

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	s, r := setup(t)

	_, err := r.SignUp(ctx, "a@x.io", "short", "")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	u, err := r.SignUp(ctx, " A@x.io", "password1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", u.Email)

	_, err = r.SignUp(ctx, "a@x.io", "password1", "again")
	assert.ErrorIs(t, err, ErrEmailTaken)

	require.NoError(t, r.SignOut(ctx))
	_, err = r.SignIn(ctx, "a@x.io", "wrongpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	in, err := r.SignIn(ctx, "a@x.io", "password1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, in.ID)

	active, err := s.ActiveUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.ID, active)
}

func TestSignInUpgradesPlaintextPassword(t *testing.T) {
	ctx := context.Background()
	s, r := setup(t)
	require.NoError(t, s.SaveUsers(ctx, []store.User{
		{ID: "u_abc", Email: "a@x.jp", PasswordHash: "password1", Profile: store.Profile{Nickname: "A"}},
	}))

	_, err := r.SignIn(ctx, "a@x.jp", "password2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	in, err := r.SignIn(ctx, "a@x.jp", "password1")
	require.NoError(t, err)
	assert.Equal(t, "u_abc", in.ID)

	stored, err := s.User(ctx, "u_abc")
	require.NoError(t, err)
	assert.NotEqual(t, "password1", stored.PasswordHash)
	_, err = bcrypt.Cost([]byte(stored.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, "A", stored.Profile.Nickname)

	require.NoError(t, r.SignOut(ctx))
	_, err = r.SignIn(ctx, "a@x.jp", stored.PasswordHash)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	in, err = r.SignIn(ctx, "a@x.jp", "password1")
	require.NoError(t, err)
	assert.Equal(t, "u_abc", in.ID)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	s, r := setup(t)
	require.NoError(t, s.SaveUsers(ctx, []store.User{{ID: "u_a", Email: "a@x.io"}}))

	u, err := r.UpdateProfile(ctx, "u_a", store.Profile{Nickname: "renamed", Bio: "hi"})
	require.NoError(t, err)
	assert.Equal(t, store.DefaultAvatar, u.Profile.Avatar)

	p, ok, err := s.Profile(ctx, "a@x.io")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "renamed", p.Nickname)

	_, err = r.UpdateProfile(ctx, "u_missing", store.Profile{})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
