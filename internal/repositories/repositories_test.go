package repositories

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zange-app/zange/backend/internal/models"
	"github.com/zange-app/zange/backend/internal/testdb"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testdb.Open(t, Models()...)
}

func strPtr(s string) *string { return &s }

func TestUpsertByEmail(t *testing.T) {
	users := NewPostgresUserRepository(setupDB(t))

	u, err := users.UpsertByEmail(" Me@X.io ", "", "")
	require.NoError(t, err)
	assert.Equal(t, "me@x.io", u.EmailValue())
	assert.Equal(t, models.DefaultNickname, u.Nickname)
	assert.Equal(t, models.DefaultAvatar, u.Avatar())

	again, err := users.UpsertByEmail("me@x.io", "zange", "me.png")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	stored, err := users.GetUserByEmail("ME@x.io")
	require.NoError(t, err)
	assert.Equal(t, "zange", stored.Nickname)
	assert.Equal(t, "me.png", stored.AvatarURL)

	_, err = users.UpsertByEmail("  ", "", "")
	assert.Error(t, err)
}

func TestFindUniqueByNickname(t *testing.T) {
	users := NewPostgresUserRepository(setupDB(t))
	require.NoError(t, users.CreateUser(&models.User{Email: strPtr("a@x.io"), Nickname: "alice"}))
	require.NoError(t, users.CreateUser(&models.User{Email: strPtr("b@x.io"), Nickname: "twin"}))
	require.NoError(t, users.CreateUser(&models.User{Email: strPtr("c@x.io"), Nickname: "twin"}))

	u, err := users.FindUniqueByNickname("alice")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "a@x.io", u.EmailValue())

	u, err = users.FindUniqueByNickname("twin")
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = users.FindUniqueByNickname("nobody")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestListPublicOrdersAndFilters(t *testing.T) {
	db := setupDB(t)
	zanges := NewPostgresZangeRepository(db)
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, zanges.CreateZange(&models.Zange{Text: "old", CreatedAt: base}))
	require.NoError(t, zanges.CreateZange(&models.Zange{Text: "hidden", Scope: models.ScopePrivate, CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, zanges.CreateZange(&models.Zange{Text: "new", CreatedAt: base.Add(2 * time.Hour)}))

	list, err := zanges.ListPublic(10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Text)
	assert.Equal(t, "old", list[1].Text)

	list, err = zanges.ListPublic(1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = zanges.GetZangeByID(999)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestApplyReaction(t *testing.T) {
	db := setupDB(t)
	users := NewPostgresUserRepository(db)
	zanges := NewPostgresZangeRepository(db)
	reactions := NewPostgresReactionRepository(db)

	u, err := users.UpsertByEmail("me@x.io", "", "")
	require.NoError(t, err)
	z := &models.Zange{Text: "late again"}
	require.NoError(t, zanges.CreateZange(z))

	t.Run("toggle on then off", func(t *testing.T) {
		res, err := reactions.ApplyReaction(z.ID, &u.ID, "pray", "")
		require.NoError(t, err)
		assert.True(t, res.Reacted)
		assert.True(t, res.Added)
		assert.Equal(t, int64(1), res.Counts["pray"])

		res, err = reactions.ApplyReaction(z.ID, &u.ID, "pray", models.ReactionToggle)
		require.NoError(t, err)
		assert.False(t, res.Reacted)
		assert.Equal(t, int64(0), res.Counts["pray"])
	})

	t.Run("add is idempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			res, err := reactions.ApplyReaction(z.ID, &u.ID, "laugh", models.ReactionAdd)
			require.NoError(t, err)
			assert.True(t, res.Reacted)
			assert.Equal(t, int64(1), res.Counts["laugh"])
			assert.Equal(t, i == 0, res.Added)
		}
		res, err := reactions.ApplyReaction(z.ID, &u.ID, "laugh", models.ReactionRemove)
		require.NoError(t, err)
		assert.False(t, res.Reacted)
		assert.Equal(t, int64(0), res.Counts["laugh"])
	})

	t.Run("anonymous rows are unbounded", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := reactions.ApplyReaction(z.ID, nil, "growth", models.ReactionToggle)
			require.NoError(t, err)
		}
		counts, err := reactions.CountsByZange(z.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), counts["growth"])

		_, err = reactions.ApplyReaction(z.ID, nil, "growth", models.ReactionRemove)
		assert.ErrorIs(t, err, ErrAnonymousRemove)
	})

	t.Run("unknown post", func(t *testing.T) {
		_, err := reactions.ApplyReaction(z.ID+100, &u.ID, "pray", "")
		assert.ErrorIs(t, err, ErrZangeNotFound)
	})

	t.Run("grouped counts", func(t *testing.T) {
		other := &models.Zange{Text: "other"}
		require.NoError(t, zanges.CreateZange(other))
		_, err := reactions.ApplyReaction(other.ID, nil, "wakaru", "")
		require.NoError(t, err)

		all, err := reactions.CountsByZangeIDs([]uint{z.ID, other.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(3), all[z.ID]["growth"])
		assert.Equal(t, int64(1), all[other.ID]["wakaru"])

		empty, err := reactions.CountsByZangeIDs(nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func TestCommentCounts(t *testing.T) {
	db := setupDB(t)
	zanges := NewPostgresZangeRepository(db)
	comments := NewPostgresCommentRepository(db)

	a := &models.Zange{Text: "a"}
	b := &models.Zange{Text: "b"}
	require.NoError(t, zanges.CreateZange(a))
	require.NoError(t, zanges.CreateZange(b))
	require.NoError(t, comments.CreateComment(&models.Comment{ZangeID: a.ID, Text: "one"}))
	require.NoError(t, comments.CreateComment(&models.Comment{ZangeID: a.ID, Text: "two"}))

	counts, err := comments.CountByZangeIDs([]uint{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[a.ID])
	assert.Equal(t, int64(0), counts[b.ID])

	list, err := comments.GetCommentsByZangeID(a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "one", list[0].Text)
}

func TestFollowEdges(t *testing.T) {
	db := setupDB(t)
	users := NewPostgresUserRepository(db)
	follows := NewPostgresFollowRepository(db)
	a, err := users.UpsertByEmail("a@x.io", "a", "")
	require.NoError(t, err)
	b, err := users.UpsertByEmail("b@x.io", "b", "")
	require.NoError(t, err)

	created, err := follows.CreateFollow(a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = follows.CreateFollow(a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, created)

	followers, err := follows.GetFollowers(b.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, a.ID, followers[0].ID)

	following, err := follows.GetFollowing(a.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, b.ID, following[0].ID)

	counts, err := follows.Counts(b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FollowCounts{Followers: 1, Following: 0}, counts)

	_, err = follows.CreateFollow(a.ID, a.ID)
	assert.Error(t, err, "self edge violates the check constraint")

	removed, err := follows.DeleteFollow(a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = follows.DeleteFollow(a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestNotifications(t *testing.T) {
	notifs := NewPostgresNotificationRepository(setupDB(t))
	for i := 0; i < 3; i++ {
		require.NoError(t, notifs.CreateNotification(&models.Notification{Type: models.NotificationComment, ActorID: 2, RecipientID: 1}))
	}

	count, err := notifs.GetUnreadCount(1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	page, total, err := notifs.GetByRecipientID(1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)

	require.NoError(t, notifs.MarkAsRead(1, page[0].ID))
	assert.ErrorIs(t, notifs.MarkAsRead(9, page[1].ID), gorm.ErrRecordNotFound)
	count, err = notifs.GetUnreadCount(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, notifs.MarkAllAsRead(1))
	count, err = notifs.GetUnreadCount(1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAdminOperations(t *testing.T) {
	db := testdb.Open(t)
	admin := NewAdminRepository(db)

	require.NoError(t, admin.Ping())
	require.NoError(t, admin.Migrate())

	version, err := admin.Version()
	require.NoError(t, err)
	assert.Contains(t, version, "SQLite")

	first, err := admin.Seed()
	require.NoError(t, err)
	second, err := admin.Seed()
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)
	assert.NotEqual(t, first.ZangeID, second.ZangeID)

	stats, err := admin.Stats()
	require.NoError(t, err)
	assert.Equal(t, &Stats{Users: 1, Zanges: 2}, stats)
}
