// Package store persists the local record set: posts, users, the active
// session, per-user profiles and per-user notification lists.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/zange-app/zange/backend/internal/apperrors"
	"github.com/zange-app/zange/backend/pkg/normalize"
)

// Record keys. Other clients read the same namespace, so these are fixed.
const (
	KeyPosts         = "zanges"
	KeyUsers         = "users"
	KeyActiveUser    = "authUserId"
	KeyActiveOwner   = "profile_owner"
	KeyLegacyProfile = "profile"
	KeyLegacyImport  = "migrations:legacy_profile"
	KeySessionToken  = "server_session"

	profilePrefix       = "profile:"
	notificationsPrefix = "notifications_"
)

// ProfileKey returns the record key of the profile owned by email, or the
// global key when no identity is active.
func ProfileKey(email string) string {
	e := normalize.Email(email)
	if e == "" {
		return KeyLegacyProfile
	}
	return profilePrefix + e
}

func NotificationsKey(userID string) string {
	return notificationsPrefix + userID
}

// Store gives typed access to a Backend. Every method is a full
// read-modify-write against the backend; callers hold no cached state.
type Store struct {
	backend Backend
}

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

func (s *Store) getJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) putJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.backend.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) getString(ctx context.Context, key string) (string, error) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		// Older clients stored bare strings.
		return string(raw), nil
	}
	return v, nil
}

func (s *Store) putString(ctx context.Context, key, value string) error {
	if value == "" {
		return s.backend.Delete(ctx, key)
	}
	return s.putJSON(ctx, key, value)
}

// Posts returns every post with built-in reaction keys filled in.
func (s *Store) Posts(ctx context.Context) ([]Post, error) {
	var posts []Post
	if _, err := s.getJSON(ctx, KeyPosts, &posts); err != nil {
		return nil, err
	}
	for i := range posts {
		normalizePost(&posts[i])
	}
	return posts, nil
}

func (s *Store) SavePosts(ctx context.Context, posts []Post) error {
	if posts == nil {
		posts = []Post{}
	}
	return s.putJSON(ctx, KeyPosts, posts)
}

// AddPost prepends p, assigning a millisecond-timestamp id unique in the set.
func (s *Store) AddPost(ctx context.Context, p Post) (Post, error) {
	posts, err := s.Posts(ctx)
	if err != nil {
		return Post{}, err
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	if p.ID == 0 {
		p.ID = p.Timestamp.UnixMilli()
	}
	for taken := true; taken; {
		taken = false
		for _, existing := range posts {
			if existing.ID == p.ID {
				p.ID++
				taken = true
				break
			}
		}
	}
	normalizePost(&p)
	posts = append([]Post{p}, posts...)
	if err := s.SavePosts(ctx, posts); err != nil {
		return Post{}, err
	}
	return p, nil
}

// UpdatePost loads the post set, applies fn to the post with id and saves
// the whole set back.
func (s *Store) UpdatePost(ctx context.Context, id int64, fn func(*Post) error) (Post, error) {
	posts, err := s.Posts(ctx)
	if err != nil {
		return Post{}, err
	}
	for i := range posts {
		if posts[i].ID != id {
			continue
		}
		if err := fn(&posts[i]); err != nil {
			return Post{}, err
		}
		if err := s.SavePosts(ctx, posts); err != nil {
			return Post{}, err
		}
		return posts[i], nil
	}
	return Post{}, apperrors.NotFound("post", strconv.FormatInt(id, 10))
}

func (s *Store) Post(ctx context.Context, id int64) (Post, error) {
	posts, err := s.Posts(ctx)
	if err != nil {
		return Post{}, err
	}
	for _, p := range posts {
		if p.ID == id {
			return p, nil
		}
	}
	return Post{}, apperrors.NotFound("post", strconv.FormatInt(id, 10))
}

func normalizePost(p *Post) {
	if p.Reactions == nil {
		p.Reactions = make(map[string]int, len(BuiltinReactions))
	}
	for _, k := range BuiltinReactions {
		if _, ok := p.Reactions[k]; !ok {
			p.Reactions[k] = 0
		}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	for i := range p.Comments {
		if c := &p.Comments[i]; c.Author == "" {
			c.Author = c.LegacyAuthor
		}
	}
	if p.Scope == "" {
		p.Scope = ScopePublic
	}
}

func (s *Store) Users(ctx context.Context) ([]User, error) {
	var users []User
	if _, err := s.getJSON(ctx, KeyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) SaveUsers(ctx context.Context, users []User) error {
	if users == nil {
		users = []User{}
	}
	return s.putJSON(ctx, KeyUsers, users)
}

func (s *Store) User(ctx context.Context, id string) (User, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, apperrors.NotFound("user", id)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (User, bool, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return User{}, false, err
	}
	e := normalize.Email(email)
	for _, u := range users {
		if e != "" && normalize.Email(u.Email) == e {
			return u, true, nil
		}
	}
	return User{}, false, nil
}

func (s *Store) ActiveUserID(ctx context.Context) (string, error) {
	return s.getString(ctx, KeyActiveUser)
}

// SetActiveUserID binds the local session; an empty id signs out.
func (s *Store) SetActiveUserID(ctx context.Context, id string) error {
	return s.putString(ctx, KeyActiveUser, id)
}

// ActiveOwner is the normalized email of the server session, if any.
func (s *Store) ActiveOwner(ctx context.Context) (string, error) {
	v, err := s.getString(ctx, KeyActiveOwner)
	if err != nil {
		return "", err
	}
	return normalize.Email(v), nil
}

func (s *Store) SetActiveOwner(ctx context.Context, email string) error {
	return s.putString(ctx, KeyActiveOwner, normalize.Email(email))
}

// SessionToken is the server session cookie value kept between runs.
func (s *Store) SessionToken(ctx context.Context) (string, error) {
	return s.getString(ctx, KeySessionToken)
}

func (s *Store) SetSessionToken(ctx context.Context, token string) error {
	return s.putString(ctx, KeySessionToken, token)
}

// Profile reads the profile namespaced to email. The legacy global record is
// only consulted through ImportLegacyProfile.
func (s *Store) Profile(ctx context.Context, email string) (Profile, bool, error) {
	var p Profile
	ok, err := s.getJSON(ctx, ProfileKey(email), &p)
	return p, ok, err
}

func (s *Store) SaveProfile(ctx context.Context, email string, p Profile) error {
	return s.putJSON(ctx, ProfileKey(email), p)
}

// ImportLegacyProfile moves the global "profile" record under email's
// namespace once. It reports whether a record was moved. An existing
// namespaced profile wins over the legacy one.
func (s *Store) ImportLegacyProfile(ctx context.Context, email string) (bool, error) {
	e := normalize.Email(email)
	if e == "" {
		return false, apperrors.Invalid("email", "required for profile import")
	}
	done, err := s.getString(ctx, KeyLegacyImport)
	if err != nil {
		return false, err
	}
	if done != "" {
		return false, nil
	}

	var legacy Profile
	found, err := s.getJSON(ctx, KeyLegacyProfile, &legacy)
	if err != nil {
		return false, err
	}
	moved := false
	if found {
		if _, exists, err := s.Profile(ctx, e); err != nil {
			return false, err
		} else if !exists {
			if err := s.SaveProfile(ctx, e, legacy); err != nil {
				return false, err
			}
			moved = true
		}
		if err := s.backend.Delete(ctx, KeyLegacyProfile); err != nil {
			return false, err
		}
	}
	if err := s.putString(ctx, KeyLegacyImport, e); err != nil {
		return false, err
	}
	return moved, nil
}

// Notifications returns userID's list, newest first.
func (s *Store) Notifications(ctx context.Context, userID string) ([]Notification, error) {
	var list []Notification
	if _, err := s.getJSON(ctx, NotificationsKey(userID), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) SaveNotifications(ctx context.Context, userID string, list []Notification) error {
	if list == nil {
		list = []Notification{}
	}
	return s.putJSON(ctx, NotificationsKey(userID), list)
}

func (s *Store) AddNotification(ctx context.Context, userID string, n Notification) error {
	if userID == "" {
		return nil
	}
	list, err := s.Notifications(ctx, userID)
	if err != nil {
		return err
	}
	list = append([]Notification{n}, list...)
	return s.SaveNotifications(ctx, userID, list)
}

// SeedIfEmpty writes a single sample post when the set is empty.
func (s *Store) SeedIfEmpty(ctx context.Context, now time.Time) (bool, error) {
	posts, err := s.Posts(ctx)
	if err != nil {
		return false, err
	}
	if len(posts) > 0 {
		return false, nil
	}
	ts := now.Add(-10 * time.Second).UTC()
	seed := Post{
		ID:        ts.UnixMilli(),
		Text:      "会議中にSlackばっか見てました📱",
		Targets:   []string{"上司"},
		FutureTag: "#集中します",
		Scope:     ScopePublic,
		Timestamp: ts,
		Reactions: map[string]int{"pray": 0, "laugh": 1, "sympathy": 1, "growth": 1},
		Comments:  []Comment{},
		OwnerProfile: &OwnerSnapshot{
			Nickname: "匿名",
			Avatar:   DefaultAvatar,
		},
	}
	return true, s.SavePosts(ctx, []Post{seed})
}
