// Package identity decides who is acting and whose post is being displayed.
package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zange-app/zange/backend/internal/local/store"
	"github.com/zange-app/zange/backend/pkg/normalize"
)

// SessionSource reports the email of the active server session, or "" when
// signed out.
type SessionSource interface {
	CurrentEmail(ctx context.Context) (string, error)
}

type Resolver struct {
	store          *store.Store
	session        SessionSource
	inferNicknames bool
	newID          func() string
	logger         *zap.Logger
}

type Option func(*Resolver)

// WithSession lets the resolver ask the server for the active account when
// no server email is cached locally.
func WithSession(src SessionSource) Option {
	return func(r *Resolver) { r.session = src }
}

// WithNicknameInference toggles owner inference for posts that carry neither
// an owner id nor a snapshot-matched id. Enabled by default.
func WithNicknameInference(enabled bool) Option {
	return func(r *Resolver) { r.inferNicknames = enabled }
}

func WithIDGenerator(fn func() string) Option {
	return func(r *Resolver) { r.newID = fn }
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

func NewResolver(s *store.Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:          s,
		inferNicknames: true,
		newID:          NewUserID,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewUserID returns a fresh local user id.
func NewUserID() string {
	return "u_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// ResolveActingUser returns the user on whose behalf an action runs, or nil
// when nobody is signed in. A server session with no local counterpart gets a
// shadow user keyed by email; repeated calls reuse it.
func (r *Resolver) ResolveActingUser(ctx context.Context) (*store.User, error) {
	id, err := r.store.ActiveUserID(ctx)
	if err != nil {
		return nil, err
	}
	if id != "" {
		u, err := r.store.User(ctx, id)
		if err == nil {
			return &u, nil
		}
		r.logger.Debug("Active user id has no record", zap.String("id", id))
	}

	email, err := r.serverEmail(ctx)
	if err != nil {
		return nil, err
	}
	if email == "" {
		return nil, nil
	}

	u, err := r.EnsureShadowUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := r.store.SetActiveUserID(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *Resolver) serverEmail(ctx context.Context) (string, error) {
	email, err := r.store.ActiveOwner(ctx)
	if err != nil {
		return "", err
	}
	if email != "" || r.session == nil {
		return email, nil
	}

	email, err = r.session.CurrentEmail(ctx)
	if err != nil {
		// Local actions keep working while the server is unreachable.
		r.logger.Warn("Session lookup failed", zap.Error(err))
		return "", nil
	}
	email = normalize.Email(email)
	if email != "" {
		if err := r.store.SetActiveOwner(ctx, email); err != nil {
			return "", err
		}
	}
	return email, nil
}

// EnsureShadowUser returns the local user registered under email, creating
// it from the namespaced profile when absent.
func (r *Resolver) EnsureShadowUser(ctx context.Context, email string) (*store.User, error) {
	email = normalize.Email(email)
	if u, ok, err := r.store.UserByEmail(ctx, email); err != nil {
		return nil, err
	} else if ok {
		return &u, nil
	}

	if _, err := r.store.ImportLegacyProfile(ctx, email); err != nil {
		return nil, err
	}
	p, _, err := r.store.Profile(ctx, email)
	if err != nil {
		return nil, err
	}
	if p.Nickname == "" {
		p.Nickname = email
	}
	if p.Avatar == "" {
		p.Avatar = store.DefaultAvatar
	}

	users, err := r.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	u := store.User{
		ID:        r.newID(),
		Email:     email,
		Profile:   p,
		Following: []string{},
		Followers: []string{},
	}
	users = append(users, u)
	if err := r.store.SaveUsers(ctx, users); err != nil {
		return nil, err
	}
	r.logger.Info("Created shadow user", zap.String("id", u.ID), zap.String("email", email))
	return &u, nil
}

// DisplayOwner is how a post's author is shown.
type DisplayOwner struct {
	OwnerID  string
	Nickname string
	Avatar   string
	// Inferred marks an id derived from a unique nickname match. It is
	// display-only and never written back to the post.
	Inferred bool
	// Known is set when OwnerID maps to a stored user.
	Known bool
}

func (d DisplayOwner) Anonymous() bool {
	return d.OwnerID == "" && d.Nickname == store.AnonymousName
}

// ResolveDisplayOwner applies explicit owner id, then embedded snapshot, then
// unique-nickname inference. An ambiguous nickname leaves OwnerID empty.
func (r *Resolver) ResolveDisplayOwner(ctx context.Context, post store.Post) (DisplayOwner, error) {
	users, err := r.store.Users(ctx)
	if err != nil {
		return DisplayOwner{}, err
	}
	return r.displayOwner(users, post), nil
}

func (r *Resolver) displayOwner(users []store.User, post store.Post) DisplayOwner {
	d := DisplayOwner{
		OwnerID:  post.OwnerID,
		Nickname: store.AnonymousName,
		Avatar:   store.DefaultAvatar,
	}

	switch {
	case post.OwnerID != "":
		if u := findUser(users, post.OwnerID); u != nil {
			d.Known = true
			if u.Profile.Nickname != "" {
				d.Nickname = u.Profile.Nickname
			}
			if u.Profile.Avatar != "" {
				d.Avatar = u.Profile.Avatar
			}
		}
	case post.OwnerProfile != nil:
		if post.OwnerProfile.Nickname != "" {
			d.Nickname = post.OwnerProfile.Nickname
		}
		if post.OwnerProfile.Avatar != "" {
			d.Avatar = post.OwnerProfile.Avatar
		}
	}

	if d.OwnerID == "" && r.inferNicknames && d.Nickname != store.AnonymousName {
		var match *store.User
		n := 0
		for i := range users {
			if users[i].Profile.Nickname == d.Nickname {
				match = &users[i]
				n++
			}
		}
		if n == 1 {
			d.OwnerID = match.ID
			d.Inferred = true
			d.Known = true
		}
	}
	return d
}

// Affordance says whether a follow control is offered on an owner card.
type Affordance struct {
	Show      bool
	Following bool
}

func FollowAffordance(viewer *store.User, owner DisplayOwner) Affordance {
	if viewer == nil || !owner.Known || owner.OwnerID == "" || owner.OwnerID == viewer.ID {
		return Affordance{}
	}
	return Affordance{Show: true, Following: contains(viewer.Following, owner.OwnerID)}
}

// IsOwnPost reports whether actor authored post, honoring the legacy
// "owner":"me" marker written before owner ids existed.
func IsOwnPost(actor *store.User, post store.Post) bool {
	if actor == nil {
		return false
	}
	if post.OwnerID != "" {
		return post.OwnerID == actor.ID
	}
	return post.LegacyOwner == store.LegacyOwnerSelf
}

// Snapshot freezes actor's current profile for embedding in a new post.
func Snapshot(actor *store.User) *store.OwnerSnapshot {
	if actor == nil {
		return &store.OwnerSnapshot{Nickname: store.AnonymousName, Avatar: store.DefaultAvatar}
	}
	s := &store.OwnerSnapshot{Nickname: actor.Profile.Nickname, Avatar: actor.Profile.Avatar}
	if s.Nickname == "" {
		s.Nickname = store.AnonymousName
	}
	if s.Avatar == "" {
		s.Avatar = store.DefaultAvatar
	}
	return s
}

func findUser(users []store.User, id string) *store.User {
	for i := range users {
		if users[i].ID == id {
			return &users[i]
		}
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
