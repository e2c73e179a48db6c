// Package aggregator applies reactions, comments and new posts to the local
// record set and fans out notifications and change events.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zange-app/zange/backend/internal/apperrors"
	"github.com/zange-app/zange/backend/internal/local/store"
	"github.com/zange-app/zange/backend/pkg/stamps"
)

const (
	MaxPostLength    = 325
	MaxCommentLength = 32
)

type Aggregator struct {
	store    *store.Store
	bus      *Bus
	validate *validator.Validate
	now      func() time.Time
	logger   *zap.Logger
}

func New(s *store.Store, bus *Bus, logger *zap.Logger) *Aggregator {
	if bus == nil {
		bus = NewBus()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		store:    s,
		bus:      bus,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// WithClock replaces the time source.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

func (a *Aggregator) Bus() *Bus { return a.bus }

// Draft is the input of CreatePost.
type Draft struct {
	Text       string   `validate:"required,max=325"`
	Targets    []string `validate:"min=1,dive,required"`
	FutureTag  string
	Scope      string `validate:"omitempty,oneof=public private"`
	Background string
}

type commentInput struct {
	Text string `validate:"required,max=32"`
}

// CreatePost validates d and stores it owned by actor. Anonymous posts carry
// only the anonymous snapshot.
func (a *Aggregator) CreatePost(ctx context.Context, d Draft, actor *store.User, snapshot *store.OwnerSnapshot) (store.Post, error) {
	d.Text = strings.TrimSpace(d.Text)
	d.FutureTag = strings.TrimSpace(d.FutureTag)
	targets := d.Targets[:0:0]
	for _, t := range d.Targets {
		if t = strings.TrimSpace(t); t != "" {
			targets = append(targets, t)
		}
	}
	d.Targets = targets
	if err := a.check(d); err != nil {
		return store.Post{}, err
	}
	if d.Scope == "" {
		d.Scope = store.ScopePublic
	}

	p := store.Post{
		Text:         d.Text,
		Targets:      d.Targets,
		FutureTag:    d.FutureTag,
		Scope:        d.Scope,
		Timestamp:    a.now(),
		Background:   d.Background,
		OwnerProfile: snapshot,
	}
	if actor != nil {
		p.OwnerID = actor.ID
	}
	return a.store.AddPost(ctx, p)
}

// ApplyReaction adds one key reaction to the post and returns the new count.
// An identified actor counts once per key: repeating is a no-op that returns
// the current count. Anonymous reactions always count.
func (a *Aggregator) ApplyReaction(ctx context.Context, postID int64, key string, actor *store.User) (int, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, apperrors.Invalid("key", "required")
	}

	changed := false
	post, err := a.store.UpdatePost(ctx, postID, func(p *store.Post) error {
		if actor != nil {
			if p.Reactors == nil {
				p.Reactors = make(map[string][]string)
			}
			for _, id := range p.Reactors[key] {
				if id == actor.ID {
					return nil
				}
			}
			p.Reactors[key] = append(p.Reactors[key], actor.ID)
		}
		p.Reactions[key]++
		changed = true
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("apply reaction: %w", err)
	}
	count := post.Reactions[key]
	if !changed {
		return count, nil
	}

	a.bus.Publish(CountChanged{PostID: postID, Key: key, Count: count})

	text := stamps.ReactionNotice(actorName(actor), key)
	if err := a.notifyOwner(ctx, post, actor, store.NotificationReaction, text); err != nil {
		return count, err
	}
	return count, nil
}

// ApplyComment appends a comment of at most 32 characters. author falls back
// to the actor's nickname, then the anonymous name.
func (a *Aggregator) ApplyComment(ctx context.Context, postID int64, author, text string, actor *store.User) (store.Comment, error) {
	text = strings.TrimSpace(text)
	if err := a.check(commentInput{Text: text}); err != nil {
		return store.Comment{}, err
	}

	author = strings.TrimSpace(author)
	if author == "" && actor != nil {
		author = actor.Profile.Nickname
	}
	if author == "" {
		author = store.AnonymousName
	}
	c := store.Comment{Author: author, Text: text, Timestamp: a.now()}

	post, err := a.store.UpdatePost(ctx, postID, func(p *store.Post) error {
		p.Comments = append(p.Comments, c)
		return nil
	})
	if err != nil {
		return store.Comment{}, fmt.Errorf("apply comment: %w", err)
	}

	a.bus.Publish(CommentAdded{PostID: postID, Comment: text, Count: len(post.Comments)})

	msg := fmt.Sprintf("%s さんがあなたの投稿にコメントしました", actorName(actor))
	if err := a.notifyOwner(ctx, post, actor, store.NotificationComment, msg); err != nil {
		return c, err
	}
	return c, nil
}

// notifyOwner only targets an explicit owner id; inferred owners are never
// notified.
func (a *Aggregator) notifyOwner(ctx context.Context, post store.Post, actor *store.User, kind, text string) error {
	if post.OwnerID == "" || actor == nil || actor.ID == post.OwnerID {
		return nil
	}
	n := store.Notification{
		ID:        "n_" + uuid.NewString(),
		Timestamp: a.now(),
		Kind:      kind,
		Text:      text,
		PostID:    post.ID,
		URL:       fmt.Sprintf("detail.html?id=%d", post.ID),
	}
	if err := a.store.AddNotification(ctx, post.OwnerID, n); err != nil {
		return fmt.Errorf("notify %s: %w", post.OwnerID, err)
	}
	a.logger.Debug("Notification queued",
		zap.String("recipient", post.OwnerID),
		zap.String("kind", kind),
		zap.Int64("post", post.ID))
	a.bus.Publish(NotificationsStale{UserID: post.OwnerID})
	return nil
}

// UnreadCount is recomputed from the stored list on every call.
func (a *Aggregator) UnreadCount(ctx context.Context, userID string) (int, error) {
	list, err := a.store.Notifications(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, item := range list {
		if !item.Read {
			n++
		}
	}
	return n, nil
}

// MarkAllRead flags every notification of userID as read and returns the
// list as it was before marking.
func (a *Aggregator) MarkAllRead(ctx context.Context, userID string) ([]store.Notification, error) {
	list, err := a.store.Notifications(ctx, userID)
	if err != nil {
		return nil, err
	}
	before := append([]store.Notification(nil), list...)
	changed := false
	for i := range list {
		if !list[i].Read {
			list[i].Read = true
			changed = true
		}
	}
	if changed {
		if err := a.store.SaveNotifications(ctx, userID, list); err != nil {
			return nil, err
		}
		a.bus.Publish(NotificationsStale{UserID: userID})
	}
	return before, nil
}

func (a *Aggregator) check(v interface{}) error {
	err := a.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.Invalid(strings.ToLower(fe.Field()), reason(fe))
	}
	return apperrors.Invalid("", err.Error())
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must have at least " + fe.Param() + " entry"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "invalid (" + fe.Tag() + ")"
}

func actorName(actor *store.User) string {
	if actor == nil {
		return "ユーザー"
	}
	if actor.Profile.Nickname != "" {
		return actor.Profile.Nickname
	}
	if actor.Email != "" {
		return actor.Email
	}
	return "ユーザー"
}
