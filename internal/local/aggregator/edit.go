package aggregator

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/zange-app/zange/backend/internal/apperrors"
	"github.com/zange-app/zange/backend/internal/local/identity"
	"github.com/zange-app/zange/backend/internal/local/store"
)

var ErrNotOwner = errors.New("post belongs to another user")

// EditPost rewrites the author-editable fields of one of actor's posts. An
// empty text keeps the current one.
func (a *Aggregator) EditPost(ctx context.Context, postID int64, d Draft, actor *store.User) (store.Post, error) {
	if actor == nil {
		return store.Post{}, ErrNotOwner
	}
	return a.store.UpdatePost(ctx, postID, func(p *store.Post) error {
		if !identity.IsOwnPost(actor, *p) {
			return ErrNotOwner
		}
		if strings.TrimSpace(d.Text) == "" {
			d.Text = p.Text
		}
		if d.Scope == "" {
			d.Scope = p.Scope
		}
		d.Text = strings.TrimSpace(d.Text)
		d.FutureTag = strings.TrimSpace(d.FutureTag)
		d.Targets = SplitTargets(strings.Join(d.Targets, ","))
		if err := a.check(d); err != nil {
			return err
		}
		p.Text = d.Text
		p.Targets = d.Targets
		p.LegacyTarget = ""
		p.FutureTag = d.FutureTag
		p.Scope = d.Scope
		if d.Background != "" {
			p.Background = d.Background
		}
		return nil
	})
}

// DeletePost removes one of actor's posts.
func (a *Aggregator) DeletePost(ctx context.Context, postID int64, actor *store.User) error {
	posts, err := a.store.Posts(ctx)
	if err != nil {
		return err
	}
	for i, p := range posts {
		if p.ID != postID {
			continue
		}
		if !identity.IsOwnPost(actor, p) {
			return ErrNotOwner
		}
		posts = append(posts[:i], posts[i+1:]...)
		return a.store.SavePosts(ctx, posts)
	}
	return apperrors.NotFound("post", strconv.FormatInt(postID, 10))
}

// SplitTargets parses a comma separated target list, accepting full-width
// and ideographic commas.
func SplitTargets(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '，' || r == '、'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
