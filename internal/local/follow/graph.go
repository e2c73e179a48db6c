// Package follow maintains the symmetric follower/following sets of local
// users.
package follow

import (
	"context"
	"fmt"

	"github.com/zange-app/zange/backend/internal/apperrors"
	"github.com/zange-app/zange/backend/internal/local/store"
)

var ErrSelfFollow = apperrors.Invalid("target", "cannot follow yourself")

type Graph struct {
	store *store.Store
}

func NewGraph(s *store.Store) *Graph {
	return &Graph{store: s}
}

// Follow makes actor follow target. Both sides are written in one save;
// following twice is a no-op.
func (g *Graph) Follow(ctx context.Context, actorID, targetID string) error {
	return g.update(ctx, actorID, targetID, true)
}

// Unfollow is the inverse of Follow and is likewise idempotent.
func (g *Graph) Unfollow(ctx context.Context, actorID, targetID string) error {
	return g.update(ctx, actorID, targetID, false)
}

// Toggle flips the relation and reports whether actor now follows target.
func (g *Graph) Toggle(ctx context.Context, actorID, targetID string) (bool, error) {
	following, err := g.IsFollowing(ctx, actorID, targetID)
	if err != nil {
		return false, err
	}
	if err := g.update(ctx, actorID, targetID, !following); err != nil {
		return following, err
	}
	return !following, nil
}

func (g *Graph) IsFollowing(ctx context.Context, actorID, targetID string) (bool, error) {
	u, err := g.store.User(ctx, actorID)
	if err != nil {
		return false, err
	}
	return contains(u.Following, targetID), nil
}

func (g *Graph) Following(ctx context.Context, userID string) ([]store.User, error) {
	return g.related(ctx, userID, func(u store.User) []string { return u.Following })
}

func (g *Graph) Followers(ctx context.Context, userID string) ([]store.User, error) {
	return g.related(ctx, userID, func(u store.User) []string { return u.Followers })
}

func (g *Graph) related(ctx context.Context, userID string, ids func(store.User) []string) ([]store.User, error) {
	users, err := g.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]store.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	u, ok := byID[userID]
	if !ok {
		return nil, apperrors.NotFound("user", userID)
	}
	out := make([]store.User, 0, len(ids(u)))
	for _, id := range ids(u) {
		if other, ok := byID[id]; ok {
			out = append(out, other)
		}
	}
	return out, nil
}

func (g *Graph) update(ctx context.Context, actorID, targetID string, follow bool) error {
	if actorID == targetID {
		return ErrSelfFollow
	}
	users, err := g.store.Users(ctx)
	if err != nil {
		return err
	}
	actor, target := -1, -1
	for i := range users {
		switch users[i].ID {
		case actorID:
			actor = i
		case targetID:
			target = i
		}
	}
	if actor < 0 {
		return apperrors.NotFound("user", actorID)
	}
	if target < 0 {
		return apperrors.NotFound("user", targetID)
	}

	a, t := &users[actor], &users[target]
	var changed bool
	if follow {
		changed = add(&a.Following, targetID) || changed
		changed = add(&t.Followers, actorID) || changed
	} else {
		changed = remove(&a.Following, targetID) || changed
		changed = remove(&t.Followers, actorID) || changed
	}
	if !changed {
		return nil
	}
	if err := g.store.SaveUsers(ctx, users); err != nil {
		return fmt.Errorf("save follow graph: %w", err)
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

func add(ids *[]string, id string) bool {
	if contains(*ids, id) {
		return false
	}
	*ids = append(*ids, id)
	return true
}

func remove(ids *[]string, id string) bool {
	out := (*ids)[:0]
	removed := false
	for _, v := range *ids {
		if v == id {
			removed = true
			continue
		}
		out = append(out, v)
	}
	*ids = out
	return removed
}
