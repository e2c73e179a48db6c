package feed

import (
	"context"
	"sort"

	"github.com/zange-app/zange/backend/internal/local/identity"
	"github.com/zange-app/zange/backend/internal/local/store"
)

const previewComments = 2

// ReactionCount is one entry of a card's reaction bar.
type ReactionCount struct {
	Key   string
	Count int
}

// Card is everything a post view needs, resolved once.
type Card struct {
	Post         store.Post
	Owner        identity.DisplayOwner
	Follow       identity.Affordance
	Targets      []string
	Tags         []string
	Reactions    []ReactionCount
	CommentCount int
	Preview      []store.Comment
}

// Cards resolves owners and follow affordances for posts as seen by viewer.
func (f *Feed) Cards(ctx context.Context, posts []store.Post, viewer *store.User) ([]Card, error) {
	cards := make([]Card, 0, len(posts))
	for _, p := range posts {
		owner, err := f.resolver.ResolveDisplayOwner(ctx, p)
		if err != nil {
			return nil, err
		}
		c := Card{
			Post:         p,
			Owner:        owner,
			Follow:       identity.FollowAffordance(viewer, owner),
			Targets:      Targets(p),
			Tags:         SplitTags(p.FutureTag),
			Reactions:    orderedReactions(p.Reactions),
			CommentCount: len(p.Comments),
		}
		if n := len(p.Comments); n > previewComments {
			c.Preview = p.Comments[n-previewComments:]
		} else {
			c.Preview = p.Comments
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// orderedReactions lists built-ins first, then custom stamps with a
// positive count by key.
func orderedReactions(m map[string]int) []ReactionCount {
	out := make([]ReactionCount, 0, len(m))
	for _, k := range store.BuiltinReactions {
		out = append(out, ReactionCount{Key: k, Count: m[k]})
	}
	var custom []string
	for k, n := range m {
		if n > 0 && !isBuiltin(k) {
			custom = append(custom, k)
		}
	}
	sort.Strings(custom)
	for _, k := range custom {
		out = append(out, ReactionCount{Key: k, Count: m[k]})
	}
	return out
}

func isBuiltin(k string) bool {
	for _, b := range store.BuiltinReactions {
		if b == k {
			return true
		}
	}
	return false
}
