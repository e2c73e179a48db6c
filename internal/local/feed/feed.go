// Package feed builds the read-only views over local posts: the public
// timeline, keyword search, a user's own posts and a user page.
package feed

import (
	"context"
	"sort"
	"strings"

	"github.com/zange-app/zange/backend/internal/local/identity"
	"github.com/zange-app/zange/backend/internal/local/store"
)

const legacyTargetSuffix = "への懺悔"

type Feed struct {
	store    *store.Store
	resolver *identity.Resolver
}

func New(s *store.Store, r *identity.Resolver) *Feed {
	return &Feed{store: s, resolver: r}
}

// ListTimeline returns public posts, newest first.
func (f *Feed) ListTimeline(ctx context.Context) ([]store.Post, error) {
	return f.Search(ctx, "")
}

// Search filters public posts by a case-insensitive keyword over text,
// targets and tags. An empty keyword matches everything.
func (f *Feed) Search(ctx context.Context, keyword string) ([]store.Post, error) {
	posts, err := f.store.Posts(ctx)
	if err != nil {
		return nil, err
	}
	kw := strings.ToLower(strings.TrimSpace(keyword))
	out := make([]store.Post, 0, len(posts))
	for _, p := range posts {
		if p.IsPublic() && Matches(p, kw) {
			out = append(out, p)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListOwnPosts returns every post of actor regardless of scope.
func (f *Feed) ListOwnPosts(ctx context.Context, actor *store.User, keyword string) ([]store.Post, error) {
	if actor == nil {
		return []store.Post{}, nil
	}
	posts, err := f.store.Posts(ctx)
	if err != nil {
		return nil, err
	}
	kw := strings.ToLower(strings.TrimSpace(keyword))
	out := make([]store.Post, 0)
	for _, p := range posts {
		if identity.IsOwnPost(actor, p) && Matches(p, kw) {
			out = append(out, p)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListUserPosts returns the public posts shown on userID's page: posts
// owned by the id, plus snapshot-only posts carrying the user's nickname.
func (f *Feed) ListUserPosts(ctx context.Context, userID string) ([]store.Post, error) {
	u, err := f.store.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	posts, err := f.store.Posts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]store.Post, 0)
	for _, p := range posts {
		if !p.IsPublic() {
			continue
		}
		switch {
		case p.OwnerID != "":
			if p.OwnerID == u.ID {
				out = append(out, p)
			}
		case p.OwnerProfile != nil && u.Profile.Nickname != "":
			if p.OwnerProfile.Nickname == u.Profile.Nickname {
				out = append(out, p)
			}
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Matches reports whether lower-cased kw occurs in the post's text, joined
// targets or tags.
func Matches(p store.Post, kw string) bool {
	if kw == "" {
		return true
	}
	if strings.Contains(strings.ToLower(p.Text), kw) {
		return true
	}
	if strings.Contains(strings.ToLower(strings.Join(Targets(p), "、")), kw) {
		return true
	}
	return strings.Contains(strings.ToLower(stripHashes(p.FutureTag)), kw)
}

// Targets returns the post's targets, falling back to the single legacy
// target without its suffix.
func Targets(p store.Post) []string {
	if len(p.Targets) > 0 {
		return p.Targets
	}
	t := strings.TrimSpace(strings.TrimSuffix(p.LegacyTarget, legacyTargetSuffix))
	if t == "" {
		return nil
	}
	return []string{t}
}

// SplitTags breaks a future-tag string into tags without hash marks.
func SplitTags(futureTag string) []string {
	fields := strings.FieldsFunc(stripHashes(futureTag), func(r rune) bool {
		return r == ',' || r == '，' || r == '、' || r == ' ' || r == '\t' || r == '\n' || r == '　'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func stripHashes(s string) string {
	return strings.NewReplacer("#", "", "＃", "").Replace(s)
}

func sortNewestFirst(posts []store.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Timestamp.After(posts[j].Timestamp)
	})
}
