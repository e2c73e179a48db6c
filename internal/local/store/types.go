package store

import (
	"time"

	"github.com/zange-app/zange/backend/pkg/stamps"
)

const (
	ScopePublic  = "public"
	ScopePrivate = "private"

	DefaultAvatar   = "images/default-avatar.png"
	AnonymousName   = "匿名"
	LegacyOwnerSelf = "me"
)

// BuiltinReactions are present on every post, in display order.
var BuiltinReactions = stamps.Builtin

type Profile struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	Gender   string `json:"gender"`
	Age      string `json:"age"`
	Bio      string `json:"bio"`
}

// User is a local account. Following and Followers are kept mirror-consistent
// by the follow graph.
type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"pass"`
	Profile      Profile  `json:"profile"`
	Following    []string `json:"following"`
	Followers    []string `json:"followers"`
}

// OwnerSnapshot is the display identity frozen into a post at creation time.
type OwnerSnapshot struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

type Comment struct {
	Author    string    `json:"name"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"ts"`

	// Older clients keyed the author as "user". Kept so they still read it.
	LegacyAuthor string `json:"user,omitempty"`
}

type Post struct {
	ID           int64               `json:"id"`
	Text         string              `json:"text"`
	Targets      []string            `json:"targets,omitempty"`
	FutureTag    string              `json:"futureTag"`
	Scope        string              `json:"scope"`
	Timestamp    time.Time           `json:"timestamp"`
	Reactions    map[string]int      `json:"reactions"`
	Reactors     map[string][]string `json:"reactors,omitempty"`
	Comments     []Comment           `json:"comments"`
	Background   string              `json:"bg,omitempty"`
	OwnerID      string              `json:"ownerId,omitempty"`
	OwnerProfile *OwnerSnapshot      `json:"ownerProfile,omitempty"`

	// Records written by older clients.
	LegacyOwner  string `json:"owner,omitempty"`
	LegacyTarget string `json:"target,omitempty"`
}

func (p *Post) IsPublic() bool {
	return p.Scope == "" || p.Scope == ScopePublic
}

type Notification struct {
	ID        string    `json:"id"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"type"`
	Text      string    `json:"text"`
	PostID    int64     `json:"postId"`
	URL       string    `json:"url"`
}

const (
	NotificationReaction = "reaction"
	NotificationComment  = "comment"
)
