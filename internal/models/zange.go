package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ScopePublic  = "public"
	ScopePrivate = "private"
)

// Zange is a confession post.
type Zange struct {
	ID        uint                        `json:"id" gorm:"primaryKey"`
	OwnerID   *uint                       `json:"ownerId" gorm:"index"`
	Owner     *User                       `json:"-" gorm:"constraint:OnDelete:SET NULL"`
	Text      string                      `json:"text" gorm:"not null"`
	Targets   datatypes.JSONSlice[string] `json:"targets"`
	FutureTag string                      `json:"futureTag"`
	Scope     string                      `json:"scope" gorm:"not null;default:public;index"`
	Bg        string                      `json:"bg"`
	CreatedAt time.Time                   `json:"createdAt" gorm:"index"`
}

type CreateZangeRequest struct {
	Text          string   `json:"text" validate:"required,max=325"`
	Targets       []string `json:"targets" validate:"omitempty,dive,max=50"`
	FutureTag     string   `json:"futureTag" validate:"max=100"`
	Scope         string   `json:"scope" validate:"omitempty,oneof=public private"`
	Bg            string   `json:"bg"`
	OwnerEmail    string   `json:"ownerEmail"`
	OwnerNickname string   `json:"ownerNickname" validate:"max=50"`
	AvatarURL     string   `json:"avatarUrl"`
}

// FeedOwner is the display identity attached to a feed item.
type FeedOwner struct {
	ID       *uint  `json:"id"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

type FeedItem struct {
	ID             uint                        `json:"id"`
	Text           string                      `json:"text"`
	Targets        datatypes.JSONSlice[string] `json:"targets"`
	FutureTag      string                      `json:"futureTag"`
	Scope          string                      `json:"scope"`
	Bg             string                      `json:"bg"`
	CreatedAt      time.Time                   `json:"createdAt"`
	Owner          FeedOwner                   `json:"owner"`
	CommentsCount  int64                       `json:"commentsCount"`
	ReactionCounts map[string]int64            `json:"reactionCounts"`
}
