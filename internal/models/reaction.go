package models

import (
	"time"

	"github.com/zange-app/zange/backend/pkg/stamps"
)

var BuiltinReactionTypes = stamps.Builtin

const (
	ReactionToggle = "toggle"
	ReactionAdd    = "add"
	ReactionRemove = "remove"
)

// Reaction is one row per (zange, user, type). Rows with a NULL user are
// anonymous and exempt from the unique index.
type Reaction struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ZangeID   uint      `json:"zangeId" gorm:"not null;index:idx_rx_zange_type;uniqueIndex:idx_rx_zange_user_type"`
	Zange     *Zange    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	UserID    *uint     `json:"userId" gorm:"uniqueIndex:idx_rx_zange_user_type"`
	Type      string    `json:"type" gorm:"not null;size:40;index:idx_rx_zange_type;uniqueIndex:idx_rx_zange_user_type"`
	CreatedAt time.Time `json:"createdAt"`
}

type ReactRequest struct {
	ZangeID      uint   `json:"zangeId" validate:"required"`
	Type         string `json:"type" validate:"required,max=40"`
	Action       string `json:"action" validate:"omitempty,oneof=toggle add remove"`
	UserEmail    string `json:"userEmail"`
	UserNickname string `json:"userNickname"`
}

// ReactionSummary folds custom stamp counts into Other.
type ReactionSummary struct {
	Pray     int64 `json:"pray"`
	Laugh    int64 `json:"laugh"`
	Sympathy int64 `json:"sympathy"`
	Growth   int64 `json:"growth"`
	Other    int64 `json:"other"`
}

func SummarizeReactions(counts map[string]int64) ReactionSummary {
	var s ReactionSummary
	for t, n := range counts {
		switch t {
		case "pray":
			s.Pray += n
		case "laugh":
			s.Laugh += n
		case "sympathy":
			s.Sympathy += n
		case "growth":
			s.Growth += n
		default:
			s.Other += n
		}
	}
	return s
}
