package models

import (
	"fmt"
	"time"
)

const (
	NotificationReaction = "reaction"
	NotificationComment  = "comment"
	NotificationFollow   = "follow"
)

// Notification is owned by its recipient. ZangeID is nil for follow
// notifications.
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Type        string    `json:"type" gorm:"size:30;index"`
	ActorID     uint      `json:"actor_id" gorm:"index"`
	RecipientID uint      `json:"recipient_id" gorm:"index:idx_notification_inbox,priority:1"`
	ZangeID     *uint     `json:"zange_id"`
	Zange       *Zange    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read" gorm:"default:false;index:idx_notification_inbox,priority:2"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

// Link is the page the notification opens: the post, or the actor's page.
func (n Notification) Link() string {
	if n.ZangeID != nil {
		return fmt.Sprintf("detail.html?id=%d", *n.ZangeID)
	}
	return fmt.Sprintf("user.html?id=%d", n.ActorID)
}
