package models

import "time"

// Comment on a zange. Name keeps the display name for anonymous authors.
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ZangeID   uint      `json:"zangeId" gorm:"not null;index"`
	Zange     *Zange    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	UserID    *uint     `json:"userId" gorm:"index"`
	Name      string    `json:"name"`
	Text      string    `json:"text" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateCommentRequest caps text at 32 characters, counted as runes.
type CreateCommentRequest struct {
	Text      string `json:"text" validate:"required,max=32"`
	Name      string `json:"name" validate:"max=50"`
	UserEmail string `json:"userEmail"`
}
