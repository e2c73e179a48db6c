package repositories

import (
	"github.com/zange-app/zange/backend/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository stores per-recipient notifications. The unread badge
// is always counted from the rows.
type NotificationRepository interface {
	CreateNotification(notification *models.Notification) error
	GetByRecipientID(recipientID uint, page, limit int) ([]models.Notification, int64, error)
	GetUnreadCount(recipientID uint) (int64, error)
	MarkAsRead(recipientID, notificationID uint) error
	MarkAllAsRead(recipientID uint) error
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func ownedBy(recipientID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("recipient_id = ?", recipientID)
	}
}

func unread(db *gorm.DB) *gorm.DB {
	return db.Where("is_read = ?", false)
}

// paginate treats page as 1-based.
func paginate(page, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		return db.Offset((page - 1) * limit).Limit(limit)
	}
}

func (r *postgresNotificationRepository) CreateNotification(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

// GetByRecipientID returns one page, newest first, and the recipient's total.
func (r *postgresNotificationRepository) GetByRecipientID(recipientID uint, page, limit int) ([]models.Notification, int64, error) {
	var total int64
	if err := r.db.Model(&models.Notification{}).Scopes(ownedBy(recipientID)).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Notification
	err := r.db.Scopes(ownedBy(recipientID), paginate(page, limit)).
		Order("created_at DESC").Order("id DESC").
		Find(&list).Error
	return list, total, err
}

func (r *postgresNotificationRepository) GetUnreadCount(recipientID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.Notification{}).Scopes(ownedBy(recipientID), unread).Count(&n).Error
	return n, err
}

// MarkAsRead only touches the recipient's own rows; anything else is not
// found.
func (r *postgresNotificationRepository) MarkAsRead(recipientID, notificationID uint) error {
	res := r.db.Model(&models.Notification{}).Scopes(ownedBy(recipientID)).
		Where("id = ?", notificationID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *postgresNotificationRepository) MarkAllAsRead(recipientID uint) error {
	return r.db.Model(&models.Notification{}).Scopes(ownedBy(recipientID), unread).Update("is_read", true).Error
}
