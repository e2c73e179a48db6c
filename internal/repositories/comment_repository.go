package repositories

import (
	"github.com/zange-app/zange/backend/internal/models"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(comment *models.Comment) error
	GetCommentsByZangeID(zangeID uint) ([]models.Comment, error)
	CountByZangeIDs(ids []uint) (map[uint]int64, error)
}

// PostgresCommentRepository implements CommentRepository on gorm
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

func (r *PostgresCommentRepository) CreateComment(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

// GetCommentsByZangeID returns comments oldest first.
func (r *PostgresCommentRepository) GetCommentsByZangeID(zangeID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.Where("zange_id = ?", zangeID).Order("created_at ASC").Order("id ASC").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *PostgresCommentRepository) CountByZangeIDs(ids []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	var rows []struct {
		ZangeID uint
		Total   int64
	}
	err := r.db.Model(&models.Comment{}).
		Select("zange_id, COUNT(*) AS total").
		Where("zange_id IN ?", ids).
		Group("zange_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ZangeID] = row.Total
	}
	return counts, nil
}
