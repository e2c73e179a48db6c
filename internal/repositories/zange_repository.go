package repositories

import (
	"github.com/zange-app/zange/backend/internal/models"
	"gorm.io/gorm"
)

// ZangeRepository stores posts.
type ZangeRepository interface {
	CreateZange(z *models.Zange) error
	GetZangeByID(id uint) (*models.Zange, error)
	ListPublic(limit int) ([]models.Zange, error)
}

type postgresZangeRepository struct {
	db *gorm.DB
}

func NewPostgresZangeRepository(db *gorm.DB) ZangeRepository {
	return &postgresZangeRepository{db: db}
}

func (r *postgresZangeRepository) CreateZange(z *models.Zange) error {
	if z.Scope == "" {
		z.Scope = models.ScopePublic
	}
	return r.db.Create(z).Error
}

func (r *postgresZangeRepository) GetZangeByID(id uint) (*models.Zange, error) {
	var z models.Zange
	if err := r.db.Preload("Owner").First(&z, id).Error; err != nil {
		return nil, err
	}
	return &z, nil
}

// ListPublic returns public posts newest first with owners preloaded.
func (r *postgresZangeRepository) ListPublic(limit int) ([]models.Zange, error) {
	var zanges []models.Zange
	err := r.db.Preload("Owner").
		Where("scope = ?", models.ScopePublic).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&zanges).Error
	return zanges, err
}
