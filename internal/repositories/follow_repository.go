package repositories

import (
	"github.com/zange-app/zange/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository stores the server-side follow graph.
type FollowRepository interface {
	CreateFollow(followerID, followingID uint) (bool, error)
	DeleteFollow(followerID, followingID uint) (bool, error)
	IsFollowing(followerID, followingID uint) (bool, error)
	GetFollowers(userID uint) ([]models.User, error)
	GetFollowing(userID uint) ([]models.User, error)
	Counts(userID uint) (models.FollowCounts, error)
}

// PostgresFollowRepository implements FollowRepository on gorm
type PostgresFollowRepository struct {
	db *gorm.DB
}

// NewPostgresFollowRepository creates a new PostgresFollowRepository
func NewPostgresFollowRepository(db *gorm.DB) *PostgresFollowRepository {
	return &PostgresFollowRepository{db: db}
}

func (r *PostgresFollowRepository) edge(followerID, followingID uint) *gorm.DB {
	return r.db.Model(&models.Follow{}).Where("follower_id = ? AND following_id = ?", followerID, followingID)
}

// CreateFollow inserts the edge and reports whether it was new.
func (r *PostgresFollowRepository) CreateFollow(followerID, followingID uint) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FollowingID: followingID})
	return res.RowsAffected > 0, res.Error
}

// DeleteFollow removes the edge and reports whether one existed.
func (r *PostgresFollowRepository) DeleteFollow(followerID, followingID uint) (bool, error) {
	res := r.edge(followerID, followingID).Delete(&models.Follow{})
	return res.RowsAffected > 0, res.Error
}

func (r *PostgresFollowRepository) IsFollowing(followerID, followingID uint) (bool, error) {
	var n int64
	err := r.edge(followerID, followingID).Count(&n).Error
	return n > 0, err
}

// GetFollowers lists who follows userID, most recent edge first.
func (r *PostgresFollowRepository) GetFollowers(userID uint) ([]models.User, error) {
	return r.related("follows.follower_id", "follows.following_id", userID)
}

// GetFollowing lists whom userID follows, most recent edge first.
func (r *PostgresFollowRepository) GetFollowing(userID uint) ([]models.User, error) {
	return r.related("follows.following_id", "follows.follower_id", userID)
}

// related joins users on one end of the edges whose other end is userID.
func (r *PostgresFollowRepository) related(joinCol, matchCol string, userID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.Model(&models.User{}).
		Joins("JOIN follows ON "+joinCol+" = users.id").
		Where(matchCol+" = ?", userID).
		Order("follows.created_at DESC").Order("users.id").
		Find(&users).Error
	return users, err
}

func (r *PostgresFollowRepository) Counts(userID uint) (models.FollowCounts, error) {
	var c models.FollowCounts
	if err := r.db.Model(&models.Follow{}).Where("following_id = ?", userID).Count(&c.Followers).Error; err != nil {
		return c, err
	}
	err := r.db.Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&c.Following).Error
	return c, err
}
