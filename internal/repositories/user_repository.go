package repositories

import (
	"errors"

	"github.com/zange-app/zange/backend/internal/models"
	"github.com/zange-app/zange/backend/pkg/normalize"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(user *models.User) error
	GetUserByID(id uint) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByFirebaseUID(firebaseUID string) (*models.User, error)
	UpsertByEmail(email, nickname, avatarURL string) (*models.User, error)
	FindUniqueByNickname(nickname string) (*models.User, error)
	UpdateUser(user *models.User) error
}

// PostgresUserRepository implements UserRepository on gorm
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) CreateUser(user *models.User) error {
	if user.Email != nil {
		e := normalize.Email(*user.Email)
		user.Email = &e
	}
	if user.Nickname == "" {
		user.Nickname = models.DefaultNickname
	}
	return r.db.Create(user).Error
}

func (r *PostgresUserRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail looks the address up in normalized form.
func (r *PostgresUserRepository) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", normalize.Email(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetUserByFirebaseUID(firebaseUID string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("firebase_uid = ?", firebaseUID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertByEmail finds or creates the user for email. Non-empty nickname and
// avatar values overwrite the stored ones.
func (r *PostgresUserRepository) UpsertByEmail(email, nickname, avatarURL string) (*models.User, error) {
	e := normalize.Email(email)
	if e == "" {
		return nil, errors.New("email required")
	}

	var user models.User
	err := r.db.Transaction(func(tx *gorm.DB) error {
		attrs := models.User{Nickname: nickname, AvatarURL: avatarURL}
		if attrs.Nickname == "" {
			attrs.Nickname = models.DefaultNickname
		}
		if err := tx.Where(models.User{Email: &e}).Attrs(attrs).FirstOrCreate(&user).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if nickname != "" && nickname != user.Nickname {
			updates["nickname"] = nickname
		}
		if avatarURL != "" && avatarURL != user.AvatarURL {
			updates["avatar_url"] = avatarURL
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&user).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUniqueByNickname returns the single user holding nickname, or nil when
// none or several do.
func (r *PostgresUserRepository) FindUniqueByNickname(nickname string) (*models.User, error) {
	if nickname == "" || nickname == models.DefaultNickname {
		return nil, nil
	}
	var users []models.User
	if err := r.db.Where("nickname = ?", nickname).Limit(2).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) != 1 {
		return nil, nil
	}
	return &users[0], nil
}

func (r *PostgresUserRepository) UpdateUser(user *models.User) error {
	return r.db.Save(user).Error
}
