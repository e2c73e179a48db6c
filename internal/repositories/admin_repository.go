package repositories

import (
	"github.com/zange-app/zange/backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Stats are row counts per table.
type Stats struct {
	Users     int64 `json:"users"`
	Zanges    int64 `json:"zanges"`
	Comments  int64 `json:"comments"`
	Reactions int64 `json:"reactions"`
}

// SeedResult names the rows written by Seed.
type SeedResult struct {
	UserID  uint `json:"user_id"`
	ZangeID uint `json:"zange_id"`
}

const (
	seedEmail    = "demo@zange.local"
	seedNickname = "zange開発者"
)

// AdminRepository covers schema and maintenance operations.
type AdminRepository interface {
	Ping() error
	Version() (string, error)
	Migrate() error
	Stats() (*Stats, error)
	Seed() (*SeedResult, error)
}

type gormAdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &gormAdminRepository{db: db}
}

// Models lists every table the server owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Zange{},
		&models.Comment{},
		&models.Reaction{},
		&models.Follow{},
		&models.Notification{},
	}
}

func (r *gormAdminRepository) Ping() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (r *gormAdminRepository) Version() (string, error) {
	query := "SELECT version()"
	if r.db.Dialector.Name() == "sqlite" {
		query = "SELECT 'SQLite ' || sqlite_version()"
	}
	var version string
	if err := r.db.Raw(query).Scan(&version).Error; err != nil {
		return "", err
	}
	return version, nil
}

// Migrate creates or updates all tables in one transaction.
func (r *gormAdminRepository) Migrate() error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(Models()...)
	})
}

func (r *gormAdminRepository) Stats() (*Stats, error) {
	var s Stats
	counts := []struct {
		model interface{}
		dst   *int64
	}{
		{&models.User{}, &s.Users},
		{&models.Zange{}, &s.Zanges},
		{&models.Comment{}, &s.Comments},
		{&models.Reaction{}, &s.Reactions},
	}
	for _, c := range counts {
		if err := r.db.Model(c.model).Count(c.dst).Error; err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// Seed upserts the demo user and adds one public post owned by it.
func (r *gormAdminRepository) Seed() (*SeedResult, error) {
	var out SeedResult
	err := r.db.Transaction(func(tx *gorm.DB) error {
		email := seedEmail
		var user models.User
		err := tx.Where(models.User{Email: &email}).
			Attrs(models.User{Nickname: seedNickname, AvatarURL: models.DefaultAvatar}).
			FirstOrCreate(&user).Error
		if err != nil {
			return err
		}
		if user.Nickname != seedNickname {
			if err := tx.Model(&user).Update("nickname", seedNickname).Error; err != nil {
				return err
			}
		}

		z := models.Zange{
			OwnerID:   &user.ID,
			Text:      "Neonに保存される最初の投稿です 🙏",
			Targets:   datatypes.JSONSlice[string]{"上司"},
			FutureTag: "#集中します",
			Scope:     models.ScopePublic,
		}
		if err := tx.Create(&z).Error; err != nil {
			return err
		}
		out = SeedResult{UserID: user.ID, ZangeID: z.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
