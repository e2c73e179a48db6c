package repositories

import (
	"errors"

	"github.com/zange-app/zange/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrZangeNotFound is returned when a reaction targets a missing post.
var ErrZangeNotFound = errors.New("zange not found")

// ErrAnonymousRemove rejects removals that cannot name a row.
var ErrAnonymousRemove = errors.New("cannot remove an anonymous reaction")

// ReactionResult is the post-state of an ApplyReaction call.
type ReactionResult struct {
	Counts  map[string]int64
	Reacted bool
	// Added is set when this call inserted a row.
	Added bool
}

// ReactionRepository stores one row per reaction.
type ReactionRepository interface {
	ApplyReaction(zangeID uint, userID *uint, reactionType, action string) (*ReactionResult, error)
	CountsByZange(zangeID uint) (map[string]int64, error)
	CountsByZangeIDs(ids []uint) (map[uint]map[string]int64, error)
}

type postgresReactionRepository struct {
	db *gorm.DB
}

func NewPostgresReactionRepository(db *gorm.DB) ReactionRepository {
	return &postgresReactionRepository{db: db}
}

// ApplyReaction runs toggle, add or remove in one transaction and returns the
// recomputed counts. Anonymous adds always insert; anonymous toggles behave
// like add.
func (r *postgresReactionRepository) ApplyReaction(zangeID uint, userID *uint, reactionType, action string) (*ReactionResult, error) {
	if action == "" {
		action = models.ReactionToggle
	}
	if userID == nil && action == models.ReactionRemove {
		return nil, ErrAnonymousRemove
	}

	res := &ReactionResult{}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Zange{}).Where("id = ?", zangeID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return ErrZangeNotFound
		}

		if userID == nil {
			if err := tx.Create(&models.Reaction{ZangeID: zangeID, Type: reactionType}).Error; err != nil {
				return err
			}
			res.Added = true
			res.Reacted = true
		} else {
			mine := tx.Where("zange_id = ? AND user_id = ? AND type = ?", zangeID, *userID, reactionType)
			var had int64
			if err := mine.Model(&models.Reaction{}).Count(&had).Error; err != nil {
				return err
			}

			insert := action == models.ReactionAdd || (action == models.ReactionToggle && had == 0)
			if insert {
				row := models.Reaction{ZangeID: zangeID, UserID: userID, Type: reactionType}
				created := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
				if created.Error != nil {
					return created.Error
				}
				res.Added = created.RowsAffected > 0
				res.Reacted = true
			} else {
				err := tx.Where("zange_id = ? AND user_id = ? AND type = ?", zangeID, *userID, reactionType).
					Delete(&models.Reaction{}).Error
				if err != nil {
					return err
				}
				res.Reacted = false
			}
		}

		counts, err := countsByZange(tx, zangeID)
		if err != nil {
			return err
		}
		res.Counts = counts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *postgresReactionRepository) CountsByZange(zangeID uint) (map[string]int64, error) {
	return countsByZange(r.db, zangeID)
}

func countsByZange(db *gorm.DB, zangeID uint) (map[string]int64, error) {
	var rows []struct {
		Type  string
		Total int64
	}
	err := db.Model(&models.Reaction{}).
		Select("type, COUNT(*) AS total").
		Where("zange_id = ?", zangeID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Total
	}
	return counts, nil
}

func (r *postgresReactionRepository) CountsByZangeIDs(ids []uint) (map[uint]map[string]int64, error) {
	out := make(map[uint]map[string]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ZangeID uint
		Type    string
		Total   int64
	}
	err := r.db.Model(&models.Reaction{}).
		Select("zange_id, type, COUNT(*) AS total").
		Where("zange_id IN ?", ids).
		Group("zange_id, type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if out[row.ZangeID] == nil {
			out[row.ZangeID] = make(map[string]int64)
		}
		out[row.ZangeID][row.Type] = row.Total
	}
	return out, nil
}
