package repo

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/shop_backend/internal/models"
)

// nextOrderSequence bumps the per-day counter and returns the new value. It
// must run inside the transaction that inserts the order so a rollback also
// returns the number.
func nextOrderSequence(tx *gorm.DB, day string) (int64, error) {
	seq := models.OrderSequence{Day: day, Value: 1}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}},
		DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("order_sequences.value + 1")}),
	}).Create(&seq).Error; err != nil {
		return 0, err
	}
	if err := tx.Where("day = ?", day).First(&seq).Error; err != nil {
		return 0, err
	}
	return seq.Value, nil
}

// FormatOrderNumber renders PREFIX-YYMMDD-NNNN.
func FormatOrderNumber(prefix string, at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, at.UTC().Format("060102"), seq)
}

func nextOrderNumber(tx *gorm.DB, prefix string, at time.Time) (string, error) {
	seq, err := nextOrderSequence(tx, at.UTC().Format("2006-01-02"))
	if err != nil {
		return "", err
	}
	return FormatOrderNumber(prefix, at, seq), nil
}
