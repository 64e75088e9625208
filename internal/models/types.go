package models

import (
	"database/sql/driver"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Strings is a list of strings stored as text[] on Postgres and as the
// array literal text elsewhere.
type Strings []string

func (s Strings) Value() (driver.Value, error) {
	if s == nil {
		return pq.StringArray{}.Value()
	}
	return pq.StringArray(s).Value()
}

func (s *Strings) Scan(src any) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*s = Strings(arr)
	return nil
}

func (Strings) GormDataType() string { return "text" }

func (Strings) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&User{},
		&Notification{},
		&RefreshToken{},
		&UserToken{},
		&Category{},
		&Product{},
		&Rating{},
		&Order{},
		&OrderItem{},
		&OrderStatusEntry{},
		&OrderSequence{},
		&Message{},
	}
}
