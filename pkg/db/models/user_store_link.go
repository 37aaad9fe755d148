package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserStoreLink records that a user belongs to a store. A pair is linked at most once.
type UserStoreLink struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID   uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_user_store_links_pair,priority:1"`
	StoreID  uuid.UUID `gorm:"column:store_id;type:uuid;not null;uniqueIndex:idx_user_store_links_pair,priority:2"`
	LinkedAt time.Time `gorm:"column:linked_at;autoCreateTime"`

	User  *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Store *Store `gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE"`
}

func (l *UserStoreLink) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{&User{}, &Store{}, &UserStoreLink{}}
}
