package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Country is a shipping destination.
type Country struct {
	ID   uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code string    `gorm:"column:code;not null;uniqueIndex"`
	Name string    `gorm:"column:name;not null"`
}

func (c *Country) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
