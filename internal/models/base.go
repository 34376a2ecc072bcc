package models

import (
	"time"

	"gorm.io/gorm"
)

// Base is the base model for all entities. IDs are auto-increment integers
// because the public run API addresses modules and models by numeric id.
type Base struct {
	ID        int64          `json:"id"       gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time      `json:"created"`
	UpdatedAt time.Time      `json:"modified"`
	DeletedAt gorm.DeletedAt `json:"-"        gorm:"index"`
}
