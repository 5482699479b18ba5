package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type ReviewModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Author    string `gorm:"not null"`
	Title     string `gorm:"not null"`
	Content   string `gorm:"not null"`
	Score     int    `gorm:"not null"`
	Cover     datatypes.JSON
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName pins the table to "reviews".
func (ReviewModel) TableName() string {
	return "reviews"
}
