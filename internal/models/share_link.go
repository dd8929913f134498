package models

import (
	"time"

	"github.com/google/uuid"
)

type ShareLink struct {
	BaseModel
	Token     string    `json:"token" gorm:"type:varchar(64);uniqueIndex;not null"`
	FileID    uuid.UUID `json:"fileID" gorm:"type:uuid;not null;index"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"not null;index"`
	Views     int64     `json:"views" gorm:"not null;default:0"`

	File File `json:"file,omitempty" gorm:"foreignKey:FileID;references:ID"`
}

func (ShareLink) TableName() string {
	return "share_links"
}

// IsExpired reports whether the link is past its expiry.
func (s *ShareLink) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
