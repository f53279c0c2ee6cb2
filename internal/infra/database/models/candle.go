package models

import (
	"time"
)

// Candle holds the latest lighting per (grave, user).
type Candle struct {
	GraveID    string    `json:"graveId" gorm:"primaryKey;type:text"`
	UserID     string    `json:"userId" gorm:"primaryKey;type:text"`
	GraveType  string    `json:"graveType" gorm:"type:text;not null"`
	UserName   string    `json:"userName" gorm:"type:text;not null"`
	UserAvatar *string   `json:"userAvatar" gorm:"type:text"`
	LitAt      time.Time `json:"litAt" gorm:"not null;index"`
}

// CandleLighting is the append-only ledger of successful lights.
type CandleLighting struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	GraveID   string    `json:"graveId" gorm:"type:text;not null;index:idx_lighting_grave,priority:2"`
	GraveType string    `json:"graveType" gorm:"type:text;not null;index:idx_lighting_grave,priority:1"`
	UserID    string    `json:"userId" gorm:"type:text;not null;index"`
	LitAt     time.Time `json:"litAt" gorm:"not null"`
}
