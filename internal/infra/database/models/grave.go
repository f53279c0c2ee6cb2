package models

import (
	"time"

	"github.com/memorialnav/candle-ledger/internal/domain"
)

type Grave struct {
	ID          string    `json:"id" gorm:"primaryKey;type:text"`
	Name        string    `json:"name" gorm:"type:text"`
	CandleCount int64     `json:"candleCount" gorm:"not null;default:0"`
	CDate       time.Time `json:"cdate" gorm:"autoCreateTime"`
}

type AdultGrave struct {
	Grave
}

func (AdultGrave) TableName() string { return "adult_graves" }

type ChildGrave struct {
	Grave
}

func (ChildGrave) TableName() string { return "child_graves" }

type BoneGrave struct {
	Grave
}

func (BoneGrave) TableName() string { return "bone_graves" }

// GraveTable maps a category to its table name.
func GraveTable(t domain.GraveType) (string, bool) {
	switch t {
	case domain.GraveTypeAdult:
		return AdultGrave{}.TableName(), true
	case domain.GraveTypeChild:
		return ChildGrave{}.TableName(), true
	case domain.GraveTypeBone:
		return BoneGrave{}.TableName(), true
	}
	return "", false
}

// MigrateModels lists every table AutoMigrate manages.
var MigrateModels = []any{
	&Candle{},
	&CandleLighting{},
	&AdultGrave{},
	&ChildGrave{},
	&BoneGrave{},
}
