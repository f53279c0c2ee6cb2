package domain

import (
	"strings"
	"time"
)

// GraveType is the category table a grave lives in.
type GraveType string

const (
	GraveTypeAdult GraveType = "adult"
	GraveTypeChild GraveType = "child"
	GraveTypeBone  GraveType = "bone"
)

// GraveTypes lists every known category in a stable order.
var GraveTypes = []GraveType{GraveTypeAdult, GraveTypeChild, GraveTypeBone}

func (t GraveType) String() string {
	return string(t)
}

func (t GraveType) Valid() bool {
	switch t {
	case GraveTypeAdult, GraveTypeChild, GraveTypeBone:
		return true
	}
	return false
}

// ParseGraveType accepts the category name case-insensitively.
func ParseGraveType(s string) (GraveType, error) {
	t := GraveType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidCategory
	}
	return t, nil
}

type Grave struct {
	ID          string
	Type        GraveType
	Name        string
	CandleCount int64
	CDate       time.Time
}
