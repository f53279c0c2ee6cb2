package domain

import "time"

type ctxKey string

const (
	RequesterIDCtxKey ctxKey = "candle-requesterId"
)

const (
	DefaultCooldown     = 24 * time.Hour
	MaxIdentifierLength = 128
)
