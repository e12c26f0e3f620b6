package domain

import "time"

type User struct {
	ID             uint       `json:"id"`
	TelegramUserID int64      `json:"telegram_user_id,omitempty"`
	Username       string     `json:"username"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"-"`
}
