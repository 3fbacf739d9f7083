package users

import "time"

const (
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

type User struct {
	UserID    int64     `gorm:"column:user_id;primaryKey;autoIncrement"`
	Login     string    `gorm:"column:login;type:varchar(100);not null;uniqueIndex"`
	Status    string    `gorm:"column:status;type:varchar(20);not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
