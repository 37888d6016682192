package model

import "time"

type Article struct {
	ID        string
	Topic     string
	Content   string
	CreatedAt time.Time
}
