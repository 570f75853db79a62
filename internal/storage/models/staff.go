package models

import "time"

// Staff is a cleaner or maintenance worker. MagicToken keys the
// self-service pages and the accept/reject links in notifications; it is
// opaque and never reused.
type Staff struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Language   string    `json:"language"`
	MagicToken string    `json:"magic_token"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}
