package models

import "time"

// Project represents a workspace project owned by a user.
type Project struct {
	ID          string
	Name        string
	Description string
	Language    string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
