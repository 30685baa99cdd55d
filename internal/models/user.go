package models

import "time"

type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email" example:"user@example.com"`
	Username  string     `json:"username" example:"jdoe"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
