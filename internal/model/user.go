package model

import "time"

// Operator is a back-office user allowed to submit shipments and trigger tracking.
type Operator struct {
	ID           string    `json:"id"`
	Login        string    `json:"login"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
