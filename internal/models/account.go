package models

import "time"

// Account is a tenant owning an ordered call-routing roster.
type Account struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	RoutingNumber string    `json:"routing_number,omitempty"`
	MaxRetries    int       `json:"max_retries"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DefaultMaxRetries is applied to accounts that never configured a retry count.
const DefaultMaxRetries = 3
