package models

import "time"

type MemberStatus string

const (
	StatusAvailable    MemberStatus = "available"
	StatusInConference MemberStatus = "in_conference"
	StatusUnknown      MemberStatus = "unknown"
)

// IsValidMemberStatus reports whether the status is one of the known values.
func IsValidMemberStatus(status MemberStatus) bool {
	switch status {
	case StatusAvailable, StatusInConference, StatusUnknown:
		return true
	}
	return false
}

// Member is an entry in an account's call roster. Position values within one
// account are dense and zero-based; every mutating roster operation leaves
// them renumbered 0..N-1.
type Member struct {
	ID          string       `json:"id"`
	AccountID   string       `json:"account_id"`
	Name        string       `json:"name"`
	PhoneNumber string       `json:"phone_number"`
	Status      MemberStatus `json:"status"`
	Position    int          `json:"order"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
