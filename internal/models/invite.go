package models

import "time"

// Invite is a pending, single-use authorization to join an account. It is
// created without a token; minting attaches the token fingerprint and expiry
// afterwards. Only the sha256 fingerprint of the token is ever stored.
type Invite struct {
	ID        string     `json:"id"`
	AccountID string     `json:"account_id"`
	Email     string     `json:"email"`
	TokenHash *string    `json:"-"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Used      bool       `json:"used"`
	CreatedBy *string    `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// HasToken indicates whether minting has attached a token yet.
func (i Invite) HasToken() bool {
	return i.TokenHash != nil && *i.TokenHash != ""
}

// IsExpired determines whether the invite has expired. An invite with no
// minted token has no expiry and is never redeemable, so it reports expired.
func (i Invite) IsExpired(now time.Time) bool {
	if i.ExpiresAt == nil {
		return true
	}
	return !now.Before(*i.ExpiresAt)
}

// IsRedeemable reports whether the invite can still be redeemed at the given
// instant: token minted, never used, not yet expired.
func (i Invite) IsRedeemable(now time.Time) bool {
	return i.HasToken() && !i.Used && !i.IsExpired(now)
}
