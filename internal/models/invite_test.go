package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInviteRedeemability(t *testing.T) {
	now := time.Now()
	hash := "deadbeef"
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	// Never minted: no expiry means not redeemable.
	pending := Invite{}
	assert.False(t, pending.HasToken())
	assert.True(t, pending.IsExpired(now))
	assert.False(t, pending.IsRedeemable(now))

	minted := Invite{TokenHash: &hash, ExpiresAt: &future}
	assert.True(t, minted.IsRedeemable(now))

	used := Invite{TokenHash: &hash, ExpiresAt: &future, Used: true}
	assert.False(t, used.IsRedeemable(now))

	expired := Invite{TokenHash: &hash, ExpiresAt: &past}
	assert.True(t, expired.IsExpired(now))
	assert.False(t, expired.IsRedeemable(now))

	// Expiry boundary is exclusive: at the exact instant the invite is gone.
	atBoundary := Invite{TokenHash: &hash, ExpiresAt: &now}
	assert.True(t, atBoundary.IsExpired(now))
}
