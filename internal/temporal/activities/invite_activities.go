package activities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
	"github.com/rosterline/roster-api/internal/invite"
	"github.com/rosterline/roster-api/internal/notification"
	"github.com/rosterline/roster-api/internal/repository"
	"github.com/rosterline/roster-api/internal/temporal"
	"go.temporal.io/sdk/activity"
)

// Activities carries the dependencies of the invite workflow.
type Activities struct {
	Invites           *invite.Service
	Accounts          repository.AccountRepository
	Mailer            notification.InviteMailer
	Events            notification.Service
	InviteURLTemplate string
}

// MintTokenActivity attaches a token and expiry to the invite. Safe against
// at-least-once delivery: an already-minted invite reports Minted=false.
func (a *Activities) MintTokenActivity(ctx context.Context, params temporal.MintParams) (temporal.MintActivityResult, error) {
	logger := activity.GetLogger(ctx)

	result, err := a.Invites.Mint(ctx, params.InviteID)
	if err != nil {
		return temporal.MintActivityResult{}, pkgerrors.Wrap(err, "mint invite token")
	}

	out := temporal.MintActivityResult{
		InviteID:  result.Invite.ID,
		AccountID: result.Invite.AccountID,
		Email:     result.Invite.Email,
		Token:     result.Token,
		Minted:    result.Minted,
	}
	if result.Invite.ExpiresAt != nil {
		out.ExpiresAt = *result.Invite.ExpiresAt
	}

	logger.Info("Invite minting finished.", "InviteID", params.InviteID, "Minted", result.Minted)
	return out, nil
}

// SendInviteEmailActivity mails the raw token link to the recipient and
// records the invite_sent notification.
func (a *Activities) SendInviteEmailActivity(ctx context.Context, minted temporal.MintActivityResult) error {
	logger := activity.GetLogger(ctx)

	accountName := "your account"
	account, err := a.Accounts.GetAccountByID(ctx, minted.AccountID)
	switch {
	case err == nil:
		accountName = account.Name
	case errors.Is(err, sql.ErrNoRows):
		// A dangling account reference leaves the invite unredeemable, but
		// the email still goes out; redemption will fail the account lookup.
		logger.Warn("Invite references a missing account.", "AccountID", minted.AccountID)
	default:
		return pkgerrors.Wrap(err, "load account for invite email")
	}

	inviteURL := fmt.Sprintf(a.InviteURLTemplate, minted.Token)
	if err := a.Mailer.SendInvite(minted.Email, accountName, inviteURL); err != nil {
		return pkgerrors.Wrap(err, "send invite email")
	}

	if a.Events != nil {
		if err := a.Events.NotifyInviteSent(ctx, minted.AccountID, minted.InviteID, minted.Email); err != nil {
			logger.Warn("Failed to record invite_sent notification.", "error", err)
		}
	}

	logger.Info("Invite email sent.", "InviteID", minted.InviteID)
	return nil
}
