package workflows

import (
	"github.com/rosterline/roster-api/internal/temporal"
	"github.com/rosterline/roster-api/internal/temporal/activities"
	"go.temporal.io/sdk/workflow"
)

// InviteWorkflow reacts to invite issuance: it mints the token and expiry
// onto the invite record, then emails the raw token to the recipient. Minting
// is idempotent, so re-delivery of the same invite id is a no-op and sends no
// second email.
func InviteWorkflow(ctx workflow.Context, params temporal.MintParams) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: temporal.DefaultActivityTimeout,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("Starting invite workflow", "InviteID", params.InviteID)

	// The actual implementation is on the worker; this is just a proxy.
	var a *activities.Activities

	var minted temporal.MintActivityResult
	err := workflow.ExecuteActivity(ctx, a.MintTokenActivity, params).Get(ctx, &minted)
	if err != nil {
		logger.Error("Failed to mint invite token.", "error", err)
		return err
	}

	if !minted.Minted {
		logger.Info("Invite already minted, skipping email.", "InviteID", params.InviteID)
		return nil
	}

	if err := workflow.ExecuteActivity(ctx, a.SendInviteEmailActivity, minted).Get(ctx, nil); err != nil {
		logger.Error("Failed to send invite email.", "error", err)
		return err
	}

	return nil
}
