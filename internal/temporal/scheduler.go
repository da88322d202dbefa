package temporal

import (
	"context"

	tc "go.temporal.io/sdk/client"
)

// MintScheduler starts the minting workflow for a freshly issued invite.
// Workflow IDs are derived from the invite id, so duplicate scheduling of the
// same invite collapses onto one workflow run.
type MintScheduler struct {
	client tc.Client
}

func NewMintScheduler(client tc.Client) *MintScheduler {
	return &MintScheduler{client: client}
}

func (s *MintScheduler) ScheduleMint(ctx context.Context, inviteID string) error {
	opts := tc.StartWorkflowOptions{
		ID:        InviteWorkflowIDPrefix + inviteID,
		TaskQueue: TaskQueueName,
	}
	_, err := s.client.ExecuteWorkflow(ctx, opts, InviteWorkflowName, MintParams{InviteID: inviteID})
	return err
}
