package temporal

import "time"

// TaskQueueName is the Temporal task queue for invite lifecycle workflows.
const TaskQueueName = "ROSTER_INVITES"

// InviteWorkflowIDPrefix is the prefix used for invite workflow IDs. Keyed by
// invite id, so re-issuing the same invite reuses the same workflow identity.
const InviteWorkflowIDPrefix = "roster-invite-"

// InviteWorkflowName is the registered name of the minting workflow. The
// scheduler starts it by name to avoid importing the workflow package.
const InviteWorkflowName = "InviteWorkflow"

// DefaultActivityTimeout bounds the minting and email activities.
const DefaultActivityTimeout = 1 * time.Minute

// MintParams defines the input for invite workflows.
type MintParams struct {
	InviteID string
}

// MintActivityResult holds the outcome of the token minting activity. Minted
// is false when the invite already carried a token (duplicate delivery), in
// which case no email is sent.
type MintActivityResult struct {
	InviteID  string
	AccountID string
	Email     string
	Token     string
	ExpiresAt time.Time
	Minted    bool
}
