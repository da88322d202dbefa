// Package invite implements the invitation lifecycle: issuance of pending
// invites, token minting, server-side validation, and the exactly-once
// redemption that turns a token into account membership.
package invite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rosterline/roster-api/internal/identity"
	"github.com/rosterline/roster-api/internal/models"
	"github.com/rosterline/roster-api/internal/notification"
	"github.com/rosterline/roster-api/internal/phone"
	"github.com/rosterline/roster-api/internal/repository"
)

var (
	ErrInvalidToken           = errors.New("invalid invite token")
	ErrAlreadyUsed            = errors.New("invite has already been used")
	ErrExpired                = errors.New("invite has expired")
	ErrPasswordMismatch       = errors.New("passwords do not match")
	ErrInvalidPhone           = errors.New("invalid phone number")
	ErrIdentityCreationFailed = errors.New("failed to create identity")
	ErrAccountNotFound        = errors.New("account not found")
	ErrStorageUnavailable     = errors.New("storage unavailable")
	// ErrPartialCommitFailed signals that an identity was created but the
	// membership transaction did not commit, leaving an orphaned identity.
	ErrPartialCommitFailed = errors.New("membership commit failed after identity creation")
)

// MintScheduler decouples issuance from token minting: callers of Issue never
// handle secret generation. The production implementation starts a Temporal
// workflow; tests substitute a fake.
type MintScheduler interface {
	ScheduleMint(ctx context.Context, inviteID string) error
}

// Preview is what a prospective member sees before redeeming.
type Preview struct {
	Email       string    `json:"email"`
	AccountID   string    `json:"account_id"`
	AccountName string    `json:"account_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RedeemRequest carries the profile the recipient submits with the token.
type RedeemRequest struct {
	Name            string
	PhoneNumber     string
	Password        string
	ConfirmPassword string
}

// MintResult reports the outcome of a minting attempt. Minted is false when
// the invite already carried a token, which makes re-delivery a no-op.
type MintResult struct {
	Invite models.Invite
	Token  string
	Minted bool
}

type Service struct {
	invites    repository.InviteRepository
	accounts   repository.AccountRepository
	identities identity.Provider
	scheduler  MintScheduler
	events     notification.Service
	logger     zerolog.Logger
	tokenBytes int
	ttl        time.Duration
	now        func() time.Time
}

func NewService(
	invites repository.InviteRepository,
	accounts repository.AccountRepository,
	identities identity.Provider,
	scheduler MintScheduler,
	events notification.Service,
	tokenBytes int,
	ttl time.Duration,
	logger zerolog.Logger,
) *Service {
	return &Service{
		invites:    invites,
		accounts:   accounts,
		identities: identities,
		scheduler:  scheduler,
		events:     events,
		logger:     logger.With().Str("component", "invite_service").Logger(),
		tokenBytes: tokenBytes,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Issue inserts a pending invite with no token and schedules minting. No
// dedup is performed against pending invites for the same email+account;
// duplicates stay independently redeemable until they expire.
func (s *Service) Issue(ctx context.Context, email, accountID string, createdBy string) (models.Invite, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return models.Invite{}, errors.New("email is required")
	}
	if accountID == "" {
		return models.Invite{}, errors.New("account id is required")
	}

	inv := models.Invite{AccountID: accountID, Email: email}
	if createdBy != "" {
		inv.CreatedBy = &createdBy
	}

	created, err := s.invites.CreateInvite(ctx, inv)
	if err != nil {
		return models.Invite{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if err := s.scheduler.ScheduleMint(ctx, created.ID); err != nil {
		s.logger.Error().Err(err).Str("invite_id", created.ID).Msg("failed to schedule token minting")
		return models.Invite{}, err
	}

	s.logger.Info().
		Str("invite_id", created.ID).
		Str("account_id", created.AccountID).
		Msg("invite issued")

	return created, nil
}

// Mint attaches a fresh token and expiry to the invite. Invoked by the
// minting worker; safe against re-delivery of the same invite id.
func (s *Service) Mint(ctx context.Context, inviteID string) (MintResult, error) {
	inv, err := s.invites.GetInviteByID(ctx, inviteID)
	if err != nil {
		return MintResult{}, err
	}
	if inv.HasToken() {
		return MintResult{Invite: inv}, nil
	}

	token, err := GenerateToken(s.tokenBytes)
	if err != nil {
		return MintResult{}, err
	}
	expiresAt := s.now().Add(s.ttl)

	attached, err := s.invites.AttachToken(ctx, inviteID, HashToken(token), expiresAt)
	if err != nil {
		return MintResult{}, err
	}
	if !attached {
		// Lost a race with another mint attempt; the earlier token stands.
		inv, err := s.invites.GetInviteByID(ctx, inviteID)
		return MintResult{Invite: inv}, err
	}

	inv, err = s.invites.GetInviteByID(ctx, inviteID)
	if err != nil {
		return MintResult{}, err
	}

	s.logger.Info().
		Str("invite_id", inviteID).
		Time("expires_at", expiresAt).
		Msg("invite token minted")

	return MintResult{Invite: inv, Token: token, Minted: true}, nil
}

// Validate checks a presented token and returns the invite preview. The
// used flag is checked before expiry, so a consumed invite always reports
// ErrAlreadyUsed regardless of age.
func (s *Service) Validate(ctx context.Context, token string) (Preview, error) {
	inv, err := s.lookup(ctx, token)
	if err != nil {
		return Preview{}, err
	}

	account, err := s.accounts.GetAccountByID(ctx, inv.AccountID)
	if err != nil {
		if isNotFound(err) {
			return Preview{}, ErrAccountNotFound
		}
		return Preview{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return Preview{
		Email:       inv.Email,
		AccountID:   inv.AccountID,
		AccountName: account.Name,
		ExpiresAt:   *inv.ExpiresAt,
	}, nil
}

// Redeem converts a valid token into account membership: it creates an
// identity for the invite's email, then in one storage transaction writes the
// global user, appends the roster member, and consumes the invite. The
// transaction re-checks used/expiry at commit time, so of two concurrent
// redemptions exactly one succeeds.
func (s *Service) Redeem(ctx context.Context, token string, req RedeemRequest) (models.Member, error) {
	inv, err := s.lookup(ctx, token)
	if err != nil {
		return models.Member{}, err
	}

	if req.Password != req.ConfirmPassword {
		return models.Member{}, ErrPasswordMismatch
	}
	if strings.TrimSpace(req.Name) == "" {
		return models.Member{}, errors.New("name is required")
	}

	phoneNumber, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		return models.Member{}, ErrInvalidPhone
	}

	ident, err := s.identities.CreateIdentity(ctx, inv.Email, req.Password)
	if err != nil {
		return models.Member{}, fmt.Errorf("%w: %v", ErrIdentityCreationFailed, err)
	}

	member, err := s.invites.RedeemInvite(ctx, repository.RedeemInviteParams{
		InviteID:    inv.ID,
		AccountID:   inv.AccountID,
		IdentityID:  ident.ID,
		Email:       inv.Email,
		Name:        strings.TrimSpace(req.Name),
		PhoneNumber: phoneNumber,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInviteUsed):
			return models.Member{}, ErrAlreadyUsed
		case errors.Is(err, repository.ErrInviteExpired):
			return models.Member{}, ErrExpired
		case errors.Is(err, repository.ErrAccountNotFound):
			return models.Member{}, ErrAccountNotFound
		}
		// The identity exists but membership never committed. Surface this
		// distinctly; the orphaned identity is logged for manual cleanup.
		s.logger.Error().Err(err).
			Str("invite_id", inv.ID).
			Str("identity_id", ident.ID).
			Msg("membership commit failed, identity orphaned")
		return models.Member{}, fmt.Errorf("%w: %v", ErrPartialCommitFailed, err)
	}

	s.logger.Info().
		Str("invite_id", inv.ID).
		Str("member_id", member.ID).
		Str("account_id", member.AccountID).
		Msg("invite redeemed")

	if s.events != nil {
		_, err := s.events.Publish(ctx, notification.Event{
			AccountID: member.AccountID,
			Event:     models.NotificationEventInviteAccepted,
			Severity:  models.NotificationSeverityInfo,
			Title:     "Invite accepted",
			Message:   fmt.Sprintf("%s joined the roster", member.Name),
			Metadata:  map[string]interface{}{"member_id": member.ID, "invite_id": inv.ID},
		})
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish invite_accepted notification")
		}
	}

	return member, nil
}

// ListByAccount returns an account's invites, newest first.
func (s *Service) ListByAccount(ctx context.Context, accountID string) ([]models.Invite, error) {
	return s.invites.ListInvitesByAccount(ctx, accountID)
}

// Cancel deletes a pending (unused) invite.
func (s *Service) Cancel(ctx context.Context, inviteID, accountID string) error {
	return s.invites.CancelInvite(ctx, inviteID, accountID)
}

func (s *Service) lookup(ctx context.Context, token string) (models.Invite, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Invite{}, ErrInvalidToken
	}

	inv, err := s.invites.GetInviteByTokenHash(ctx, HashToken(token))
	if err != nil {
		if isNotFound(err) {
			return models.Invite{}, ErrInvalidToken
		}
		return models.Invite{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if inv.Used {
		return models.Invite{}, ErrAlreadyUsed
	}
	if inv.IsExpired(s.now()) {
		return models.Invite{}, ErrExpired
	}

	return inv, nil
}
