// Package roster manages accounts and their ordered member lists.
package roster

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rosterline/roster-api/internal/models"
	"github.com/rosterline/roster-api/internal/notification"
	"github.com/rosterline/roster-api/internal/phone"
	"github.com/rosterline/roster-api/internal/repository"
)

var (
	ErrInvalidPhone  = errors.New("invalid phone number")
	ErrInvalidStatus = errors.New("invalid member status")
)

// CreateAccountParams describes the account bootstrap: the account plus the
// creator's admin user record and the first roster member.
type CreateAccountParams struct {
	Name          string
	RoutingNumber string
	AdminName     string
	AdminPhone    string
	CreatorID     string
	CreatorEmail  string
}

type Service struct {
	accounts repository.AccountRepository
	members  repository.MemberRepository
	events   notification.Service
	logger   zerolog.Logger
}

func NewService(
	accounts repository.AccountRepository,
	members repository.MemberRepository,
	events notification.Service,
	logger zerolog.Logger,
) *Service {
	return &Service{
		accounts: accounts,
		members:  members,
		events:   events,
		logger:   logger.With().Str("component", "roster_service").Logger(),
	}
}

// CreateAccount bootstraps a tenant: account record, admin user for the
// creator, and the creator as first roster member at position 0.
func (s *Service) CreateAccount(ctx context.Context, params CreateAccountParams) (models.Account, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.AdminName = strings.TrimSpace(params.AdminName)
	if params.Name == "" || params.AdminName == "" {
		return models.Account{}, errors.New("account name and admin name are required")
	}

	adminPhone, err := phone.Normalize(params.AdminPhone)
	if err != nil {
		return models.Account{}, ErrInvalidPhone
	}

	routingNumber := ""
	if strings.TrimSpace(params.RoutingNumber) != "" {
		routingNumber, err = phone.Normalize(params.RoutingNumber)
		if err != nil {
			return models.Account{}, ErrInvalidPhone
		}
	}

	account, err := s.accounts.BootstrapAccount(ctx, repository.BootstrapAccountParams{
		Name:          params.Name,
		CreatedBy:     params.CreatorID,
		CreatorEmail:  params.CreatorEmail,
		AdminName:     params.AdminName,
		AdminPhone:    adminPhone,
		RoutingNumber: routingNumber,
	})
	if err != nil {
		return models.Account{}, err
	}

	s.logger.Info().
		Str("account_id", account.ID).
		Str("created_by", params.CreatorID).
		Msg("account created")

	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, accountID string) (models.Account, error) {
	return s.accounts.GetAccountByID(ctx, accountID)
}

func (s *Service) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.accounts.ListAccounts(ctx)
}

// UpdateSettings stores the routing number and retry count for an account.
func (s *Service) UpdateSettings(ctx context.Context, accountID, routingNumber string, maxRetries int) (models.Account, error) {
	if maxRetries < 0 {
		return models.Account{}, errors.New("max retries must not be negative")
	}

	normalized := ""
	if strings.TrimSpace(routingNumber) != "" {
		var err error
		normalized, err = phone.Normalize(routingNumber)
		if err != nil {
			return models.Account{}, ErrInvalidPhone
		}
	}

	return s.accounts.UpdateAccountSettings(ctx, accountID, normalized, maxRetries)
}

func (s *Service) ListMembers(ctx context.Context, accountID string) ([]models.Member, error) {
	return s.members.ListMembersByAccount(ctx, accountID)
}

// AddMember appends a member at the end of the roster with status available.
func (s *Service) AddMember(ctx context.Context, accountID, name, phoneNumber string) (models.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Member{}, errors.New("member name is required")
	}

	normalized, err := phone.Normalize(phoneNumber)
	if err != nil {
		return models.Member{}, ErrInvalidPhone
	}

	member, err := s.members.CreateMember(ctx, accountID, name, normalized)
	if err != nil {
		return models.Member{}, err
	}

	if s.events != nil {
		if err := s.events.NotifyMemberAdded(ctx, accountID, member.ID, member.Name); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish member_added notification")
		}
	}

	return member, nil
}

func (s *Service) UpdateMember(ctx context.Context, accountID, memberID, name, phoneNumber string) (models.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Member{}, errors.New("member name is required")
	}

	normalized, err := phone.Normalize(phoneNumber)
	if err != nil {
		return models.Member{}, ErrInvalidPhone
	}

	return s.members.UpdateMember(ctx, accountID, memberID, name, normalized)
}

func (s *Service) SetMemberStatus(ctx context.Context, accountID, memberID string, status models.MemberStatus) (models.Member, error) {
	if !models.IsValidMemberStatus(status) {
		return models.Member{}, ErrInvalidStatus
	}
	return s.members.UpdateMemberStatus(ctx, accountID, memberID, status)
}

// RemoveMember deletes the member and renumbers the remaining roster.
func (s *Service) RemoveMember(ctx context.Context, accountID, memberID string) error {
	member, err := s.members.GetMemberByID(ctx, accountID, memberID)
	if err != nil {
		return err
	}

	if err := s.members.DeleteMember(ctx, accountID, memberID); err != nil {
		return err
	}

	if s.events != nil {
		if err := s.events.NotifyMemberRemoved(ctx, accountID, member.ID, member.Name); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish member_removed notification")
		}
	}

	return nil
}

// Reorder applies a full ordering of the roster in one transaction.
func (s *Service) Reorder(ctx context.Context, accountID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return errors.New("ordered member ids are required")
	}
	return s.members.ReorderMembers(ctx, accountID, orderedIDs)
}
