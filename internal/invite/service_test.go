package invite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterline/roster-api/internal/identity"
	"github.com/rosterline/roster-api/internal/models"
	"github.com/rosterline/roster-api/internal/repository"
)

type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[string]models.Account
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: map[string]models.Account{}}
}

func (s *fakeAccountStore) add(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[id] = models.Account{ID: id, Name: name, MaxRetries: models.DefaultMaxRetries}
}

func (s *fakeAccountStore) exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.accounts[id]
	return ok
}

func (s *fakeAccountStore) BootstrapAccount(ctx context.Context, params repository.BootstrapAccountParams) (models.Account, error) {
	return models.Account{}, errors.New("not implemented")
}

func (s *fakeAccountStore) GetAccountByID(ctx context.Context, id string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, sql.ErrNoRows
	}
	return account, nil
}

func (s *fakeAccountStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeAccountStore) UpdateAccountSettings(ctx context.Context, id, routingNumber string, maxRetries int) (models.Account, error) {
	return models.Account{}, errors.New("not implemented")
}

// fakeInviteStore keeps invites and redeemed members in memory. RedeemInvite
// performs the same check-then-flip sequence the SQL transaction does, under
// one mutex, so racing redemptions see exactly-once semantics.
type fakeInviteStore struct {
	mu       sync.Mutex
	seq      int
	invites  map[string]models.Invite
	members  map[string][]models.Member
	accounts *fakeAccountStore
}

func newFakeInviteStore(accounts *fakeAccountStore) *fakeInviteStore {
	return &fakeInviteStore{
		invites:  map[string]models.Invite{},
		members:  map[string][]models.Member{},
		accounts: accounts,
	}
}

func (s *fakeInviteStore) CreateInvite(ctx context.Context, invite models.Invite) (models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	invite.ID = fmt.Sprintf("inv-%d", s.seq)
	invite.CreatedAt = time.Now()
	invite.UpdatedAt = invite.CreatedAt
	s.invites[invite.ID] = invite
	return invite, nil
}

func (s *fakeInviteStore) GetInviteByID(ctx context.Context, inviteID string) (models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invite, ok := s.invites[inviteID]
	if !ok {
		return models.Invite{}, sql.ErrNoRows
	}
	return invite, nil
}

func (s *fakeInviteStore) GetInviteByTokenHash(ctx context.Context, tokenHash string) (models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, invite := range s.invites {
		if invite.TokenHash != nil && *invite.TokenHash == tokenHash {
			return invite, nil
		}
	}
	return models.Invite{}, sql.ErrNoRows
}

func (s *fakeInviteStore) AttachToken(ctx context.Context, inviteID, tokenHash string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invite, ok := s.invites[inviteID]
	if !ok {
		return false, sql.ErrNoRows
	}
	if invite.TokenHash != nil {
		return false, nil
	}
	invite.TokenHash = &tokenHash
	invite.ExpiresAt = &expiresAt
	s.invites[inviteID] = invite
	return true, nil
}

func (s *fakeInviteStore) ListInvitesByAccount(ctx context.Context, accountID string) ([]models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Invite
	for _, invite := range s.invites {
		if invite.AccountID == accountID {
			out = append(out, invite)
		}
	}
	return out, nil
}

func (s *fakeInviteStore) CancelInvite(ctx context.Context, inviteID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	invite, ok := s.invites[inviteID]
	if !ok || invite.AccountID != accountID || invite.Used {
		return sql.ErrNoRows
	}
	delete(s.invites, inviteID)
	return nil
}

func (s *fakeInviteStore) RedeemInvite(ctx context.Context, params repository.RedeemInviteParams) (models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	invite, ok := s.invites[params.InviteID]
	if !ok {
		return models.Member{}, sql.ErrNoRows
	}
	if invite.Used {
		return models.Member{}, repository.ErrInviteUsed
	}
	if invite.ExpiresAt == nil || !time.Now().Before(*invite.ExpiresAt) {
		return models.Member{}, repository.ErrInviteExpired
	}
	if !s.accounts.exists(params.AccountID) {
		return models.Member{}, repository.ErrAccountNotFound
	}

	member := models.Member{
		ID:          params.IdentityID,
		AccountID:   params.AccountID,
		Name:        params.Name,
		PhoneNumber: params.PhoneNumber,
		Status:      models.StatusAvailable,
		Position:    len(s.members[params.AccountID]),
	}
	s.members[params.AccountID] = append(s.members[params.AccountID], member)

	invite.Used = true
	s.invites[params.InviteID] = invite

	return member, nil
}

type fakeIdentityProvider struct {
	mu      sync.Mutex
	seq     int
	failure error
	created []string
}

func (p *fakeIdentityProvider) CreateIdentity(ctx context.Context, email, password string) (identity.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failure != nil {
		return identity.Identity{}, p.failure
	}
	p.seq++
	id := fmt.Sprintf("ident-%d", p.seq)
	p.created = append(p.created, id)
	return identity.Identity{ID: id, Email: email}, nil
}

func (p *fakeIdentityProvider) Authenticate(ctx context.Context, email, password string) (identity.Identity, error) {
	return identity.Identity{}, identity.ErrInvalidCredentials
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []string
	failure   error
}

func (s *fakeScheduler) ScheduleMint(ctx context.Context, inviteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}
	s.scheduled = append(s.scheduled, inviteID)
	return nil
}

type fixture struct {
	svc        *Service
	invites    *fakeInviteStore
	accounts   *fakeAccountStore
	identities *fakeIdentityProvider
	scheduler  *fakeScheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	accounts := newFakeAccountStore()
	accounts.add("acct-1", "North Clinic")
	invites := newFakeInviteStore(accounts)
	identities := &fakeIdentityProvider{}
	scheduler := &fakeScheduler{}
	svc := NewService(invites, accounts, identities, scheduler, nil, 32, 7*24*time.Hour, zerolog.Nop())
	return &fixture{svc: svc, invites: invites, accounts: accounts, identities: identities, scheduler: scheduler}
}

// issueMinted issues an invite and runs minting, returning the raw token.
func (f *fixture) issueMinted(t *testing.T, email string) (models.Invite, string) {
	t.Helper()
	ctx := context.Background()
	inv, err := f.svc.Issue(ctx, email, "acct-1", "admin-1")
	require.NoError(t, err)
	result, err := f.svc.Mint(ctx, inv.ID)
	require.NoError(t, err)
	require.True(t, result.Minted)
	require.NotEmpty(t, result.Token)
	return result.Invite, result.Token
}

func validRedeem() RedeemRequest {
	return RedeemRequest{
		Name:            "Dana Reyes",
		PhoneNumber:     "(212) 555-0123",
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
	}
}

func TestIssueSchedulesMint(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Issue(context.Background(), "  Dana@Example.COM ", "acct-1", "admin-1")
	require.NoError(t, err)

	assert.Equal(t, "dana@example.com", inv.Email)
	assert.False(t, inv.HasToken())
	assert.Equal(t, []string{inv.ID}, f.scheduler.scheduled)
}

func TestMintIsIdempotent(t *testing.T) {
	f := newFixture(t)
	inv, _ := f.issueMinted(t, "dana@example.com")
	firstHash := *inv.TokenHash

	again, err := f.svc.Mint(context.Background(), inv.ID)
	require.NoError(t, err)

	assert.False(t, again.Minted)
	assert.Empty(t, again.Token)
	assert.Equal(t, firstHash, *again.Invite.TokenHash)
}

func TestValidateReturnsPreview(t *testing.T) {
	f := newFixture(t)
	inv, token := f.issueMinted(t, "dana@example.com")

	preview, err := f.svc.Validate(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "dana@example.com", preview.Email)
	assert.Equal(t, "acct-1", preview.AccountID)
	assert.Equal(t, "North Clinic", preview.AccountName)
	assert.Equal(t, *inv.ExpiresAt, preview.ExpiresAt)
}

func TestValidateUnknownToken(t *testing.T) {
	f := newFixture(t)
	f.issueMinted(t, "dana@example.com")

	_, err := f.svc.Validate(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.svc.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateExpired(t *testing.T) {
	f := newFixture(t)
	_, token := f.issueMinted(t, "dana@example.com")

	f.svc.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err := f.svc.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpired)

	f.svc.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	_, err = f.svc.Validate(context.Background(), token)
	assert.NoError(t, err)
}

func TestValidateUsedWinsOverExpired(t *testing.T) {
	f := newFixture(t)
	inv, token := f.issueMinted(t, "dana@example.com")

	stored := f.invites.invites[inv.ID]
	stored.Used = true
	f.invites.invites[inv.ID] = stored

	// Even once the invite is also past its expiry, the consumed state is
	// what gets reported.
	f.svc.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }
	_, err := f.svc.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrAlreadyUsed)
}

func TestRedeemCreatesMemberAtEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, token := f.issueMinted(t, email)
		member, err := f.svc.Redeem(ctx, token, validRedeem())
		require.NoError(t, err)
		assert.Equal(t, i, member.Position)
		assert.Equal(t, models.StatusAvailable, member.Status)
		assert.Equal(t, "+12125550123", member.PhoneNumber)
	}
}

func TestRedeemPasswordMismatch(t *testing.T) {
	f := newFixture(t)
	_, token := f.issueMinted(t, "dana@example.com")

	req := validRedeem()
	req.ConfirmPassword = "different"
	_, err := f.svc.Redeem(context.Background(), token, req)

	assert.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Empty(t, f.identities.created)
}

func TestRedeemInvalidPhone(t *testing.T) {
	f := newFixture(t)
	_, token := f.issueMinted(t, "dana@example.com")

	req := validRedeem()
	req.PhoneNumber = "not a number"
	_, err := f.svc.Redeem(context.Background(), token, req)

	assert.ErrorIs(t, err, ErrInvalidPhone)
	assert.Empty(t, f.identities.created)
}

func TestRedeemIdentityFailureLeavesInviteOpen(t *testing.T) {
	f := newFixture(t)
	inv, token := f.issueMinted(t, "dana@example.com")

	f.identities.failure = identity.ErrEmailTaken
	_, err := f.svc.Redeem(context.Background(), token, validRedeem())
	assert.ErrorIs(t, err, ErrIdentityCreationFailed)

	// The invite is untouched and still redeemable.
	stored := f.invites.invites[inv.ID]
	assert.False(t, stored.Used)

	f.identities.failure = nil
	_, err = f.svc.Redeem(context.Background(), token, validRedeem())
	assert.NoError(t, err)
}

func TestRedeemTwiceFails(t *testing.T) {
	f := newFixture(t)
	_, token := f.issueMinted(t, "dana@example.com")
	ctx := context.Background()

	_, err := f.svc.Redeem(ctx, token, validRedeem())
	require.NoError(t, err)

	_, err = f.svc.Redeem(ctx, token, validRedeem())
	assert.ErrorIs(t, err, ErrAlreadyUsed)
}

func TestRedeemConcurrentExactlyOnce(t *testing.T) {
	f := newFixture(t)
	_, token := f.issueMinted(t, "dana@example.com")
	ctx := context.Background()

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Redeem(ctx, token, validRedeem())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrAlreadyUsed):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
	assert.Len(t, f.invites.members["acct-1"], 1)
}

func TestRedeemAccountDeleted(t *testing.T) {
	f := newFixture(t)
	_, token := f.issueMinted(t, "dana@example.com")

	f.accounts.mu.Lock()
	delete(f.accounts.accounts, "acct-1")
	f.accounts.mu.Unlock()

	_, err := f.svc.Redeem(context.Background(), token, validRedeem())
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestCancelPendingInvite(t *testing.T) {
	f := newFixture(t)
	inv, token := f.issueMinted(t, "dana@example.com")
	ctx := context.Background()

	require.NoError(t, f.svc.Cancel(ctx, inv.ID, "acct-1"))

	_, err := f.svc.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
