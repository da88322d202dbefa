package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rosterline/roster-api/internal/models"
)

var (
	// ErrInviteUsed is returned when redemption races another redemption or
	// targets an already-consumed invite.
	ErrInviteUsed = errors.New("invite already used")
	// ErrInviteExpired is returned when redemption targets an invite past its
	// expiry or one that never had a token minted.
	ErrInviteExpired = errors.New("invite expired")
	// ErrAccountNotFound is returned when an invite references an account
	// that no longer exists.
	ErrAccountNotFound = errors.New("account not found")
)

// RedeemInviteParams carries everything the redemption transaction writes.
type RedeemInviteParams struct {
	InviteID    string
	AccountID   string
	IdentityID  string
	Email       string
	Name        string
	PhoneNumber string
}

type InviteRepository interface {
	CreateInvite(ctx context.Context, invite models.Invite) (models.Invite, error)
	GetInviteByID(ctx context.Context, inviteID string) (models.Invite, error)
	GetInviteByTokenHash(ctx context.Context, tokenHash string) (models.Invite, error)
	// AttachToken writes the token fingerprint and expiry onto an invite that
	// does not have one yet. It reports false, nil when the invite was already
	// minted, making re-delivery of the mint request a no-op.
	AttachToken(ctx context.Context, inviteID, tokenHash string, expiresAt time.Time) (bool, error)
	ListInvitesByAccount(ctx context.Context, accountID string) ([]models.Invite, error)
	CancelInvite(ctx context.Context, inviteID, accountID string) error
	// RedeemInvite re-validates the invite under a row lock and, in one
	// transaction, creates the global user, appends the roster member, and
	// flips used false->true. Exactly one of two racing calls succeeds; the
	// loser sees ErrInviteUsed.
	RedeemInvite(ctx context.Context, params RedeemInviteParams) (models.Member, error)
}

type inviteRepository struct {
	db *sql.DB
}

func NewInviteRepository(db *sql.DB) InviteRepository {
	return &inviteRepository{db: db}
}

const inviteColumns = `id, account_id, email, token_hash, expires_at, used, created_by, created_at, updated_at`

func scanInvite(row *sql.Row) (models.Invite, error) {
	var (
		invite    models.Invite
		tokenHash sql.NullString
		expiresAt sql.NullTime
		createdBy sql.NullString
	)
	err := row.Scan(
		&invite.ID,
		&invite.AccountID,
		&invite.Email,
		&tokenHash,
		&expiresAt,
		&invite.Used,
		&createdBy,
		&invite.CreatedAt,
		&invite.UpdatedAt,
	)
	if err != nil {
		return models.Invite{}, err
	}
	if tokenHash.Valid {
		invite.TokenHash = &tokenHash.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		invite.ExpiresAt = &t
	}
	if createdBy.Valid {
		invite.CreatedBy = &createdBy.String
	}
	return invite, nil
}

func (r *inviteRepository) CreateInvite(ctx context.Context, invite models.Invite) (models.Invite, error) {
	const query = `
		INSERT INTO roster.invites (account_id, email, created_by)
		VALUES ($1, $2, $3)
		RETURNING ` + inviteColumns + `;
	`

	var createdBy interface{}
	if invite.CreatedBy != nil && *invite.CreatedBy != "" {
		createdBy = *invite.CreatedBy
	}

	return scanInvite(r.db.QueryRowContext(ctx, query, invite.AccountID, invite.Email, createdBy))
}

func (r *inviteRepository) GetInviteByID(ctx context.Context, inviteID string) (models.Invite, error) {
	const query = `
		SELECT ` + inviteColumns + `
		FROM roster.invites
		WHERE id = $1;
	`
	return scanInvite(r.db.QueryRowContext(ctx, query, inviteID))
}

func (r *inviteRepository) GetInviteByTokenHash(ctx context.Context, tokenHash string) (models.Invite, error) {
	const query = `
		SELECT ` + inviteColumns + `
		FROM roster.invites
		WHERE token_hash = $1;
	`
	return scanInvite(r.db.QueryRowContext(ctx, query, tokenHash))
}

func (r *inviteRepository) AttachToken(ctx context.Context, inviteID, tokenHash string, expiresAt time.Time) (bool, error) {
	const query = `
		UPDATE roster.invites
		SET token_hash = $2, expires_at = $3, updated_at = now()
		WHERE id = $1 AND token_hash IS NULL;
	`

	result, err := r.db.ExecContext(ctx, query, inviteID, tokenHash, expiresAt)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows > 0 {
		return true, nil
	}

	// Distinguish "already minted" from "no such invite".
	if _, err := r.GetInviteByID(ctx, inviteID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *inviteRepository) ListInvitesByAccount(ctx context.Context, accountID string) ([]models.Invite, error) {
	const query = `
		SELECT ` + inviteColumns + `
		FROM roster.invites
		WHERE account_id = $1
		ORDER BY created_at DESC;
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []models.Invite
	for rows.Next() {
		var (
			invite    models.Invite
			tokenHash sql.NullString
			expiresAt sql.NullTime
			createdBy sql.NullString
		)
		if err := rows.Scan(
			&invite.ID,
			&invite.AccountID,
			&invite.Email,
			&tokenHash,
			&expiresAt,
			&invite.Used,
			&createdBy,
			&invite.CreatedAt,
			&invite.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if tokenHash.Valid {
			invite.TokenHash = &tokenHash.String
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			invite.ExpiresAt = &t
		}
		if createdBy.Valid {
			invite.CreatedBy = &createdBy.String
		}
		invites = append(invites, invite)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return invites, nil
}

func (r *inviteRepository) CancelInvite(ctx context.Context, inviteID, accountID string) error {
	const query = `
		DELETE FROM roster.invites
		WHERE id = $1 AND account_id = $2 AND used = FALSE;
	`

	result, err := r.db.ExecContext(ctx, query, inviteID, accountID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *inviteRepository) RedeemInvite(ctx context.Context, params RedeemInviteParams) (models.Member, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Member{}, err
	}
	defer tx.Rollback()

	// Lock the invite row so racing redemptions serialize here.
	var (
		used      bool
		expiresAt sql.NullTime
	)
	err = tx.QueryRowContext(ctx, `
		SELECT used, expires_at
		FROM roster.invites
		WHERE id = $1
		FOR UPDATE;`, params.InviteID).Scan(&used, &expiresAt)
	if err != nil {
		return models.Member{}, err
	}
	if used {
		return models.Member{}, ErrInviteUsed
	}
	if !expiresAt.Valid || !time.Now().Before(expiresAt.Time) {
		return models.Member{}, ErrInviteExpired
	}

	var accountExists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM roster.accounts WHERE id = $1);`, params.AccountID).Scan(&accountExists)
	if err != nil {
		return models.Member{}, err
	}
	if !accountExists {
		return models.Member{}, ErrAccountNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO roster.users (id, account_id, role, email)
		VALUES ($1, $2, $3, $4);`,
		params.IdentityID, params.AccountID, models.RoleUser, params.Email)
	if err != nil {
		return models.Member{}, err
	}

	// Append-at-end policy: the new member takes the current roster size.
	var position int
	err = tx.QueryRowContext(ctx, `
		SELECT count(*) FROM roster.members WHERE account_id = $1;`, params.AccountID).Scan(&position)
	if err != nil {
		return models.Member{}, err
	}

	var member models.Member
	err = tx.QueryRowContext(ctx, `
		INSERT INTO roster.members (id, account_id, name, phone_number, status, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, account_id, name, phone_number, status, position, created_at, updated_at;`,
		params.IdentityID, params.AccountID, params.Name, params.PhoneNumber, models.StatusAvailable, position,
	).Scan(
		&member.ID,
		&member.AccountID,
		&member.Name,
		&member.PhoneNumber,
		&member.Status,
		&member.Position,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	if err != nil {
		return models.Member{}, err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE roster.invites
		SET used = TRUE, updated_at = now()
		WHERE id = $1 AND used = FALSE;`, params.InviteID)
	if err != nil {
		return models.Member{}, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return models.Member{}, err
	}
	if rows == 0 {
		return models.Member{}, ErrInviteUsed
	}

	if err := tx.Commit(); err != nil {
		return models.Member{}, err
	}

	return member, nil
}
