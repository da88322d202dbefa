package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/rosterline/roster-api/internal/models"
)

// ErrReorderMismatch is returned when a reorder request does not name exactly
// the account's current member ids.
var ErrReorderMismatch = errors.New("reorder list does not match roster")

type MemberRepository interface {
	ListMembersByAccount(ctx context.Context, accountID string) ([]models.Member, error)
	GetMemberByID(ctx context.Context, accountID, memberID string) (models.Member, error)
	// CreateMember appends a member at the end of the roster.
	CreateMember(ctx context.Context, accountID, name, phoneNumber string) (models.Member, error)
	UpdateMember(ctx context.Context, accountID, memberID, name, phoneNumber string) (models.Member, error)
	UpdateMemberStatus(ctx context.Context, accountID, memberID string, status models.MemberStatus) (models.Member, error)
	// DeleteMember removes a member and renumbers the remaining positions so
	// they stay dense 0..N-1.
	DeleteMember(ctx context.Context, accountID, memberID string) error
	// ReorderMembers rewrites every position in one transaction. orderedIDs
	// must contain exactly the account's member ids.
	ReorderMembers(ctx context.Context, accountID string, orderedIDs []string) error
}

type memberRepository struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) MemberRepository {
	return &memberRepository{db: db}
}

const memberColumns = `id, account_id, name, phone_number, status, position, created_at, updated_at`

func scanMember(row *sql.Row) (models.Member, error) {
	var member models.Member
	err := row.Scan(
		&member.ID,
		&member.AccountID,
		&member.Name,
		&member.PhoneNumber,
		&member.Status,
		&member.Position,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	return member, err
}

func (r *memberRepository) ListMembersByAccount(ctx context.Context, accountID string) ([]models.Member, error) {
	const query = `
		SELECT ` + memberColumns + `
		FROM roster.members
		WHERE account_id = $1
		ORDER BY position;
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var member models.Member
		if err := rows.Scan(
			&member.ID,
			&member.AccountID,
			&member.Name,
			&member.PhoneNumber,
			&member.Status,
			&member.Position,
			&member.CreatedAt,
			&member.UpdatedAt,
		); err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return members, nil
}

func (r *memberRepository) GetMemberByID(ctx context.Context, accountID, memberID string) (models.Member, error) {
	const query = `
		SELECT ` + memberColumns + `
		FROM roster.members
		WHERE id = $1 AND account_id = $2;
	`
	return scanMember(r.db.QueryRowContext(ctx, query, memberID, accountID))
}

func (r *memberRepository) CreateMember(ctx context.Context, accountID, name, phoneNumber string) (models.Member, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Member{}, err
	}
	defer tx.Rollback()

	var position int
	err = tx.QueryRowContext(ctx, `
		SELECT count(*) FROM roster.members WHERE account_id = $1;`, accountID).Scan(&position)
	if err != nil {
		return models.Member{}, err
	}

	var member models.Member
	err = tx.QueryRowContext(ctx, `
		INSERT INTO roster.members (id, account_id, name, phone_number, status, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+memberColumns+`;`,
		uuid.NewString(), accountID, name, phoneNumber, models.StatusAvailable, position,
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

	if err := tx.Commit(); err != nil {
		return models.Member{}, err
	}
	return member, nil
}

func (r *memberRepository) UpdateMember(ctx context.Context, accountID, memberID, name, phoneNumber string) (models.Member, error) {
	const query = `
		UPDATE roster.members
		SET name = $3, phone_number = $4, updated_at = now()
		WHERE id = $1 AND account_id = $2
		RETURNING ` + memberColumns + `;
	`
	return scanMember(r.db.QueryRowContext(ctx, query, memberID, accountID, name, phoneNumber))
}

func (r *memberRepository) UpdateMemberStatus(ctx context.Context, accountID, memberID string, status models.MemberStatus) (models.Member, error) {
	const query = `
		UPDATE roster.members
		SET status = $3, updated_at = now()
		WHERE id = $1 AND account_id = $2
		RETURNING ` + memberColumns + `;
	`
	return scanMember(r.db.QueryRowContext(ctx, query, memberID, accountID, status))
}

func (r *memberRepository) DeleteMember(ctx context.Context, accountID, memberID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SET CONSTRAINTS roster.members_account_position_key DEFERRED;`); err != nil {
		return err
	}

	var position int
	err = tx.QueryRowContext(ctx, `
		SELECT position FROM roster.members
		WHERE id = $1 AND account_id = $2
		FOR UPDATE;`, memberID, accountID).Scan(&position)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM roster.members WHERE id = $1 AND account_id = $2;`, memberID, accountID); err != nil {
		return err
	}

	// Close the gap so positions stay contiguous.
	if _, err := tx.ExecContext(ctx, `
		UPDATE roster.members
		SET position = position - 1, updated_at = now()
		WHERE account_id = $1 AND position > $2;`, accountID, position); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *memberRepository) ReorderMembers(ctx context.Context, accountID string, orderedIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SET CONSTRAINTS roster.members_account_position_key DEFERRED;`); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM roster.members
		WHERE account_id = $1
		FOR UPDATE;`, accountID)
	if err != nil {
		return err
	}
	current := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		current[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(orderedIDs) != len(current) {
		return ErrReorderMismatch
	}
	for _, id := range orderedIDs {
		if !current[id] {
			return ErrReorderMismatch
		}
		delete(current, id)
	}

	for idx, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE roster.members
			SET position = $3, updated_at = now()
			WHERE id = $1 AND account_id = $2;`, id, accountID, idx); err != nil {
			return err
		}
	}

	return tx.Commit()
}
