package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rosterline/roster-api/internal/models"
)

// BootstrapAccountParams describes the initial account creation: the account
// itself, the creator's admin user record, and the first roster member at
// position 0, written in one transaction.
type BootstrapAccountParams struct {
	Name          string
	CreatedBy     string
	CreatorEmail  string
	AdminName     string
	AdminPhone    string
	RoutingNumber string
}

type AccountRepository interface {
	BootstrapAccount(ctx context.Context, params BootstrapAccountParams) (models.Account, error)
	GetAccountByID(ctx context.Context, id string) (models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	UpdateAccountSettings(ctx context.Context, id, routingNumber string, maxRetries int) (models.Account, error)
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, name, routing_number, max_retries, created_by, created_at, updated_at`

func scanAccount(row *sql.Row) (models.Account, error) {
	var (
		account       models.Account
		routingNumber sql.NullString
	)
	err := row.Scan(
		&account.ID,
		&account.Name,
		&routingNumber,
		&account.MaxRetries,
		&account.CreatedBy,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return models.Account{}, err
	}
	account.RoutingNumber = routingNumber.String
	return account, nil
}

func (r *accountRepository) BootstrapAccount(ctx context.Context, params BootstrapAccountParams) (models.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Account{}, err
	}
	defer tx.Rollback()

	var routingNumber interface{}
	if params.RoutingNumber != "" {
		routingNumber = params.RoutingNumber
	}

	var account models.Account
	var nullRouting sql.NullString
	err = tx.QueryRowContext(ctx, `
		INSERT INTO roster.accounts (name, routing_number, max_retries, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING `+accountColumns+`;`,
		params.Name, routingNumber, models.DefaultMaxRetries, params.CreatedBy,
	).Scan(
		&account.ID,
		&account.Name,
		&nullRouting,
		&account.MaxRetries,
		&account.CreatedBy,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return models.Account{}, err
	}
	account.RoutingNumber = nullRouting.String

	_, err = tx.ExecContext(ctx, `
		INSERT INTO roster.users (id, account_id, role, email)
		VALUES ($1, $2, $3, $4);`,
		params.CreatedBy, account.ID, models.RoleAdmin, params.CreatorEmail)
	if err != nil {
		return models.Account{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO roster.members (id, account_id, name, phone_number, status, position)
		VALUES ($1, $2, $3, $4, $5, 0);`,
		uuid.NewString(), account.ID, params.AdminName, params.AdminPhone, models.StatusAvailable)
	if err != nil {
		return models.Account{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Account{}, err
	}
	return account, nil
}

func (r *accountRepository) GetAccountByID(ctx context.Context, id string) (models.Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM roster.accounts
		WHERE id = $1;
	`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *accountRepository) ListAccounts(ctx context.Context) ([]models.Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM roster.accounts
		ORDER BY created_at;
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var (
			account       models.Account
			routingNumber sql.NullString
		)
		if err := rows.Scan(
			&account.ID,
			&account.Name,
			&routingNumber,
			&account.MaxRetries,
			&account.CreatedBy,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, err
		}
		account.RoutingNumber = routingNumber.String
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (r *accountRepository) UpdateAccountSettings(ctx context.Context, id, routingNumber string, maxRetries int) (models.Account, error) {
	const query = `
		UPDATE roster.accounts
		SET routing_number = $2, max_retries = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + accountColumns + `;
	`

	var routing interface{}
	if routingNumber != "" {
		routing = routingNumber
	}
	return scanAccount(r.db.QueryRowContext(ctx, query, id, routing, maxRetries))
}
