package repository

import (
	"context"
	"database/sql"

	"github.com/rosterline/roster-api/internal/models"
)

type UserRepository interface {
	GetUserByID(ctx context.Context, userID string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsersByAccount(ctx context.Context, accountID string) ([]models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, account_id, role, email, created_at`

func scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.AccountID, &user.Role, &user.Email, &user.CreatedAt)
	return user, err
}

func (u *userRepository) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM roster.users
		WHERE id = $1;
	`
	return scanUser(u.db.QueryRowContext(ctx, query, userID))
}

func (u *userRepository) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM roster.users
		WHERE email = $1;
	`
	return scanUser(u.db.QueryRowContext(ctx, query, email))
}

func (u *userRepository) ListUsersByAccount(ctx context.Context, accountID string) ([]models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM roster.users
		WHERE account_id = $1
		ORDER BY email;
	`

	rows, err := u.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.AccountID, &user.Role, &user.Email, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}
