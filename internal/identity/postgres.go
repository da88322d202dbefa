package identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// PostgresProvider keeps identities in the roster.identities table with
// bcrypt password hashes.
type PostgresProvider struct {
	db *sql.DB
}

func NewPostgresProvider(db *sql.DB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

func (p *PostgresProvider) CreateIdentity(ctx context.Context, email, password string) (Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return Identity{}, errors.New("invalid email")
	}
	if password == "" {
		return Identity{}, errors.New("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, err
	}

	const query = `
		INSERT INTO roster.identities (email, password_hash)
		VALUES ($1, $2)
		RETURNING id;
	`

	var id string
	if err := p.db.QueryRowContext(ctx, query, email, string(hash)).Scan(&id); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return Identity{}, ErrEmailTaken
		}
		return Identity{}, err
	}

	return Identity{ID: id, Email: email}, nil
}

func (p *PostgresProvider) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	const query = `
		SELECT id, password_hash
		FROM roster.identities
		WHERE email = $1;
	`

	var (
		id   string
		hash string
	)
	err := p.db.QueryRowContext(ctx, query, email).Scan(&id, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}

	return Identity{ID: id, Email: email}, nil
}
