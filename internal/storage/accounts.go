package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"slotsniper/internal/automation"
	"slotsniper/internal/vault"
	"slotsniper/libs/db"
)

// AccountInfo is the listable view of a stored account. Secrets never leave
// the store unsealed except through Credentials.
type AccountInfo struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Identity  string    `json:"identity"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Accounts stores remote credentials with secrets sealed by the vault.
type Accounts struct {
	q     querier
	vault *vault.Vault
}

func NewAccounts(pool *db.Pool, v *vault.Vault) *Accounts {
	return &Accounts{q: pool, vault: v}
}

func (a *Accounts) Create(ctx context.Context, name, identity, secret string) (int64, error) {
	sealed, err := a.vault.Seal([]byte(secret))
	if err != nil {
		return 0, fmt.Errorf("storage: seal account secret: %w", err)
	}
	var id int64
	err = a.q.QueryRow(ctx, `
		INSERT INTO accounts (name, identity, sealed_secret)
		VALUES ($1, $2, $3)
		RETURNING id`,
		name, identity, sealed).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("storage: create account: %w", err)
	}
	return id, nil
}

// Credentials unseals the account's secret for a login. Only active accounts
// can be used.
func (a *Accounts) Credentials(ctx context.Context, id int64) (automation.Credentials, error) {
	var identity string
	var sealed []byte
	err := a.q.QueryRow(ctx, `
		SELECT identity, sealed_secret FROM accounts
		WHERE id = $1 AND active`, id).Scan(&identity, &sealed)
	if errors.Is(err, pgx.ErrNoRows) {
		return automation.Credentials{}, ErrNotFound
	}
	if err != nil {
		return automation.Credentials{}, fmt.Errorf("storage: load account: %w", err)
	}

	secret, err := a.vault.Open(sealed)
	if err != nil {
		return automation.Credentials{}, fmt.Errorf("storage: unseal account %d: %w", id, err)
	}
	return automation.Credentials{Identity: identity, Secret: string(secret)}, nil
}

func (a *Accounts) List(ctx context.Context) ([]AccountInfo, error) {
	rows, err := a.q.Query(ctx, `
		SELECT id, name, identity, active, created_at
		FROM accounts
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("storage: list accounts: %w", err)
	}
	defer rows.Close()

	var out []AccountInfo
	for rows.Next() {
		var info AccountInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Identity, &info.Active, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan account: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Deactivate blocks further logins with the account without destroying its
// booking history.
func (a *Accounts) Deactivate(ctx context.Context, id int64) error {
	tag, err := a.q.Exec(ctx, `
		UPDATE accounts SET active = FALSE, updated_at = now()
		WHERE id = $1 AND active`, id)
	if err != nil {
		return fmt.Errorf("storage: deactivate account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Provider adapts a stored account to the automation credential interface.
func (a *Accounts) Provider(id int64) automation.CredentialProvider {
	return accountProvider{accounts: a, id: id}
}

type accountProvider struct {
	accounts *Accounts
	id       int64
}

func (p accountProvider) Get(ctx context.Context) (automation.Credentials, error) {
	return p.accounts.Credentials(ctx, p.id)
}
