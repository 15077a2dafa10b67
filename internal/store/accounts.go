package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DartonStaker/appapost/internal/policy"
	"github.com/DartonStaker/appapost/pkg/crypto"
)

// ErrAccountNotFound means the user has no active linked account for
// the platform.
var ErrAccountNotFound = errors.New("no active account for platform")

// Account is one linked social account. Token fields are decrypted on
// read; the database only ever holds ciphertext.
type Account struct {
	ID                string
	UserID            string
	Platform          policy.Platform
	AccessToken       string
	RefreshToken      string
	PlatformAccountID string
	Active            bool
	ConnectedAt       time.Time
}

// AccountStore reads and writes linked accounts with tokens encrypted
// at rest.
type AccountStore struct {
	db        *sql.DB
	encryptor *crypto.FieldEncryptor
}

func NewAccountStore(db *sql.DB, encryptor *crypto.FieldEncryptor) *AccountStore {
	return &AccountStore{db: db, encryptor: encryptor}
}

// GetActive returns the decrypted token bundle for a user's active
// account on a platform.
func (s *AccountStore) GetActive(ctx context.Context, userID string, platform policy.Platform) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, platform, access_token, refresh_token, platform_account_id, active, connected_at
		FROM social_accounts
		WHERE user_id = $1 AND platform = $2 AND active = true
		ORDER BY connected_at DESC
		LIMIT 1`, userID, string(platform))

	var acc Account
	var platformName string
	var refreshToken, platformAccountID sql.NullString
	err := row.Scan(&acc.ID, &acc.UserID, &platformName, &acc.AccessToken, &refreshToken, &platformAccountID, &acc.Active, &acc.ConnectedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}

	p, ok := policy.Normalize(platformName)
	if !ok {
		return nil, fmt.Errorf("account %s has unknown platform %q", acc.ID, platformName)
	}
	acc.Platform = p
	acc.RefreshToken = refreshToken.String
	acc.PlatformAccountID = platformAccountID.String

	if acc.AccessToken, err = s.encryptor.Decrypt(acc.AccessToken); err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	if acc.RefreshToken != "" {
		if acc.RefreshToken, err = s.encryptor.Decrypt(acc.RefreshToken); err != nil {
			return nil, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}
	return &acc, nil
}

// Save upserts a linked account, encrypting tokens before they touch
// the database.
func (s *AccountStore) Save(ctx context.Context, acc Account) error {
	accessToken, err := s.encryptor.Encrypt(acc.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	refreshToken := ""
	if acc.RefreshToken != "" {
		if refreshToken, err = s.encryptor.Encrypt(acc.RefreshToken); err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO social_accounts (id, user_id, platform, access_token, refresh_token, platform_account_id, active, connected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			platform_account_id = EXCLUDED.platform_account_id,
			active = EXCLUDED.active,
			connected_at = EXCLUDED.connected_at`,
		acc.ID, acc.UserID, string(acc.Platform), accessToken, nullable(refreshToken), nullable(acc.PlatformAccountID), acc.Active, acc.ConnectedAt)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// Deactivate marks an account disconnected without deleting history.
func (s *AccountStore) Deactivate(ctx context.Context, userID string, platform policy.Platform) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE social_accounts SET active = false WHERE user_id = $1 AND platform = $2`,
		userID, string(platform))
	if err != nil {
		return fmt.Errorf("deactivate account: %w", err)
	}
	return nil
}

func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
