package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/DartonStaker/appapost/internal/ai"
	"github.com/DartonStaker/appapost/internal/dispatch"
	"github.com/DartonStaker/appapost/internal/policy"
	"github.com/DartonStaker/appapost/pkg/crypto"
)

func newEncryptor(t *testing.T) *crypto.FieldEncryptor {
	t.Helper()
	enc, err := crypto.DeriveFieldEncryptor([]byte("test-master-secret-0123456789abc"), "social-tokens")
	require.NoError(t, err)
	return enc
}

func TestAccountStoreGetActiveDecryptsTokens(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	enc := newEncryptor(t)
	encrypted, err := enc.Encrypt("plain-access-token")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, user_id, platform, access_token").
		WithArgs("user-1", "x").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "platform", "access_token", "refresh_token", "platform_account_id", "active", "connected_at",
		}).AddRow("acc-1", "user-1", "x", encrypted, nil, "12345", true, time.Now()))

	store := NewAccountStore(db, enc)
	acc, err := store.GetActive(context.Background(), "user-1", policy.X)
	require.NoError(t, err)
	require.Equal(t, "plain-access-token", acc.AccessToken)
	require.Equal(t, "12345", acc.PlatformAccountID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountStoreGetActiveNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, user_id, platform, access_token").
		WithArgs("user-1", "tiktok").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "platform", "access_token", "refresh_token", "platform_account_id", "active", "connected_at",
		}))

	store := NewAccountStore(db, newEncryptor(t))
	_, err = store.GetActive(context.Background(), "user-1", policy.TikTok)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountStoreSaveEncryptsBeforeWrite(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	tokenMatcher := sqlmock.AnyArg()
	mock.ExpectExec("INSERT INTO social_accounts").
		WithArgs("acc-1", "user-1", "x", tokenMatcher, tokenMatcher, "12345", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewAccountStore(db, newEncryptor(t))
	err = store.Save(context.Background(), Account{
		ID:                "acc-1",
		UserID:            "user-1",
		Platform:          policy.X,
		AccessToken:       "plain-token",
		RefreshToken:      "plain-refresh",
		PlatformAccountID: "12345",
		Active:            true,
		ConnectedAt:       time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptStoreRecordUpserts(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	postedAt := time.Now().UTC()
	mock.ExpectExec("INSERT INTO post_attempts").
		WithArgs(sqlmock.AnyArg(), "post-1", "x", "posted", "https://x.com/i/web/status/1", nil, sqlmock.AnyArg(), postedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewAttemptStore(db)
	err = store.Record(context.Background(), dispatch.PostAttempt{
		PostID:      "post-1",
		Platform:    policy.X,
		Status:      dispatch.StatusPosted,
		PostURL:     "https://x.com/i/web/status/1",
		ScheduledAt: time.Now(),
		PostedAt:    &postedAt,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantStoreSaveReplacesWithinTransaction(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM post_variants").
		WithArgs("post-1", "instagram").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO post_variants").
		WithArgs(sqlmock.AnyArg(), "post-1", "instagram", sqlmock.AnyArg(), true).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO post_variants").
		WithArgs(sqlmock.AnyArg(), "post-1", "instagram", sqlmock.AnyArg(), false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	store := NewVariantStore(db)
	err = store.Save(context.Background(), "post-1", policy.Instagram, []ai.Variant{
		{Text: "first", CharLimit: 2200},
		{Text: "second", CharLimit: 2200},
	}, 0)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
