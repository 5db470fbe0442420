package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/idkeeper/internal/common"
	"github.com/dmitrijs2005/idkeeper/internal/cryptox"
	"github.com/dmitrijs2005/idkeeper/internal/dbx"
	"github.com/dmitrijs2005/idkeeper/internal/logging"
	"github.com/dmitrijs2005/idkeeper/internal/server/auth"
	"github.com/dmitrijs2005/idkeeper/internal/server/locks"
	"github.com/dmitrijs2005/idkeeper/internal/server/models"
	"github.com/dmitrijs2005/idkeeper/internal/server/repositories/repomanager"
)

// maxIssueAttempts bounds the compare-and-swap retries in Issue.
const maxIssueAttempts = 5

// ResetLedger keeps at most one live password reset token per identity.
// The token itself is the pointer stored on the user row: issuing a new one
// supersedes the previous, and consuming clears it together with the
// password change.
type ResetLedger struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *auth.Codec
	hasher      *cryptox.Hasher
	locker      locks.Locker
	ttl         time.Duration
	logger      logging.Logger
}

func NewResetLedger(db *sql.DB, m repomanager.RepositoryManager, codec *auth.Codec, hasher *cryptox.Hasher,
	locker locks.Locker, ttl time.Duration, logger logging.Logger) *ResetLedger {
	return &ResetLedger{
		db:          db,
		repomanager: m,
		codec:       codec,
		hasher:      hasher,
		locker:      locker,
		ttl:         ttl,
		logger:      logger.With("module", "reset_ledger"),
	}
}

// TTL is the lifetime of issued reset tokens.
func (l *ResetLedger) TTL() time.Duration {
	return l.ttl
}

// Issue signs a reset token for user and makes it the only valid one.
// Reset tokens carry no roles, so they never pass a role-gated check.
func (l *ResetLedger) Issue(ctx context.Context, user *models.User) (string, error) {
	unlock, err := l.locker.Lock(ctx, user.ID)
	if err != nil {
		return "", storeErr(fmt.Errorf("lock: %w", err))
	}
	defer unlock()

	repo := l.repomanager.Users(l.db)
	expected := user.ResetToken

	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		token, err := l.codec.Sign(user.ID, user.UserName, nil, l.ttl)
		if err != nil {
			return "", fmt.Errorf("sign reset token: %w", err)
		}

		err = repo.SetResetToken(ctx, user.ID, expected, token)
		if err == nil {
			user.ResetToken = token
			return token, nil
		}
		if !errors.Is(err, common.ErrConflict) {
			return "", storeErr(err)
		}

		// someone else moved the pointer; re-read and supersede it
		l.logger.Warn(ctx, "Reset pointer changed concurrently, retrying", "user_id", user.ID, "attempt", attempt)
		fresh, err := repo.FindByID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return "", common.ErrUserNotFound
			}
			return "", storeErr(err)
		}
		expected = fresh.ResetToken
	}
	return "", storeErr(errors.New("reset pointer kept changing"))
}

// Consume verifies token, checks it is still the stored pointer and, in one
// transaction, replaces the password, clears the pointer and records the
// event. Token verification errors are returned as they are; a token that
// is no longer the pointer yields common.ErrTokenAlreadyUsed.
func (l *ResetLedger) Consume(ctx context.Context, token string, newPassword []byte) (*models.User, error) {
	claims, err := l.codec.Verify(token)
	if err != nil {
		return nil, err
	}

	unlock, err := l.locker.Lock(ctx, claims.Subject)
	if err != nil {
		return nil, storeErr(fmt.Errorf("lock: %w", err))
	}
	defer unlock()

	user, err := l.repomanager.Users(l.db).FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, storeErr(err)
	}

	if subtle.ConstantTimeCompare([]byte(user.ResetToken), []byte(token)) != 1 {
		return nil, common.ErrTokenAlreadyUsed
	}

	hash, salt, err := l.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	err = dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := l.repomanager.Users(tx).ResetPassword(ctx, user.ID, token, hash, salt); err != nil {
			return err
		}
		return l.repomanager.Activity(tx).Append(ctx, &models.Activity{
			UserID:   user.ID,
			UserName: user.UserName,
			Event:    models.EventPasswordReset,
		})
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.ErrTokenAlreadyUsed
		}
		return nil, storeErr(err)
	}

	user.PasswordHash = hash
	user.PasswordSalt = salt
	user.ResetToken = ""
	return user, nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
}
