// Package users stores credential records keyed by email.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authmatrix/internal/common"
	"github.com/dmitrijs2005/authmatrix/internal/server/models"
)

// CredentialStore is the only owner of user records. Implementations must
// serialise Update calls for the same email.
type CredentialStore interface {
	// Create inserts user. A taken email yields common.ErrorAlreadyExists
	// and leaves the store untouched.
	Create(ctx context.Context, user *models.User) error

	// GetByEmail returns a copy of the record or common.ErrorNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Update applies fn to a private copy of the record and persists the
	// copy only if fn returns nil. The stored result is returned.
	Update(ctx context.Context, email string, fn func(u *models.User) error) (*models.User, error)
}

// Repository is the row-level access used by SQLStore. It is bound to a
// connection or a transaction by the repository manager.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByEmailForUpdate(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

const userColumns = `id, user_id, email, name, password_hash, is_account_verified,
		verify_otp, verify_otp_expire_at, reset_otp, reset_otp_expire_at,
		created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u         models.User
		verifyOtp sql.NullString
		resetOtp  sql.NullString
	)
	err := row.Scan(&u.ID, &u.UserID, &u.Email, &u.Name, &u.PasswordHash, &u.IsAccountVerified,
		&verifyOtp, &u.VerifyOtpExpireAt, &resetOtp, &u.ResetOtpExpireAt,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.VerifyOtp = verifyOtp.String
	u.ResetOtp = resetOtp.String
	return &u, nil
}

// nullString maps the empty code to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
