package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authmatrix/internal/common"
	"github.com/dmitrijs2005/authmatrix/internal/dbx"
	"github.com/dmitrijs2005/authmatrix/internal/server/models"
)

// SQLiteRepository has no row locks; SQLStore gets per-email serialisation
// from a single-connection pool instead.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (user_id, email, name, password_hash, is_account_verified,
		 verify_otp, verify_otp_expire_at, reset_otp, reset_otp_expire_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO NOTHING
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		user.UserID, user.Email, user.Name, user.PasswordHash, user.IsAccountVerified,
		nullString(user.VerifyOtp), user.VerifyOtpExpireAt, nullString(user.ResetOtp), user.ResetOtpExpireAt,
		user.CreatedAt, user.UpdatedAt).Scan(&user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *SQLiteRepository) GetByEmailForUpdate(ctx context.Context, email string) (*models.User, error) {
	return r.GetByEmail(ctx, email)
}

func (r *SQLiteRepository) Update(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users SET name = ?, password_hash = ?, is_account_verified = ?,
		 verify_otp = ?, verify_otp_expire_at = ?, reset_otp = ?, reset_otp_expire_at = ?,
		 updated_at = ?
		 WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query,
		user.Name, user.PasswordHash, user.IsAccountVerified,
		nullString(user.VerifyOtp), user.VerifyOtpExpireAt, nullString(user.ResetOtp), user.ResetOtpExpireAt,
		user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkAffected(res)
}
