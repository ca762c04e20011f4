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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (user_id, email, name, password_hash, is_account_verified,
		 verify_otp, verify_otp_expire_at, reset_otp, reset_otp_expire_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
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

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// GetByEmailForUpdate locks the row until the surrounding transaction ends.
func (r *PostgresRepository) GetByEmailForUpdate(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 FOR UPDATE`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users SET name = $1, password_hash = $2, is_account_verified = $3,
		 verify_otp = $4, verify_otp_expire_at = $5, reset_otp = $6, reset_otp_expire_at = $7,
		 updated_at = $8
		 WHERE id = $9`

	res, err := r.db.ExecContext(ctx, query,
		user.Name, user.PasswordHash, user.IsAccountVerified,
		nullString(user.VerifyOtp), user.VerifyOtpExpireAt, nullString(user.ResetOtp), user.ResetOtpExpireAt,
		user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
