package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/authmatrix/internal/common"
	"github.com/dmitrijs2005/authmatrix/internal/dbx"
	"github.com/dmitrijs2005/authmatrix/internal/server/models"
)

// SQLStore is a CredentialStore over a Repository. Updates run in one
// transaction that reads the row for update, applies the callback and
// writes it back.
type SQLStore struct {
	db    *sql.DB
	repos func(db dbx.DBTX) Repository
	now   func() time.Time
}

var _ CredentialStore = (*SQLStore)(nil)

func NewSQLStore(db *sql.DB, repos func(db dbx.DBTX) Repository) *SQLStore {
	return &SQLStore{db: db, repos: repos, now: time.Now}
}

func (s *SQLStore) Create(ctx context.Context, user *models.User) error {
	now := s.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := s.repos(s.db).Create(ctx, user)
	return err
}

func (s *SQLStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repos(s.db).GetByEmail(ctx, email)
}

func (s *SQLStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.repos(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *SQLStore) Update(ctx context.Context, email string, fn func(u *models.User) error) (*models.User, error) {
	return dbx.InTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.User, error) {
		repo := s.repos(tx)

		stored, err := repo.GetByEmailForUpdate(ctx, email)
		if err != nil {
			return nil, err
		}

		u := *stored
		if err := fn(&u); err != nil {
			return nil, err
		}
		u.ID, u.UserID, u.Email, u.CreatedAt = stored.ID, stored.UserID, stored.Email, stored.CreatedAt
		u.UpdatedAt = s.now().UTC()

		if err := repo.Update(ctx, &u); err != nil {
			return nil, err
		}
		return &u, nil
	})
}
