package users

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/authmatrix/internal/common"
	"github.com/dmitrijs2005/authmatrix/internal/server/models"
)

// MemoryStore keeps records in a map. Contents are lost on restart.
type MemoryStore struct {
	mu     sync.Mutex
	users  map[string]models.User
	nextID int64
	now    func() time.Time
}

var _ CredentialStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]models.User), now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Email]; ok {
		return common.ErrorAlreadyExists
	}

	s.nextID++
	user.ID = strconv.FormatInt(s.nextID, 10)
	now := s.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	s.users[user.Email] = *user
	return nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (s *MemoryStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.users[email]
	return ok, nil
}

func (s *MemoryStore) Update(_ context.Context, email string, fn func(u *models.User) error) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return nil, common.ErrorNotFound
	}

	if err := fn(&u); err != nil {
		return nil, err
	}

	// key fields are fixed for the life of the record
	stored := s.users[email]
	u.ID, u.UserID, u.Email, u.CreatedAt = stored.ID, stored.UserID, stored.Email, stored.CreatedAt
	u.UpdatedAt = s.now().UTC()

	s.users[email] = u
	out := u
	return &out, nil
}
