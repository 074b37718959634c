package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/devilmonastery/bnetsso/internal/domain/entities"
	"github.com/devilmonastery/bnetsso/internal/domain/repositories"
	"github.com/devilmonastery/bnetsso/internal/pkg/idgen"
	"github.com/devilmonastery/bnetsso/internal/pkg/metrics"
)

// UserRepository is an in-memory repositories.UserRepository for
// development and tests. Userslug and email uniqueness are enforced
// the same way the PostgreSQL schema does.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*entities.User
}

// NewUserRepository creates an empty in-memory user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*entities.User)}
}

func cloneUser(u *entities.User) *entities.User {
	c := *u
	if u.BattleNetID != nil {
		v := *u.BattleNetID
		c.BattleNetID = &v
	}
	if u.BattleTag != nil {
		v := *u.BattleTag
		c.BattleTag = &v
	}
	if u.Characters != nil {
		c.Characters = append([]byte(nil), u.Characters...)
	}
	return &c
}

// conflicts reports whether another account holds slug or email. Caller holds mu.
func (r *UserRepository) conflicts(id, slug, email string) bool {
	email = strings.ToLower(email)
	for _, u := range r.users {
		if u.ID == id {
			continue
		}
		if u.UserSlug == slug {
			return true
		}
		if email != "" && strings.ToLower(u.Email) == email {
			return true
		}
	}
	return false
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	start := time.Now()
	var err error
	defer func() {
		metrics.RecordDBOperation("memory_user", "create", time.Since(start), 1, err)
	}()

	if user.ID == "" {
		user.ID = idgen.GenerateID()
	}
	if user.Role == "" {
		user.Role = entities.RoleUser
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok || r.conflicts(user.ID, user.UserSlug, user.Email) {
		err = fmt.Errorf("create user %s: %w", user.UserSlug, repositories.ErrDuplicateUser)
		return err
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = cloneUser(user)
	return nil
}

// GetByID retrieves a user by their ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

// SetProviderFields overwrites the Battle.net fields on an account
func (r *UserRepository) SetProviderFields(ctx context.Context, id string, fields entities.ProviderFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	bnetID, tag := fields.BattleNetID, fields.BattleTag
	u.BattleNetID = &bnetID
	u.BattleTag = &tag
	u.Characters = append([]byte(nil), fields.Characters...)
	u.UpdatedAt = time.Now()
	return nil
}

// SetUsernameAndEmail writes the registration fields atomically
func (r *UserRepository) SetUsernameAndEmail(ctx context.Context, id, username, userslug, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	if r.conflicts(id, userslug, email) {
		return fmt.Errorf("update user %s: %w", id, repositories.ErrDuplicateUser)
	}
	u.Username = username
	u.UserSlug = userslug
	u.Email = email
	u.UpdatedAt = time.Now()
	return nil
}

// SetRole changes an account's role
func (r *UserRepository) SetRole(ctx context.Context, id string, role entities.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.Role = role
	return nil
}

// ExistsBySlug checks if a userslug is in use
func (r *UserRepository) ExistsBySlug(ctx context.Context, userslug string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.UserSlug == userslug {
			return true, nil
		}
	}
	return false, nil
}

// EmailAvailable reports whether no account uses the email
func (r *UserRepository) EmailAvailable(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email != "" && strings.ToLower(u.Email) == email {
			return false, nil
		}
	}
	return true, nil
}

// Len returns the number of stored accounts
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
