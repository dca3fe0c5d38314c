package services

import (
	"context"
	"errors"
	"strings"

	"github.com/itparc/inventory/internal/auth"
	"github.com/itparc/inventory/internal/store"
	"github.com/itparc/inventory/types"
)

// NewUser is the input for creating an account, either through registration
// or by an administrator. An empty Role means RoleUser.
type NewUser struct {
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Role      types.Role `json:"role"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
}

// UserUpdate is a partial update. Empty Username, Email, Role and Password
// keep the stored values. A nil FirstName or LastName keeps the stored value
// while an empty string clears it.
type UserUpdate struct {
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Role      types.Role `json:"role"`
	FirstName *string    `json:"firstName"`
	LastName  *string    `json:"lastName"`
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo   UserRepository
	creds  *auth.Credentials
	events EventPublisher
}

func NewUserService(repo UserRepository, creds *auth.Credentials, events EventPublisher) *UserService {
	return &UserService{repo: repo, creds: creds, events: publisherOrNop(events)}
}

// List returns every account, newest first, without password hashes.
func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, notFound("user")
		}
		return types.User{}, err
	}
	return user.Sanitized(), nil
}

// Create registers a new account. actorID is the administrator creating it,
// or 0 for self-registration.
func (s *UserService) Create(ctx context.Context, actorID int, in NewUser) (types.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return types.User{}, invalid("username, email and password are required")
	}
	if err := checkPassword(in.Password); err != nil {
		return types.User{}, err
	}
	if in.Role == "" {
		in.Role = types.RoleUser
	}
	if !in.Role.Valid() {
		return types.User{}, invalid("role must be %q or %q", types.RoleAdmin, types.RoleUser)
	}

	_, err := s.repo.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	switch {
	case err == nil:
		return types.User{}, ErrDuplicateUser
	case !errors.Is(err, store.ErrNotFound):
		return types.User{}, err
	}

	hash, err := s.creds.HashSecret(in.Password)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     in.Username,
		Email:        in.Email,
		Role:         in.Role,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrDuplicateUser
		}
		return types.User{}, err
	}

	user = user.Sanitized()
	s.events.Publish(ctx, types.EventUserCreated, actorID, user.ID, user)
	return user, nil
}

func (s *UserService) Update(ctx context.Context, actorID, id int, in UserUpdate) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, notFound("user")
		}
		return types.User{}, err
	}

	username := strings.TrimSpace(in.Username)
	if username != "" && username != user.Username {
		existing, err := s.repo.GetByUsername(ctx, username)
		switch {
		case err == nil && existing.ID != user.ID:
			return types.User{}, withMessage(ErrDuplicateUser, "username already taken")
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return types.User{}, err
		}
		user.Username = username
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		user.Email = email
	}
	if in.Role != "" {
		if !in.Role.Valid() {
			return types.User{}, invalid("role must be %q or %q", types.RoleAdmin, types.RoleUser)
		}
		if user.IsAdmin() && in.Role != types.RoleAdmin {
			if err := s.ensureOtherAdmin(ctx); err != nil {
				if errors.Is(err, ErrLastAdmin) {
					err = withMessage(ErrLastAdmin, "cannot demote the last administrator")
				}
				return types.User{}, err
			}
		}
		user.Role = in.Role
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Password != "" {
		if err := checkPassword(in.Password); err != nil {
			return types.User{}, err
		}
		hash, err := s.creds.HashSecret(in.Password)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = hash
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return types.User{}, ErrDuplicateUser
		case errors.Is(err, store.ErrNotFound):
			return types.User{}, notFound("user")
		}
		return types.User{}, err
	}

	updated = updated.Sanitized()
	s.events.Publish(ctx, types.EventUserUpdated, actorID, updated.ID, updated)
	return updated, nil
}

// Delete removes the account id on behalf of actor. The last administrator
// and the caller's own account are protected, checked in that order.
func (s *UserService) Delete(ctx context.Context, actor types.User, id int) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("user")
		}
		return err
	}

	if user.IsAdmin() {
		if err := s.ensureOtherAdmin(ctx); err != nil {
			return err
		}
	}
	if user.ID == actor.ID {
		return ErrSelfDelete
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("user")
		}
		return err
	}

	s.events.Publish(ctx, types.EventUserDeleted, actor.ID, id, nil)
	return nil
}

// ensureOtherAdmin fails with ErrLastAdmin unless at least two
// administrators exist.
func (s *UserService) ensureOtherAdmin(ctx context.Context) error {
	admins, err := s.repo.CountByRole(ctx, types.RoleAdmin)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func checkPassword(password string) error {
	if len(password) > auth.MaxSecretLength {
		return invalid("password must be at most %d bytes", auth.MaxSecretLength)
	}
	return nil
}
