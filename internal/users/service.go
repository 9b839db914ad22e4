package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/mnledger/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	FindByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CountAdministrators(ctx context.Context) (int, error)
}

// Service wraps account management and authentication rules.
type Service struct {
	repo RepositoryPort
	cost int
	now  func() time.Time
}

// NewService constructs a new Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, cost: bcrypt.DefaultCost, now: time.Now}
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (shared.Principal, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.Principal{}, shared.ErrInvalidCredentials
		}
		return shared.Principal{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return shared.Principal{}, shared.ErrInvalidCredentials
	}
	return shared.Principal{Username: user.Username, Role: user.Role}, nil
}

// Create adds an account. A taken username is a conflict.
func (s *Service) Create(ctx context.Context, actor string, input CreateInput) (User, error) {
	in := input.normalized()
	if verr := shared.ValidateStruct(in); !verr.Empty() {
		return User{}, verr
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	var created User
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err = tx.Insert(ctx, User{Username: in.Username, Role: in.Role, PasswordHash: string(hash)})
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, shared.Event{
			At:          s.now().UTC(),
			Actor:       actor,
			Action:      shared.ActionUserCreate,
			Description: fmt.Sprintf("Created new user '%s' with role '%s'.", in.Username, in.Role),
		})
	})
	if err != nil {
		return User{}, err
	}
	created.PasswordHash = ""
	return created, nil
}

// Delete removes an account other than the caller's own.
func (s *Service) Delete(ctx context.Context, actor, username string) error {
	if username == actor {
		return shared.NewValidationError("you cannot delete your own account")
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		deleted, err := tx.Delete(ctx, username)
		if err != nil {
			return err
		}
		if !deleted {
			return shared.NotFoundf("user %s", username)
		}
		return tx.AppendEvent(ctx, shared.Event{
			At:          s.now().UTC(),
			Actor:       actor,
			Action:      shared.ActionUserDelete,
			Description: fmt.Sprintf("Deleted user '%s'.", username),
		})
	})
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// EnsureAdmin creates the bootstrap administrator when no administrator
// exists. It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	n, err := s.repo.CountAdministrators(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	_, err = s.Create(ctx, "system", CreateInput{Username: username, Password: password, Role: shared.RoleAdministrator})
	if errors.Is(err, shared.ErrConflict) {
		return false, nil
	}
	return err == nil, err
}
