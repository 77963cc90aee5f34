package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"quill/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	updateFn        func(context.Context, *models.User) error
	touchFn         func(context.Context, uint, time.Time) error
	listFn          func(context.Context, int, int) ([]models.User, error)
	listByRoleFn    func(context.Context, uint) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) Touch(ctx context.Context, id uint, at time.Time) error {
	return s.touchFn(ctx, id, at)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *userRepoStub) ListByRole(ctx context.Context, roleID uint) ([]models.User, error) {
	return s.listByRoleFn(ctx, roleID)
}

// memUsers is a userRepoStub backed by a slice, enough for the account flows.
func memUsers(initial ...*models.User) *userRepoStub {
	users := append([]*models.User(nil), initial...)
	find := func(match func(*models.User) bool) *models.User {
		for _, u := range users {
			if match(u) {
				return u
			}
		}
		return nil
	}
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			if u := find(func(u *models.User) bool { return u.ID == id }); u != nil {
				return u, nil
			}
			return nil, models.NewNotFoundError("User", id)
		},
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			return find(func(u *models.User) bool { return u.Email == email }), nil
		},
		getByUsernameFn: func(_ context.Context, username string) (*models.User, error) {
			return find(func(u *models.User) bool { return u.Username == username }), nil
		},
		createFn: func(_ context.Context, user *models.User) error {
			if find(func(u *models.User) bool { return u.Email == user.Email }) != nil {
				return models.NewConflictError("Email already registered.")
			}
			user.ID = uint(len(users) + 1)
			users = append(users, user)
			return nil
		},
		updateFn: func(context.Context, *models.User) error { return nil },
		touchFn:  func(context.Context, uint, time.Time) error { return nil },
		listFn: func(context.Context, int, int) ([]models.User, error) {
			return nil, nil
		},
		listByRoleFn: func(context.Context, uint) ([]models.User, error) { return nil, nil },
	}
}

type roleRepoStub struct {
	roles []models.Role
}

func standardRoles() *roleRepoStub {
	s := &roleRepoStub{}
	for i, def := range models.RoleDefinitions {
		s.roles = append(s.roles, models.Role{ID: uint(i + 1), Name: def.Name, Permissions: def.Permissions, Default: def.Default})
	}
	return s
}

func (s *roleRepoStub) find(match func(models.Role) bool) *models.Role {
	for i := range s.roles {
		if match(s.roles[i]) {
			r := s.roles[i]
			return &r
		}
	}
	return nil
}

func (s *roleRepoStub) GetByID(_ context.Context, id uint) (*models.Role, error) {
	if r := s.find(func(r models.Role) bool { return r.ID == id }); r != nil {
		return r, nil
	}
	return nil, models.NewNotFoundError("Role", id)
}
func (s *roleRepoStub) GetDefault(context.Context) (*models.Role, error) {
	return s.find(func(r models.Role) bool { return r.Default }), nil
}
func (s *roleRepoStub) GetByName(_ context.Context, name string) (*models.Role, error) {
	return s.find(func(r models.Role) bool { return r.Name == name }), nil
}
func (s *roleRepoStub) GetByPermissions(_ context.Context, p models.Permission) (*models.Role, error) {
	return s.find(func(r models.Role) bool { return r.Permissions == p }), nil
}
func (s *roleRepoStub) List(context.Context) ([]models.Role, error) {
	return s.roles, nil
}

type postRepoStub struct {
	createFn       func(context.Context, *models.Post) error
	listFn         func(context.Context, int, int) ([]*models.Post, error)
	listByAuthorFn func(context.Context, uint, int, int) ([]*models.Post, error)
	countFn        func(context.Context) (int64, error)
	countByAuthor  func(context.Context, uint) (int64, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]*models.Post, error) {
	return s.listByAuthorFn(ctx, authorID, limit, offset)
}
func (s *postRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}
func (s *postRepoStub) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	return s.countByAuthor(ctx, authorID)
}

type sentToken struct {
	to    string
	token string
}

type notifierStub struct {
	confirmations []sentToken
	resets        []sentToken
	emailChanges  []sentToken
	newUsers      []string
	err           error
}

func (n *notifierStub) SendConfirmation(_ context.Context, u *models.User, token string) error {
	n.confirmations = append(n.confirmations, sentToken{to: u.Email, token: token})
	return n.err
}
func (n *notifierStub) SendPasswordReset(_ context.Context, u *models.User, token string) error {
	n.resets = append(n.resets, sentToken{to: u.Email, token: token})
	return n.err
}
func (n *notifierStub) SendEmailChange(_ context.Context, _ *models.User, newEmail, token string) error {
	n.emailChanges = append(n.emailChanges, sentToken{to: newEmail, token: token})
	return n.err
}
func (n *notifierStub) SendNewUser(_ context.Context, admin string, u *models.User) error {
	n.newUsers = append(n.newUsers, admin+":"+u.Username)
	return n.err
}

// assertAppError asserts that err is an AppError with the given code.
func assertAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) *models.AppError {
	t.Helper()
	return assertAppError(t, err, models.CodeValidation)
}
