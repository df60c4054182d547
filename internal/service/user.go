package service

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/fouadsmari/DIA360-sub000/internal/model"
	"github.com/fouadsmari/DIA360-sub000/internal/repository"

	"github.com/sirupsen/logrus"
)

// ErrForbidden the caller's role does not allow the operation.
var ErrForbidden = errors.New("forbidden")

// Actor authenticated caller, taken from the bearer token.
type Actor struct {
	Subject string
	Role    model.Role
}

// UserInput writable user fields. Email is ignored on update.
type UserInput struct {
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Role      model.Role `json:"role"`
	IsActive  *bool      `json:"is_active"`
}

type UserService struct {
	repo   repository.UserRepository
	logger *logrus.Logger
}

func NewUserService(repo repository.UserRepository, logger *logrus.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) ListUsers(ctx context.Context, role model.Role, page, pageSize int) ([]*model.User, int64, error) {
	if role != "" && !role.Valid() {
		return nil, 0, invalidf("unknown role %q", role)
	}
	return s.repo.ListUsers(ctx, role, page, pageSize)
}

func (s *UserService) GetUser(ctx context.Context, id uint64) (*model.User, error) {
	if id == 0 {
		return nil, invalidf("user id is required")
	}
	return s.repo.GetUser(ctx, id)
}

// CreateUser only a superadmin may create another superadmin.
func (s *UserService) CreateUser(ctx context.Context, actor Actor, in UserInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, invalidf("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalidf("email %q is not a valid address", in.Email)
	}
	role := in.Role
	if role == "" {
		role = model.RoleStandard
	}
	if err := checkRoleGrant(actor, role); err != nil {
		return nil, err
	}
	u := &model.User{
		Email:     email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      role,
		IsActive:  true,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role, "by": actor.Subject}).Info("user created")
	return u, nil
}

func (s *UserService) UpdateUser(ctx context.Context, actor Actor, id uint64, in UserInput) (*model.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role == model.RoleSuperadmin && actor.Role != model.RoleSuperadmin {
		return nil, ErrForbidden
	}
	if in.Role != "" {
		if err := checkRoleGrant(actor, in.Role); err != nil {
			return nil, err
		}
		u.Role = in.Role
	}
	if v := strings.TrimSpace(in.FirstName); v != "" {
		u.FirstName = v
	}
	if v := strings.TrimSpace(in.LastName); v != "" {
		u.LastName = v
	}
	if in.IsActive != nil {
		if !*in.IsActive && isSelf(actor, id) {
			return nil, invalidf("cannot deactivate your own account")
		}
		u.IsActive = *in.IsActive
	}
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) DeleteUser(ctx context.Context, actor Actor, id uint64) error {
	if isSelf(actor, id) {
		return invalidf("cannot delete your own account")
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if u.Role == model.RoleSuperadmin && actor.Role != model.RoleSuperadmin {
		return ErrForbidden
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"user_id": id, "by": actor.Subject}).Info("user deleted")
	return nil
}

func checkRoleGrant(actor Actor, role model.Role) error {
	if !role.Valid() {
		return invalidf("unknown role %q", role)
	}
	if role == model.RoleSuperadmin && actor.Role != model.RoleSuperadmin {
		return ErrForbidden
	}
	return nil
}

func isSelf(actor Actor, id uint64) bool {
	return actor.Subject != "" && actor.Subject == strconv.FormatUint(id, 10)
}
