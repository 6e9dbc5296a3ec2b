package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetbilling/internal/model"
	"fleetbilling/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

// UpdateUserRequest changes only the fields that are set
type UpdateUserRequest struct {
	Role     string `json:"role"`
	Password string `json:"password" binding:"omitempty,min=8"`
}

// UserResponse never carries the password hash
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

type RoleResponse struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// UserService manages operator accounts
type UserService interface {
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	CreateUser(ctx context.Context, req CreateUserRequest, actorID string) (*UserResponse, error)
	UpdateUser(ctx context.Context, id string, req UpdateUserRequest, actorID string) (*UserResponse, error)
	DeleteUser(ctx context.Context, id string, actorID string) error
	ListRoles(ctx context.Context) ([]RoleResponse, error)
}

type userService struct {
	userRepo  repository.UserRepository
	roleRepo  repository.RoleRepository
	auditRepo repository.AuditRepository
	log       logrus.FieldLogger
}

func NewUserService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	auditRepo repository.AuditRepository,
	log logrus.FieldLogger,
) UserService {
	return &userService{userRepo: userRepo, roleRepo: roleRepo, auditRepo: auditRepo, log: log}
}

func toUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	users, total, err := s.userRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	res := make([]UserResponse, 0, len(users))
	for i := range users {
		res = append(res, *toUserResponse(&users[i]))
	}
	return res, total, nil
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest, actorID string) (*UserResponse, error) {
	if !model.IsKnownRole(req.Role) {
		return nil, newValidationError(ErrInvalidRole, req.Role)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)
	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, newValidationError(ErrUserExists, username)
	}
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, newValidationError(ErrUserExists, email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: username,
		Email:    email,
		Password: string(hash),
		Role:     req.Role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	writeAuditLog(ctx, s.auditRepo, s.log, actorID, model.ActionCreateUser, user.ID.String(), user.Username, map[string]string{"role": user.Role})
	return toUserResponse(user), nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, req UpdateUserRequest, actorID string) (*UserResponse, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := map[string]string{}
	if req.Role != "" && req.Role != user.Role {
		if !model.IsKnownRole(req.Role) {
			return nil, newValidationError(ErrInvalidRole, req.Role)
		}
		changed["role"] = req.Role
		user.Role = req.Role
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		changed["password"] = "reset"
		user.Password = string(hash)
	}

	if len(changed) > 0 {
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		writeAuditLog(ctx, s.auditRepo, s.log, actorID, model.ActionUpdateUser, user.ID.String(), user.Username, changed)
	}

	return toUserResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, id string, actorID string) error {
	if id == actorID {
		return newValidationError(ErrCannotDeleteSelf, "")
	}
	user, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, user.ID.String()); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	writeAuditLog(ctx, s.auditRepo, s.log, actorID, model.ActionDeleteUser, user.ID.String(), user.Username, nil)
	return nil
}

func (s *userService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		perms := make([]string, 0, len(r.Permissions))
		for _, p := range r.Permissions {
			perms = append(perms, p.Code)
		}
		res = append(res, RoleResponse{Name: r.Name, Description: r.Description, Permissions: perms})
	}
	return res, nil
}

func (s *userService) findUser(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUserNotFound
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return user, nil
}
