package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetbilling/internal/config"
	"fleetbilling/internal/model"
	"fleetbilling/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type MeResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
}

// AuthService authenticates operators and seeds the role/permission catalogue
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Me(ctx context.Context, userID string) (*MeResponse, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
	EnsureBootstrapAdmin(ctx context.Context, admin config.AdminConfig) error
}

type authService struct {
	userRepo  repository.UserRepository
	roleRepo  repository.RoleRepository
	txManager repository.TransactionManager
	jwtCfg    config.JWTConfig
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	txManager repository.TransactionManager,
	jwtCfg config.JWTConfig,
	log logrus.FieldLogger,
) AuthService {
	return &authService{
		userRepo:  userRepo,
		roleRepo:  roleRepo,
		txManager: txManager,
		jwtCfg:    jwtCfg,
		log:       log,
		now:       time.Now,
	}
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	hours := s.jwtCfg.ExpireHours
	if hours <= 0 {
		hours = 24
	}
	expiresAt := s.now().Add(time.Duration(hours) * time.Hour)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"exp":  expiresAt.Unix(),
	})

	signed, err := token.SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &TokenResponse{Token: signed, ExpiresAt: expiresAt.Format(time.RFC3339)}, nil
}

func (s *authService) Me(ctx context.Context, userID string) (*MeResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	perms, err := s.roleRepo.GetPermissionsByRoleName(ctx, user.Role)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	if perms == nil {
		perms = []string{}
	}

	return &MeResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Role:        user.Role,
		Permissions: perms,
	}, nil
}

var defaultPermissions = []model.Permission{
	{Code: model.PermCargoRead, Name: "View uninvoiced cargo", Group: "cargo"},
	{Code: model.PermInvoicesRead, Name: "View sales invoices", Group: "invoices"},
	{Code: model.PermInvoicesWrite, Name: "Create and submit sales invoices", Group: "invoices"},
	{Code: model.PermInvoicesCancel, Name: "Cancel sales invoices", Group: "invoices"},
	{Code: model.PermAuditRead, Name: "View audit trail", Group: "audit"},
	{Code: model.PermTaxManage, Name: "Manage tax rules", Group: "tax"},
	{Code: model.PermUsersManage, Name: "Manage operator accounts", Group: "users"},
}

var defaultRoles = []struct {
	Name        string
	Description string
	PermCodes   []string
}{
	{
		Name:        model.RoleAdmin,
		Description: "Full access",
		PermCodes: []string{
			model.PermCargoRead, model.PermInvoicesRead, model.PermInvoicesWrite,
			model.PermInvoicesCancel, model.PermAuditRead, model.PermTaxManage, model.PermUsersManage,
		},
	},
	{
		Name:        model.RoleAccounts,
		Description: "Raises and cancels customer invoices",
		PermCodes: []string{
			model.PermCargoRead, model.PermInvoicesRead, model.PermInvoicesWrite, model.PermInvoicesCancel,
		},
	},
	{
		Name:        model.RoleDispatcher,
		Description: "Reads cargo and invoice state",
		PermCodes:   []string{model.PermCargoRead, model.PermInvoicesRead},
	},
}

// SeedDefaultRolesAndPermissions is idempotent; it only adds what is missing.
func (s *authService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		permIDs := make(map[string]uuid.UUID, len(defaultPermissions))
		for _, p := range defaultPermissions {
			perm := p
			if err := s.roleRepo.FindOrCreatePermission(txCtx, &perm); err != nil {
				return fmt.Errorf("failed to seed permission '%s': %w", p.Code, err)
			}
			permIDs[perm.Code] = perm.ID
		}

		for _, def := range defaultRoles {
			role := model.Role{Name: def.Name, Description: def.Description, IsSystem: true}
			if err := s.roleRepo.FindOrCreate(txCtx, &role); err != nil {
				return fmt.Errorf("failed to seed role '%s': %w", def.Name, err)
			}

			ids := make([]uuid.UUID, 0, len(def.PermCodes))
			for _, code := range def.PermCodes {
				ids = append(ids, permIDs[code])
			}
			if err := s.roleRepo.AssociatePermissions(txCtx, role.ID, ids); err != nil {
				return fmt.Errorf("failed to grant permissions to '%s': %w", def.Name, err)
			}
		}
		return nil
	})
}

// EnsureBootstrapAdmin creates the configured admin account once. No-op when unconfigured.
func (s *authService) EnsureBootstrapAdmin(ctx context.Context, admin config.AdminConfig) error {
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	if email == "" || admin.Password == "" {
		return nil
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: strings.SplitN(email, "@", 2)[0],
		Email:    email,
		Password: string(hashed),
		Role:     model.RoleAdmin,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	s.log.WithField("email", email).Info("bootstrap admin user created")
	return nil
}
