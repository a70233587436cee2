package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
)

// RBAC errors.
var (
	ErrAlreadySetUp       = errors.New("an admin already exists, setup is closed")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already in use")
	ErrCannotRemoveAdmin  = errors.New("admins cannot be removed")
	ErrNotSubadmin        = errors.New("user is not a subadmin")
)

// RBACService manages back-office accounts and answers permission checks.
type RBACService struct {
	store   store.Store
	auth    *Service
	catalog *Catalog
	logger  *slog.Logger
}

// NewRBACService creates a new RBAC service.
func NewRBACService(st store.Store, authSvc *Service, catalog *Catalog, logger *slog.Logger) *RBACService {
	if logger == nil {
		logger = slog.Default()
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &RBACService{
		store:   st,
		auth:    authSvc,
		catalog: catalog,
		logger:  logger,
	}
}

// Catalog returns the permission catalog subadmin grants are checked against.
func (s *RBACService) Catalog() *Catalog {
	return s.catalog
}

// CanSetup reports whether the first-admin setup is still open.
// Returns true if no admin exists, false otherwise.
func (s *RBACService) CanSetup(ctx context.Context) (bool, error) {
	count, err := s.store.Users().CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// Setup creates the first admin. It fails with ErrAlreadySetUp once an admin exists.
func (s *RBACService) Setup(ctx context.Context, email, name, password string) (*models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        strings.TrimSpace(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Permissions:  models.PermissionSet{},
		Active:       true,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		count, err := tx.Users().CountByRole(ctx, models.RoleAdmin)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadySetUp
		}
		return tx.Users().Create(ctx, user)
	})
	if errors.Is(err, store.ErrDuplicate) {
		// The single-admin index and the email index both surface as duplicates.
		if open, cerr := s.CanSetup(ctx); cerr == nil && !open {
			err = ErrAlreadySetUp
		} else {
			err = ErrEmailTaken
		}
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("initial admin created", "user_id", user.ID)
	return user, nil
}

// Login checks credentials and returns a signed token for the account.
func (s *RBACService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}
	if !user.Active {
		return "", nil, ErrAccountDisabled
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// GetUser returns the account with the given ID.
func (s *RBACService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.store.Users().Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// CheckPermission verifies a user may perform action on module.
// Admins pass every check; inactive accounts fail every check.
func (s *RBACService) CheckPermission(ctx context.Context, userID int64, module models.Module, action models.Action) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	return CheckUserPermission(user, module, action)
}

// CheckUserPermission applies the permission rules to an already loaded user.
func CheckUserPermission(user *models.User, module models.Module, action models.Action) error {
	if user == nil || !user.Active {
		return ErrPermissionDenied
	}
	if user.Role == models.RoleAdmin {
		return nil
	}
	if user.Role == models.RoleSubadmin && user.Permissions.Allows(module, action) {
		return nil
	}
	return ErrPermissionDenied
}

// ListSubadmins returns every subadmin, oldest first.
func (s *RBACService) ListSubadmins(ctx context.Context) ([]*models.User, error) {
	return s.store.Users().List(ctx, models.RoleSubadmin)
}

// CreateSubadmin creates an active subadmin with the given grants.
func (s *RBACService) CreateSubadmin(ctx context.Context, createdBy int64, email, name, password string, perms models.PermissionSet) (*models.User, error) {
	if err := s.catalog.Validate(perms); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        strings.TrimSpace(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         models.RoleSubadmin,
		Permissions:  perms.Normalize(),
		Active:       true,
		CreatedBy:    createdBy,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating subadmin: %w", err)
	}

	s.logger.Info("subadmin created", "user_id", user.ID, "created_by", createdBy)
	return user, nil
}

// UpdatePermissions replaces a subadmin's grants.
func (s *RBACService) UpdatePermissions(ctx context.Context, userID int64, perms models.PermissionSet) (*models.User, error) {
	if err := s.catalog.Validate(perms); err != nil {
		return nil, err
	}
	user, err := s.subadmin(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Permissions = perms.Normalize()
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("updating permissions: %w", err)
	}
	return user, nil
}

// SetActive enables or disables a subadmin account.
func (s *RBACService) SetActive(ctx context.Context, userID int64, active bool) (*models.User, error) {
	user, err := s.subadmin(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Active = active
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("updating subadmin: %w", err)
	}
	return user, nil
}

// RemoveSubadmin deletes a subadmin account. Admin accounts cannot be removed.
func (s *RBACService) RemoveSubadmin(ctx context.Context, userID int64) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin {
		return ErrCannotRemoveAdmin
	}

	if err := s.store.Users().Delete(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.Info("subadmin removed", "user_id", userID)
	return nil
}

func (s *RBACService) subadmin(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleSubadmin {
		return nil, ErrNotSubadmin
	}
	return user, nil
}
