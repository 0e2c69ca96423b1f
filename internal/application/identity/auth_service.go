package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/donation/backend/internal/domain/identity"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/donation/backend/internal/infrastructure/auth"
	"github.com/donation/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentialsMessage = "Invalid email or password"

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxFailedAttempts int           // Lockout threshold, zero disables lockout
	LockoutDuration   time.Duration // How long to lock account after max attempts
	BcryptCost        int
}

// AuthServiceConfigFrom builds the service configuration from auth settings
func AuthServiceConfigFrom(cfg config.AuthConfig) AuthServiceConfig {
	return AuthServiceConfig{
		MaxFailedAttempts: cfg.MaxFailedAttempts,
		LockoutDuration:   cfg.LockoutDuration,
		BcryptCost:        cfg.BcryptCost,
	}
}

// AuthService handles admin authentication and provisioning
type AuthService struct {
	adminRepo      identity.AdminRepository
	jwtService     *auth.JWTService
	blacklist      auth.TokenBlacklist
	eventPublisher shared.EventPublisher
	config         AuthServiceConfig
	logger         *zap.Logger
	now            func() time.Time

	// unknown accounts are checked against dummyHash so they cost as much as a wrong password
	dummyOnce   sync.Once
	dummyHash   []byte
	compareHash func(hash, password []byte) error
}

// NewAuthService creates a new authentication service
func NewAuthService(
	adminRepo identity.AdminRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if blacklist == nil {
		blacklist = auth.NewInMemoryTokenBlacklist()
	}
	return &AuthService{
		adminRepo:   adminRepo,
		jwtService:  jwtService,
		blacklist:   blacklist,
		config:      config,
		logger:      logger,
		now:         time.Now,
		compareHash: bcrypt.CompareHashAndPassword,
	}
}

// SetEventPublisher sets the publisher for admin events
func (s *AuthService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock overrides the time source
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

func invalidCredentials() error {
	return shared.NewDomainError(shared.CodeUnauthorized, invalidCredentialsMessage)
}

// spendPasswordCheck runs a bcrypt comparison whose result is discarded
func (s *AuthService) spendPasswordCheck(password string) {
	s.dummyOnce.Do(func() {
		cost := s.config.BcryptCost
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			cost = identity.DefaultBcryptCost
		}
		hash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password-0"), cost)
		if err != nil {
			s.logger.Error("Failed to prepare dummy password hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != nil {
		_ = s.compareHash(s.dummyHash, []byte(password))
	}
}

// Login verifies an admin's credentials and issues a bearer token.
// Unknown email, wrong password, inactive and locked accounts all produce
// the same error.
func (s *AuthService) Login(ctx context.Context, input LoginRequest) (*LoginResult, error) {
	now := s.now()
	email := shared.NormalizeEmail(input.Email)

	admin, err := s.adminRepo.FindByEmail(ctx, email)
	if err != nil {
		if shared.IsNotFound(err) {
			s.spendPasswordCheck(input.Password)
			s.logger.Warn("Login attempt for unknown admin")
			return nil, invalidCredentials()
		}
		return nil, err
	}

	if !admin.CanLogin(now) {
		s.spendPasswordCheck(input.Password)
		s.logger.Warn("Login attempt for disabled admin",
			zap.String("admin_id", admin.ID.String()),
			zap.Bool("active", admin.Active),
			zap.Bool("locked", admin.IsLocked(now)),
		)
		return nil, invalidCredentials()
	}

	if !admin.VerifyPassword(input.Password) {
		locked := admin.RecordLoginFailure(s.config.MaxFailedAttempts, s.config.LockoutDuration, now)
		if err := s.adminRepo.UpdateLoginState(ctx, admin); err != nil {
			s.logger.Error("Failed to update admin after login failure", zap.Error(err))
		}
		if locked {
			s.logger.Warn("Admin locked after too many failed attempts",
				zap.String("admin_id", admin.ID.String()),
				zap.Int("max_attempts", s.config.MaxFailedAttempts),
			)
		} else {
			s.logger.Warn("Invalid password attempt",
				zap.String("admin_id", admin.ID.String()),
				zap.Int("failed_attempts", admin.FailedLoginAttempts),
			)
		}
		return nil, invalidCredentials()
	}

	token, err := s.jwtService.GenerateToken(auth.GenerateTokenInput{
		AdminID: admin.ID,
		Email:   admin.Email,
		Role:    string(admin.Role),
	})
	if err != nil {
		s.logger.Error("Failed to generate token", zap.Error(err))
		return nil, shared.NewDomainError(shared.CodeInternal, "Failed to generate authentication token")
	}

	admin.RecordLoginSuccess(now)
	if err := s.adminRepo.UpdateLoginState(ctx, admin); err != nil {
		// the token is already valid, a stale last-login stamp is tolerable
		s.logger.Error("Failed to update admin after successful login", zap.Error(err))
	}

	s.logger.Info("Admin logged in", zap.String("admin_id", admin.ID.String()))

	return &LoginResult{
		Token:     token.AccessToken,
		TokenType: token.TokenType,
		ExpiresAt: token.ExpiresAt,
		Admin:     ToAdminProfile(admin),
	}, nil
}

// Authenticate resolves a bearer token to the acting admin
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	unauthorized := func(msg string) error {
		return shared.NewDomainError(shared.CodeUnauthorized, msg)
	}
	if token == "" {
		return nil, unauthorized("Authentication required")
	}

	claims, err := s.jwtService.ValidateToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, unauthorized("Token has expired")
		}
		return nil, unauthorized("Invalid token")
	}

	revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		// fail closed: a token we cannot check is not accepted
		s.logger.Error("Token blacklist check failed", zap.Error(err))
		return nil, unauthorized("Unable to verify token")
	}
	if revoked {
		return nil, unauthorized("Token has been revoked")
	}

	adminID, err := claims.GetAdminUUID()
	if err != nil {
		return nil, unauthorized("Invalid token")
	}
	admin, err := s.adminRepo.FindByID(ctx, adminID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, unauthorized("Admin no longer exists")
		}
		return nil, err
	}
	if !admin.Active {
		return nil, unauthorized("Admin account is inactive")
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &Principal{
		AdminID:   admin.ID,
		Email:     admin.Email,
		Name:      admin.Name,
		Role:      admin.Role,
		TokenID:   claims.ID,
		ExpiresAt: expiresAt,
	}, nil
}

// Logout revokes the principal's token until it would have expired anyway
func (s *AuthService) Logout(ctx context.Context, principal *Principal) error {
	if principal == nil || principal.TokenID == "" {
		return shared.NewDomainError(shared.CodeUnauthorized, "Authentication required")
	}
	ttl := principal.ExpiresAt.Sub(s.now())
	if err := s.blacklist.AddToBlacklist(ctx, principal.TokenID, ttl); err != nil {
		s.logger.Error("Failed to revoke token", zap.Error(err))
		return err
	}
	s.logger.Info("Admin logged out", zap.String("admin_id", principal.AdminID.String()))
	return nil
}

// RequireRole fails with Forbidden unless the principal's role satisfies required
func (s *AuthService) RequireRole(principal *Principal, required identity.Role) error {
	if principal == nil {
		return shared.NewDomainError(shared.CodeUnauthorized, "Authentication required")
	}
	if !principal.Role.Satisfies(required) {
		return shared.NewDomainError(shared.CodeForbidden, "Insufficient role for this action")
	}
	return nil
}

// GetProfile returns the profile of an admin
func (s *AuthService) GetProfile(ctx context.Context, adminID uuid.UUID) (*AdminProfile, error) {
	admin, err := s.adminRepo.FindByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	profile := ToAdminProfile(admin)
	return &profile, nil
}

// CreateAdmin provisions another admin on behalf of a superadmin
func (s *AuthService) CreateAdmin(ctx context.Context, actor *Principal, req CreateAdminRequest) (*AdminProfile, error) {
	if err := s.RequireRole(actor, identity.RoleSuperAdmin); err != nil {
		return nil, err
	}
	role := identity.Role(req.Role)
	if role == "" {
		role = identity.RoleAdmin
	}
	profile, err := s.createAdmin(ctx, req, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Admin created",
		zap.String("admin_id", profile.ID.String()),
		zap.String("role", string(profile.Role)),
		zap.String("created_by", actor.AdminID.String()),
	)
	return profile, nil
}

// SetAdminActive enables or disables another admin on behalf of a superadmin.
// Disabled admins are refused at login and on every authenticated request.
func (s *AuthService) SetAdminActive(ctx context.Context, actor *Principal, adminID uuid.UUID, active bool) (*AdminProfile, error) {
	if err := s.RequireRole(actor, identity.RoleSuperAdmin); err != nil {
		return nil, err
	}
	if actor.AdminID == adminID && !active {
		return nil, shared.NewInvalidStateError("Admins cannot deactivate their own account")
	}

	admin, err := s.adminRepo.FindByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if admin.Active != active {
		if active {
			admin.Activate(s.now())
		} else {
			admin.Deactivate(s.now())
		}
		if err := s.adminRepo.UpdateStatus(ctx, admin); err != nil {
			return nil, err
		}
		s.logger.Info("Admin status changed",
			zap.String("admin_id", admin.ID.String()),
			zap.Bool("active", active),
			zap.String("changed_by", actor.AdminID.String()),
		)
	}

	profile := ToAdminProfile(admin)
	return &profile, nil
}

// Bootstrap creates the first admin. It refuses once any admin exists.
func (s *AuthService) Bootstrap(ctx context.Context, req CreateAdminRequest) (*AdminProfile, error) {
	count, err := s.adminRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, shared.NewInvalidStateError("Admin accounts already exist; create further admins through the API")
	}
	role := identity.Role(req.Role)
	if role == "" {
		role = identity.RoleSuperAdmin
	}
	profile, err := s.createAdmin(ctx, req, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Bootstrap admin created", zap.String("admin_id", profile.ID.String()))
	return profile, nil
}

func (s *AuthService) createAdmin(ctx context.Context, req CreateAdminRequest, role identity.Role) (*AdminProfile, error) {
	admin, err := identity.NewAdmin(req.Email, req.Name, req.Password, role, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}
	admin.CreatedAt = s.now()
	admin.UpdatedAt = admin.CreatedAt

	if err := s.adminRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewConflictError("An admin with this email already exists")
		}
		return nil, err
	}

	if events := admin.PullDomainEvents(); s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish admin events", zap.Error(err))
		}
	}

	profile := ToAdminProfile(admin)
	return &profile, nil
}
