package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/diagnosis/institute-portal/pkg/auth"
	"github.com/diagnosis/institute-portal/pkg/logger"
	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"github.com/diagnosis/institute-portal/services/portal/internal/repository"
)

type AuthService interface {
	SetPassword(ctx context.Context, role domain.Role, req *domain.SetPasswordRequest) error
	Login(ctx context.Context, role domain.Role, req *domain.LoginRequest) (*domain.LoginResponse, error)
	SetPasswordWithChallenge(ctx context.Context, challenge *auth.Claims, role domain.Role, req *domain.SetPasswordRequest) error
	LoginWithChallenge(ctx context.Context, challenge *auth.Claims, role domain.Role, req *domain.LoginRequest) (*domain.LoginResponse, error)
	AdminSendOTP(ctx context.Context, req *domain.AdminSendOTPRequest) error
	AdminLogin(ctx context.Context, req *domain.AdminLoginRequest) (*domain.LoginResponse, error)
	ChangePassword(ctx context.Context, role domain.Role, req *domain.ChangePasswordRequest) error
	ChangeEmail(ctx context.Context, role domain.Role, req *domain.ChangeEmailRequest) error
	SendOTP(ctx context.Context, req *domain.SendOTPRequest) (string, error)
	VerifyOTP(ctx context.Context, challenge *auth.Claims, req *domain.VerifyOTPRequest) (string, error)
	ResetPassword(ctx context.Context, challenge *auth.Claims, req *domain.ResetPasswordRequest) error
	CreateAdmin(ctx context.Context, req *domain.CreateAdminRequest) (*domain.User, error)
}

type authService struct {
	userRepo repository.UserRepository
	otp      OTPService
	hasher   PasswordHasher
	tokens   *auth.Issuer

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	userRepo repository.UserRepository,
	otp OTPService,
	hasher PasswordHasher,
	tokens *auth.Issuer,
) AuthService {
	return &authService{
		userRepo: userRepo,
		otp:      otp,
		hasher:   hasher,
		tokens:   tokens,
	}
}

func (s *authService) SetPassword(ctx context.Context, role domain.Role, req *domain.SetPasswordRequest) error {
	req.Normalize()
	if err := req.Validate(role); err != nil {
		return err
	}

	user, err := s.userRepo.FindByEmail(ctx, role, req.Email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	if user.HasPassword() {
		return domain.ErrPasswordAlreadySet
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	set, err := s.userRepo.SetPasswordIfUnset(ctx, role, req.Email, hash)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	if !set {
		return domain.ErrPasswordAlreadySet
	}

	logger.InfoContext(ctx, "Password set", "user_id", user.ID.Hex(), "role", role)
	return nil
}

func (s *authService) Login(ctx context.Context, role domain.Role, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.authenticate(ctx, role, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

// SetPasswordWithChallenge is SetPassword for roles that must first prove
// ownership of the email through the OTP challenge.
func (s *authService) SetPasswordWithChallenge(ctx context.Context, challenge *auth.Claims, role domain.Role, req *domain.SetPasswordRequest) error {
	req.Normalize()
	if err := matchChallenge(challenge, role, req.Email); err != nil {
		return err
	}
	return s.SetPassword(ctx, role, req)
}

func (s *authService) LoginWithChallenge(ctx context.Context, challenge *auth.Claims, role domain.Role, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := matchChallenge(challenge, role, req.Email); err != nil {
		return nil, err
	}
	return s.Login(ctx, role, req)
}

// matchChallenge ties a challenge token to the account a request names.
func matchChallenge(challenge *auth.Claims, role domain.Role, email string) error {
	if challenge == nil ||
		challenge.Email != email ||
		challenge.Role != role.String() ||
		challenge.Purpose != domain.PurposeVerification {
		return domain.ErrInvalidToken
	}
	return nil
}

// authenticate fails with the same ErrInvalidCredentials whether the user is
// missing, has no password yet, or supplied the wrong one.
func (s *authService) authenticate(ctx context.Context, role domain.Role, email, password string) (*domain.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, role, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.HasPassword() {
		s.burnCompare(password)
		return nil, domain.ErrInvalidCredentials
	}

	valid, err := s.hasher.Compare(password, user.PasswordHash)
	if err != nil {
		logger.WarnContext(ctx, "Password comparison failed", "error", err, "user_id", user.ID.Hex())
		return nil, domain.ErrInvalidCredentials
	}
	if !valid {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// burnCompare checks password against a throwaway hash so that unknown
// accounts cost as much as a wrong password.
func (s *authService) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		if hash, err := s.hasher.Hash("unused-account-placeholder"); err == nil {
			s.dummyHash = hash
		}
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Compare(password, s.dummyHash)
	}
}

func (s *authService) session(user *domain.User) (*domain.LoginResponse, error) {
	token, err := s.tokens.IssueSession(user.ID.Hex(), user.Role.String())
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &domain.LoginResponse{
		Success:   true,
		AuthToken: token,
		Role:      user.Role,
		ID:        user.ID.Hex(),
		ExpiresIn: int64(s.tokens.SessionTTL().Seconds()),
	}, nil
}

// AdminSendOTP checks the password before a login code is sent; change
// purposes only need the account to exist.
func (s *authService) AdminSendOTP(ctx context.Context, req *domain.AdminSendOTPRequest) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	if req.Purpose == domain.PurposeLogin {
		if _, err := s.authenticate(ctx, domain.RoleAdmin, req.Email, req.Password); err != nil {
			return err
		}
	}

	_, err := s.otp.Issue(ctx, domain.RoleAdmin, req.Email, req.Purpose, req.Title)
	return err
}

func (s *authService) AdminLogin(ctx context.Context, req *domain.AdminLoginRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.authenticate(ctx, domain.RoleAdmin, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	if _, err := s.otp.Verify(ctx, domain.RoleAdmin, req.Email, domain.PurposeLogin, req.OTP); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Admin logged in", "user_id", user.ID.Hex())
	return s.session(user)
}

func (s *authService) ChangePassword(ctx context.Context, role domain.Role, req *domain.ChangePasswordRequest) error {
	req.Normalize()
	if err := req.Validate(role); err != nil {
		return err
	}

	verified, err := s.otp.Verify(ctx, role, req.Email, domain.PurposeChangePassword, req.OTP)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, role, verified.UserID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	logger.InfoContext(ctx, "Password changed", "user_id", verified.UserID.Hex(), "role", role)
	return nil
}

func (s *authService) ChangeEmail(ctx context.Context, role domain.Role, req *domain.ChangeEmailRequest) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}
	if req.NewEmail == req.Email {
		return domain.Validation("new email must differ from the current one")
	}

	// Checked before the code is consumed so a taken address does not burn the OTP.
	existing, err := s.userRepo.FindByEmail(ctx, role, req.NewEmail)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return domain.ErrEmailTaken
	}

	verified, err := s.otp.Verify(ctx, role, req.Email, domain.PurposeChangeEmail, req.OTP)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdateEmail(ctx, role, verified.UserID, req.NewEmail); err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}

	logger.InfoContext(ctx, "Email changed", "user_id", verified.UserID.Hex(), "role", role)
	return nil
}

// SendOTP starts the generic verification flow and returns a pending challenge token.
func (s *authService) SendOTP(ctx context.Context, req *domain.SendOTPRequest) (string, error) {
	req.Normalize()
	role, err := req.Validate()
	if err != nil {
		return "", err
	}

	subject := role.Title() + " verification"
	if _, err := s.otp.Issue(ctx, role, req.Email, domain.PurposeVerification, subject); err != nil {
		return "", err
	}

	token, err := s.tokens.IssueChallenge(req.Email, role.String(), domain.PurposeVerification, auth.StagePending)
	if err != nil {
		return "", fmt.Errorf("failed to issue challenge: %w", err)
	}
	return token, nil
}

// VerifyOTP exchanges a pending challenge and a correct code for a verified challenge.
func (s *authService) VerifyOTP(ctx context.Context, challenge *auth.Claims, req *domain.VerifyOTPRequest) (string, error) {
	req.Normalize()
	role, err := req.Validate()
	if err != nil {
		return "", err
	}
	if err := matchChallenge(challenge, role, req.Email); err != nil {
		return "", err
	}

	if _, err := s.otp.Verify(ctx, role, req.Email, domain.PurposeVerification, req.OTP); err != nil {
		return "", err
	}

	token, err := s.tokens.IssueChallenge(req.Email, role.String(), domain.PurposeVerification, auth.StageVerified)
	if err != nil {
		return "", fmt.Errorf("failed to issue challenge: %w", err)
	}
	return token, nil
}

func (s *authService) ResetPassword(ctx context.Context, challenge *auth.Claims, req *domain.ResetPasswordRequest) error {
	role, err := domain.ParseRole(challenge.Role)
	if err != nil {
		return domain.ErrInvalidToken
	}
	if err := domain.ValidatePassword(req.NewPassword, role); err != nil {
		return err
	}

	user, err := s.userRepo.FindByEmail(ctx, role, challenge.Email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, role, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	logger.InfoContext(ctx, "Password reset", "user_id", user.ID.Hex(), "role", role)
	return nil
}

func (s *authService) CreateAdmin(ctx context.Context, req *domain.CreateAdminRequest) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateAdmin(ctx, req.Name, req.Email, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	logger.InfoContext(ctx, "Admin created", "user_id", user.ID.Hex())
	return user, nil
}
