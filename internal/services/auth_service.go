// internal/services/auth_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/makairamei/premium-server/internal/config"
	"github.com/makairamei/premium-server/internal/models"
	"github.com/makairamei/premium-server/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIPLocked           = errors.New("IP blocked")
)

type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	security *SecurityService
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	// ExpiresIn is in seconds.
	ExpiresIn int `json:"expires_in"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

func NewAuthService(db *gorm.DB, cfg *config.Config, security *SecurityService) *AuthService {
	return &AuthService{db: db, cfg: cfg, security: security}
}

// Login authenticates an admin. Failed attempts feed the brute-force guard;
// a success clears the caller's counter.
func (s *AuthService) Login(req *LoginRequest, ip string) (*LoginResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	blocked, err := s.security.IsIPBlocked(ip)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrIPLocked
	}

	var admin models.Admin
	if err := s.db.Where("username = ?", req.Username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if gerr := s.security.RecordFailedLogin(ip); gerr != nil {
				return nil, gerr
			}
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("admin lookup failed: %w", err)
	}

	if err := admin.CheckPassword(req.Password); err != nil {
		if gerr := s.security.RecordFailedLogin(ip); gerr != nil {
			return nil, gerr
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.security.ClearFailedLogins(ip); err != nil {
		return nil, err
	}

	now := time.Now()
	admin.LastLoginAt = &now
	s.db.Save(&admin)

	token, err := utils.GenerateAdminJWT(admin.ID, admin.Username, s.cfg.JWT.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResponse{
		Token:     token,
		Username:  admin.Username,
		ExpiresIn: s.cfg.JWT.TokenTTL * 3600,
	}, nil
}

func (s *AuthService) ChangePassword(username string, req *ChangePasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var admin models.Admin
	if err := s.db.Where("username = ?", username).First(&admin).Error; err != nil {
		return fmt.Errorf("admin lookup failed: %w", err)
	}

	if err := admin.CheckPassword(req.CurrentPassword); err != nil {
		return ErrInvalidCredentials
	}

	if err := admin.SetPassword(req.NewPassword); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.Save(&admin).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
