package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stakehub-next/internal/cache"
	"github.com/stakehub-next/internal/config"
	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/logger"
	"github.com/stakehub-next/internal/models"
	"github.com/stakehub-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

// UserService 用户服务（钱包即身份，连接即注册）
type UserService struct {
	cfg             *config.Config
	userRepo        repository.UserRepository
	referralService *ReferralService
}

// NewUserService 创建用户服务
func NewUserService(cfg *config.Config, userRepo repository.UserRepository, referralService *ReferralService) *UserService {
	return &UserService{
		cfg:             cfg,
		userRepo:        userRepo,
		referralService: referralService,
	}
}

// UserJWTClaims 用户 JWT 声明
type UserJWTClaims struct {
	UserID        uint   `json:"user_id"`
	WalletAddress string `json:"wallet_address"`
	TokenVersion  uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// WalletConnectInput 钱包连接输入
type WalletConnectInput struct {
	WalletAddress string
	ReferralCode  string
}

// WalletConnectResult 钱包连接结果
type WalletConnectResult struct {
	User      *models.User
	Created   bool
	Token     string
	ExpiresAt time.Time
}

// Connect 钱包连接：首次连接创建用户并签发推荐码，
// 携带推荐码时仅在首次注册完成归因，之后连接不再改变上级。
func (s *UserService) Connect(input WalletConnectInput) (*WalletConnectResult, error) {
	wallet, err := NormalizeWalletAddress(input.WalletAddress)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByWallet(wallet)
	if err != nil {
		return nil, err
	}

	created := false
	if user == nil {
		user, created, err = s.createUser(wallet)
		if err != nil {
			return nil, err
		}
	}
	if strings.ToLower(strings.TrimSpace(user.Status)) == constants.UserStatusDisabled {
		return nil, ErrUserDisabled
	}

	if created {
		if code := strings.TrimSpace(input.ReferralCode); code != "" {
			record, _, refErr := s.referralService.RecordReferral(wallet, code, constants.ReferralSourceConnect)
			switch {
			case refErr == nil:
				if record != nil {
					user.ReferrerWallet = record.ReferrerWallet
				}
			case errors.Is(refErr, ErrInvalidReferralCode), errors.Is(refErr, ErrSelfReferral):
				// 归因失败不阻断注册
				logger.Warnw("referral_attribution_skipped",
					"wallet", wallet,
					"code", code,
					"reason", refErr.Error(),
				)
			default:
				return nil, refErr
			}
		}
	}

	token, expiresAt, err := s.GenerateUserJWT(user, 0)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastConnectedAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))

	return &WalletConnectResult{
		User:      user,
		Created:   created,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// createUser 创建用户并签发推荐码，推荐码撞码时重试
func (s *UserService) createUser(wallet string) (*models.User, bool, error) {
	now := time.Now()
	for i := 0; i < referralCodeMaxRetry; i++ {
		code, err := generateReferralCode(s.referralService.codeLength())
		if err != nil {
			return nil, false, err
		}
		user := &models.User{
			WalletAddress: wallet,
			ReferralCode:  code,
			Status:        constants.UserStatusActive,
			RegisteredAt:  now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.userRepo.Create(user); err != nil {
			if isUniqueViolation(err) {
				// 可能是推荐码撞码，也可能是并发下同一钱包已注册
				exist, getErr := s.userRepo.GetByWallet(wallet)
				if getErr != nil {
					return nil, false, getErr
				}
				if exist != nil {
					return exist, false, nil
				}
				continue
			}
			return nil, false, err
		}
		return user, true, nil
	}
	return nil, false, ErrInvalidReferralCode
}

// GenerateUserJWT 生成用户 JWT Token
func (s *UserService) GenerateUserJWT(user *models.User, expireHours int) (string, time.Time, error) {
	resolvedHours := expireHours
	if resolvedHours <= 0 {
		resolvedHours = resolveUserJWTExpireHours(s.cfg.UserJWT)
	}
	expiresAt := time.Now().Add(time.Duration(resolvedHours) * time.Hour)
	claims := UserJWTClaims{
		UserID:        user.ID,
		WalletAddress: user.WalletAddress,
		TokenVersion:  user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.UserJWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseUserJWT 解析用户 JWT Token
func (s *UserService) ParseUserJWT(tokenString string) (*UserJWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &UserJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.UserJWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*UserJWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("无效的 token")
}

// GetUserByID 获取用户信息
func (s *UserService) GetUserByID(id uint) (*models.User, error) {
	if id == 0 {
		return nil, ErrNotFound
	}
	return s.userRepo.GetByID(id)
}

// GetUserByWallet 根据钱包地址获取用户信息
func (s *UserService) GetUserByWallet(wallet string) (*models.User, error) {
	normalized, err := NormalizeWalletAddress(wallet)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByWallet(normalized)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// ListAdminUsers 后台查询用户列表
func (s *UserService) ListAdminUsers(filter repository.UserListFilter) ([]models.User, int64, error) {
	return s.userRepo.List(filter)
}

// BatchUpdateStatus 后台批量更新用户状态（禁用时同步失效鉴权缓存）
func (s *UserService) BatchUpdateStatus(wallets []string, rawStatus string) error {
	status := strings.ToLower(strings.TrimSpace(rawStatus))
	if status != constants.UserStatusActive && status != constants.UserStatusDisabled {
		return ErrUserStatusInvalid
	}

	normalized := make([]string, 0, len(wallets))
	for _, wallet := range wallets {
		address, err := NormalizeWalletAddress(wallet)
		if err != nil {
			continue
		}
		normalized = append(normalized, address)
	}
	if len(normalized) == 0 {
		return nil
	}

	if err := s.userRepo.BatchUpdateStatus(normalized, status); err != nil {
		return err
	}

	// 状态变更后删除鉴权快照，避免旧 Token 走缓存放行
	for _, wallet := range normalized {
		user, err := s.userRepo.GetByWallet(wallet)
		if err != nil || user == nil {
			continue
		}
		_ = cache.DelUserAuthState(context.Background(), user.ID)
	}
	return nil
}

func resolveUserJWTExpireHours(cfg config.JWTConfig) int {
	if cfg.ExpireHours <= 0 {
		return 24
	}
	return cfg.ExpireHours
}
