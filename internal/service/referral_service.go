package service

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/stakehub-next/internal/config"
	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/models"
	"github.com/stakehub-next/internal/repository"

	"gorm.io/gorm"
)

const (
	referralCodeDefaultLength = 8
	referralCodeMaxRetry      = 8
	referralChainMaxDepth     = 10000
)

var walletAddressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// ReferralService 推荐关系业务服务
type ReferralService struct {
	cfg            *config.Config
	repo           repository.ReferralRepository
	userRepo       repository.UserRepository
	settingService *SettingService
}

// NewReferralService 创建推荐关系服务
func NewReferralService(
	cfg *config.Config,
	repo repository.ReferralRepository,
	userRepo repository.UserRepository,
	settingService *SettingService,
) *ReferralService {
	return &ReferralService{
		cfg:            cfg,
		repo:           repo,
		userRepo:       userRepo,
		settingService: settingService,
	}
}

// MyReferral 用户推荐中心数据
type MyReferral struct {
	WalletAddress  string `json:"wallet_address"`
	ReferralCode   string `json:"referral_code"`
	ReferrerWallet string `json:"referrer_wallet,omitempty"`
	DirectsCount   int64  `json:"directs_count"`
	ReferralLink   string `json:"referral_link"`
}

// IssueCode 幂等签发推荐码：已有推荐码直接返回，否则生成并落库
func (s *ReferralService) IssueCode(wallet string) (string, error) {
	normalized, err := NormalizeWalletAddress(wallet)
	if err != nil {
		return "", err
	}
	if s.userRepo == nil {
		return "", ErrNotFound
	}

	user, err := s.userRepo.GetByWallet(normalized)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrNotFound
	}
	if strings.TrimSpace(user.ReferralCode) != "" {
		return user.ReferralCode, nil
	}

	for i := 0; i < referralCodeMaxRetry; i++ {
		code, genErr := generateReferralCode(s.codeLength())
		if genErr != nil {
			return "", genErr
		}
		user.ReferralCode = code
		if err := s.userRepo.Update(user); err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return "", err
		}
		return code, nil
	}
	return "", ErrInvalidReferralCode
}

// RecordReferral 记录推荐关系。以被推荐钱包为唯一键原子写入：
// 已存在入边时返回既有记录且不做任何修改，返回值标记是否新建。
func (s *ReferralService) RecordReferral(referredWallet, rawCode, source string) (*models.Referral, bool, error) {
	referred, err := NormalizeWalletAddress(referredWallet)
	if err != nil {
		return nil, false, err
	}
	code := strings.ToUpper(strings.TrimSpace(rawCode))
	if code == "" {
		return nil, false, ErrInvalidReferralCode
	}

	referrer, err := s.userRepo.GetByReferralCode(code)
	if err != nil {
		return nil, false, err
	}
	if referrer == nil {
		return nil, false, ErrInvalidReferralCode
	}
	if referrer.WalletAddress == referred {
		return nil, false, ErrSelfReferral
	}

	if strings.TrimSpace(source) == "" {
		source = constants.ReferralSourceConnect
	}

	created := false
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		referral := &models.Referral{
			ReferrerWallet: referrer.WalletAddress,
			ReferredWallet: referred,
			Code:           code,
			Source:         source,
			CreatedAt:      time.Now(),
		}
		inserted, err := repoTx.CreateIfAbsent(referral)
		if err != nil {
			return err
		}
		created = inserted
		if !inserted {
			return nil
		}
		return s.userRepo.WithTx(tx).UpdateReferrer(referred, referrer.WalletAddress)
	})
	if err != nil {
		return nil, false, err
	}

	record, err := s.repo.GetByReferredWallet(referred)
	if err != nil {
		return nil, false, err
	}
	return record, created, nil
}

// GetReferrerFor 查询被推荐钱包的入边记录，不存在返回 nil
func (s *ReferralService) GetReferrerFor(referredWallet string) (*models.Referral, error) {
	normalized, err := NormalizeWalletAddress(referredWallet)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByReferredWallet(normalized)
}

// ListReferralsBy 查询推荐人的一级下线记录
func (s *ReferralService) ListReferralsBy(referrerWallet string) ([]models.Referral, error) {
	normalized, err := NormalizeWalletAddress(referrerWallet)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByReferrerWallet(normalized)
}

// CountReferralsByAll 单次扫描统计所有推荐人的直推人数
func (s *ReferralService) CountReferralsByAll() (map[string]int64, error) {
	return s.repo.CountByReferrerAll()
}

// ListAdmin 后台查询推荐记录
func (s *ReferralService) ListAdmin(filter repository.ReferralListFilter) ([]models.Referral, int64, error) {
	return s.repo.List(filter)
}

// ReassignReferrer 管理员改绑上级：重写被推荐钱包的唯一入边并同步用户冗余字段
func (s *ReferralService) ReassignReferrer(referredWallet, newReferrerWallet, operator string) (*models.Referral, error) {
	allowed, err := s.allowRebind()
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrReferralRebindOff
	}

	referred, err := NormalizeWalletAddress(referredWallet)
	if err != nil {
		return nil, err
	}
	newReferrer, err := NormalizeWalletAddress(newReferrerWallet)
	if err != nil {
		return nil, err
	}
	if referred == newReferrer {
		return nil, ErrSelfReferral
	}

	referredUser, err := s.userRepo.GetByWallet(referred)
	if err != nil {
		return nil, err
	}
	if referredUser == nil {
		return nil, ErrNotFound
	}
	referrerUser, err := s.userRepo.GetByWallet(newReferrer)
	if err != nil {
		return nil, err
	}
	if referrerUser == nil {
		return nil, ErrReferrerNotFound
	}

	if err := s.ensureNoUplineCycle(referred, newReferrer); err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		existing, err := repoTx.GetByReferredWallet(referred)
		if err != nil {
			return err
		}
		if existing == nil {
			referral := &models.Referral{
				ReferrerWallet: newReferrer,
				ReferredWallet: referred,
				Code:           referrerUser.ReferralCode,
				Source:         constants.ReferralSourceAdmin,
				CorrectedAt:    &now,
				CorrectedBy:    strings.TrimSpace(operator),
				CreatedAt:      now,
			}
			if _, err := repoTx.CreateIfAbsent(referral); err != nil {
				return err
			}
		} else if _, err := repoTx.RewriteReferrer(referred, newReferrer, referrerUser.ReferralCode, operator, now); err != nil {
			return err
		}
		return s.userRepo.WithTx(tx).UpdateReferrer(referred, newReferrer)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetByReferredWallet(referred)
}

// GetMyReferral 获取用户推荐中心数据（推荐码缺失时补发）
func (s *ReferralService) GetMyReferral(wallet string) (*MyReferral, error) {
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

	code := strings.TrimSpace(user.ReferralCode)
	if code == "" {
		code, err = s.IssueCode(normalized)
		if err != nil {
			return nil, err
		}
	}

	directs, err := s.userRepo.CountDirects(normalized)
	if err != nil {
		return nil, err
	}

	return &MyReferral{
		WalletAddress:  user.WalletAddress,
		ReferralCode:   code,
		ReferrerWallet: user.ReferrerWallet,
		DirectsCount:   directs,
		ReferralLink:   s.BuildReferralLink(code),
	}, nil
}

// BuildReferralLink 拼接推荐链接（settings 优先，回退静态配置）
func (s *ReferralService) BuildReferralLink(code string) string {
	base := ""
	if s.cfg != nil {
		base = strings.TrimRight(strings.TrimSpace(s.cfg.Referral.LinkBaseURL), "/")
	}
	if s.settingService != nil {
		if resolved, err := s.settingService.GetReferralLinkBase(base); err == nil {
			base = resolved
		}
	}
	if base == "" {
		return "/?ref=" + code
	}
	return base + "/?ref=" + code
}

func (s *ReferralService) allowRebind() (bool, error) {
	fallback := true
	if s.cfg != nil {
		fallback = s.cfg.Referral.AllowRebind
	}
	if s.settingService == nil {
		return fallback, nil
	}
	return s.settingService.GetReferralAllowRebind(fallback)
}

// ensureNoUplineCycle 沿新上级的推荐链向上走，命中被改绑钱包说明会成环
func (s *ReferralService) ensureNoUplineCycle(referred, newReferrer string) error {
	cursor := newReferrer
	visited := map[string]struct{}{}
	for depth := 0; cursor != "" && depth < referralChainMaxDepth; depth++ {
		if cursor == referred {
			return ErrReferralCycle
		}
		if _, seen := visited[cursor]; seen {
			return ErrReferralCycle
		}
		visited[cursor] = struct{}{}

		user, err := s.userRepo.GetByWallet(cursor)
		if err != nil {
			return err
		}
		if user == nil {
			return nil
		}
		cursor = strings.ToLower(strings.TrimSpace(user.ReferrerWallet))
	}
	return nil
}

func (s *ReferralService) codeLength() int {
	if s.cfg == nil {
		return referralCodeDefaultLength
	}
	length := s.cfg.Referral.CodeLength
	if length < 4 || length > 16 {
		return referralCodeDefaultLength
	}
	return length
}

// NormalizeWalletAddress 统一钱包地址格式（小写 0x + 40 位十六进制）
func NormalizeWalletAddress(wallet string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(wallet))
	if !walletAddressPattern.MatchString(normalized) {
		return "", ErrInvalidWalletAddress
	}
	return normalized, nil
}

func generateReferralCode(length int) (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var builder strings.Builder
	builder.Grow(length)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
