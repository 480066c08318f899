package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/models"

	"gorm.io/gorm"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository

	GetByWallet(wallet string) (*models.User, error)
	GetByReferralCode(code string) (*models.User, error)
	GetByID(id uint) (*models.User, error)
	Create(user *models.User) error
	Update(user *models.User) error
	UpdateReferrer(wallet, referrerWallet string) error
	List(filter UserListFilter) ([]models.User, int64, error)
	ListAll() ([]models.User, error)
	CountDirects(wallet string) (int64, error)
	BatchUpdateStatus(wallets []string, status string) error
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserRepository) WithTx(tx *gorm.DB) UserRepository {
	if tx == nil {
		return r
	}
	return &GormUserRepository{db: tx}
}

// GetByWallet 根据钱包地址获取用户
func (r *GormUserRepository) GetByWallet(wallet string) (*models.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(wallet))
	if normalized == "" {
		return nil, nil
	}
	var user models.User
	if err := r.db.Where("wallet_address = ?", normalized).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByReferralCode 根据推荐码获取用户
func (r *GormUserRepository) GetByReferralCode(code string) (*models.User, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var user models.User
	if err := r.db.Where("referral_code = ?", normalized).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByID 根据 ID 获取用户
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Create 创建用户
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// Update 更新用户
func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// UpdateReferrer 更新用户上级钱包
func (r *GormUserRepository) UpdateReferrer(wallet, referrerWallet string) error {
	normalized := strings.ToLower(strings.TrimSpace(wallet))
	if normalized == "" {
		return nil
	}
	return r.db.Model(&models.User{}).
		Where("wallet_address = ?", normalized).
		Updates(map[string]interface{}{
			"referrer_wallet": strings.ToLower(strings.TrimSpace(referrerWallet)),
			"updated_at":      time.Now(),
		}).Error
}

// List 用户列表
func (r *GormUserRepository) List(filter UserListFilter) ([]models.User, int64, error) {
	query := r.db.Model(&models.User{})

	if filter.Keyword != "" {
		like := "%" + strings.TrimSpace(filter.Keyword) + "%"
		op := likeOperator(r.db)
		query = query.Where(
			fmt.Sprintf("wallet_address %s ? OR referral_code %s ?", op, op),
			like, like,
		)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if wallet := strings.ToLower(strings.TrimSpace(filter.ReferrerWallet)); wallet != "" {
		query = query.Where("referrer_wallet = ?", wallet)
	}
	if filter.RegisteredFrom != nil {
		query = query.Where("registered_at >= ?", *filter.RegisteredFrom)
	}
	if filter.RegisteredTo != nil {
		query = query.Where("registered_at <= ?", *filter.RegisteredTo)
	}
	if filter.LastConnectFrom != nil {
		query = query.Where("last_connected_at >= ?", *filter.LastConnectFrom)
	}
	if filter.LastConnectTo != nil {
		query = query.Where("last_connected_at <= ?", *filter.LastConnectTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var users []models.User
	if err := query.Order("id DESC").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListAll 获取全量用户（组织架构聚合用）
func (r *GormUserRepository) ListAll() ([]models.User, error) {
	users := make([]models.User, 0)
	if err := r.db.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// CountDirects 统计直接下级人数
func (r *GormUserRepository) CountDirects(wallet string) (int64, error) {
	normalized := strings.ToLower(strings.TrimSpace(wallet))
	if normalized == "" {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.User{}).
		Where("referrer_wallet = ?", normalized).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// BatchUpdateStatus 批量更新用户状态
func (r *GormUserRepository) BatchUpdateStatus(wallets []string, status string) error {
	if len(wallets) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(wallets))
	for _, wallet := range wallets {
		if trimmed := strings.ToLower(strings.TrimSpace(wallet)); trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	if len(normalized) == 0 {
		return nil
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	if strings.ToLower(strings.TrimSpace(status)) == constants.UserStatusDisabled {
		updates["token_invalid_before"] = now
		updates["token_version"] = gorm.Expr("token_version + 1")
	}
	return r.db.Model(&models.User{}).Where("wallet_address IN ?", normalized).Updates(updates).Error
}
