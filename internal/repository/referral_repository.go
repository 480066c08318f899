package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/stakehub-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralRepository 推荐关系数据访问接口
type ReferralRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ReferralRepository

	CreateIfAbsent(referral *models.Referral) (bool, error)
	GetByReferredWallet(wallet string) (*models.Referral, error)
	ListByReferrerWallet(wallet string) ([]models.Referral, error)
	CountByReferrerAll() (map[string]int64, error)
	RewriteReferrer(referredWallet, newReferrerWallet, newCode, operator string, at time.Time) (int64, error)
	List(filter ReferralListFilter) ([]models.Referral, int64, error)
	ListDangling() ([]models.Referral, error)
}

// GormReferralRepository GORM 推荐关系仓储
type GormReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository 创建推荐关系仓储
func NewReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReferralRepository) WithTx(tx *gorm.DB) ReferralRepository {
	if tx == nil {
		return r
	}
	return &GormReferralRepository{db: tx}
}

// Transaction 执行事务
func (r *GormReferralRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateIfAbsent 原子写入推荐关系。以被推荐钱包唯一键为冲突目标，
// 已存在入边时不做任何修改，返回是否真正写入。
func (r *GormReferralRepository) CreateIfAbsent(referral *models.Referral) (bool, error) {
	if referral == nil {
		return false, nil
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "referred_wallet"}},
		DoNothing: true,
	}).Create(referral)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByReferredWallet 查询被推荐钱包的入边记录
func (r *GormReferralRepository) GetByReferredWallet(wallet string) (*models.Referral, error) {
	normalized := strings.ToLower(strings.TrimSpace(wallet))
	if normalized == "" {
		return nil, nil
	}
	var referral models.Referral
	if err := r.db.Where("referred_wallet = ?", normalized).First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// ListByReferrerWallet 查询推荐人的一级下线记录
func (r *GormReferralRepository) ListByReferrerWallet(wallet string) ([]models.Referral, error) {
	normalized := strings.ToLower(strings.TrimSpace(wallet))
	if normalized == "" {
		return []models.Referral{}, nil
	}
	rows := make([]models.Referral, 0)
	if err := r.db.Where("referrer_wallet = ?", normalized).
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByReferrerAll 单次扫描统计每个推荐人的直推人数
func (r *GormReferralRepository) CountByReferrerAll() (map[string]int64, error) {
	var rows []struct {
		ReferrerWallet string `gorm:"column:referrer_wallet"`
		Total          int64  `gorm:"column:total"`
	}
	if err := r.db.Model(&models.Referral{}).
		Select("referrer_wallet, COUNT(*) AS total").
		Group("referrer_wallet").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.ReferrerWallet] = row.Total
	}
	return result, nil
}

// RewriteReferrer 管理员改绑：重写被推荐钱包的唯一入边（含新上级的推荐码）
// 并记录操作痕迹
func (r *GormReferralRepository) RewriteReferrer(referredWallet, newReferrerWallet, newCode, operator string, at time.Time) (int64, error) {
	referred := strings.ToLower(strings.TrimSpace(referredWallet))
	if referred == "" {
		return 0, nil
	}
	result := r.db.Model(&models.Referral{}).
		Where("referred_wallet = ?", referred).
		Updates(map[string]interface{}{
			"referrer_wallet": strings.ToLower(strings.TrimSpace(newReferrerWallet)),
			"code":            strings.TrimSpace(newCode),
			"corrected_at":    at,
			"corrected_by":    strings.TrimSpace(operator),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// List 查询推荐记录列表
func (r *GormReferralRepository) List(filter ReferralListFilter) ([]models.Referral, int64, error) {
	query := r.db.Model(&models.Referral{})

	if wallet := strings.ToLower(strings.TrimSpace(filter.ReferrerWallet)); wallet != "" {
		query = query.Where("referrer_wallet = ?", wallet)
	}
	if wallet := strings.ToLower(strings.TrimSpace(filter.ReferredWallet)); wallet != "" {
		query = query.Where("referred_wallet = ?", wallet)
	}
	if code := strings.ToUpper(strings.TrimSpace(filter.Code)); code != "" {
		query = query.Where("code = ?", code)
	}
	if source := strings.TrimSpace(filter.Source); source != "" {
		query = query.Where("source = ?", source)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	rows := make([]models.Referral, 0)
	if err := query.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListDangling 查询推荐人已不存在于用户表的悬挂记录（巡检用）
func (r *GormReferralRepository) ListDangling() ([]models.Referral, error) {
	rows := make([]models.Referral, 0)
	err := r.db.Model(&models.Referral{}).
		Joins("LEFT JOIN users ON users.wallet_address = referrals.referrer_wallet").
		Where("users.id IS NULL").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
