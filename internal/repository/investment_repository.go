package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvestmentSummaryRow 按项目汇总的投资统计行
type InvestmentSummaryRow struct {
	ProjectID uint            `gorm:"column:project_id"`
	Total     decimal.Decimal `gorm:"column:total"`
	Count     int64           `gorm:"column:cnt"`
}

// InvestmentRepository 投资记录数据访问接口
type InvestmentRepository interface {
	GetByID(id uint) (*models.Investment, error)
	GetByTxHash(txHash string) (*models.Investment, error)
	Create(investment *models.Investment) error
	Update(investment *models.Investment) error
	UpdateStatus(id uint, from, to, failReason string, confirmedAt *time.Time) (int64, error)
	List(filter InvestmentListFilter) ([]models.Investment, int64, error)
	SumConfirmedByWallet(wallet string) (decimal.Decimal, error)
	SummarizeConfirmedByProject(wallet string) ([]InvestmentSummaryRow, error)
}

// GormInvestmentRepository GORM 实现
type GormInvestmentRepository struct {
	db *gorm.DB
}

// NewInvestmentRepository 创建投资记录仓库
func NewInvestmentRepository(db *gorm.DB) *GormInvestmentRepository {
	return &GormInvestmentRepository{db: db}
}

// GetByID 根据 ID 获取投资记录
func (r *GormInvestmentRepository) GetByID(id uint) (*models.Investment, error) {
	if id == 0 {
		return nil, nil
	}
	var investment models.Investment
	if err := r.db.Preload("Project").First(&investment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &investment, nil
}

// GetByTxHash 根据链上交易哈希获取投资记录
func (r *GormInvestmentRepository) GetByTxHash(txHash string) (*models.Investment, error) {
	normalized := strings.ToLower(strings.TrimSpace(txHash))
	if normalized == "" {
		return nil, nil
	}
	var investment models.Investment
	if err := r.db.Where("tx_hash = ?", normalized).First(&investment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &investment, nil
}

// Create 创建投资记录
func (r *GormInvestmentRepository) Create(investment *models.Investment) error {
	return r.db.Create(investment).Error
}

// Update 更新投资记录
func (r *GormInvestmentRepository) Update(investment *models.Investment) error {
	return r.db.Save(investment).Error
}

// UpdateStatus 条件化状态流转，带上前置状态避免并发重复确认
func (r *GormInvestmentRepository) UpdateStatus(id uint, from, to, failReason string, confirmedAt *time.Time) (int64, error) {
	if id == 0 {
		return 0, nil
	}
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if confirmedAt != nil {
		updates["confirmed_at"] = *confirmedAt
	}
	if reason := strings.TrimSpace(failReason); reason != "" {
		updates["fail_reason"] = reason
	}
	result := r.db.Model(&models.Investment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// List 查询投资记录列表
func (r *GormInvestmentRepository) List(filter InvestmentListFilter) ([]models.Investment, int64, error) {
	query := r.db.Model(&models.Investment{}).Preload("Project")

	if wallet := strings.ToLower(strings.TrimSpace(filter.UserWallet)); wallet != "" {
		query = query.Where("user_wallet = ?", wallet)
	}
	if filter.ProjectID != 0 {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if txHash := strings.ToLower(strings.TrimSpace(filter.TxHash)); txHash != "" {
		query = query.Where("tx_hash = ?", txHash)
	}
	if filter.InvestedFrom != nil {
		query = query.Where("invested_at >= ?", *filter.InvestedFrom)
	}
	if filter.InvestedTo != nil {
		query = query.Where("invested_at <= ?", *filter.InvestedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	rows := make([]models.Investment, 0)
	if err := query.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SumConfirmedByWallet 汇总钱包已确认投资总额
func (r *GormInvestmentRepository) SumConfirmedByWallet(wallet string) (decimal.Decimal, error) {
	normalized := strings.ToLower(strings.TrimSpace(wallet))
	if normalized == "" {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.Investment{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_wallet = ? AND status = ?", normalized, constants.InvestmentStatusConfirmed).
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// SummarizeConfirmedByProject 按项目汇总钱包已确认投资
func (r *GormInvestmentRepository) SummarizeConfirmedByProject(wallet string) ([]InvestmentSummaryRow, error) {
	normalized := strings.ToLower(strings.TrimSpace(wallet))
	if normalized == "" {
		return []InvestmentSummaryRow{}, nil
	}
	rows := make([]InvestmentSummaryRow, 0)
	if err := r.db.Model(&models.Investment{}).
		Select("project_id, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS cnt").
		Where("user_wallet = ? AND status = ?", normalized, constants.InvestmentStatusConfirmed).
		Group("project_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
