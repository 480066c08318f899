package repository

import (
	"time"

	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/models"

	"gorm.io/gorm"
)

// OrgSnapshot 组织架构聚合的一致性读快照
type OrgSnapshot struct {
	Users       []models.User
	Investments []models.Investment
	TakenAt     time.Time
}

// OrganizationRepository 组织架构数据访问接口
type OrganizationRepository interface {
	Snapshot(investedFrom, investedTo *time.Time) (*OrgSnapshot, error)
}

// GormOrganizationRepository GORM 实现
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository 创建组织架构仓库
func NewOrganizationRepository(db *gorm.DB) *GormOrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// Snapshot 在单个事务内读取全量用户与已确认投资，
// 保证两次全表读之间不会夹进新的写入。时间窗口为闭区间。
func (r *GormOrganizationRepository) Snapshot(investedFrom, investedTo *time.Time) (*OrgSnapshot, error) {
	snapshot := &OrgSnapshot{
		Users:       make([]models.User, 0),
		Investments: make([]models.Investment, 0),
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("id ASC").Find(&snapshot.Users).Error; err != nil {
			return err
		}

		query := tx.Model(&models.Investment{}).
			Where("status = ?", constants.InvestmentStatusConfirmed)
		if investedFrom != nil {
			query = query.Where("invested_at >= ?", *investedFrom)
		}
		if investedTo != nil {
			query = query.Where("invested_at <= ?", *investedTo)
		}
		return query.Order("id ASC").Find(&snapshot.Investments).Error
	})
	if err != nil {
		return nil, err
	}

	snapshot.TakenAt = time.Now()
	return snapshot, nil
}
