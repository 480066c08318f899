package repository

import (
	"fmt"
	"time"

	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository 仪表盘聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type DashboardRepository interface {
	GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error)
	GetInvestmentTrends(startAt, endAt time.Time) ([]DashboardInvestmentTrendRow, error)
	GetTopProjects(startAt, endAt time.Time, limit int) ([]DashboardProjectRankingRow, error)
}

// DashboardOverviewRow 仪表盘总览原始统计结果
type DashboardOverviewRow struct {
	UsersTotal           int64
	NewUsers             int64
	ReferralsTotal       int64
	NewReferrals         int64
	InvestmentsTotal     int64
	PendingInvestments   int64
	ConfirmedInvestments int64
	FailedInvestments    int64
	ConfirmedAmount      float64
	ActiveProjects       int64
}

// DashboardInvestmentTrendRow 投资趋势统计
type DashboardInvestmentTrendRow struct {
	Day             string
	InvestmentsNew  int64
	ConfirmedCount  int64
	ConfirmedAmount float64
}

// DashboardProjectRankingRow 项目排行原始行
type DashboardProjectRankingRow struct {
	ProjectID       uint
	ProjectName     string
	ConfirmedCount  int64
	ConfirmedAmount float64
}

// GormDashboardRepository GORM 仪表盘聚合实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建仪表盘仓库
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

// GetOverview 获取总览统计
func (r *GormDashboardRepository) GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error) {
	result := DashboardOverviewRow{}

	if err := r.db.Model(&models.User{}).Count(&result.UsersTotal).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.User{}).
		Where("registered_at >= ? AND registered_at < ?", startAt, endAt).
		Count(&result.NewUsers).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.Referral{}).Count(&result.ReferralsTotal).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.Referral{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Count(&result.NewReferrals).Error; err != nil {
		return result, err
	}

	investmentBase := func() *gorm.DB {
		return r.db.Model(&models.Investment{}).
			Where("invested_at >= ? AND invested_at < ?", startAt, endAt)
	}
	if err := investmentBase().Count(&result.InvestmentsTotal).Error; err != nil {
		return result, err
	}
	if err := investmentBase().Where("status = ?", constants.InvestmentStatusPending).
		Count(&result.PendingInvestments).Error; err != nil {
		return result, err
	}
	if err := investmentBase().Where("status = ?", constants.InvestmentStatusConfirmed).
		Count(&result.ConfirmedInvestments).Error; err != nil {
		return result, err
	}
	if err := investmentBase().Where("status = ?", constants.InvestmentStatusFailed).
		Count(&result.FailedInvestments).Error; err != nil {
		return result, err
	}
	if err := investmentBase().Where("status = ?", constants.InvestmentStatusConfirmed).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&result.ConfirmedAmount).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.Project{}).
		Where("status = ?", constants.ProjectStatusActive).
		Count(&result.ActiveProjects).Error; err != nil {
		return result, err
	}

	return result, nil
}

// GetInvestmentTrends 获取投资趋势
func (r *GormDashboardRepository) GetInvestmentTrends(startAt, endAt time.Time) ([]DashboardInvestmentTrendRow, error) {
	type totalRow struct {
		Day   string
		Total int64
	}
	type confirmedRow struct {
		Day    string
		Total  int64
		Amount float64
	}

	dayExpr := "CAST(date(invested_at) AS TEXT)"

	var totals []totalRow
	if err := r.db.Model(&models.Investment{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total", dayExpr)).
		Where("invested_at >= ? AND invested_at < ?", startAt, endAt).
		Group(dayExpr).
		Order("day asc").
		Scan(&totals).Error; err != nil {
		return nil, err
	}

	var confirmed []confirmedRow
	if err := r.db.Model(&models.Investment{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total, COALESCE(SUM(amount), 0) as amount", dayExpr)).
		Where("invested_at >= ? AND invested_at < ? AND status = ?", startAt, endAt, constants.InvestmentStatusConfirmed).
		Group(dayExpr).
		Order("day asc").
		Scan(&confirmed).Error; err != nil {
		return nil, err
	}

	confirmedMap := make(map[string]confirmedRow, len(confirmed))
	for _, item := range confirmed {
		confirmedMap[item.Day] = item
	}

	result := make([]DashboardInvestmentTrendRow, 0, len(totals))
	for _, item := range totals {
		row := DashboardInvestmentTrendRow{
			Day:            item.Day,
			InvestmentsNew: item.Total,
		}
		if c, ok := confirmedMap[item.Day]; ok {
			row.ConfirmedCount = c.Total
			row.ConfirmedAmount = c.Amount
		}
		result = append(result, row)
	}
	return result, nil
}

// GetTopProjects 获取项目吸纳排行榜
func (r *GormDashboardRepository) GetTopProjects(startAt, endAt time.Time, limit int) ([]DashboardProjectRankingRow, error) {
	if limit <= 0 {
		limit = 5
	}
	rows := make([]DashboardProjectRankingRow, 0)
	if err := r.db.Model(&models.Investment{}).
		Select(`
			investments.project_id as project_id,
			COALESCE(projects.name, '') as project_name,
			COUNT(*) as confirmed_count,
			COALESCE(SUM(investments.amount), 0) as confirmed_amount
		`).
		Joins("LEFT JOIN projects ON projects.id = investments.project_id").
		Where("investments.invested_at >= ? AND investments.invested_at < ? AND investments.status = ?",
			startAt, endAt, constants.InvestmentStatusConfirmed).
		Group("investments.project_id, projects.name").
		Order("confirmed_amount DESC, confirmed_count DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
