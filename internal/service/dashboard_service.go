package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stakehub-next/internal/cache"
	"github.com/stakehub-next/internal/repository"
)

const (
	dashboardCacheTTL      = 45 * time.Second
	dashboardCustomMaxDays = 90
	dashboardTopProjects   = 5

	dashboardPendingAlertThreshold = 20
	dashboardFailedAlertThreshold  = 5
)

// DashboardService 仪表盘服务
// 说明：聚合后台首页核心经营数据。
type DashboardService struct {
	repo repository.DashboardRepository
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// DashboardQueryInput 仪表盘查询输入
type DashboardQueryInput struct {
	Range        string
	From         *time.Time
	To           *time.Time
	Timezone     string
	ForceRefresh bool
}

// DashboardOverviewResponse 仪表盘总览响应
type DashboardOverviewResponse struct {
	Range    string               `json:"range"`
	From     string               `json:"from"`
	To       string               `json:"to"`
	Timezone string               `json:"timezone"`
	KPI      DashboardKPI         `json:"kpi"`
	Alerts   []DashboardAlertItem `json:"alerts"`
}

// DashboardKPI 仪表盘核心指标
type DashboardKPI struct {
	UsersTotal           int64  `json:"users_total"`
	NewUsers             int64  `json:"new_users"`
	ReferralsTotal       int64  `json:"referrals_total"`
	NewReferrals         int64  `json:"new_referrals"`
	InvestmentsTotal     int64  `json:"investments_total"`
	PendingInvestments   int64  `json:"pending_investments"`
	ConfirmedInvestments int64  `json:"confirmed_investments"`
	FailedInvestments    int64  `json:"failed_investments"`
	ConfirmedAmount      string `json:"confirmed_amount"`
	ConfirmRate          string `json:"confirm_rate"`
	ActiveProjects       int64  `json:"active_projects"`
}

// DashboardAlertItem 仪表盘告警项
type DashboardAlertItem struct {
	Type  string `json:"type"`
	Level string `json:"level"`
	Value int64  `json:"value"`
}

// DashboardTrendResponse 仪表盘趋势响应
type DashboardTrendResponse struct {
	Range    string                `json:"range"`
	From     string                `json:"from"`
	To       string                `json:"to"`
	Timezone string                `json:"timezone"`
	Points   []DashboardTrendPoint `json:"points"`
}

// DashboardTrendPoint 趋势点
type DashboardTrendPoint struct {
	Date            string `json:"date"`
	InvestmentsNew  int64  `json:"investments_new"`
	ConfirmedCount  int64  `json:"confirmed_count"`
	ConfirmedAmount string `json:"confirmed_amount"`
}

// DashboardRankingsResponse 仪表盘排行榜响应
type DashboardRankingsResponse struct {
	Range       string                    `json:"range"`
	From        string                    `json:"from"`
	To          string                    `json:"to"`
	Timezone    string                    `json:"timezone"`
	TopProjects []DashboardProjectRanking `json:"top_projects"`
}

// DashboardProjectRanking 项目排行项
type DashboardProjectRanking struct {
	ProjectID       uint   `json:"project_id"`
	ProjectName     string `json:"project_name"`
	ConfirmedCount  int64  `json:"confirmed_count"`
	ConfirmedAmount string `json:"confirmed_amount"`
}

type dashboardWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
	timezone string
}

// GetOverview 获取仪表盘总览
func (s *DashboardService) GetOverview(ctx context.Context, input DashboardQueryInput) (*DashboardOverviewResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardOverviewResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:overview:%s:%d:%d:%s",
		window.rangeKey,
		window.startAt.Unix(),
		window.endAt.Unix(),
		window.timezone,
	)
	if !input.ForceRefresh {
		var cached DashboardOverviewResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	overview, err := s.repo.GetOverview(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}

	confirmRate := 0.0
	if overview.InvestmentsTotal > 0 {
		confirmRate = float64(overview.ConfirmedInvestments) / float64(overview.InvestmentsTotal) * 100
	}

	response := &DashboardOverviewResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		KPI: DashboardKPI{
			UsersTotal:           overview.UsersTotal,
			NewUsers:             overview.NewUsers,
			ReferralsTotal:       overview.ReferralsTotal,
			NewReferrals:         overview.NewReferrals,
			InvestmentsTotal:     overview.InvestmentsTotal,
			PendingInvestments:   overview.PendingInvestments,
			ConfirmedInvestments: overview.ConfirmedInvestments,
			FailedInvestments:    overview.FailedInvestments,
			ConfirmedAmount:      formatMoneyValue(overview.ConfirmedAmount),
			ConfirmRate:          formatPercentValue(confirmRate),
			ActiveProjects:       overview.ActiveProjects,
		},
		Alerts: buildDashboardAlerts(overview),
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetTrends 获取投资趋势
func (s *DashboardService) GetTrends(ctx context.Context, input DashboardQueryInput) (*DashboardTrendResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardTrendResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:trends:%s:%d:%d:%s", window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardTrendResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	rows, err := s.repo.GetInvestmentTrends(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}
	rowMap := make(map[string]repository.DashboardInvestmentTrendRow, len(rows))
	for _, item := range rows {
		rowMap[item.Day] = item
	}

	// 空档日补零，保证前端连续画线
	points := make([]DashboardTrendPoint, 0)
	for cursor := time.Date(window.startAt.Year(), window.startAt.Month(), window.startAt.Day(), 0, 0, 0, 0, window.startAt.Location()); cursor.Before(window.endAt); cursor = cursor.AddDate(0, 0, 1) {
		day := cursor.Format("2006-01-02")
		item := rowMap[day]
		points = append(points, DashboardTrendPoint{
			Date:            day,
			InvestmentsNew:  item.InvestmentsNew,
			ConfirmedCount:  item.ConfirmedCount,
			ConfirmedAmount: formatMoneyValue(item.ConfirmedAmount),
		})
	}

	response := &DashboardTrendResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		Points:   points,
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetRankings 获取项目吸纳排行榜
func (s *DashboardService) GetRankings(ctx context.Context, input DashboardQueryInput) (*DashboardRankingsResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardRankingsResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:rankings:%s:%d:%d:%s", window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardRankingsResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	rows, err := s.repo.GetTopProjects(window.startAt, window.endAt, dashboardTopProjects)
	if err != nil {
		return nil, err
	}

	projects := make([]DashboardProjectRanking, 0, len(rows))
	for _, item := range rows {
		name := strings.TrimSpace(item.ProjectName)
		if name == "" {
			name = "-"
		}
		projects = append(projects, DashboardProjectRanking{
			ProjectID:       item.ProjectID,
			ProjectName:     name,
			ConfirmedCount:  item.ConfirmedCount,
			ConfirmedAmount: formatMoneyValue(item.ConfirmedAmount),
		})
	}

	response := &DashboardRankingsResponse{
		Range:       window.rangeKey,
		From:        window.startAt.Format(time.RFC3339),
		To:          window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone:    window.timezone,
		TopProjects: projects,
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

func resolveDashboardWindow(input DashboardQueryInput, now time.Time) (dashboardWindow, error) {
	rangeKey := strings.ToLower(strings.TrimSpace(input.Range))
	if rangeKey == "" {
		rangeKey = "7d"
	}

	timezone := strings.TrimSpace(input.Timezone)
	location := time.Local
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			location = parsed
		} else {
			timezone = ""
		}
	}
	if timezone == "" {
		timezone = location.String()
	}

	localNow := now.In(location)
	todayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, location)
	window := dashboardWindow{rangeKey: rangeKey, timezone: timezone}

	switch rangeKey {
	case "today":
		window.startAt = todayStart
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "7d":
		window.startAt = todayStart.AddDate(0, 0, -6)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "30d":
		window.startAt = todayStart.AddDate(0, 0, -29)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "custom":
		if input.From == nil || input.To == nil {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		startAt := input.From.In(location)
		endAt := input.To.In(location)
		if endAt.Before(startAt) {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		if endAt.Sub(startAt) > time.Hour*24*dashboardCustomMaxDays {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		window.startAt = startAt
		window.endAt = endAt.Add(time.Second)
	default:
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}

	if !window.endAt.After(window.startAt) {
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}
	return window, nil
}

func formatMoneyValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatPercentValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func buildDashboardAlerts(overview repository.DashboardOverviewRow) []DashboardAlertItem {
	alerts := make([]DashboardAlertItem, 0, 2)
	if overview.PendingInvestments >= dashboardPendingAlertThreshold {
		alerts = append(alerts, DashboardAlertItem{Type: "pending_investments", Level: "warning", Value: overview.PendingInvestments})
	}
	if overview.FailedInvestments >= dashboardFailedAlertThreshold {
		alerts = append(alerts, DashboardAlertItem{Type: "failed_investments", Level: "warning", Value: overview.FailedInvestments})
	}
	return alerts
}
