package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupDashboardRepositoryTest(t *testing.T) (*GormDashboardRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Referral{}, &models.Project{}, &models.Investment{}); err != nil {
		t.Fatalf("migrate dashboard models failed: %v", err)
	}
	return NewDashboardRepository(db), db
}

func createDashboardProject(t *testing.T, db *gorm.DB, name string) *models.Project {
	t.Helper()
	project := &models.Project{
		Name:      name,
		Symbol:    "USDT",
		Category:  "fixed",
		MinAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		MaxAmount: models.NewMoneyFromDecimal(decimal.Zero),
		Status:    constants.ProjectStatusActive,
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("create project failed: %v", err)
	}
	return project
}

func createDashboardInvestment(t *testing.T, db *gorm.DB, projectID uint, wallet, status string, amount int64, investedAt time.Time) {
	t.Helper()
	inv := &models.Investment{
		UserWallet: wallet,
		ProjectID:  projectID,
		Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(amount)),
		TxHash:     fmt.Sprintf("0xhash-%s-%d-%d", wallet, projectID, investedAt.UnixNano()),
		Category:   "fixed",
		Status:     status,
		InvestedAt: investedAt,
	}
	if status == constants.InvestmentStatusConfirmed {
		confirmedAt := investedAt.Add(time.Minute)
		inv.ConfirmedAt = &confirmedAt
	}
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("create investment failed: %v", err)
	}
}

func TestGetOverviewCountsByStatus(t *testing.T) {
	repo, db := setupDashboardRepositoryTest(t)
	now := time.Now()

	user := &models.User{
		WalletAddress: "0xaaa",
		ReferralCode:  "CODEAAA1",
		Status:        constants.UserStatusActive,
		RegisteredAt:  now,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	referral := &models.Referral{
		ReferrerWallet: "0xaaa",
		ReferredWallet: "0xbbb",
		Code:           "CODEAAA1",
		Source:         constants.ReferralSourceConnect,
		CreatedAt:      now,
	}
	if err := db.Create(referral).Error; err != nil {
		t.Fatalf("create referral failed: %v", err)
	}

	project := createDashboardProject(t, db, "定期90天")
	createDashboardInvestment(t, db, project.ID, "0xaaa", constants.InvestmentStatusConfirmed, 1000, now)
	createDashboardInvestment(t, db, project.ID, "0xbbb", constants.InvestmentStatusPending, 500, now)
	createDashboardInvestment(t, db, project.ID, "0xbbb", constants.InvestmentStatusFailed, 300, now)

	row, err := repo.GetOverview(now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("get overview failed: %v", err)
	}
	if row.UsersTotal != 1 {
		t.Fatalf("users total want 1 got %d", row.UsersTotal)
	}
	if row.NewUsers != 1 {
		t.Fatalf("new users want 1 got %d", row.NewUsers)
	}
	if row.ReferralsTotal != 1 || row.NewReferrals != 1 {
		t.Fatalf("referrals want 1/1 got %d/%d", row.ReferralsTotal, row.NewReferrals)
	}
	if row.InvestmentsTotal != 3 {
		t.Fatalf("investments total want 3 got %d", row.InvestmentsTotal)
	}
	if row.PendingInvestments != 1 || row.ConfirmedInvestments != 1 || row.FailedInvestments != 1 {
		t.Fatalf("status breakdown want 1/1/1 got %d/%d/%d",
			row.PendingInvestments, row.ConfirmedInvestments, row.FailedInvestments)
	}
	if row.ConfirmedAmount != 1000 {
		t.Fatalf("confirmed amount want 1000 got %.2f", row.ConfirmedAmount)
	}
	if row.ActiveProjects != 1 {
		t.Fatalf("active projects want 1 got %d", row.ActiveProjects)
	}
}

func TestGetTopProjectsOrdersByConfirmedAmount(t *testing.T) {
	repo, db := setupDashboardRepositoryTest(t)
	now := time.Now()

	small := createDashboardProject(t, db, "活期宝")
	big := createDashboardProject(t, db, "节点计划")

	createDashboardInvestment(t, db, small.ID, "0xaaa", constants.InvestmentStatusConfirmed, 200, now)
	createDashboardInvestment(t, db, big.ID, "0xbbb", constants.InvestmentStatusConfirmed, 5000, now)
	createDashboardInvestment(t, db, big.ID, "0xccc", constants.InvestmentStatusConfirmed, 3000, now)
	// pending 不计入排行
	createDashboardInvestment(t, db, small.ID, "0xddd", constants.InvestmentStatusPending, 9999, now)

	rows, err := repo.GetTopProjects(now.Add(-time.Hour), now.Add(time.Hour), 5)
	if err != nil {
		t.Fatalf("get top projects failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows len want 2 got %d", len(rows))
	}
	if rows[0].ProjectID != big.ID {
		t.Fatalf("top project want %d got %d", big.ID, rows[0].ProjectID)
	}
	if rows[0].ProjectName != "节点计划" {
		t.Fatalf("top project name want 节点计划 got %s", rows[0].ProjectName)
	}
	if rows[0].ConfirmedCount != 2 {
		t.Fatalf("confirmed count want 2 got %d", rows[0].ConfirmedCount)
	}
	if rows[0].ConfirmedAmount != 8000 {
		t.Fatalf("confirmed amount want 8000 got %.2f", rows[0].ConfirmedAmount)
	}
}

func TestGetInvestmentTrendsGroupsByDay(t *testing.T) {
	repo, db := setupDashboardRepositoryTest(t)
	day1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	project := createDashboardProject(t, db, "定期90天")
	createDashboardInvestment(t, db, project.ID, "0xaaa", constants.InvestmentStatusConfirmed, 1000, day1)
	createDashboardInvestment(t, db, project.ID, "0xbbb", constants.InvestmentStatusPending, 500, day1)
	createDashboardInvestment(t, db, project.ID, "0xccc", constants.InvestmentStatusConfirmed, 2000, day2)

	rows, err := repo.GetInvestmentTrends(day1.Add(-time.Hour), day2.Add(time.Hour))
	if err != nil {
		t.Fatalf("get trends failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows len want 2 got %d", len(rows))
	}
	if rows[0].InvestmentsNew != 2 || rows[0].ConfirmedCount != 1 || rows[0].ConfirmedAmount != 1000 {
		t.Fatalf("day1 row mismatch: %+v", rows[0])
	}
	if rows[1].InvestmentsNew != 1 || rows[1].ConfirmedCount != 1 || rows[1].ConfirmedAmount != 2000 {
		t.Fatalf("day2 row mismatch: %+v", rows[1])
	}
}
