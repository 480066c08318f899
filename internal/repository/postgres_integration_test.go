//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.Investment{},
		&models.Referral{},
		&models.Project{},
		&models.User{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Referral{},
		&models.Project{},
		&models.Investment{},
	); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresListRepositories(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	userRepo := NewUserRepository(db)
	user := &models.User{
		WalletAddress: "0xpg000000000000000000000000000000000001",
		ReferralCode:  "PGCODE01",
		Status:        constants.UserStatusActive,
		RegisteredAt:  now,
	}
	if err := userRepo.Create(user); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	userRows, userTotal, err := userRepo.List(UserListFilter{
		Page:    1,
		Keyword: "0xpg0000",
	})
	if err != nil {
		t.Fatalf("user list keyword search failed: %v", err)
	}
	if userTotal != 1 || len(userRows) != 1 {
		t.Fatalf("user list keyword search want 1 got total=%d len=%d", userTotal, len(userRows))
	}

	project := &models.Project{
		Name:      "PG 定期90天",
		Symbol:    "USDT",
		Category:  "fixed",
		MinAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		MaxAmount: models.NewMoneyFromDecimal(decimal.Zero),
		Status:    constants.ProjectStatusActive,
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("create project failed: %v", err)
	}

	investmentRepo := NewInvestmentRepository(db)
	investment := &models.Investment{
		UserWallet: user.WalletAddress,
		ProjectID:  project.ID,
		Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(1500)),
		TxHash:     "0xpghash0001",
		Category:   project.Category,
		Status:     constants.InvestmentStatusConfirmed,
		InvestedAt: now,
	}
	if err := investmentRepo.Create(investment); err != nil {
		t.Fatalf("create investment failed: %v", err)
	}

	invRows, invTotal, err := investmentRepo.List(InvestmentListFilter{
		Page:       1,
		UserWallet: user.WalletAddress,
		Status:     constants.InvestmentStatusConfirmed,
	})
	if err != nil {
		t.Fatalf("investment list failed: %v", err)
	}
	if invTotal != 1 || len(invRows) != 1 {
		t.Fatalf("investment list want 1 got total=%d len=%d", invTotal, len(invRows))
	}
}

func TestPostgresDashboardQueries(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewDashboardRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	user := &models.User{
		WalletAddress: "0xpgdash00000000000000000000000000000001",
		ReferralCode:  "PGDASH01",
		Status:        constants.UserStatusActive,
		RegisteredAt:  now,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	project := &models.Project{
		Name:      "PG 节点计划",
		Symbol:    "USDT",
		Category:  "node",
		MinAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(5000)),
		MaxAmount: models.NewMoneyFromDecimal(decimal.Zero),
		Status:    constants.ProjectStatusActive,
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("create project failed: %v", err)
	}

	confirmedAt := now.Add(time.Minute)
	investment := &models.Investment{
		UserWallet:  user.WalletAddress,
		ProjectID:   project.ID,
		Amount:      models.NewMoneyFromDecimal(decimal.NewFromInt(8000)),
		TxHash:      "0xpgdashhash0001",
		Category:    project.Category,
		Status:      constants.InvestmentStatusConfirmed,
		InvestedAt:  now,
		ConfirmedAt: &confirmedAt,
	}
	if err := db.Create(investment).Error; err != nil {
		t.Fatalf("create investment failed: %v", err)
	}

	startAt := now.Add(-time.Hour)
	endAt := now.Add(time.Hour)

	overview, err := repo.GetOverview(startAt, endAt)
	if err != nil {
		t.Fatalf("get overview failed: %v", err)
	}
	if overview.ConfirmedInvestments != 1 {
		t.Fatalf("confirmed investments want 1 got %d", overview.ConfirmedInvestments)
	}
	if overview.ConfirmedAmount != 8000 {
		t.Fatalf("confirmed amount want 8000 got %.2f", overview.ConfirmedAmount)
	}

	topProjects, err := repo.GetTopProjects(startAt, endAt, 5)
	if err != nil {
		t.Fatalf("get top projects failed: %v", err)
	}
	if len(topProjects) != 1 {
		t.Fatalf("top projects len want 1 got %d", len(topProjects))
	}
	if topProjects[0].ProjectName != "PG 节点计划" {
		t.Fatalf("top project name want PG 节点计划 got %s", topProjects[0].ProjectName)
	}

	trends, err := repo.GetInvestmentTrends(startAt, endAt)
	if err != nil {
		t.Fatalf("get investment trends failed: %v", err)
	}
	if len(trends) == 0 {
		t.Fatalf("investment trends should not be empty")
	}
	if strings.TrimSpace(trends[0].Day) == "" {
		t.Fatalf("investment trend day should not be empty")
	}
}
