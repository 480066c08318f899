package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/stakehub-next/internal/config"
	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/logger"
	"github.com/stakehub-next/internal/models"

	"github.com/shopspring/decimal"
)

// 演示数据：三个质押项目 + 一条三层推荐链 + 若干投资记录
func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	seedProjects(stdLog.Printf)
	wallets := seedUsers(stdLog.Printf)
	seedReferrals(stdLog.Printf, wallets)
	seedInvestments(stdLog.Printf, wallets)

	stdLog.Printf("seed done")
}

type printfFunc func(format string, v ...interface{})

func seedProjects(printf printfFunc) {
	projects := []models.Project{
		{
			Name:       "USDT 活期宝",
			Symbol:     "USDT",
			Category:   "flexible",
			APYDisplay: "3.5%",
			MinAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
			MaxAmount:  models.NewMoneyFromDecimal(decimal.Zero),
			LockDays:   0,
			Status:     constants.ProjectStatusActive,
			SortOrder:  100,
		},
		{
			Name:       "USDT 90天定期",
			Symbol:     "USDT",
			Category:   "fixed",
			APYDisplay: "8.0%",
			MinAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(500)),
			MaxAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(100000)),
			LockDays:   90,
			Status:     constants.ProjectStatusActive,
			SortOrder:  90,
		},
		{
			Name:       "USDT 365天节点计划",
			Symbol:     "USDT",
			Category:   "node",
			APYDisplay: "15.0%",
			MinAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(5000)),
			MaxAmount:  models.NewMoneyFromDecimal(decimal.Zero),
			LockDays:   365,
			Status:     constants.ProjectStatusActive,
			SortOrder:  80,
		},
	}

	for _, p := range projects {
		var existing models.Project
		if err := models.DB.Where("name = ?", p.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&p).Error; err != nil {
				printf("create project %s failed: %v", p.Name, err)
				continue
			}
			printf("project created: %s", p.Name)
		}
	}
}

type seedUser struct {
	wallet string
	code   string
}

var demoUsers = []seedUser{
	{wallet: "0x1111111111111111111111111111111111111111", code: "ROOT1111"},
	{wallet: "0x2222222222222222222222222222222222222222", code: "NODE2222"},
	{wallet: "0x3333333333333333333333333333333333333333", code: "NODE3333"},
	{wallet: "0x4444444444444444444444444444444444444444", code: "LEAF4444"},
}

func seedUsers(printf printfFunc) []string {
	wallets := make([]string, 0, len(demoUsers))
	now := time.Now()
	for _, du := range demoUsers {
		wallet := strings.ToLower(du.wallet)
		wallets = append(wallets, wallet)
		var existing models.User
		if err := models.DB.Where("wallet_address = ?", wallet).First(&existing).Error; err == nil {
			continue
		}
		user := models.User{
			WalletAddress: wallet,
			ReferralCode:  du.code,
			Status:        constants.UserStatusActive,
			RegisteredAt:  now,
		}
		if err := models.DB.Create(&user).Error; err != nil {
			printf("create user %s failed: %v", wallet, err)
			continue
		}
		printf("user created: %s", wallet)
	}
	return wallets
}

// 推荐链：1 -> 2 -> 3，且 1 -> 4
func seedReferrals(printf printfFunc, wallets []string) {
	if len(wallets) < 4 {
		return
	}
	edges := []models.Referral{
		{ReferrerWallet: wallets[0], ReferredWallet: wallets[1], Code: demoUsers[0].code, Source: constants.ReferralSourceConnect},
		{ReferrerWallet: wallets[1], ReferredWallet: wallets[2], Code: demoUsers[1].code, Source: constants.ReferralSourceConnect},
		{ReferrerWallet: wallets[0], ReferredWallet: wallets[3], Code: demoUsers[0].code, Source: constants.ReferralSourceConnect},
	}
	for _, edge := range edges {
		var existing models.Referral
		if err := models.DB.Where("referred_wallet = ?", edge.ReferredWallet).First(&existing).Error; err == nil {
			continue
		}
		if err := models.DB.Create(&edge).Error; err != nil {
			printf("create referral %s -> %s failed: %v", edge.ReferrerWallet, edge.ReferredWallet, err)
			continue
		}
		if err := models.DB.Model(&models.User{}).
			Where("wallet_address = ?", edge.ReferredWallet).
			Update("referrer_wallet", edge.ReferrerWallet).Error; err != nil {
			printf("update user referrer %s failed: %v", edge.ReferredWallet, err)
		}
		printf("referral created: %s -> %s", edge.ReferrerWallet, edge.ReferredWallet)
	}
}

func seedInvestments(printf printfFunc, wallets []string) {
	if len(wallets) < 4 {
		return
	}
	var project models.Project
	if err := models.DB.Where("status = ?", constants.ProjectStatusActive).
		Order("sort_order DESC").First(&project).Error; err != nil {
		printf("no active project for investments: %v", err)
		return
	}
	now := time.Now()
	confirmed := now.Add(-time.Hour)
	investments := []models.Investment{
		{
			UserWallet:  wallets[0],
			ProjectID:   project.ID,
			Amount:      models.NewMoneyFromDecimal(decimal.NewFromInt(10000)),
			TxHash:      demoTxHash(1),
			Category:    project.Category,
			Status:      constants.InvestmentStatusConfirmed,
			InvestedAt:  now.Add(-48 * time.Hour),
			ConfirmedAt: &confirmed,
		},
		{
			UserWallet:  wallets[1],
			ProjectID:   project.ID,
			Amount:      models.NewMoneyFromDecimal(decimal.NewFromInt(3000)),
			TxHash:      demoTxHash(2),
			Category:    project.Category,
			Status:      constants.InvestmentStatusConfirmed,
			InvestedAt:  now.Add(-24 * time.Hour),
			ConfirmedAt: &confirmed,
		},
		{
			UserWallet: wallets[2],
			ProjectID:  project.ID,
			Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(800)),
			TxHash:     demoTxHash(3),
			Category:   project.Category,
			Status:     constants.InvestmentStatusPending,
			InvestedAt: now,
		},
	}
	for _, inv := range investments {
		var existing models.Investment
		if err := models.DB.Where("tx_hash = ?", inv.TxHash).First(&existing).Error; err == nil {
			continue
		}
		if err := models.DB.Create(&inv).Error; err != nil {
			printf("create investment %s failed: %v", inv.TxHash, err)
			continue
		}
		printf("investment created: %s %s", inv.UserWallet, inv.TxHash)
	}
}

func demoTxHash(n int) string {
	return fmt.Sprintf("0x%064d", n)
}
