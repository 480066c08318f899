package worker

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stakehub-next/internal/config"
	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/models"
	"github.com/stakehub-next/internal/provider"
	"github.com/stakehub-next/internal/queue"
	"github.com/stakehub-next/internal/repository"
	"github.com/stakehub-next/internal/service"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupIntegrityScanTest(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_scan_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Referral{}, &models.Investment{}); err != nil {
		t.Fatalf("migrate tables failed: %v", err)
	}

	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("create queue client failed: %v", err)
	}
	orgSvc := service.NewOrganizationService(&config.Config{}, repository.NewOrganizationRepository(db), queueClient)
	consumer := NewConsumer(&provider.Container{
		OrganizationService: orgSvc,
		ReferralRepo:        repository.NewReferralRepository(db),
	})
	return &Service{name: "worker", consumer: consumer, scanInterval: time.Minute}, db
}

func createScanUser(t *testing.T, db *gorm.DB, wallet, code, referrer string) {
	t.Helper()
	if err := db.Create(&models.User{
		WalletAddress:  wallet,
		ReferralCode:   code,
		ReferrerWallet: referrer,
		Status:         constants.UserStatusActive,
		RegisteredAt:   time.Now(),
	}).Error; err != nil {
		t.Fatalf("create user %s failed: %v", wallet, err)
	}
}

func createScanReferral(t *testing.T, db *gorm.DB, referrer, referred, code string) {
	t.Helper()
	if err := db.Create(&models.Referral{
		ReferrerWallet: referrer,
		ReferredWallet: referred,
		Code:           code,
		Source:         constants.ReferralSourceConnect,
	}).Error; err != nil {
		t.Fatalf("create referral %s -> %s failed: %v", referrer, referred, err)
	}
}

func TestScanReferralIntegrityCountsDangling(t *testing.T) {
	s, db := setupIntegrityScanTest(t)
	createScanUser(t, db, "0xaaa", "CODEA", "")
	createScanUser(t, db, "0xbbb", "CODEB", "0xaaa")
	createScanReferral(t, db, "0xaaa", "0xbbb", "CODEA")
	// 推荐人已不在用户表，巡检必须点名这条悬挂记录
	createScanReferral(t, db, "0xghost", "0xccc", "CODEG")

	roots, dangling, err := s.scanReferralIntegrityOnce()
	if err != nil {
		t.Fatalf("integrity scan failed: %v", err)
	}
	if roots != 1 {
		t.Fatalf("roots want 1 got %d", roots)
	}
	if dangling != 1 {
		t.Fatalf("dangling want 1 got %d", dangling)
	}
}

func TestScanReferralIntegrityDetectsCycle(t *testing.T) {
	s, db := setupIntegrityScanTest(t)
	// 互为上级，绕过业务校验直接写库
	createScanUser(t, db, "0xaaa", "CODEA", "0xbbb")
	createScanUser(t, db, "0xbbb", "CODEB", "0xaaa")

	if _, _, err := s.scanReferralIntegrityOnce(); !errors.Is(err, service.ErrReferralCycle) {
		t.Fatalf("want ErrReferralCycle, got %v", err)
	}
}

func TestScanReferralIntegrityNoRepoStillScans(t *testing.T) {
	s, db := setupIntegrityScanTest(t)
	createScanUser(t, db, "0xaaa", "CODEA", "")
	s.consumer.ReferralRepo = nil

	roots, dangling, err := s.scanReferralIntegrityOnce()
	if err != nil {
		t.Fatalf("integrity scan failed: %v", err)
	}
	if roots != 1 || dangling != 0 {
		t.Fatalf("want roots 1 dangling 0, got %d/%d", roots, dangling)
	}
}
