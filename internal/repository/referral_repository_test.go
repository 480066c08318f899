package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupReferralRepositoryTest(t *testing.T) (*GormReferralRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:referral_repo_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Referral{}); err != nil {
		t.Fatalf("migrate referral tables failed: %v", err)
	}
	return NewReferralRepository(db), db
}

func createReferral(t *testing.T, repo *GormReferralRepository, referrer, referred, code string) *models.Referral {
	t.Helper()
	referral := &models.Referral{
		ReferrerWallet: referrer,
		ReferredWallet: referred,
		Code:           code,
		Source:         constants.ReferralSourceConnect,
	}
	created, err := repo.CreateIfAbsent(referral)
	if err != nil {
		t.Fatalf("create referral failed: %v", err)
	}
	if !created {
		t.Fatalf("expected referral %s -> %s to be created", referrer, referred)
	}
	return referral
}

func TestCreateIfAbsentKeepsFirstInboundEdge(t *testing.T) {
	repo, _ := setupReferralRepositoryTest(t)
	createReferral(t, repo, "0xaaa", "0xbbb", "CODEA")

	// 第二个推荐人抢同一个被推荐钱包，必须保持首条记录不变
	created, err := repo.CreateIfAbsent(&models.Referral{
		ReferrerWallet: "0xccc",
		ReferredWallet: "0xbbb",
		Code:           "CODEC",
		Source:         constants.ReferralSourceConnect,
	})
	if err != nil {
		t.Fatalf("conflicting create failed: %v", err)
	}
	if created {
		t.Fatalf("second inbound edge must not be created")
	}

	got, err := repo.GetByReferredWallet("0xBBB")
	if err != nil {
		t.Fatalf("get by referred wallet failed: %v", err)
	}
	if got == nil {
		t.Fatalf("expected referral record")
	}
	if got.ReferrerWallet != "0xaaa" {
		t.Fatalf("referrer want 0xaaa got %s", got.ReferrerWallet)
	}
	if got.Code != "CODEA" {
		t.Fatalf("code want CODEA got %s", got.Code)
	}
}

func TestGetByReferredWalletMissingReturnsNil(t *testing.T) {
	repo, _ := setupReferralRepositoryTest(t)

	got, err := repo.GetByReferredWallet("0xnobody")
	if err != nil {
		t.Fatalf("lookup missing wallet failed: %v", err)
	}
	if got != nil {
		t.Fatalf("missing wallet should return nil, got %+v", got)
	}
}

func TestCountByReferrerAllSingleScan(t *testing.T) {
	repo, _ := setupReferralRepositoryTest(t)
	createReferral(t, repo, "0xaaa", "0xb01", "CODEA")
	createReferral(t, repo, "0xaaa", "0xb02", "CODEA")
	createReferral(t, repo, "0xccc", "0xb03", "CODEC")

	counts, err := repo.CountByReferrerAll()
	if err != nil {
		t.Fatalf("count by referrer failed: %v", err)
	}
	if counts["0xaaa"] != 2 {
		t.Fatalf("0xaaa want 2 got %d", counts["0xaaa"])
	}
	if counts["0xccc"] != 1 {
		t.Fatalf("0xccc want 1 got %d", counts["0xccc"])
	}
	if _, ok := counts["0xb01"]; ok {
		t.Fatalf("non-referrer must be absent from tally")
	}
}

func TestRewriteReferrerStampsCorrection(t *testing.T) {
	repo, _ := setupReferralRepositoryTest(t)
	createReferral(t, repo, "0xaaa", "0xbbb", "CODEA")

	now := time.Now()
	affected, err := repo.RewriteReferrer("0xbbb", "0xddd", "CODED", "admin", now)
	if err != nil {
		t.Fatalf("rewrite referrer failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("rewrite affected want 1 got %d", affected)
	}

	got, err := repo.GetByReferredWallet("0xbbb")
	if err != nil {
		t.Fatalf("reload referral failed: %v", err)
	}
	if got.ReferrerWallet != "0xddd" {
		t.Fatalf("referrer want 0xddd got %s", got.ReferrerWallet)
	}
	// 推荐码必须跟随新上级，不能残留旧码
	if got.Code != "CODED" {
		t.Fatalf("code want CODED got %s", got.Code)
	}
	if got.CorrectedAt == nil {
		t.Fatalf("corrected_at should be stamped")
	}
	if got.CorrectedBy != "admin" {
		t.Fatalf("corrected_by want admin got %s", got.CorrectedBy)
	}
}

func TestListDanglingFindsMissingReferrers(t *testing.T) {
	repo, db := setupReferralRepositoryTest(t)

	if err := db.Create(&models.User{
		WalletAddress: "0xaaa",
		ReferralCode:  "CODEA",
		Status:        constants.UserStatusActive,
		RegisteredAt:  time.Now(),
	}).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	createReferral(t, repo, "0xaaa", "0xb01", "CODEA")
	createReferral(t, repo, "0xghost", "0xb02", "CODEG")

	rows, err := repo.ListDangling()
	if err != nil {
		t.Fatalf("list dangling failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("dangling rows want 1 got %d", len(rows))
	}
	if rows[0].ReferrerWallet != "0xghost" {
		t.Fatalf("dangling referrer want 0xghost got %s", rows[0].ReferrerWallet)
	}
}
