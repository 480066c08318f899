package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stakehub-next/internal/config"
	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/models"
	"github.com/stakehub-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func testWalletAddr(n int) string {
	return fmt.Sprintf("0x%040d", n)
}

func setupReferralServiceTest(t *testing.T) (*ReferralService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:referral_svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Referral{}, &models.Setting{}); err != nil {
		t.Fatalf("migrate tables failed: %v", err)
	}

	cfg := &config.Config{}
	cfg.Referral.CodeLength = 8
	cfg.Referral.AllowRebind = true

	settingService := NewSettingService(repository.NewSettingRepository(db))
	svc := NewReferralService(cfg, repository.NewReferralRepository(db), repository.NewUserRepository(db), settingService)
	return svc, db
}

func createReferralTestUser(t *testing.T, db *gorm.DB, wallet, code, referrer string) *models.User {
	t.Helper()
	user := &models.User{
		WalletAddress:  wallet,
		ReferralCode:   code,
		ReferrerWallet: referrer,
		Status:         constants.UserStatusActive,
		RegisteredAt:   time.Now(),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s failed: %v", wallet, err)
	}
	return user
}

func TestIssueCodeIdempotent(t *testing.T) {
	svc, db := setupReferralServiceTest(t)
	wallet := testWalletAddr(1)
	createReferralTestUser(t, db, wallet, "KEEPCODE", "")

	code, err := svc.IssueCode(wallet)
	if err != nil {
		t.Fatalf("issue code failed: %v", err)
	}
	if code != "KEEPCODE" {
		t.Fatalf("existing code must be returned unchanged, got %s", code)
	}

	again, err := svc.IssueCode(wallet)
	if err != nil {
		t.Fatalf("second issue failed: %v", err)
	}
	if again != code {
		t.Fatalf("issue must be idempotent: %s vs %s", again, code)
	}
}

func TestIssueCodeUnknownWallet(t *testing.T) {
	svc, _ := setupReferralServiceTest(t)

	if _, err := svc.IssueCode(testWalletAddr(99)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRecordReferralSingleInboundEdge(t *testing.T) {
	svc, db := setupReferralServiceTest(t)
	referrerA := testWalletAddr(1)
	referrerB := testWalletAddr(2)
	referred := testWalletAddr(3)
	createReferralTestUser(t, db, referrerA, "CODEAAAA", "")
	createReferralTestUser(t, db, referrerB, "CODEBBBB", "")
	createReferralTestUser(t, db, referred, "CODECCCC", "")

	record, created, err := svc.RecordReferral(referred, "codeaaaa", constants.ReferralSourceConnect)
	if err != nil {
		t.Fatalf("record referral failed: %v", err)
	}
	if !created {
		t.Fatalf("first record must create the edge")
	}
	if record.ReferrerWallet != referrerA {
		t.Fatalf("referrer want %s got %s", referrerA, record.ReferrerWallet)
	}

	// 第二次换推荐码提交，必须保持首条入边不变
	record, created, err = svc.RecordReferral(referred, "CODEBBBB", constants.ReferralSourceConnect)
	if err != nil {
		t.Fatalf("second record failed: %v", err)
	}
	if created {
		t.Fatalf("second record must not create a new edge")
	}
	if record.ReferrerWallet != referrerA {
		t.Fatalf("first edge must win, got %s", record.ReferrerWallet)
	}

	var user models.User
	if err := db.Where("wallet_address = ?", referred).First(&user).Error; err != nil {
		t.Fatalf("reload referred user failed: %v", err)
	}
	if user.ReferrerWallet != referrerA {
		t.Fatalf("denormalized referrer want %s got %s", referrerA, user.ReferrerWallet)
	}
}

func TestRecordReferralRejectsSelfReferral(t *testing.T) {
	svc, db := setupReferralServiceTest(t)
	wallet := testWalletAddr(1)
	createReferralTestUser(t, db, wallet, "SELFCODE", "")

	if _, _, err := svc.RecordReferral(wallet, "SELFCODE", constants.ReferralSourceConnect); !errors.Is(err, ErrSelfReferral) {
		t.Fatalf("want ErrSelfReferral, got %v", err)
	}
}

func TestRecordReferralRejectsUnknownCode(t *testing.T) {
	svc, db := setupReferralServiceTest(t)
	referred := testWalletAddr(1)
	createReferralTestUser(t, db, referred, "CODEAAAA", "")

	if _, _, err := svc.RecordReferral(referred, "NOSUCHCD", constants.ReferralSourceConnect); !errors.Is(err, ErrInvalidReferralCode) {
		t.Fatalf("want ErrInvalidReferralCode, got %v", err)
	}
}

func TestReassignReferrerRewritesEdge(t *testing.T) {
	svc, db := setupReferralServiceTest(t)
	oldReferrer := testWalletAddr(1)
	newReferrer := testWalletAddr(2)
	referred := testWalletAddr(3)
	createReferralTestUser(t, db, oldReferrer, "CODEAAAA", "")
	createReferralTestUser(t, db, newReferrer, "CODEBBBB", "")
	createReferralTestUser(t, db, referred, "CODECCCC", "")

	if _, _, err := svc.RecordReferral(referred, "CODEAAAA", constants.ReferralSourceConnect); err != nil {
		t.Fatalf("seed referral failed: %v", err)
	}

	record, err := svc.ReassignReferrer(referred, newReferrer, "admin")
	if err != nil {
		t.Fatalf("reassign failed: %v", err)
	}
	if record.ReferrerWallet != newReferrer {
		t.Fatalf("referrer want %s got %s", newReferrer, record.ReferrerWallet)
	}
	if record.Code != "CODEBBBB" {
		t.Fatalf("code must follow new referrer, want CODEBBBB got %s", record.Code)
	}
	if record.CorrectedAt == nil || record.CorrectedBy != "admin" {
		t.Fatalf("correction must be stamped, got %+v", record)
	}

	var user models.User
	if err := db.Where("wallet_address = ?", referred).First(&user).Error; err != nil {
		t.Fatalf("reload referred user failed: %v", err)
	}
	if user.ReferrerWallet != newReferrer {
		t.Fatalf("denormalized referrer want %s got %s", newReferrer, user.ReferrerWallet)
	}
}

func TestReassignReferrerCreatesEdgeForOrphan(t *testing.T) {
	svc, db := setupReferralServiceTest(t)
	newReferrer := testWalletAddr(1)
	referred := testWalletAddr(2)
	createReferralTestUser(t, db, newReferrer, "CODEAAAA", "")
	createReferralTestUser(t, db, referred, "CODEBBBB", "")

	record, err := svc.ReassignReferrer(referred, newReferrer, "admin")
	if err != nil {
		t.Fatalf("reassign without edge failed: %v", err)
	}
	if record == nil || record.ReferrerWallet != newReferrer {
		t.Fatalf("edge must be created for orphan, got %+v", record)
	}
	if record.Source != constants.ReferralSourceAdmin {
		t.Fatalf("source want %s got %s", constants.ReferralSourceAdmin, record.Source)
	}
}

func TestReassignReferrerRejectsUplineCycle(t *testing.T) {
	svc, db := setupReferralServiceTest(t)
	walletA := testWalletAddr(1)
	walletB := testWalletAddr(2)
	walletC := testWalletAddr(3)
	createReferralTestUser(t, db, walletA, "CODEAAAA", "")
	createReferralTestUser(t, db, walletB, "CODEBBBB", walletA)
	createReferralTestUser(t, db, walletC, "CODECCCC", walletB)

	// C 在 A 的下线链上，把 A 改绑到 C 会成环
	if _, err := svc.ReassignReferrer(walletA, walletC, "admin"); !errors.Is(err, ErrReferralCycle) {
		t.Fatalf("want ErrReferralCycle, got %v", err)
	}
}

func TestReassignReferrerRespectsRebindSwitch(t *testing.T) {
	svc, db := setupReferralServiceTest(t)
	svc.cfg.Referral.AllowRebind = false
	referrer := testWalletAddr(1)
	referred := testWalletAddr(2)
	createReferralTestUser(t, db, referrer, "CODEAAAA", "")
	createReferralTestUser(t, db, referred, "CODEBBBB", "")

	if _, err := svc.ReassignReferrer(referred, referrer, "admin"); !errors.Is(err, ErrReferralRebindOff) {
		t.Fatalf("want ErrReferralRebindOff, got %v", err)
	}
}

func TestGetMyReferralCountsDirects(t *testing.T) {
	svc, db := setupReferralServiceTest(t)
	referrer := testWalletAddr(1)
	createReferralTestUser(t, db, referrer, "CODEAAAA", "")
	createReferralTestUser(t, db, testWalletAddr(2), "CODEBBBB", referrer)
	createReferralTestUser(t, db, testWalletAddr(3), "CODECCCC", referrer)

	my, err := svc.GetMyReferral(referrer)
	if err != nil {
		t.Fatalf("get my referral failed: %v", err)
	}
	if my.DirectsCount != 2 {
		t.Fatalf("directs want 2 got %d", my.DirectsCount)
	}
	if my.ReferralCode != "CODEAAAA" {
		t.Fatalf("code want CODEAAAA got %s", my.ReferralCode)
	}
	if my.ReferralLink == "" {
		t.Fatalf("referral link must not be empty")
	}
}

func TestNormalizeWalletAddress(t *testing.T) {
	valid := "0xAbCd000000000000000000000000000000000001"
	got, err := NormalizeWalletAddress("  " + valid + " ")
	if err != nil {
		t.Fatalf("normalize valid wallet failed: %v", err)
	}
	if got != "0xabcd000000000000000000000000000000000001" {
		t.Fatalf("wallet must be lowercased, got %s", got)
	}

	for _, bad := range []string{
		"",
		"0x123",
		"abcd000000000000000000000000000000000001",
		"0xZZcd000000000000000000000000000000000001",
		"0xabcd0000000000000000000000000000000000012",
	} {
		if _, err := NormalizeWalletAddress(bad); !errors.Is(err, ErrInvalidWalletAddress) {
			t.Fatalf("wallet %q must be rejected, got %v", bad, err)
		}
	}
}

func TestGenerateReferralCodeAlphabet(t *testing.T) {
	code, err := generateReferralCode(8)
	if err != nil {
		t.Fatalf("generate code failed: %v", err)
	}
	if len(code) != 8 {
		t.Fatalf("code length want 8 got %d", len(code))
	}
	for _, ch := range code {
		switch ch {
		case '0', '1', 'I', 'O':
			t.Fatalf("ambiguous char %c must not appear in %s", ch, code)
		}
	}
}
