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

func setupUserServiceTest(t *testing.T) (*UserService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:user_svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Referral{}, &models.Setting{}); err != nil {
		t.Fatalf("migrate tables failed: %v", err)
	}

	cfg := &config.Config{}
	cfg.Referral.CodeLength = 8
	cfg.UserJWT.SecretKey = "user-jwt-test-secret"
	cfg.UserJWT.ExpireHours = 24

	userRepo := repository.NewUserRepository(db)
	settingService := NewSettingService(repository.NewSettingRepository(db))
	referralService := NewReferralService(cfg, repository.NewReferralRepository(db), userRepo, settingService)
	return NewUserService(cfg, userRepo, referralService), db
}

func TestConnectRegistersWalletOnFirstUse(t *testing.T) {
	svc, _ := setupUserServiceTest(t)
	wallet := testWalletAddr(1)

	result, err := svc.Connect(WalletConnectInput{WalletAddress: wallet})
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if !result.Created {
		t.Fatalf("first connect must register the wallet")
	}
	if result.Token == "" {
		t.Fatalf("connect must issue a token")
	}
	if len(result.User.ReferralCode) != 8 {
		t.Fatalf("referral code length want 8 got %q", result.User.ReferralCode)
	}
	if result.User.LastConnectedAt == nil {
		t.Fatalf("last_connected_at must be stamped")
	}

	again, err := svc.Connect(WalletConnectInput{WalletAddress: wallet})
	if err != nil {
		t.Fatalf("second connect failed: %v", err)
	}
	if again.Created {
		t.Fatalf("second connect must not register again")
	}
	if again.User.ReferralCode != result.User.ReferralCode {
		t.Fatalf("referral code must be stable across connects")
	}
}

func TestConnectAttributesReferralOnFirstRegistration(t *testing.T) {
	svc, db := setupUserServiceTest(t)
	referrerWallet := testWalletAddr(1)
	referredWallet := testWalletAddr(2)

	referrer, err := svc.Connect(WalletConnectInput{WalletAddress: referrerWallet})
	if err != nil {
		t.Fatalf("referrer connect failed: %v", err)
	}

	referred, err := svc.Connect(WalletConnectInput{
		WalletAddress: referredWallet,
		ReferralCode:  referrer.User.ReferralCode,
	})
	if err != nil {
		t.Fatalf("referred connect failed: %v", err)
	}
	if referred.User.ReferrerWallet != referrerWallet {
		t.Fatalf("referrer want %s got %q", referrerWallet, referred.User.ReferrerWallet)
	}

	var record models.Referral
	if err := db.Where("referred_wallet = ?", referredWallet).First(&record).Error; err != nil {
		t.Fatalf("referral record missing: %v", err)
	}
	if record.ReferrerWallet != referrerWallet || record.Source != constants.ReferralSourceConnect {
		t.Fatalf("unexpected referral record: %+v", record)
	}

	// 再次携带别人的推荐码连接，上级不得改变
	other, err := svc.Connect(WalletConnectInput{WalletAddress: testWalletAddr(3)})
	if err != nil {
		t.Fatalf("other connect failed: %v", err)
	}
	again, err := svc.Connect(WalletConnectInput{
		WalletAddress: referredWallet,
		ReferralCode:  other.User.ReferralCode,
	})
	if err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	if again.User.ReferrerWallet != referrerWallet {
		t.Fatalf("referrer must be immutable on reconnect, got %q", again.User.ReferrerWallet)
	}
}

func TestConnectIgnoresInvalidReferralCode(t *testing.T) {
	svc, _ := setupUserServiceTest(t)

	result, err := svc.Connect(WalletConnectInput{
		WalletAddress: testWalletAddr(1),
		ReferralCode:  "NOSUCHCD",
	})
	if err != nil {
		t.Fatalf("connect with bad code must still register: %v", err)
	}
	if !result.Created {
		t.Fatalf("registration must proceed despite bad code")
	}
	if result.User.ReferrerWallet != "" {
		t.Fatalf("bad code must not attribute a referrer, got %q", result.User.ReferrerWallet)
	}
}

func TestConnectRejectsDisabledUser(t *testing.T) {
	svc, db := setupUserServiceTest(t)
	wallet := testWalletAddr(1)

	if _, err := svc.Connect(WalletConnectInput{WalletAddress: wallet}); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := db.Model(&models.User{}).
		Where("wallet_address = ?", wallet).
		Update("status", constants.UserStatusDisabled).Error; err != nil {
		t.Fatalf("disable user failed: %v", err)
	}

	if _, err := svc.Connect(WalletConnectInput{WalletAddress: wallet}); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("want ErrUserDisabled, got %v", err)
	}
}

func TestConnectRejectsMalformedWallet(t *testing.T) {
	svc, _ := setupUserServiceTest(t)

	if _, err := svc.Connect(WalletConnectInput{WalletAddress: "0x123"}); !errors.Is(err, ErrInvalidWalletAddress) {
		t.Fatalf("want ErrInvalidWalletAddress, got %v", err)
	}
}

func TestUserJWTRoundTrip(t *testing.T) {
	svc, _ := setupUserServiceTest(t)
	wallet := testWalletAddr(1)

	result, err := svc.Connect(WalletConnectInput{WalletAddress: wallet})
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	claims, err := svc.ParseUserJWT(result.Token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.WalletAddress != wallet {
		t.Fatalf("claims wallet want %s got %s", wallet, claims.WalletAddress)
	}
	if claims.UserID != result.User.ID {
		t.Fatalf("claims user id want %d got %d", result.User.ID, claims.UserID)
	}

	if _, err := svc.ParseUserJWT(result.Token + "x"); err == nil {
		t.Fatalf("tampered token must be rejected")
	}
}

func TestBatchUpdateStatusValidatesInput(t *testing.T) {
	svc, db := setupUserServiceTest(t)
	wallet := testWalletAddr(1)
	if _, err := svc.Connect(WalletConnectInput{WalletAddress: wallet}); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	if err := svc.BatchUpdateStatus([]string{wallet}, "banned"); !errors.Is(err, ErrUserStatusInvalid) {
		t.Fatalf("want ErrUserStatusInvalid, got %v", err)
	}

	if err := svc.BatchUpdateStatus([]string{wallet, "not-a-wallet"}, constants.UserStatusDisabled); err != nil {
		t.Fatalf("batch disable failed: %v", err)
	}

	var user models.User
	if err := db.Where("wallet_address = ?", wallet).First(&user).Error; err != nil {
		t.Fatalf("reload user failed: %v", err)
	}
	if user.Status != constants.UserStatusDisabled {
		t.Fatalf("status want disabled got %s", user.Status)
	}
	if user.TokenVersion == 0 {
		t.Fatalf("disable must bump token version")
	}
}
