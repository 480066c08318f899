package service

import (
	"testing"

	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/models"
)

type mockSettingRepo struct {
	store map[string]models.JSON
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{store: map[string]models.JSON{}}
}

func (m *mockSettingRepo) GetByKey(key string) (*models.Setting, error) {
	value, ok := m.store[key]
	if !ok {
		return nil, nil
	}
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func (m *mockSettingRepo) Upsert(key string, value models.JSON) (*models.Setting, error) {
	m.store[key] = value
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func TestUpdateSiteSettingNormalized(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	result, err := svc.Update(constants.SettingKeySiteConfig, map[string]interface{}{
		"site_name": "  StakeHub  ",
		"site_url":  "  https://stakehub.example.com  ",
		"currency":  " usdt ",
		"contact": map[string]interface{}{
			"telegram": "  https://t.me/stakehub  ",
			"twitter":  123,
		},
		"extra": "keep",
	})
	if err != nil {
		t.Fatalf("update site config failed: %v", err)
	}

	if result["site_name"] != "StakeHub" {
		t.Fatalf("unexpected site_name: %v", result["site_name"])
	}
	if result["site_url"] != "https://stakehub.example.com" {
		t.Fatalf("unexpected site_url: %v", result["site_url"])
	}
	if result["currency"] != "USDT" {
		t.Fatalf("unexpected currency: %v", result["currency"])
	}
	if result["extra"] != "keep" {
		t.Fatalf("unexpected extra field: %v", result["extra"])
	}

	contact, ok := result["contact"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid contact payload type: %T", result["contact"])
	}
	if contact["telegram"] != "https://t.me/stakehub" {
		t.Fatalf("unexpected telegram: %v", contact["telegram"])
	}
	if contact["twitter"] != "" {
		t.Fatalf("unexpected twitter: %v", contact["twitter"])
	}
}

func TestUpdateSiteSettingDefaultCurrency(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	result, err := svc.Update(constants.SettingKeySiteConfig, map[string]interface{}{})
	if err != nil {
		t.Fatalf("update site config failed: %v", err)
	}
	if result["currency"] != constants.SiteCurrencyDefault {
		t.Fatalf("unexpected default currency: %v", result["currency"])
	}
}

func TestUpdateReferralSettingNormalized(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	result, err := svc.Update(constants.SettingKeyReferralConfig, map[string]interface{}{
		"link_base_url": "  https://stakehub.example.com/r/  ",
		"allow_rebind":  "yes",
	})
	if err != nil {
		t.Fatalf("update referral config failed: %v", err)
	}
	if result["link_base_url"] != "https://stakehub.example.com/r" {
		t.Fatalf("unexpected link_base_url: %v", result["link_base_url"])
	}
	if result["allow_rebind"] != true {
		t.Fatalf("unexpected allow_rebind: %v", result["allow_rebind"])
	}

	allowRebind, err := svc.GetReferralAllowRebind(false)
	if err != nil {
		t.Fatalf("get allow_rebind failed: %v", err)
	}
	if !allowRebind {
		t.Fatalf("allow_rebind should be true after update")
	}
}
