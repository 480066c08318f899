package service

import (
	"strings"

	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/models"
	"github.com/stakehub-next/internal/repository"
)

// SettingService 设置业务服务
type SettingService struct {
	repo repository.SettingRepository
}

// NewSettingService 创建设置服务
func NewSettingService(repo repository.SettingRepository) *SettingService {
	return &SettingService{repo: repo}
}

// GetConfig 获取站点配置（合并默认值）
func (s *SettingService) GetConfig(defaults map[string]interface{}) (map[string]interface{}, error) {
	data := make(map[string]interface{})
	for k, v := range defaults {
		data[k] = v
	}

	setting, err := s.repo.GetByKey(constants.SettingKeySiteConfig)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return data, nil
	}

	for k, v := range setting.ValueJSON {
		data[k] = v
	}
	return data, nil
}

// GetByKey 获取设置
func (s *SettingService) GetByKey(key string) (models.JSON, error) {
	setting, err := s.repo.GetByKey(key)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, nil
	}
	return setting.ValueJSON, nil
}

// Update 设置值
func (s *SettingService) Update(key string, value map[string]interface{}) (models.JSON, error) {
	normalized := normalizeSettingValueByKey(key, value)

	setting, err := s.repo.Upsert(key, normalized)
	if err != nil {
		return nil, err
	}
	return setting.ValueJSON, nil
}

// GetSiteURL 获取站点访问地址
func (s *SettingService) GetSiteURL(defaultValue string) (string, error) {
	if s == nil {
		return defaultValue, nil
	}
	value, err := s.GetByKey(constants.SettingKeySiteConfig)
	if err != nil {
		return defaultValue, err
	}
	if value == nil {
		return defaultValue, nil
	}
	raw, ok := value[constants.SettingFieldSiteURL].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	return strings.TrimRight(strings.TrimSpace(raw), "/"), nil
}

// GetReferralLinkBase 获取推荐链接前缀（优先 settings，空时回退传入默认值）
func (s *SettingService) GetReferralLinkBase(defaultValue string) (string, error) {
	if s == nil {
		return defaultValue, nil
	}
	value, err := s.GetByKey(constants.SettingKeyReferralConfig)
	if err != nil {
		return defaultValue, err
	}
	if value == nil {
		return defaultValue, nil
	}
	raw, ok := value[constants.SettingFieldLinkBaseURL].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	return strings.TrimRight(strings.TrimSpace(raw), "/"), nil
}

// GetReferralAllowRebind 获取管理员改绑开关（settings 优先，回退配置默认值）
func (s *SettingService) GetReferralAllowRebind(defaultValue bool) (bool, error) {
	if s == nil {
		return defaultValue, nil
	}
	value, err := s.GetByKey(constants.SettingKeyReferralConfig)
	if err != nil {
		return defaultValue, err
	}
	if value == nil {
		return defaultValue, nil
	}
	raw, ok := value[constants.SettingFieldAllowRebind]
	if !ok {
		return defaultValue, nil
	}
	return parseSettingBool(raw), nil
}
