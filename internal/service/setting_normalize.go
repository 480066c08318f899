package service

import (
	"strings"

	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/models"
)

// normalizeSettingValueByKey 按设置键执行归一化，避免非法值入库。
func normalizeSettingValueByKey(key string, value map[string]interface{}) models.JSON {
	switch key {
	case constants.SettingKeySiteConfig:
		return normalizeSiteSetting(value)
	case constants.SettingKeyReferralConfig:
		return normalizeReferralSetting(value)
	default:
		return models.JSON(value)
	}
}

// normalizeSiteSetting 归一化站点配置结构。
func normalizeSiteSetting(value map[string]interface{}) models.JSON {
	normalized := make(models.JSON, len(value)+3)
	for key, raw := range value {
		normalized[key] = raw
	}

	normalized[constants.SettingFieldSiteURL] = normalizeSettingText(value[constants.SettingFieldSiteURL])
	normalized["site_name"] = normalizeSettingText(value["site_name"])
	normalized["contact"] = normalizeSiteContact(value["contact"])

	currency := strings.ToUpper(normalizeSettingText(value["currency"]))
	if currency == "" {
		currency = constants.SiteCurrencyDefault
	}
	normalized["currency"] = currency

	return normalized
}

// normalizeReferralSetting 归一化推荐配置结构。
func normalizeReferralSetting(value map[string]interface{}) models.JSON {
	normalized := make(models.JSON, len(value)+2)
	for key, raw := range value {
		normalized[key] = raw
	}

	normalized["link_base_url"] = strings.TrimRight(normalizeSettingText(value["link_base_url"]), "/")
	if raw, ok := value["allow_rebind"]; ok {
		normalized["allow_rebind"] = parseSettingBool(raw)
	}
	return normalized
}

func normalizeSiteContact(raw interface{}) map[string]interface{} {
	result := map[string]interface{}{
		"telegram": "",
		"twitter":  "",
	}
	contactMap, ok := raw.(map[string]interface{})
	if !ok {
		return result
	}
	result["telegram"] = normalizeSettingText(contactMap["telegram"])
	result["twitter"] = normalizeSettingText(contactMap["twitter"])
	return result
}

func normalizeSettingText(raw interface{}) string {
	text, ok := raw.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}

func parseSettingBool(raw interface{}) bool {
	switch value := raw.(type) {
	case bool:
		return value
	case int:
		return value != 0
	case int64:
		return value != 0
	case float64:
		return value != 0
	case string:
		normalized := strings.ToLower(strings.TrimSpace(value))
		return normalized == "1" || normalized == "true" || normalized == "yes" || normalized == "on"
	default:
		return false
	}
}

func toStringAnyMap(value interface{}) map[string]interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return v
	case models.JSON:
		result := make(map[string]interface{}, len(v))
		for key, item := range v {
			result[key] = item
		}
		return result
	default:
		return nil
	}
}

func readString(source map[string]interface{}, key, fallback string) string {
	value, ok := source[key]
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	default:
		return fallback
	}
}

func readBool(source map[string]interface{}, key string, fallback bool) bool {
	value, ok := source[key]
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		default:
			return fallback
		}
	default:
		return fallback
	}
}

func readInt(source map[string]interface{}, key string, fallback int) int {
	value, ok := source[key]
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
