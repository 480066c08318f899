package public

import (
	"time"

	"github.com/stakehub-next/internal/cache"
	"github.com/stakehub-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

const (
	publicConfigCacheKey = "public:config"
	publicConfigCacheTTL = 60 * time.Second
)

// GetConfig 获取全局配置
func (h *Handler) GetConfig(c *gin.Context) {
	// 默认配置
	defaults := map[string]interface{}{
		"site_name":     "StakeHub",
		"site_url":      "",
		"link_base_url": "",
		"languages":     []string{"zh-CN", "en-US"},
		"currency":      "USDT",
		"chain":         "ethereum",
	}

	var cached map[string]interface{}
	if hit, err := cache.GetJSON(c.Request.Context(), publicConfigCacheKey, &cached); err == nil && hit {
		response.Success(c, cached)
		return
	}

	data, err := h.SettingService.GetConfig(defaults)
	if err != nil {
		respondError(c, response.CodeInternal, "配置获取失败", err)
		return
	}

	if h.CaptchaService != nil {
		publicCaptcha, captchaErr := h.CaptchaService.GetPublicSetting()
		if captchaErr != nil {
			respondError(c, response.CodeInternal, "配置获取失败", captchaErr)
			return
		}
		data["captcha"] = publicCaptcha
	}

	_ = cache.SetJSON(c.Request.Context(), publicConfigCacheKey, data, publicConfigCacheTTL)
	response.Success(c, data)
}
