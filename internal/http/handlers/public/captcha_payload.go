package public

import (
	"github.com/stakehub-next/internal/http/handlers/shared"
	"github.com/stakehub-next/internal/service"
)

// CaptchaPayloadRequest 验证码请求载荷
// image: captcha_id + captcha_code
// 未启用场景允许空载荷，由 service 层根据配置判定是否必填
type CaptchaPayloadRequest = shared.CaptchaPayloadRequest

func toServicePayload(r CaptchaPayloadRequest) service.CaptchaVerifyPayload {
	return r.ToServicePayload()
}
