package admin

import (
	"github.com/stakehub-next/internal/http/handlers/shared"
	"github.com/stakehub-next/internal/service"
)

// CaptchaPayloadRequest 管理端验证码请求载荷
type CaptchaPayloadRequest = shared.CaptchaPayloadRequest

func toServicePayload(r CaptchaPayloadRequest) service.CaptchaVerifyPayload {
	return r.ToServicePayload()
}
