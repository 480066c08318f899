package public

import (
	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/http/response"
	"github.com/stakehub-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ConnectWalletRequest 钱包连接请求
type ConnectWalletRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
	ReferralCode  string `json:"referral_code"`
	CaptchaPayloadRequest
}

// ConnectWallet 钱包连接：首次连接即注册并签发推荐码
func (h *Handler) ConnectWallet(c *gin.Context) {
	var req ConnectWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不完整", err)
		return
	}

	if h.CaptchaService != nil {
		if err := h.CaptchaService.Verify(constants.CaptchaSceneLogin, toServicePayload(req.CaptchaPayloadRequest)); err != nil {
			respondWithMappedError(c, err, captchaErrorRules, response.CodeInternal, "验证码校验失败")
			return
		}
	}

	result, err := h.UserService.Connect(service.WalletConnectInput{
		WalletAddress: req.WalletAddress,
		ReferralCode:  req.ReferralCode,
	})
	if err != nil {
		respondWithMappedError(c, err, walletCommonErrorRules, response.CodeInternal, "钱包连接失败")
		return
	}

	response.Success(c, gin.H{
		"user":       result.User,
		"created":    result.Created,
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
	})
}

// GetMe 获取当前用户信息
func (h *Handler) GetMe(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	user, err := h.UserService.GetUserByID(uid)
	if err != nil {
		respondWithMappedError(c, err, []mappedHandlerError{
			{target: service.ErrNotFound, code: response.CodeNotFound, msg: "用户不存在"},
		}, response.CodeInternal, "用户信息获取失败")
		return
	}
	response.Success(c, user)
}
