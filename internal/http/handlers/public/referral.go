package public

import (
	"strconv"

	"github.com/stakehub-next/internal/http/response"
	"github.com/stakehub-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetMyReferral 获取本人推荐码与推荐概览
func (h *Handler) GetMyReferral(c *gin.Context) {
	wallet, ok := getUserWallet(c)
	if !ok {
		return
	}

	my, err := h.ReferralService.GetMyReferral(wallet)
	if err != nil {
		respondWithMappedError(c, err, []mappedHandlerError{
			{target: service.ErrNotFound, code: response.CodeNotFound, msg: "用户不存在"},
			{target: service.ErrInvalidWalletAddress, code: response.CodeBadRequest, msg: "钱包地址格式不正确"},
		}, response.CodeInternal, "推荐信息获取失败")
		return
	}
	response.Success(c, my)
}

// GetMyReferralQRCode 获取本人推荐链接二维码（PNG）
func (h *Handler) GetMyReferralQRCode(c *gin.Context) {
	wallet, ok := getUserWallet(c)
	if !ok {
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "0"))

	png, err := h.QRCodeService.ReferralLinkPNG(wallet, size)
	if err != nil {
		respondWithMappedError(c, err, []mappedHandlerError{
			{target: service.ErrNotFound, code: response.CodeNotFound, msg: "用户不存在"},
		}, response.CodeInternal, "二维码生成失败")
		return
	}
	c.Data(200, "image/png", png)
}

// GetMyTeam 获取本人团队子树（全局层级 + 业绩汇总）
func (h *Handler) GetMyTeam(c *gin.Context) {
	wallet, ok := getUserWallet(c)
	if !ok {
		return
	}

	node, err := h.OrganizationService.BuildTeam(wallet, nil, nil)
	if err != nil {
		respondWithMappedError(c, err, []mappedHandlerError{
			{target: service.ErrNotFound, code: response.CodeNotFound, msg: "用户不存在"},
			{target: service.ErrReferralCycle, code: response.CodeInternal, msg: "推荐关系数据异常"},
		}, response.CodeInternal, "团队信息获取失败")
		return
	}
	response.Success(c, node)
}
