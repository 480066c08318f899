package admin

import (
	"strconv"
	"strings"

	"github.com/stakehub-next/internal/http/response"
	"github.com/stakehub-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetAdminReferrals 获取推荐记录列表
func (h *Handler) GetAdminReferrals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	referrerWallet := strings.ToLower(strings.TrimSpace(c.Query("referrer_wallet")))
	referredWallet := strings.ToLower(strings.TrimSpace(c.Query("referred_wallet")))
	code := strings.TrimSpace(c.Query("code"))
	source := strings.TrimSpace(c.Query("source"))

	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间参数格式不正确", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间参数格式不正确", err)
		return
	}

	referrals, total, err := h.ReferralService.ListAdmin(repository.ReferralListFilter{
		Page:           page,
		PageSize:       pageSize,
		ReferrerWallet: referrerWallet,
		ReferredWallet: referredWallet,
		Code:           code,
		Source:         source,
		CreatedFrom:    createdFrom,
		CreatedTo:      createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "推荐记录获取失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, referrals, pagination)
}
