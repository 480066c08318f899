package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/stakehub-next/internal/cache"
	"github.com/stakehub-next/internal/http/response"
	"github.com/stakehub-next/internal/repository"
	"github.com/stakehub-next/internal/service"

	"github.com/gin-gonic/gin"
)

// BatchUpdateUserStatusRequest 批量更新用户状态请求
type BatchUpdateUserStatusRequest struct {
	Wallets []string `json:"wallets" binding:"required"`
	Status  string   `json:"status" binding:"required"`
}

// UpdateUserReferrerRequest 改绑用户上级请求
type UpdateUserReferrerRequest struct {
	ReferrerWallet string `json:"referrer_wallet" binding:"required"`
}

// GetAdminUsers 获取用户列表
func (h *Handler) GetAdminUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	keyword := strings.TrimSpace(c.Query("keyword"))
	status := strings.TrimSpace(c.Query("status"))
	referrerWallet := strings.TrimSpace(c.Query("referrer_wallet"))
	registeredFromRaw := strings.TrimSpace(c.Query("registered_from"))
	registeredToRaw := strings.TrimSpace(c.Query("registered_to"))

	registeredFrom, err := parseTimeNullable(registeredFromRaw)
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间参数格式不正确", err)
		return
	}
	registeredTo, err := parseTimeNullable(registeredToRaw)
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间参数格式不正确", err)
		return
	}

	users, total, err := h.UserService.ListAdminUsers(repository.UserListFilter{
		Page:           page,
		PageSize:       pageSize,
		Keyword:        keyword,
		Status:         status,
		ReferrerWallet: strings.ToLower(referrerWallet),
		RegisteredFrom: registeredFrom,
		RegisteredTo:   registeredTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "用户列表获取失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, users, pagination)
}

// GetAdminUser 获取用户详情
func (h *Handler) GetAdminUser(c *gin.Context) {
	wallet := strings.TrimSpace(c.Param("wallet"))

	user, err := h.UserService.GetUserByWallet(wallet)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "用户不存在", nil)
			return
		}
		if errors.Is(err, service.ErrInvalidWalletAddress) {
			respondError(c, response.CodeBadRequest, "钱包地址格式不正确", nil)
			return
		}
		respondError(c, response.CodeInternal, "用户信息获取失败", err)
		return
	}

	response.Success(c, user)
}

// BatchUpdateUserStatus 批量更新用户状态
func (h *Handler) BatchUpdateUserStatus(c *gin.Context) {
	var req BatchUpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不完整", err)
		return
	}
	if len(req.Wallets) == 0 {
		respondError(c, response.CodeBadRequest, "请求参数不完整", nil)
		return
	}

	if err := h.UserService.BatchUpdateStatus(req.Wallets, req.Status); err != nil {
		if errors.Is(err, service.ErrUserStatusInvalid) {
			respondError(c, response.CodeBadRequest, "用户状态不合法", nil)
			return
		}
		respondError(c, response.CodeInternal, "用户状态更新失败", err)
		return
	}

	// 禁用后强制登出：失效认证状态缓存
	for _, wallet := range req.Wallets {
		user, err := h.UserService.GetUserByWallet(wallet)
		if err != nil {
			continue
		}
		_ = cache.DelUserAuthState(c.Request.Context(), user.ID)
	}

	response.Success(c, gin.H{"updated": len(req.Wallets)})
}

// UpdateUserReferrer 改绑用户上级（管理员纠错）
func (h *Handler) UpdateUserReferrer(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	wallet := strings.TrimSpace(c.Param("wallet"))

	var req UpdateUserReferrerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不完整", err)
		return
	}

	operator := "admin:" + strconv.FormatUint(uint64(adminID), 10)
	record, err := h.ReferralService.ReassignReferrer(wallet, req.ReferrerWallet, operator)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidWalletAddress):
			respondError(c, response.CodeBadRequest, "钱包地址格式不正确", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "用户不存在", nil)
		case errors.Is(err, service.ErrReferrerNotFound):
			respondError(c, response.CodeBadRequest, "目标上级不存在", nil)
		case errors.Is(err, service.ErrSelfReferral):
			respondError(c, response.CodeBadRequest, "不允许绑定自己为上级", nil)
		case errors.Is(err, service.ErrReferralCycle):
			respondError(c, response.CodeBadRequest, "改绑会形成推荐环，已拒绝", nil)
		case errors.Is(err, service.ErrReferralRebindOff):
			respondError(c, response.CodeForbidden, "改绑功能未开启", nil)
		default:
			respondError(c, response.CodeInternal, "上级改绑失败", err)
		}
		return
	}

	response.Success(c, record)
}
