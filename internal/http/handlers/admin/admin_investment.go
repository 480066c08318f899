package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/stakehub-next/internal/http/response"
	"github.com/stakehub-next/internal/repository"
	"github.com/stakehub-next/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdateInvestmentStatusRequest 人工更新投资状态请求
type UpdateInvestmentStatusRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

// GetAdminInvestments 获取投资记录列表
func (h *Handler) GetAdminInvestments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	userWallet := strings.ToLower(strings.TrimSpace(c.Query("user_wallet")))
	status := strings.TrimSpace(c.Query("status"))
	category := strings.TrimSpace(c.Query("category"))
	txHash := strings.ToLower(strings.TrimSpace(c.Query("tx_hash")))
	projectID, _ := strconv.ParseUint(c.DefaultQuery("project_id", "0"), 10, 32)

	investedFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("invested_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间参数格式不正确", err)
		return
	}
	investedTo, err := parseTimeNullable(strings.TrimSpace(c.Query("invested_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间参数格式不正确", err)
		return
	}

	investments, total, err := h.InvestmentService.ListAdmin(repository.InvestmentListFilter{
		Page:         page,
		PageSize:     pageSize,
		UserWallet:   userWallet,
		ProjectID:    uint(projectID),
		Category:     category,
		Status:       status,
		TxHash:       txHash,
		InvestedFrom: investedFrom,
		InvestedTo:   investedTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "投资记录获取失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, investments, pagination)
}

// GetAdminInvestment 获取投资记录详情
func (h *Handler) GetAdminInvestment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "投资记录ID不合法", nil)
		return
	}

	investment, err := h.InvestmentService.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "投资记录不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "投资记录获取失败", err)
		return
	}
	response.Success(c, investment)
}

// UpdateInvestmentStatus 人工确认/标记失败投资记录
func (h *Handler) UpdateInvestmentStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "投资记录ID不合法", nil)
		return
	}

	var req UpdateInvestmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不完整", err)
		return
	}

	investment, err := h.InvestmentService.AdminUpdateStatus(uint(id), req.Action, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "投资记录不存在", nil)
		case errors.Is(err, service.ErrInvestmentStatusInvalid):
			respondError(c, response.CodeBadRequest, "状态流转不合法", nil)
		default:
			respondError(c, response.CodeInternal, "状态更新失败", err)
		}
		return
	}
	response.Success(c, investment)
}
