package public

import (
	"strconv"
	"strings"

	"github.com/stakehub-next/internal/http/response"
	"github.com/stakehub-next/internal/service"

	"github.com/gin-gonic/gin"
)

// SubmitInvestmentRequest 用户提交投资请求
type SubmitInvestmentRequest struct {
	ProjectID uint   `json:"project_id" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	TxHash    string `json:"tx_hash" binding:"required"`
}

// SubmitInvestment 提交投资：落库为 pending，等待链上确认
func (h *Handler) SubmitInvestment(c *gin.Context) {
	wallet, ok := getUserWallet(c)
	if !ok {
		return
	}

	var req SubmitInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不完整", err)
		return
	}

	investment, err := h.InvestmentService.Submit(service.SubmitInvestmentInput{
		WalletAddress: wallet,
		ProjectID:     req.ProjectID,
		Amount:        req.Amount,
		TxHash:        req.TxHash,
	})
	if err != nil {
		respondWithMappedError(c, err, investmentSubmitErrorRules, response.CodeInternal, "投资提交失败")
		return
	}
	response.Success(c, investment)
}

// ListMyInvestments 获取当前用户投资记录
func (h *Handler) ListMyInvestments(c *gin.Context) {
	wallet, ok := getUserWallet(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	status := strings.TrimSpace(c.Query("status"))

	investments, total, err := h.InvestmentService.ListUserInvestments(wallet, page, pageSize, status)
	if err != nil {
		respondError(c, response.CodeInternal, "投资记录获取失败", err)
		return
	}
	response.SuccessWithPage(c, investments, buildPagination(page, pageSize, total))
}

// GetMyInvestmentSummary 获取当前用户投资汇总（仅统计已确认）
func (h *Handler) GetMyInvestmentSummary(c *gin.Context) {
	wallet, ok := getUserWallet(c)
	if !ok {
		return
	}

	summary, err := h.InvestmentService.GetUserSummary(wallet)
	if err != nil {
		respondError(c, response.CodeInternal, "投资汇总获取失败", err)
		return
	}
	response.Success(c, summary)
}
