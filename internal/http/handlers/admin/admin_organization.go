package admin

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stakehub-next/internal/http/response"
	"github.com/stakehub-next/internal/service"

	"github.com/gin-gonic/gin"
)

func parseOrgWindow(c *gin.Context) (*time.Time, *time.Time, bool) {
	investedFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("invested_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间参数格式不正确", err)
		return nil, nil, false
	}
	investedTo, err := parseTimeNullable(strings.TrimSpace(c.Query("invested_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间参数格式不正确", err)
		return nil, nil, false
	}
	if investedFrom != nil && investedTo != nil && investedTo.Before(*investedFrom) {
		respondError(c, response.CodeBadRequest, "时间范围不合法", nil)
		return nil, nil, false
	}
	return investedFrom, investedTo, true
}

func respondOrgError(c *gin.Context, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(c, response.CodeNotFound, "用户不存在", nil)
	case errors.Is(err, service.ErrReferralCycle):
		respondError(c, response.CodeInternal, "推荐关系数据异常，存在环", err)
	default:
		respondError(c, response.CodeInternal, fallbackMsg, err)
	}
}

// GetOrganizationForest 获取组织架构森林（个人/团队业绩汇总）
func (h *Handler) GetOrganizationForest(c *gin.Context) {
	investedFrom, investedTo, ok := parseOrgWindow(c)
	if !ok {
		return
	}

	forest, err := h.OrganizationService.BuildForest(investedFrom, investedTo)
	if err != nil {
		respondOrgError(c, err, "组织架构获取失败")
		return
	}
	response.Success(c, gin.H{
		"roots": forest,
		"count": len(forest),
	})
}

// GetOrganizationTree 获取前端树形图投影
func (h *Handler) GetOrganizationTree(c *gin.Context) {
	investedFrom, investedTo, ok := parseOrgWindow(c)
	if !ok {
		return
	}

	forest, err := h.OrganizationService.BuildForest(investedFrom, investedTo)
	if err != nil {
		respondOrgError(c, err, "组织架构获取失败")
		return
	}
	response.Success(c, service.ProjectTree(forest))
}

// GetOrganizationTeam 获取指定用户的团队子树
func (h *Handler) GetOrganizationTeam(c *gin.Context) {
	wallet := strings.TrimSpace(c.Param("wallet"))
	investedFrom, investedTo, ok := parseOrgWindow(c)
	if !ok {
		return
	}

	node, err := h.OrganizationService.BuildTeam(wallet, investedFrom, investedTo)
	if err != nil {
		if errors.Is(err, service.ErrInvalidWalletAddress) {
			respondError(c, response.CodeBadRequest, "钱包地址格式不正确", nil)
			return
		}
		respondOrgError(c, err, "团队信息获取失败")
		return
	}
	response.Success(c, node)
}

// ExportOrganizationCSV 同步导出组织架构 CSV
func (h *Handler) ExportOrganizationCSV(c *gin.Context) {
	investedFrom, investedTo, ok := parseOrgWindow(c)
	if !ok {
		return
	}

	data, err := h.OrganizationService.ExportCSVNow(investedFrom, investedTo)
	if err != nil {
		respondOrgError(c, err, "组织架构导出失败")
		return
	}

	filename := service.BuildExportFilename(time.Now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(200, "text/csv; charset=utf-8", data)
}

// RequestOrganizationCSVExport 发起异步 CSV 导出，返回取件令牌
func (h *Handler) RequestOrganizationCSVExport(c *gin.Context) {
	investedFrom, investedTo, ok := parseOrgWindow(c)
	if !ok {
		return
	}

	token, err := h.OrganizationService.RequestCSVExport(c.Request.Context(), investedFrom, investedTo)
	if err != nil {
		respondError(c, response.CodeInternal, "导出任务提交失败", err)
		return
	}
	response.Success(c, gin.H{"token": token})
}

// GetOrganizationCSVExport 按令牌取异步导出结果
func (h *Handler) GetOrganizationCSVExport(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))

	data, err := h.OrganizationService.GetCSVExport(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "导出任务不存在", nil)
		case errors.Is(err, service.ErrExportNotReady):
			respondError(c, response.CodeNotFound, "导出尚未就绪，请稍后重试", nil)
		default:
			respondError(c, response.CodeInternal, "导出结果获取失败", err)
		}
		return
	}

	filename := service.BuildExportFilename(time.Now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(200, "text/csv; charset=utf-8", data)
}
