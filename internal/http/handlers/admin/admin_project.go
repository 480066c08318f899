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

// ProjectRequest 创建/更新质押项目请求
type ProjectRequest struct {
	Name            string `json:"name" binding:"required"`
	Symbol          string `json:"symbol" binding:"required"`
	Category        string `json:"category"`
	APYDisplay      string `json:"apy_display"`
	MinAmount       string `json:"min_amount"`
	MaxAmount       string `json:"max_amount"`
	LockDays        int    `json:"lock_days"`
	ContractAddress string `json:"contract_address"`
	Status          string `json:"status"`
	SortOrder       int    `json:"sort_order"`
}

func (r ProjectRequest) toServiceInput() service.ProjectInput {
	return service.ProjectInput{
		Name:            r.Name,
		Symbol:          r.Symbol,
		Category:        r.Category,
		APYDisplay:      r.APYDisplay,
		MinAmount:       r.MinAmount,
		MaxAmount:       r.MaxAmount,
		LockDays:        r.LockDays,
		ContractAddress: r.ContractAddress,
		Status:          r.Status,
		SortOrder:       r.SortOrder,
	}
}

func respondProjectError(c *gin.Context, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(c, response.CodeNotFound, "质押项目不存在", nil)
	case errors.Is(err, service.ErrProjectInvalid):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	default:
		respondError(c, response.CodeInternal, fallbackMsg, err)
	}
}

// GetAdminProjects 获取项目列表
func (h *Handler) GetAdminProjects(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	category := strings.TrimSpace(c.Query("category"))
	search := strings.TrimSpace(c.Query("search"))

	projects, total, err := h.ProjectService.ListAdmin(repository.ProjectListFilter{
		Page:     page,
		PageSize: pageSize,
		Category: category,
		Search:   search,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "项目列表获取失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, projects, pagination)
}

// GetAdminProject 获取项目详情
func (h *Handler) GetAdminProject(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "项目ID不合法", nil)
		return
	}

	project, err := h.ProjectService.Get(uint(id))
	if err != nil {
		respondProjectError(c, err, "项目详情获取失败")
		return
	}
	response.Success(c, project)
}

// CreateProject 创建项目
func (h *Handler) CreateProject(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不完整", err)
		return
	}

	project, err := h.ProjectService.Create(req.toServiceInput())
	if err != nil {
		respondProjectError(c, err, "项目创建失败")
		return
	}
	response.Success(c, project)
}

// UpdateProject 更新项目
func (h *Handler) UpdateProject(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "项目ID不合法", nil)
		return
	}

	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不完整", err)
		return
	}

	project, err := h.ProjectService.Update(uint(id), req.toServiceInput())
	if err != nil {
		respondProjectError(c, err, "项目更新失败")
		return
	}
	response.Success(c, project)
}

// DeleteProject 删除项目（软删除）
func (h *Handler) DeleteProject(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "项目ID不合法", nil)
		return
	}

	if err := h.ProjectService.Delete(uint(id)); err != nil {
		respondProjectError(c, err, "项目删除失败")
		return
	}
	response.Success(c, nil)
}
