package public

import (
	"strconv"
	"strings"

	"github.com/stakehub-next/internal/http/response"
	"github.com/stakehub-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListProjects 获取可投资质押项目列表
func (h *Handler) ListProjects(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	category := strings.TrimSpace(c.Query("category"))

	projects, total, err := h.ProjectService.ListPublic(page, pageSize, category)
	if err != nil {
		respondError(c, response.CodeInternal, "项目列表获取失败", err)
		return
	}
	response.SuccessWithPage(c, projects, buildPagination(page, pageSize, total))
}

// GetProject 获取质押项目详情
func (h *Handler) GetProject(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "项目ID不合法", nil)
		return
	}

	project, err := h.ProjectService.Get(uint(id))
	if err != nil {
		respondWithMappedError(c, err, []mappedHandlerError{
			{target: service.ErrNotFound, code: response.CodeNotFound, msg: "质押项目不存在"},
		}, response.CodeInternal, "项目详情获取失败")
		return
	}
	response.Success(c, project)
}
