package admin

import (
	"strconv"
	"strings"

	"github.com/stakehub-next/internal/http/response"
	"github.com/stakehub-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAuthzAuditLogs 获取权限审计日志列表
func (h *Handler) ListAuthzAuditLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	operatorAdminIDRaw := strings.TrimSpace(c.Query("operator_admin_id"))
	targetAdminIDRaw := strings.TrimSpace(c.Query("target_admin_id"))
	action := strings.TrimSpace(c.Query("action"))
	role := strings.TrimSpace(c.Query("role"))
	object := strings.TrimSpace(c.Query("object"))
	method := strings.TrimSpace(c.Query("method"))
	createdFromRaw := strings.TrimSpace(c.Query("created_from"))
	createdToRaw := strings.TrimSpace(c.Query("created_to"))

	var operatorAdminID uint
	if operatorAdminIDRaw != "" {
		raw, err := strconv.ParseUint(operatorAdminIDRaw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "请求参数不完整", err)
			return
		}
		operatorAdminID = uint(raw)
	}

	var targetAdminID uint
	if targetAdminIDRaw != "" {
		raw, err := strconv.ParseUint(targetAdminIDRaw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "请求参数不完整", err)
			return
		}
		targetAdminID = uint(raw)
	}

	createdFrom, err := parseTimeNullable(createdFromRaw)
	if err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不完整", err)
		return
	}
	createdTo, err := parseTimeNullable(createdToRaw)
	if err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不完整", err)
		return
	}

	items, total, err := h.AuthzAuditService.ListForAdmin(repository.AuthzAuditLogListFilter{
		Page:            page,
		PageSize:        pageSize,
		OperatorAdminID: operatorAdminID,
		TargetAdminID:   targetAdminID,
		Action:          action,
		Role:            role,
		Object:          object,
		Method:          method,
		CreatedFrom:     createdFrom,
		CreatedTo:       createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "配置获取失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, items, pagination)
}
