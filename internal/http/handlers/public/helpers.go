package public

import (
	"github.com/stakehub-next/internal/http/handlers/shared"
	"github.com/stakehub-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, msg string, err error) {
	shared.RespondError(c, code, msg, err)
}

func normalizePagination(page, pageSize int) (int, int) {
	return shared.NormalizePagination(page, pageSize)
}

func buildPagination(page, pageSize int, total int64) response.Pagination {
	totalPage := (total + int64(pageSize) - 1) / int64(pageSize)
	return response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	}
}
