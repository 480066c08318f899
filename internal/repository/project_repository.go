package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/models"

	"gorm.io/gorm"
)

// ProjectRepository 质押项目数据访问接口
type ProjectRepository interface {
	GetByID(id uint) (*models.Project, error)
	Create(project *models.Project) error
	Update(project *models.Project) error
	Delete(id uint) error
	List(filter ProjectListFilter) ([]models.Project, int64, error)
	ListByIDs(ids []uint) ([]models.Project, error)
}

// GormProjectRepository GORM 实现
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建项目仓库
func NewProjectRepository(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

// GetByID 根据 ID 获取项目
func (r *GormProjectRepository) GetByID(id uint) (*models.Project, error) {
	if id == 0 {
		return nil, nil
	}
	var project models.Project
	if err := r.db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

// Create 创建项目
func (r *GormProjectRepository) Create(project *models.Project) error {
	return r.db.Create(project).Error
}

// Update 更新项目
func (r *GormProjectRepository) Update(project *models.Project) error {
	return r.db.Save(project).Error
}

// Delete 删除项目（软删除）
func (r *GormProjectRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.Project{}, id).Error
}

// List 查询项目列表
func (r *GormProjectRepository) List(filter ProjectListFilter) ([]models.Project, int64, error) {
	query := r.db.Model(&models.Project{})

	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		op := likeOperator(r.db)
		query = query.Where(fmt.Sprintf("name %s ? OR symbol %s ?", op, op), like, like)
	}
	if filter.OnlyActive {
		query = query.Where("status = ?", constants.ProjectStatusActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	rows := make([]models.Project, 0)
	if err := query.Order("sort_order ASC, id DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListByIDs 批量获取项目
func (r *GormProjectRepository) ListByIDs(ids []uint) ([]models.Project, error) {
	if len(ids) == 0 {
		return []models.Project{}, nil
	}
	rows := make([]models.Project, 0, len(ids))
	if err := r.db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
