package service

import (
	"errors"
	"strings"
	"time"

	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/models"
	"github.com/stakehub-next/internal/repository"

	"github.com/shopspring/decimal"
)

// ErrProjectInvalid 项目参数不合法
var ErrProjectInvalid = errors.New("project invalid")

// ProjectService 质押项目业务服务
type ProjectService struct {
	repo repository.ProjectRepository
}

// NewProjectService 创建项目服务
func NewProjectService(repo repository.ProjectRepository) *ProjectService {
	return &ProjectService{repo: repo}
}

// ProjectInput 项目创建/更新输入
type ProjectInput struct {
	Name            string
	Symbol          string
	Category        string
	APYDisplay      string
	MinAmount       string
	MaxAmount       string
	LockDays        int
	ContractAddress string
	Status          string
	SortOrder       int
}

// ListPublic 前台项目列表（仅上架项目）
func (s *ProjectService) ListPublic(page, pageSize int, category string) ([]models.Project, int64, error) {
	return s.repo.List(repository.ProjectListFilter{
		Page:       page,
		PageSize:   pageSize,
		Category:   strings.TrimSpace(category),
		OnlyActive: true,
	})
}

// ListAdmin 后台项目列表
func (s *ProjectService) ListAdmin(filter repository.ProjectListFilter) ([]models.Project, int64, error) {
	return s.repo.List(filter)
}

// Get 获取项目
func (s *ProjectService) Get(id uint) (*models.Project, error) {
	project, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	return project, nil
}

// Create 创建项目
func (s *ProjectService) Create(input ProjectInput) (*models.Project, error) {
	project, err := buildProject(&models.Project{}, input)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now
	if err := s.repo.Create(project); err != nil {
		return nil, err
	}
	return project, nil
}

// Update 更新项目
func (s *ProjectService) Update(id uint, input ProjectInput) (*models.Project, error) {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	project, err := buildProject(existing, input)
	if err != nil {
		return nil, err
	}
	project.UpdatedAt = time.Now()
	if err := s.repo.Update(project); err != nil {
		return nil, err
	}
	return project, nil
}

// Delete 删除项目（软删除，历史投资记录保留）
func (s *ProjectService) Delete(id uint) error {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}
	return s.repo.Delete(id)
}

func buildProject(project *models.Project, input ProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	symbol := strings.ToUpper(strings.TrimSpace(input.Symbol))
	if name == "" || symbol == "" {
		return nil, ErrProjectInvalid
	}

	minAmount, err := models.NewMoneyFromString(strings.TrimSpace(input.MinAmount))
	if err != nil || minAmount.Decimal.LessThan(decimal.Zero) {
		return nil, ErrProjectInvalid
	}
	maxAmount := models.NewMoneyFromDecimal(decimal.Zero)
	if raw := strings.TrimSpace(input.MaxAmount); raw != "" {
		maxAmount, err = models.NewMoneyFromString(raw)
		if err != nil || maxAmount.Decimal.LessThan(decimal.Zero) {
			return nil, ErrProjectInvalid
		}
	}
	if maxAmount.Decimal.GreaterThan(decimal.Zero) && maxAmount.Decimal.LessThan(minAmount.Decimal) {
		return nil, ErrProjectInvalid
	}
	if input.LockDays < 0 {
		return nil, ErrProjectInvalid
	}

	status := strings.ToLower(strings.TrimSpace(input.Status))
	switch status {
	case "":
		status = constants.ProjectStatusActive
	case constants.ProjectStatusActive, constants.ProjectStatusArchived:
	default:
		return nil, ErrProjectInvalid
	}

	project.Name = name
	project.Symbol = symbol
	project.Category = strings.TrimSpace(input.Category)
	project.APYDisplay = strings.TrimSpace(input.APYDisplay)
	project.MinAmount = minAmount
	project.MaxAmount = maxAmount
	project.LockDays = input.LockDays
	project.ContractAddress = strings.ToLower(strings.TrimSpace(input.ContractAddress))
	project.Status = status
	project.SortOrder = input.SortOrder
	return project, nil
}
