package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/stakehub-next/internal/config"
	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/logger"
	"github.com/stakehub-next/internal/models"
	"github.com/stakehub-next/internal/queue"
	"github.com/stakehub-next/internal/repository"

	"github.com/shopspring/decimal"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

// InvestmentService 投资入账业务服务
type InvestmentService struct {
	cfg         *config.Config
	repo        repository.InvestmentRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	queueClient *queue.Client
}

// NewInvestmentService 创建投资服务
func NewInvestmentService(
	cfg *config.Config,
	repo repository.InvestmentRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	queueClient *queue.Client,
) *InvestmentService {
	return &InvestmentService{
		cfg:         cfg,
		repo:        repo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		queueClient: queueClient,
	}
}

// SubmitInvestmentInput 投资提交输入
type SubmitInvestmentInput struct {
	WalletAddress string
	ProjectID     uint
	Amount        string
	TxHash        string
}

// InvestmentProjectSummary 按项目汇总项
type InvestmentProjectSummary struct {
	ProjectID   uint         `json:"project_id"`
	ProjectName string       `json:"project_name"`
	Total       models.Money `json:"total"`
	Count       int64        `json:"count"`
}

// InvestmentSummary 用户投资汇总
type InvestmentSummary struct {
	TotalInvested models.Money               `json:"total_invested"`
	Projects      []InvestmentProjectSummary `json:"projects"`
}

// Submit 用户提交投资：落库为 pending 并推送延迟确认任务。
// 交易哈希全局唯一，重复提交返回 ErrDuplicateTxHash。
func (s *InvestmentService) Submit(input SubmitInvestmentInput) (*models.Investment, error) {
	wallet, err := NormalizeWalletAddress(input.WalletAddress)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByWallet(wallet)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if strings.ToLower(strings.TrimSpace(user.Status)) == constants.UserStatusDisabled {
		return nil, ErrUserDisabled
	}

	project, err := s.projectRepo.GetByID(input.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(project.Status) != constants.ProjectStatusActive {
		return nil, ErrProjectNotActive
	}

	amount, err := models.NewMoneyFromString(input.Amount)
	if err != nil {
		return nil, ErrInvestmentAmountInvalid
	}
	if amount.Decimal.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvestmentAmountInvalid
	}
	if amount.Decimal.LessThan(project.MinAmount.Decimal) {
		return nil, ErrInvestmentAmountInvalid
	}
	if project.MaxAmount.Decimal.GreaterThan(decimal.Zero) && amount.Decimal.GreaterThan(project.MaxAmount.Decimal) {
		return nil, ErrInvestmentAmountInvalid
	}

	txHash, err := normalizeTxHash(input.TxHash)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByTxHash(txHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateTxHash
	}

	now := time.Now()
	investment := &models.Investment{
		UserWallet: wallet,
		ProjectID:  project.ID,
		Amount:     amount,
		TxHash:     txHash,
		Category:   project.Category,
		Status:     constants.InvestmentStatusPending,
		InvestedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(investment); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTxHash
		}
		return nil, err
	}

	// 入账确认是异步的，推送失败不回滚已落库的记录
	if err := s.queueClient.EnqueueInvestmentConfirm(queue.InvestmentConfirmPayload{
		InvestmentID: investment.ID,
		TxHash:       investment.TxHash,
	}, s.confirmDelay()); err != nil {
		logger.Warnw("investment_confirm_enqueue_failed",
			"investment_id", investment.ID,
			"tx_hash", investment.TxHash,
			"error", err,
		)
	}

	return investment, nil
}

// Confirm 将 pending 投资标记为已确认，重复确认返回 false
func (s *InvestmentService) Confirm(investmentID uint) (bool, error) {
	now := time.Now()
	rows, err := s.repo.UpdateStatus(
		investmentID,
		constants.InvestmentStatusPending,
		constants.InvestmentStatusConfirmed,
		"",
		&now,
	)
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// Fail 将 pending 投资标记为失败
func (s *InvestmentService) Fail(investmentID uint, reason string) (bool, error) {
	rows, err := s.repo.UpdateStatus(
		investmentID,
		constants.InvestmentStatusPending,
		constants.InvestmentStatusFailed,
		strings.TrimSpace(reason),
		nil,
	)
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// GetByID 获取投资记录
func (s *InvestmentService) GetByID(id uint) (*models.Investment, error) {
	investment, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if investment == nil {
		return nil, ErrNotFound
	}
	return investment, nil
}

// ListUserInvestments 查询用户投资记录
func (s *InvestmentService) ListUserInvestments(wallet string, page, pageSize int, status string) ([]models.Investment, int64, error) {
	normalized, err := NormalizeWalletAddress(wallet)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.List(repository.InvestmentListFilter{
		Page:       page,
		PageSize:   pageSize,
		UserWallet: normalized,
		Status:     strings.TrimSpace(status),
	})
}

// GetUserSummary 用户已确认投资汇总（总额 + 按项目）
func (s *InvestmentService) GetUserSummary(wallet string) (*InvestmentSummary, error) {
	normalized, err := NormalizeWalletAddress(wallet)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.SumConfirmedByWallet(normalized)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.SummarizeConfirmedByProject(normalized)
	if err != nil {
		return nil, err
	}

	projectIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		projectIDs = append(projectIDs, row.ProjectID)
	}
	projects, err := s.projectRepo.ListByIDs(projectIDs)
	if err != nil {
		return nil, err
	}
	nameMap := make(map[uint]string, len(projects))
	for _, project := range projects {
		nameMap[project.ID] = project.Name
	}

	summary := &InvestmentSummary{
		TotalInvested: models.NewMoneyFromDecimal(total),
		Projects:      make([]InvestmentProjectSummary, 0, len(rows)),
	}
	for _, row := range rows {
		summary.Projects = append(summary.Projects, InvestmentProjectSummary{
			ProjectID:   row.ProjectID,
			ProjectName: nameMap[row.ProjectID],
			Total:       models.NewMoneyFromDecimal(row.Total),
			Count:       row.Count,
		})
	}
	return summary, nil
}

// ListAdmin 后台查询投资记录
func (s *InvestmentService) ListAdmin(filter repository.InvestmentListFilter) ([]models.Investment, int64, error) {
	return s.repo.List(filter)
}

// AdminUpdateStatus 后台人工流转投资状态（仅允许 pending 起步）
func (s *InvestmentService) AdminUpdateStatus(id uint, action, reason string) (*models.Investment, error) {
	investment, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if investment == nil {
		return nil, ErrNotFound
	}

	var updated bool
	switch strings.ToLower(strings.TrimSpace(action)) {
	case constants.InvestmentStatusConfirmed, "confirm":
		updated, err = s.Confirm(id)
	case constants.InvestmentStatusFailed, "fail":
		updated, err = s.Fail(id, reason)
	default:
		return nil, ErrInvestmentStatusInvalid
	}
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrInvestmentStatusInvalid
	}
	return s.repo.GetByID(id)
}

func (s *InvestmentService) confirmDelay() time.Duration {
	seconds := 30
	if s.cfg != nil && s.cfg.Chain.ConfirmDelaySeconds > 0 {
		seconds = s.cfg.Chain.ConfirmDelaySeconds
	}
	return time.Duration(seconds) * time.Second
}

func normalizeTxHash(raw string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if !txHashPattern.MatchString(normalized) {
		return "", ErrInvalidTxHash
	}
	return normalized, nil
}
