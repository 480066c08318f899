package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/stakehub-next/internal/logger"
	"github.com/stakehub-next/internal/provider"
	"github.com/stakehub-next/internal/queue"
	"github.com/stakehub-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskInvestmentConfirm, c.handleInvestmentConfirm)
	mux.HandleFunc(queue.TaskOrgExportCSV, c.handleOrgExportCSV)
}

func (c *Consumer) handleInvestmentConfirm(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_investment_confirm_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.InvestmentConfirmPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_investment_confirm_unmarshal_failed", "error", err)
		return err
	}
	if payload.InvestmentID == 0 {
		logger.Debugw("worker_investment_confirm_skip_invalid_payload", "investment_id", payload.InvestmentID)
		return nil
	}
	if c.InvestmentService == nil {
		logger.Warnw("worker_investment_confirm_skip_service_nil", "investment_id", payload.InvestmentID)
		return nil
	}
	confirmed, err := c.InvestmentService.Confirm(payload.InvestmentID)
	if err != nil {
		logger.Warnw("worker_investment_confirm_failed",
			"investment_id", payload.InvestmentID,
			"tx_hash", payload.TxHash,
			"error", err,
		)
		return err
	}
	if !confirmed {
		// 已被确认或已失败，幂等跳过
		logger.Debugw("worker_investment_confirm_skip_not_pending", "investment_id", payload.InvestmentID)
		return nil
	}
	logger.Infow("worker_investment_confirmed",
		"investment_id", payload.InvestmentID,
		"tx_hash", payload.TxHash,
	)
	return nil
}

func (c *Consumer) handleOrgExportCSV(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_org_export_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrgExportCSVPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_org_export_unmarshal_failed", "error", err)
		return err
	}
	if payload.Token == "" {
		logger.Debugw("worker_org_export_skip_empty_token")
		return nil
	}
	if c.OrganizationService == nil {
		logger.Warnw("worker_org_export_skip_service_nil", "token", payload.Token)
		return nil
	}
	var investedFrom, investedTo *time.Time
	if payload.StartAt > 0 {
		from := time.Unix(payload.StartAt, 0)
		investedFrom = &from
	}
	if payload.EndAt > 0 {
		to := time.Unix(payload.EndAt, 0)
		investedTo = &to
	}
	data, err := c.OrganizationService.ExportCSVNow(investedFrom, investedTo)
	if err != nil {
		if errors.Is(err, service.ErrReferralCycle) {
			logger.Errorw("worker_org_export_referral_cycle", "token", payload.Token)
			return nil
		}
		logger.Warnw("worker_org_export_build_failed", "token", payload.Token, "error", err)
		return err
	}
	if err := c.OrganizationService.StoreCSVExport(ctx, payload.Token, data); err != nil {
		logger.Warnw("worker_org_export_store_failed", "token", payload.Token, "error", err)
		return err
	}
	logger.Infow("worker_org_export_done", "token", payload.Token, "bytes", len(data))
	return nil
}
