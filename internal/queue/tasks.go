package queue

import (
	"encoding/json"

	"github.com/stakehub-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskInvestmentConfirm 投资入账确认任务
	TaskInvestmentConfirm = constants.TaskInvestmentConfirm
	// TaskOrgExportCSV 组织架构 CSV 异步导出任务
	TaskOrgExportCSV = constants.TaskOrgExportCSV
)

// InvestmentConfirmPayload 投资确认任务载荷
type InvestmentConfirmPayload struct {
	InvestmentID uint   `json:"investment_id"`
	TxHash       string `json:"tx_hash"`
}

// OrgExportCSVPayload 组织架构导出任务载荷
// StartAt/EndAt 为 Unix 秒时间戳，0 表示不限
type OrgExportCSVPayload struct {
	Token   string `json:"token"`
	StartAt int64  `json:"start_at"`
	EndAt   int64  `json:"end_at"`
}

// NewInvestmentConfirmTask 创建投资确认任务
func NewInvestmentConfirmTask(payload InvestmentConfirmPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvestmentConfirm, body), nil
}

// NewOrgExportCSVTask 创建组织架构导出任务
func NewOrgExportCSVTask(payload OrgExportCSVPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrgExportCSV, body), nil
}
