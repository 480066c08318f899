package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stakehub-next/internal/provider"
	"github.com/stakehub-next/internal/queue"

	"github.com/hibiken/asynq"
)

func TestHandleInvestmentConfirmSkipInvalidPayload(t *testing.T) {
	c := NewConsumer(&provider.Container{})

	body, err := json.Marshal(queue.InvestmentConfirmPayload{InvestmentID: 0})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	task := asynq.NewTask(queue.TaskInvestmentConfirm, body)
	if err := c.handleInvestmentConfirm(context.Background(), task); err != nil {
		t.Fatalf("zero investment id should be skipped, got %v", err)
	}
}

func TestHandleInvestmentConfirmBadPayload(t *testing.T) {
	c := NewConsumer(&provider.Container{})

	task := asynq.NewTask(queue.TaskInvestmentConfirm, []byte("not-json"))
	if err := c.handleInvestmentConfirm(context.Background(), task); err == nil {
		t.Fatalf("malformed payload should return error")
	}
}

func TestHandleOrgExportCSVSkipEmptyToken(t *testing.T) {
	c := NewConsumer(&provider.Container{})

	body, err := json.Marshal(queue.OrgExportCSVPayload{Token: ""})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	task := asynq.NewTask(queue.TaskOrgExportCSV, body)
	if err := c.handleOrgExportCSV(context.Background(), task); err != nil {
		t.Fatalf("empty token should be skipped, got %v", err)
	}
}

func TestHandleOrgExportCSVSkipServiceNil(t *testing.T) {
	c := NewConsumer(&provider.Container{})

	body, err := json.Marshal(queue.OrgExportCSVPayload{Token: "tok-1", StartAt: 0, EndAt: 0})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	task := asynq.NewTask(queue.TaskOrgExportCSV, body)
	if err := c.handleOrgExportCSV(context.Background(), task); err != nil {
		t.Fatalf("missing service should be skipped, got %v", err)
	}
}

func TestHandleNilTask(t *testing.T) {
	c := NewConsumer(&provider.Container{})

	if err := c.handleInvestmentConfirm(context.Background(), nil); err != nil {
		t.Fatalf("nil task should be skipped, got %v", err)
	}
	if err := c.handleOrgExportCSV(context.Background(), nil); err != nil {
		t.Fatalf("nil task should be skipped, got %v", err)
	}
}
