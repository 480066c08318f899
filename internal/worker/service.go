package worker

import (
	"context"
	"errors"
	"time"

	"github.com/stakehub-next/internal/config"
	"github.com/stakehub-next/internal/logger"
	"github.com/stakehub-next/internal/queue"
	"github.com/stakehub-next/internal/service"

	"github.com/hibiken/asynq"
)

const defaultIntegrityScanInterval = 10 * time.Minute

// Service 异步队列服务
type Service struct {
	name         string
	server       *asynq.Server
	mux          *asynq.ServeMux
	consumer     *Consumer
	scanInterval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Queue.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	scanInterval := defaultIntegrityScanInterval
	if cfg.Chain.ScanIntervalSeconds > 0 {
		scanInterval = time.Duration(cfg.Chain.ScanIntervalSeconds) * time.Second
	}

	return &Service{
		name:         "worker",
		server:       server,
		mux:          mux,
		consumer:     consumer,
		scanInterval: scanInterval,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.OrganizationService != nil {
		go s.runReferralIntegrityScanLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runReferralIntegrityScanLoop 周期性巡检推荐关系，发现环立即告警
func (s *Service) runReferralIntegrityScanLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.OrganizationService == nil {
		return
	}
	runOnce := func() {
		start := time.Now()
		roots, dangling, err := s.scanReferralIntegrityOnce()
		if err != nil {
			if errors.Is(err, service.ErrReferralCycle) {
				logger.Errorw("worker_referral_integrity_cycle_detected")
				return
			}
			logger.Warnw("worker_referral_integrity_scan_failed", "error", err)
			return
		}
		logger.Debugw("worker_referral_integrity_scan_ok",
			"roots", roots,
			"dangling", dangling,
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
	runOnce()

	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// scanReferralIntegrityOnce 执行一轮巡检：全量构建森林探测成环，
// 并逐条告警推荐人已不存在于用户表的悬挂记录。返回根数与悬挂数。
func (s *Service) scanReferralIntegrityOnce() (int, int, error) {
	roots, err := s.consumer.OrganizationService.BuildForest(nil, nil)
	if err != nil {
		return 0, 0, err
	}

	danglingCount := 0
	if s.consumer.ReferralRepo != nil {
		dangling, err := s.consumer.ReferralRepo.ListDangling()
		if err != nil {
			logger.Warnw("worker_referral_dangling_scan_failed", "error", err)
		} else {
			danglingCount = len(dangling)
			for _, row := range dangling {
				logger.Warnw("worker_referral_dangling_referrer",
					"referred_wallet", row.ReferredWallet,
					"referrer_wallet", row.ReferrerWallet,
					"code", row.Code,
				)
			}
		}
	}
	return len(roots), danglingCount, nil
}
