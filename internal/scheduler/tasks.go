// Package scheduler 提供定时任务
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/zhixinsec/secacademy-backend/internal/common/logger"
	"github.com/zhixinsec/secacademy-backend/internal/common/metrics"
	"github.com/zhixinsec/secacademy-backend/internal/repository"
)

// TaskHandler 任务处理器
type TaskHandler struct {
	codeRepo *repository.PromoCodeRepository
	log      *zap.Logger
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(codeRepo *repository.PromoCodeRepository) *TaskHandler {
	return &TaskHandler{
		codeRepo: codeRepo,
		log:      logger.Named("tasks"),
	}
}

// DeactivateExpiredCodes 停用已过有效期的优惠码。
// 校验路径本身会拒绝过期码，这里只是让列表状态与实际可用性一致。
func (h *TaskHandler) DeactivateExpiredCodes(ctx context.Context) error {
	count, err := h.codeRepo.DeactivateExpired(ctx, time.Now())
	if err != nil {
		return err
	}
	if count > 0 {
		h.log.Info("过期优惠码已停用", logger.Int64("count", count))
	}
	return nil
}

// RefreshActiveCodeGauge 更新启用中优惠码数量指标
func (h *TaskHandler) RefreshActiveCodeGauge(ctx context.Context) error {
	count, err := h.codeRepo.CountActive(ctx)
	if err != nil {
		return err
	}
	metrics.GetMetrics().SetActiveCodes(float64(count))
	return nil
}

// SnapshotPendingPayouts 输出合作伙伴待结算佣金快照，供运营巡检
func (h *TaskHandler) SnapshotPendingPayouts(ctx context.Context) error {
	codes, err := h.codeRepo.ListPartnersWithPendingPayout(ctx)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		return nil
	}

	var total float64
	for _, c := range codes {
		total += c.PendingPayout()
	}
	h.log.Info("合作伙伴待结算佣金快照",
		logger.Int("partners", len(codes)),
		logger.Float64("total_pending", total),
	)
	return nil
}

// SetupTasks 设置所有任务
func SetupTasks(scheduler *Scheduler, handler *TaskHandler) {
	// 每 10 分钟停用过期优惠码
	scheduler.AddTask("DeactivateExpiredCodes", 10*time.Minute, handler.DeactivateExpiredCodes)

	// 每分钟刷新启用中优惠码数量指标
	scheduler.AddTask("RefreshActiveCodeGauge", 1*time.Minute, handler.RefreshActiveCodeGauge)

	// 每小时输出待结算佣金快照
	scheduler.AddTask("SnapshotPendingPayouts", 1*time.Hour, handler.SnapshotPendingPayouts)
}
