// Package audit 提供管理操作审计事件的记录接口
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zhixinsec/secacademy-backend/internal/models"
)

// Entry 审计事件
type Entry struct {
	Actor      int64       `json:"actor"`       // 操作者（管理员 ID）
	Action     string      `json:"action"`      // 操作名称，如 promo.create
	Resource   string      `json:"resource"`    // 资源类型
	ResourceID string      `json:"resource_id"` // 资源标识
	Before     interface{} `json:"before,omitempty"`
	After      interface{} `json:"after,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Recorder 审计事件接收方。持久化由外部审计系统负责，
// 本服务只负责产出结构化事件。
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// ZapRecorder 基于 zap 的审计记录器，将事件写入结构化日志流
type ZapRecorder struct {
	logger *zap.Logger
}

// NewZapRecorder 创建基于 zap 的审计记录器
func NewZapRecorder(logger *zap.Logger) *ZapRecorder {
	return &ZapRecorder{logger: logger}
}

// Record 记录审计事件
func (r *ZapRecorder) Record(_ context.Context, entry Entry) {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}
	r.logger.Info("audit",
		zap.Int64("actor", entry.Actor),
		zap.String("action", entry.Action),
		zap.String("resource", entry.Resource),
		zap.String("resource_id", entry.ResourceID),
		zap.Any("before", entry.Before),
		zap.Any("after", entry.After),
		zap.Time("occurred_at", entry.OccurredAt),
	)
}

// NopRecorder 空审计记录器，用于测试
type NopRecorder struct{}

// Record 丢弃事件
func (NopRecorder) Record(context.Context, Entry) {}

// DBRecorder 将审计事件落库为操作日志
type DBRecorder struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewDBRecorder 创建落库审计记录器
func NewDBRecorder(db *gorm.DB, log *zap.Logger) *DBRecorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &DBRecorder{db: db, log: log}
}

// Record 记录审计事件。落库失败仅告警，不影响业务操作。
func (r *DBRecorder) Record(ctx context.Context, entry Entry) {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}
	record := &models.OperationLog{
		AdminID:    entry.Actor,
		Action:     entry.Action,
		Resource:   entry.Resource,
		ResourceID: entry.ResourceID,
		BeforeData: toJSON(entry.Before),
		AfterData:  toJSON(entry.After),
		CreatedAt:  entry.OccurredAt,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		r.log.Warn("审计日志写入失败",
			zap.String("action", entry.Action),
			zap.String("resource_id", entry.ResourceID),
			zap.Error(err),
		)
	}
}

// toJSON 将任意审计载荷归一化为 JSON 对象，非对象载荷包一层 value 键
func toJSON(v interface{}) models.JSON {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m models.JSON
	if err := json.Unmarshal(data, &m); err == nil {
		return m
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	return models.JSON{"value": raw}
}
