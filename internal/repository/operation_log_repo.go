// Package repository 提供数据访问层
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/zhixinsec/secacademy-backend/internal/models"
)

// OperationLogRepository 操作日志仓储
type OperationLogRepository struct {
	db *gorm.DB
}

// NewOperationLogRepository 创建操作日志仓储
func NewOperationLogRepository(db *gorm.DB) *OperationLogRepository {
	return &OperationLogRepository{db: db}
}

// Create 写入操作日志
func (r *OperationLogRepository) Create(ctx context.Context, log *models.OperationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// OperationLogListParams 操作日志查询参数
type OperationLogListParams struct {
	AdminID *int64
	Action  string
	Offset  int
	Limit   int
}

// List 分页查询操作日志，按时间倒序
func (r *OperationLogRepository) List(ctx context.Context, params OperationLogListParams) ([]*models.OperationLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OperationLog{})
	if params.AdminID != nil {
		query = query.Where("admin_id = ?", *params.AdminID)
	}
	if params.Action != "" {
		query = query.Where("action = ?", params.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []*models.OperationLog
	err := query.Order("created_at DESC").
		Offset(params.Offset).
		Limit(params.Limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
