/*
 * @module service/models/event
 * @description 事件管理相关模型定义，包括SSE事件、数据库事件监听等
 * @architecture 事件驱动架构 - 数据模型层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 事件生产 -> 事件分发 -> 事件消费
 * @rules 确保事件的可靠传递和处理
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/event
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 事件类型
const (
	EventTypeDatasetChange       = "dataset_change"
	EventTypeValidationCompleted = "validation_completed"
	EventTypeSystemNotification  = "system_notification"
)

// SSEEvent SSE事件模型
type SSEEvent struct {
	ID        string     `gorm:"type:uuid;primary_key" json:"id"`
	EventType string     `gorm:"not null" json:"event_type"`
	UserName  string     `gorm:"not null;index" json:"user_name"`
	Data      JSONB      `gorm:"type:jsonb;not null" json:"data"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	Sent      bool       `gorm:"not null;default:false" json:"sent"`
	SentAt    *time.Time `json:"sent_at"`
}

// TableName 指定表名
func (SSEEvent) TableName() string {
	return "sse_events"
}

// BeforeCreate 创建前钩子
func (s *SSEEvent) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// DBChangeEvent 数据库变更事件（来自PostgreSQL NOTIFY）
type DBChangeEvent struct {
	Table     string                 `json:"table"`
	Operation string                 `json:"operation"` // INSERT, UPDATE, DELETE
	RecordID  string                 `json:"record_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// DBEventProcessor 数据库事件处理器接口
type DBEventProcessor interface {
	ProcessEvent(event *DBChangeEvent) error
	GetProcessorName() string
}
