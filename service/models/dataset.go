/*
 * @module service/models/dataset
 * @description 数据集模型定义，保存上传数据集的元信息和原始内容
 * @architecture 数据模型层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 数据集上传 -> 解析入库 -> 规则配置 -> 质量检查
 * @rules 数据集原始内容完整保存，重启后可重新加载并再次检查
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/dataset, service/quality
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dataset 数据集模型
type Dataset struct {
	ID             string           `gorm:"type:uuid;primary_key" json:"id"`
	Name           string           `gorm:"not null" json:"name"`
	FileName       string           `gorm:"not null" json:"file_name"`
	Columns        JSONBStringArray `gorm:"type:jsonb;not null" json:"columns"`
	RowCount       int              `gorm:"not null" json:"row_count"`
	ColumnCount    int              `gorm:"not null" json:"column_count"`
	Encoding       string           `gorm:"type:varchar(20);default:'utf-8'" json:"encoding"` // utf-8, gbk
	RawContent     []byte           `gorm:"type:bytea" json:"-"`                              // 原始CSV内容
	CronExpression string           `gorm:"type:varchar(100)" json:"cron_expression"`         // 定时重检表达式，空表示不调度
	Status         string           `gorm:"not null;default:'active'" json:"status"`          // active, archived
	CreatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	CreatedBy      string           `gorm:"not null;default:'system';size:100" json:"created_by"`
}

// TableName 指定表名
func (Dataset) TableName() string {
	return "datasets"
}

// BeforeCreate 创建前钩子
func (d *Dataset) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedBy == "" {
		d.CreatedBy = "system"
	}
	return nil
}

// ColumnPreview 列预览信息
type ColumnPreview struct {
	Name         string `json:"name"`
	DetectedType string `json:"detected_type"` // string, number, datetime, null
	SampleValue  string `json:"sample_value"`  // 第一个非空值，无则为 "NULL"
}

// DatasetPreview 数据集预览
type DatasetPreview struct {
	DatasetID string               `json:"dataset_id"`
	Columns   []ColumnPreview      `json:"columns"`
	Rows      []map[string]*string `json:"rows"` // 前N行数据，空值为null
	RowCount  int                  `json:"row_count"`
}
