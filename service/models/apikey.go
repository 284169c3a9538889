/*
 * @module service/models/apikey
 * @description API密钥模型，用于汇总导出等对外接口的访问控制
 * @architecture 数据模型层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 密钥创建 -> Hash存储 -> 请求鉴权 -> 使用统计
 * @rules 密钥明文只在创建时返回一次，库中仅保存bcrypt哈希
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/sharing, api/middleware
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApiKey API密钥模型
type ApiKey struct {
	ID           string     `gorm:"type:uuid;primary_key" json:"id"`
	Name         string     `gorm:"not null" json:"name"`
	KeyPrefix    string     `gorm:"not null;size:8" json:"key_prefix"` // Key的前缀，用于快速识别
	KeyValueHash string     `gorm:"not null;unique" json:"-"`          // 存储Hash后的Key值
	Description  string     `json:"description"`
	Status       string     `gorm:"not null;default:'active'" json:"status"` // active, inactive, revoked
	ExpiresAt    *time.Time `json:"expires_at"`
	LastUsedAt   *time.Time `json:"last_used_at"`
	UsageCount   int64      `gorm:"default:0" json:"usage_count"`
	CreatedBy    string     `gorm:"size:100" json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (ApiKey) TableName() string {
	return "api_keys"
}

// BeforeCreate 创建前钩子
func (ak *ApiKey) BeforeCreate(tx *gorm.DB) error {
	if ak.ID == "" {
		ak.ID = uuid.New().String()
	}
	if ak.CreatedBy == "" {
		ak.CreatedBy = "system"
	}
	return nil
}

// IsExpired 判断密钥是否已过期
func (ak *ApiKey) IsExpired() bool {
	return ak.ExpiresAt != nil && time.Now().After(*ak.ExpiresAt)
}
