/*
 * @module service/sharing/apikey_service
 * @description API密钥服务，提供密钥的创建、验证、吊销与使用统计
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 密钥创建 -> Hash存储 -> 请求鉴权 -> 使用统计
 * @rules 密钥明文只在创建时返回一次，库中仅保存bcrypt哈希
 * @dependencies dataquality-service/service/models, gorm.io/gorm, golang.org/x/crypto/bcrypt
 * @refs api/middleware/apikey_auth.go
 */

package sharing

import (
	"crypto/rand"
	"dataquality-service/service/models"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ApiKeyService API密钥服务
type ApiKeyService struct {
	db *gorm.DB
}

// NewApiKeyService 创建API密钥服务实例
func NewApiKeyService(db *gorm.DB) *ApiKeyService {
	return &ApiKeyService{db: db}
}

// CreateApiKey 创建一个新的API密钥
// 返回完整的Key值（仅此一次），数据库存储其Hash
func (s *ApiKeyService) CreateApiKey(name, description string, expiresAt *time.Time) (*models.ApiKey, string, error) {
	if name == "" {
		return nil, "", errors.New("密钥名称不能为空")
	}

	// 生成32字节的随机字符串，转为64字符的hex
	fullKey, err := generateRandomString(64)
	if err != nil {
		return nil, "", err
	}

	// 前缀取前8个字符，用于验证时的快速筛选
	keyPrefix := fullKey[:8]

	hashedKey, err := bcrypt.GenerateFromPassword([]byte(fullKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	apiKey := &models.ApiKey{
		Name:         name,
		KeyPrefix:    keyPrefix,
		KeyValueHash: string(hashedKey),
		Description:  description,
		ExpiresAt:    expiresAt,
		Status:       "active",
	}

	if err := s.db.Create(apiKey).Error; err != nil {
		return nil, "", err
	}

	return apiKey, fullKey, nil
}

// GetApiKeys 获取所有API密钥信息（不包含Key本身）
func (s *ApiKeyService) GetApiKeys() ([]models.ApiKey, error) {
	var keys []models.ApiKey
	err := s.db.Order("created_at DESC").Find(&keys).Error
	return keys, err
}

// GetApiKeyByID 根据ID获取API密钥
func (s *ApiKeyService) GetApiKeyByID(keyID string) (*models.ApiKey, error) {
	var key models.ApiKey
	if err := s.db.First(&key, "id = ?", keyID).Error; err != nil {
		return nil, err
	}
	return &key, nil
}

// UpdateApiKey 更新API密钥信息（如描述、状态）
func (s *ApiKeyService) UpdateApiKey(keyID string, updates map[string]interface{}) error {
	return s.db.Model(&models.ApiKey{}).Where("id = ?", keyID).Updates(updates).Error
}

// DeleteApiKey 吊销（删除）一个API密钥
func (s *ApiKeyService) DeleteApiKey(keyID string) error {
	return s.db.Delete(&models.ApiKey{}, "id = ?", keyID).Error
}

// VerifyApiKey 验证API密钥
func (s *ApiKeyService) VerifyApiKey(keyValue string) (*models.ApiKey, error) {
	if len(keyValue) < 8 {
		return nil, errors.New("无效的API Key格式")
	}

	keyPrefix := keyValue[:8]

	var keys []models.ApiKey
	if err := s.db.Where("key_prefix = ? AND status = 'active'", keyPrefix).Find(&keys).Error; err != nil {
		return nil, err
	}

	// 遍历所有匹配前缀的Key，验证完整Key
	for _, key := range keys {
		if err := bcrypt.CompareHashAndPassword([]byte(key.KeyValueHash), []byte(keyValue)); err == nil {
			if key.IsExpired() {
				return nil, errors.New("API Key已过期")
			}

			// 更新最后使用时间和使用次数
			s.db.Model(&key).Updates(map[string]interface{}{
				"last_used_at": time.Now(),
				"usage_count":  key.UsageCount + 1,
			})

			return &key, nil
		}
	}

	return nil, errors.New("无效的API Key")
}

// generateRandomString 生成随机hex字符串
func generateRandomString(length int) (string, error) {
	bytes := make([]byte, length/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
