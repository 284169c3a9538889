/*
 * @module service/ruleset/session_store
 * @description 会话内规则注册表存储，按数据集ID管理各自的规则集
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 数据集注册 -> 注册表读写 -> 数据集移除时清理
 * @rules 规则不落库；校验运行与规则编辑并发时通过快照隔离
 * @dependencies dataquality-service/service/models, sync
 * @refs service/quality/engine.go
 */

package ruleset

import (
	"dataquality-service/service/models"
	"fmt"
	"sync"
)

// SessionStore 按数据集维护规则注册表
type SessionStore struct {
	mu         sync.RWMutex
	registries map[string]*Registry // datasetID -> registry
}

// NewSessionStore 创建会话存储
func NewSessionStore() *SessionStore {
	return &SessionStore{
		registries: make(map[string]*Registry),
	}
}

// Register 为数据集创建默认注册表（已存在则替换）
func (s *SessionStore) Register(datasetID string, columns []string) *Registry {
	s.mu.Lock()
	defer s.mu.Unlock()

	registry := NewRegistry(columns)
	s.registries[datasetID] = registry
	return registry
}

// Get 获取数据集的注册表
func (s *SessionStore) Get(datasetID string) (*Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	registry, exists := s.registries[datasetID]
	if !exists {
		return nil, fmt.Errorf("数据集 %s 未注册规则集", datasetID)
	}
	return registry, nil
}

// UpdateRule 替换某数据集某列的规则
func (s *SessionStore) UpdateRule(datasetID, column string, rule models.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	registry, exists := s.registries[datasetID]
	if !exists {
		return fmt.Errorf("数据集 %s 未注册规则集", datasetID)
	}
	return registry.Set(column, rule)
}

// Snapshot 获取数据集注册表的一致快照
func (s *SessionStore) Snapshot(datasetID string) (*Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	registry, exists := s.registries[datasetID]
	if !exists {
		return nil, fmt.Errorf("数据集 %s 未注册规则集", datasetID)
	}
	return registry.Snapshot(), nil
}

// Remove 移除数据集的注册表
func (s *SessionStore) Remove(datasetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registries, datasetID)
}
