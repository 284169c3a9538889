/*
 * @module service/ruleset/registry_evictor
 * @description 数据集变更事件处理器，数据集被删除时清理其会话内规则注册表
 * @architecture 事件驱动架构 - 业务服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 数据库变更通知 -> 事件分发 -> 注册表清理
 * @rules 只处理DELETE事件；其他实例删除数据集时本实例的规则缓存同步失效
 * @dependencies dataquality-service/service/models
 * @refs service/event/event_service.go, service/init.go
 */

package ruleset

import (
	"dataquality-service/service/models"
	"log/slog"
)

// RegistryEvictor 监听数据集表变更，删除时移除对应的规则注册表
// 实现models.DBEventProcessor接口，由事件服务在收到数据库通知时调用
type RegistryEvictor struct {
	store *SessionStore
}

// NewRegistryEvictor 创建注册表清理处理器
func NewRegistryEvictor(store *SessionStore) *RegistryEvictor {
	return &RegistryEvictor{store: store}
}

// GetProcessorName 返回处理器名称
func (e *RegistryEvictor) GetProcessorName() string {
	return "ruleset_registry_evictor"
}

// ProcessEvent 处理数据集表的变更事件
func (e *RegistryEvictor) ProcessEvent(event *models.DBChangeEvent) error {
	if event.Operation != "DELETE" || event.RecordID == "" {
		return nil
	}

	e.store.Remove(event.RecordID)
	slog.Debug("数据集已删除，规则注册表已清理", "dataset_id", event.RecordID)
	return nil
}
