/*
 * @module service/event_service
 * @description 事件管理服务，提供SSE事件推送和数据集表变更监听功能
 * @architecture 事件驱动架构 - 业务服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 事件监听 -> 事件处理 -> 事件分发 -> 客户端推送
 * @rules 确保事件的实时性和可靠性
 * @dependencies dataquality-service/service/models, gorm.io/gorm, github.com/lib/pq
 * @refs api/controllers/event_controller.go, service/quality/engine.go
 */

package event

import (
	"context"
	"dataquality-service/service/models"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// EventService 事件管理服务
type EventService struct {
	db                *gorm.DB
	connections       map[string]map[string]*SSEClient // userName -> connectionID -> client
	mu                sync.RWMutex
	dbEventProcessors map[string]models.DBEventProcessor
	dbListener        *pq.Listener
	ctx               context.Context
	cancel            context.CancelFunc
}

// SSEClient SSE客户端连接
type SSEClient struct {
	ID       string
	UserName string
	Channel  chan *models.SSEEvent
	Done     chan bool
	ClientIP string
}

// NewEventService 创建事件服务实例
func NewEventService(db *gorm.DB) *EventService {
	ctx, cancel := context.WithCancel(context.Background())

	service := &EventService{
		db:                db,
		connections:       make(map[string]map[string]*SSEClient),
		dbEventProcessors: make(map[string]models.DBEventProcessor),
		ctx:               ctx,
		cancel:            cancel,
	}

	// 启动数据库监听器
	go service.startDBListener()

	// 启动连接清理器
	go service.startConnectionJanitor()

	return service
}

// === SSE连接管理 ===

// AddSSEConnection 添加SSE连接
func (s *EventService) AddSSEConnection(userName, connectionID, clientIP string) *SSEClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connections[userName] == nil {
		s.connections[userName] = make(map[string]*SSEClient)
	}

	client := &SSEClient{
		ID:       connectionID,
		UserName: userName,
		Channel:  make(chan *models.SSEEvent, 100), // 缓冲100个事件
		Done:     make(chan bool),
		ClientIP: clientIP,
	}

	s.connections[userName][connectionID] = client

	slog.Info("SSE连接已建立", "user", userName, "connection_id", connectionID, "client_ip", clientIP)
	return client
}

// RemoveSSEConnection 移除SSE连接
func (s *EventService) RemoveSSEConnection(userName, connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userConnections, exists := s.connections[userName]; exists {
		if client, exists := userConnections[connectionID]; exists {
			close(client.Done)
			delete(userConnections, connectionID)

			if len(userConnections) == 0 {
				delete(s.connections, userName)
			}

			slog.Info("SSE连接已断开", "user", userName, "connection_id", connectionID)
		}
	}
}

// SendEventToUser 向指定用户发送事件
func (s *EventService) SendEventToUser(userName string, event *models.SSEEvent) error {
	s.mu.RLock()
	userConnections, exists := s.connections[userName]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("用户 %s 没有活跃的SSE连接", userName)
	}

	// 保存事件到数据库
	if err := s.db.Create(event).Error; err != nil {
		slog.Error("保存SSE事件失败", "error", err)
		return err
	}

	for _, client := range userConnections {
		select {
		case client.Channel <- event:
		default:
			slog.Warn("SSE事件队列已满，跳过发送", "user", userName, "connection_id", client.ID)
		}
	}

	return nil
}

// Broadcast 广播事件给所有连接的客户端
// 实现quality.EventBroadcaster接口，由质量引擎在检查完成时调用
func (s *EventService) Broadcast(eventType string, data map[string]interface{}) error {
	event := &models.SSEEvent{
		EventType: eventType,
		UserName:  "*",
		Data:      models.JSONB(data),
		CreatedAt: time.Now(),
	}
	return s.BroadcastEvent(event)
}

// BroadcastEvent 广播事件给所有用户
func (s *EventService) BroadcastEvent(event *models.SSEEvent) error {
	// 保存事件到数据库
	if err := s.db.Create(event).Error; err != nil {
		slog.Error("保存广播事件失败", "error", err)
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for userName, userConnections := range s.connections {
		for _, client := range userConnections {
			eventCopy := *event
			eventCopy.UserName = userName

			select {
			case client.Channel <- &eventCopy:
			default:
				slog.Warn("SSE事件队列已满，跳过广播", "user", userName, "connection_id", client.ID)
			}
		}
	}

	return nil
}

// === 数据库监听管理 ===

// RegisterDBEventProcessor 注册表级数据库事件处理器
func (s *EventService) RegisterDBEventProcessor(tableName string, processor models.DBEventProcessor) {
	s.mu.Lock()
	s.dbEventProcessors[tableName] = processor
	s.mu.Unlock()

	slog.Info("数据库事件处理器已注册", "table", tableName, "processor", processor.GetProcessorName())
}

// startDBListener 启动数据库监听器
// 监听数据集表的变更通知，将其转为SSE事件推送
func (s *EventService) startDBListener() {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "things2024")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")

		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	// 创建PostgreSQL监听器
	s.dbListener = pq.NewListener(connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("PostgreSQL监听器事件", "event", ev, "error", err)
		}
	})

	if err := s.dbListener.Listen("dataquality_changes"); err != nil {
		slog.Error("监听数据库通知失败", "error", err)
		return
	}

	if err := s.ensureDatasetTrigger(); err != nil {
		slog.Warn("数据集变更触发器检查失败", "error", err)
	}

	slog.Info("数据库监听器已启动", "channel", "dataquality_changes")

	for {
		select {
		case notification := <-s.dbListener.Notify:
			if notification != nil {
				s.handleDBNotification(notification)
			}
		case <-s.ctx.Done():
			slog.Info("数据库监听器已停止")
			return
		}
	}
}

// handleDBNotification 处理数据库通知
func (s *EventService) handleDBNotification(notification *pq.Notification) {
	var changeData map[string]interface{}
	if err := json.Unmarshal([]byte(notification.Extra), &changeData); err != nil {
		slog.Error("解析数据库通知失败", "error", err)
		return
	}

	tableName, _ := changeData["table"].(string)
	operation, _ := changeData["type"].(string)
	recordID, _ := changeData["record_id"].(string)

	slog.Debug("收到数据库变更通知", "table", tableName, "operation", operation, "record_id", recordID)

	event := &models.DBChangeEvent{
		Table:     tableName,
		Operation: operation,
		RecordID:  recordID,
		Data:      changeData,
		Timestamp: time.Now(),
	}

	s.mu.RLock()
	processor, ok := s.dbEventProcessors[tableName]
	s.mu.RUnlock()

	if ok {
		if err := processor.ProcessEvent(event); err != nil {
			slog.Warn("数据库事件处理失败", "table", tableName, "processor", processor.GetProcessorName(), "error", err)
		}
	}

	// 数据集表的变更同时广播给前端
	if tableName == (models.Dataset{}).TableName() {
		s.Broadcast(models.EventTypeDatasetChange, map[string]interface{}{
			"table":     tableName,
			"operation": operation,
			"record_id": recordID,
		})
	}
}

// ensureDatasetTrigger 确保数据集表上存在变更通知触发器
func (s *EventService) ensureDatasetTrigger() error {
	createFunctionSQL := `
CREATE OR REPLACE FUNCTION notify_dataquality_changes()
RETURNS TRIGGER AS $$
DECLARE
    record_id TEXT;
    payload JSON;
BEGIN
    IF TG_OP = 'DELETE' THEN
        record_id := OLD.id;
    ELSE
        record_id := NEW.id;
    END IF;

    payload := json_build_object(
        'table', TG_TABLE_NAME,
        'type', TG_OP,
        'record_id', record_id,
        'timestamp', extract(epoch from now())
    );

    PERFORM pg_notify('dataquality_changes', payload::text);

    IF TG_OP = 'DELETE' THEN
        RETURN OLD;
    ELSE
        RETURN NEW;
    END IF;
END;
$$ LANGUAGE plpgsql;`

	if err := s.db.Exec(createFunctionSQL).Error; err != nil {
		return fmt.Errorf("创建通知函数失败: %w", err)
	}

	tableName := (models.Dataset{}).TableName()
	createTriggerSQL := fmt.Sprintf(`
		CREATE OR REPLACE TRIGGER %s_notify
		BEFORE INSERT OR UPDATE OR DELETE ON %s
		FOR EACH ROW
		EXECUTE FUNCTION notify_dataquality_changes();
	`, tableName, tableName)

	if err := s.db.Exec(createTriggerSQL).Error; err != nil {
		return fmt.Errorf("创建触发器失败: %w", err)
	}

	return nil
}

// startConnectionJanitor 启动连接清理器
func (s *EventService) startConnectionJanitor() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupInactiveConnections()
		case <-s.ctx.Done():
			return
		}
	}
}

// cleanupInactiveConnections 清理不活跃的连接
func (s *EventService) cleanupInactiveConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userName, userConnections := range s.connections {
		for connectionID, client := range userConnections {
			select {
			case <-client.Done:
				delete(userConnections, connectionID)
				slog.Debug("清理已断开的连接", "user", userName, "connection_id", connectionID)
			default:
				// 连接仍然活跃
			}
		}

		if len(userConnections) == 0 {
			delete(s.connections, userName)
		}
	}
}

// GetEventHistoryList 获取事件历史列表
func (s *EventService) GetEventHistoryList(page, pageSize int, userName, eventType string) ([]models.SSEEvent, int64, error) {
	var events []models.SSEEvent
	var total int64

	query := s.db.Model(&models.SSEEvent{})

	if userName != "" {
		query = query.Where("user_name = ?", userName)
	}
	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").
		Offset(offset).Limit(pageSize).Find(&events).Error

	return events, total, err
}

// Stop 停止事件服务
func (s *EventService) Stop() {
	s.cancel()

	if s.dbListener != nil {
		s.dbListener.Close()
	}

	s.mu.Lock()
	for _, userConnections := range s.connections {
		for _, client := range userConnections {
			close(client.Done)
		}
	}
	s.connections = make(map[string]map[string]*SSEClient)
	s.mu.Unlock()

	slog.Info("事件服务已停止")
}
