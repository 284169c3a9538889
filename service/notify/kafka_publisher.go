/*
 * @module service/notify/kafka_publisher
 * @description Kafka通知发布器，将校验完成的汇总结果发布到Kafka主题
 * @architecture 适配器模式 - 封装第三方Kafka客户端
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 连接建立 -> 消息发送 -> 连接断开
 * @rules 发送失败只返回错误由调用方记日志，不做重试
 * @dependencies github.com/segmentio/kafka-go, encoding/json
 * @refs service/quality/engine.go, service/models/notify_models.go
 */

package notify

import (
	"context"
	"dataquality-service/service/models"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher Kafka通知发布器
type KafkaPublisher struct {
	config *models.KafkaNotifyConfig
	writer *kafka.Writer
	mutex  sync.Mutex
}

// NewKafkaPublisher 创建Kafka通知发布器
func NewKafkaPublisher(config *models.KafkaNotifyConfig) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequiredAcks(config.RequiredAcks),
		Async:        config.Async,
	}

	if config.BatchTimeout > 0 {
		writer.BatchTimeout = config.BatchTimeout
	}

	return &KafkaPublisher{
		config: config,
		writer: writer,
	}
}

// Name 返回通知渠道名称
func (p *KafkaPublisher) Name() string {
	return "kafka"
}

// PublishValidationResult 发布校验结果通知
// 以run_id作为消息键，保证同一次运行的消息落入同一分区
func (p *KafkaPublisher) PublishValidationResult(notification *models.QualityNotification) error {
	value, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("序列化通知消息失败: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(notification.RunID),
		Value: value,
		Time:  notification.CheckTime,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(models.EventTypeValidationCompleted)},
			{Key: "dataset_id", Value: []byte(notification.DatasetID)},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("发送Kafka消息失败: %w", err)
	}
	return nil
}

// Close 关闭底层生产者
func (p *KafkaPublisher) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.writer.Close()
}
