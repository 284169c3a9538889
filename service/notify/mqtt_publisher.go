/*
 * @module service/notify/mqtt_publisher
 * @description MQTT通知发布器，将校验完成的汇总结果发布到MQTT主题
 * @architecture 适配器模式 - 封装第三方MQTT客户端
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 连接建立 -> 消息发布 -> 连接断开
 * @rules 客户端自动重连；未连接时发布直接报错
 * @dependencies github.com/eclipse/paho.mqtt.golang, encoding/json
 * @refs service/quality/engine.go, service/models/notify_models.go
 */

package notify

import (
	"dataquality-service/service/models"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisher MQTT通知发布器
type MQTTPublisher struct {
	config *models.MQTTNotifyConfig
	client mqtt.Client
}

// NewMQTTPublisher 创建MQTT通知发布器并建立连接
func NewMQTTPublisher(config *models.MQTTNotifyConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)

	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}

	opts.SetCleanSession(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		slog.Warn("MQTT连接丢失", "broker", config.Broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT连接失败: %w", token.Error())
	}

	slog.Info("MQTT通知发布器已连接", "broker", config.Broker, "topic", config.Topic)

	return &MQTTPublisher{
		config: config,
		client: client,
	}, nil
}

// Name 返回通知渠道名称
func (p *MQTTPublisher) Name() string {
	return "mqtt"
}

// PublishValidationResult 发布校验结果通知
func (p *MQTTPublisher) PublishValidationResult(notification *models.QualityNotification) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("MQTT客户端未连接")
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("序列化通知消息失败: %w", err)
	}

	token := p.client.Publish(p.config.Topic, p.config.QoS, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("发布消息失败: %w", token.Error())
	}
	return nil
}

// Close 断开MQTT连接
func (p *MQTTPublisher) Close() {
	// 等待250ms让消息发送完成
	p.client.Disconnect(250)
}
