/*
 * @module service/models/notify_models
 * @description 质量结果通知相关模型，Kafka/MQTT发布配置与消息结构
 * @architecture 数据模型层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 校验完成 -> 通知构建 -> 渠道发布
 * @rules 通知发送失败不影响校验结果的返回
 * @dependencies time
 * @refs service/notify
 */

package models

import "time"

// KafkaNotifyConfig Kafka通知渠道配置
type KafkaNotifyConfig struct {
	Brokers      []string      `json:"brokers"`
	Topic        string        `json:"topic"`
	RequiredAcks int           `json:"required_acks"`
	Async        bool          `json:"async"`
	BatchTimeout time.Duration `json:"batch_timeout"`
}

// MQTTNotifyConfig MQTT通知渠道配置
type MQTTNotifyConfig struct {
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	Topic    string `json:"topic"`
	Username string `json:"username"`
	Password string `json:"password"`
	QoS      byte   `json:"qos"`
}

// QualityNotification 校验完成通知消息
type QualityNotification struct {
	RunID        string       `json:"run_id"`
	DatasetID    string       `json:"dataset_id"`
	DatasetName  string       `json:"dataset_name"`
	TotalRows    int          `json:"total_rows"`
	IssueCount   int          `json:"issue_count"`
	UniqueIssues int          `json:"unique_issues"`
	Summary      []SummaryRow `json:"summary"`
	CheckTime    time.Time    `json:"check_time"`
}
