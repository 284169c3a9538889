/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、迁移与各业务服务的装配
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs main.go, api/routes.go
 */

package service

import (
	"dataquality-service/service/database"
	"dataquality-service/service/dataset"
	"dataquality-service/service/distributed_lock"
	"dataquality-service/service/event"
	"dataquality-service/service/models"
	"dataquality-service/service/notify"
	"dataquality-service/service/quality"
	"dataquality-service/service/rate_limiter"
	"dataquality-service/service/ruleset"
	"dataquality-service/service/scheduler"
	"dataquality-service/service/sharing"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB                  *gorm.DB
	GlobalEventService  *event.EventService
	GlobalDatasetStore  *dataset.Store
	GlobalRuleStore     *ruleset.SessionStore
	GlobalEngine        *quality.Engine
	GlobalApiKeyService *sharing.ApiKeyService
	GlobalScheduler     *scheduler.QualityScheduler
	GlobalRateLimiter   *rate_limiter.RedisRateLimiter
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "things2024")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库表结构迁移完成")
}

// initServices 初始化服务
func initServices() {
	// 初始化事件服务
	GlobalEventService = event.NewEventService(DB)

	// 数据集存储与规则会话存储
	GlobalDatasetStore = dataset.NewStore(DB)
	GlobalRuleStore = ruleset.NewSessionStore()

	// 其他实例删除数据集时，通过数据库变更通知清理本实例的规则注册表
	GlobalEventService.RegisterDBEventProcessor(
		(models.Dataset{}).TableName(), ruleset.NewRegistryEvictor(GlobalRuleStore))

	// 校验器：列级并发度与行数预算均可由环境变量覆盖
	var validatorOpts []quality.ValidatorOption
	if n, err := strconv.Atoi(getEnvWithDefault("VALIDATOR_MAX_WORKERS", "")); err == nil && n > 0 {
		validatorOpts = append(validatorOpts, quality.WithMaxWorkers(n))
	}
	if n, err := strconv.Atoi(getEnvWithDefault("VALIDATOR_ROW_BUDGET", "")); err == nil && n > 0 {
		validatorOpts = append(validatorOpts, quality.WithRowBudget(n))
	}
	validator := quality.NewValidator(validatorOpts...)

	// 质量引擎
	GlobalEngine = quality.NewEngine(GlobalDatasetStore, GlobalRuleStore, validator)
	GlobalEngine.SetBroadcaster(GlobalEventService)

	// 通知渠道
	initNotifiers()

	// API密钥服务
	GlobalApiKeyService = sharing.NewApiKeyService(DB)

	// 定时检查调度器
	GlobalScheduler = scheduler.NewQualityScheduler(GlobalEngine, GlobalDatasetStore)
	initDistributedLock()
	initRateLimiter()

	if err := GlobalScheduler.StartScheduler(); err != nil {
		log.Printf("启动质量检查调度器失败: %v", err)
	}

	log.Println("服务初始化完成")
}

// initNotifiers 按环境变量装配Kafka/MQTT通知渠道
func initNotifiers() {
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		config := &models.KafkaNotifyConfig{
			Brokers:      strings.Split(brokers, ","),
			Topic:        getEnvWithDefault("KAFKA_NOTIFY_TOPIC", "dq-validation-results"),
			RequiredAcks: 1,
			Async:        false,
			BatchTimeout: time.Second,
		}
		GlobalEngine.AddNotifier(notify.NewKafkaPublisher(config))
		slog.Info("Kafka通知渠道已启用", "brokers", config.Brokers, "topic", config.Topic)
	}

	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		config := &models.MQTTNotifyConfig{
			Broker:   broker,
			ClientID: getEnvWithDefault("MQTT_CLIENT_ID", "dataquality-service"),
			Topic:    getEnvWithDefault("MQTT_NOTIFY_TOPIC", "dq/validation/results"),
			Username: os.Getenv("MQTT_USERNAME"),
			Password: os.Getenv("MQTT_PASSWORD"),
			QoS:      1,
		}
		publisher, err := notify.NewMQTTPublisher(config)
		if err != nil {
			slog.Warn("MQTT通知渠道初始化失败", "broker", broker, "error", err)
		} else {
			GlobalEngine.AddNotifier(publisher)
			slog.Info("MQTT通知渠道已启用", "broker", broker, "topic", config.Topic)
		}
	}
}

// initDistributedLock 多实例部署时为调度器启用Redis分布式锁
func initDistributedLock() {
	if getEnvWithDefault("ENABLE_DISTRIBUTED_LOCK", "false") != "true" {
		return
	}

	lock, err := distributed_lock.NewRedisLock()
	if err != nil {
		slog.Warn("Redis分布式锁初始化失败，调度器将以单实例模式运行", "error", err)
		return
	}
	GlobalScheduler.SetDistributedLock(lock)
}

// initRateLimiter 按环境变量启用质量检查接口的分布式限流
func initRateLimiter() {
	if getEnvWithDefault("ENABLE_RATE_LIMIT", "false") != "true" {
		return
	}

	limiter, err := rate_limiter.NewRedisRateLimiter()
	if err != nil {
		slog.Warn("Redis限流器初始化失败，限流关闭", "error", err)
		return
	}
	GlobalRateLimiter = limiter
	slog.Info("质量检查接口限流已启用")
}
