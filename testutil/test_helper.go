/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"dataquality-service/service/models"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.Dataset{},
		&models.ApiKey{},
		&models.SSEEvent{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"datasets",
		"api_keys",
		"sse_events",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// DatasetOption 数据集选项函数类型
type DatasetOption func(*models.Dataset)

// WithCSV 用CSV文本内容构造数据集
// 第一行为表头，RowCount/ColumnCount按内容推断
func WithCSV(csvContent string) DatasetOption {
	return func(ds *models.Dataset) {
		lines := strings.Split(strings.TrimSpace(csvContent), "\n")
		ds.RawContent = []byte(csvContent)
		if len(lines) > 0 {
			ds.Columns = strings.Split(strings.TrimSpace(lines[0]), ",")
			ds.ColumnCount = len(ds.Columns)
			ds.RowCount = len(lines) - 1
		}
	}
}

// WithCron 设置数据集的定时检查表达式
func WithCron(expr string) DatasetOption {
	return func(ds *models.Dataset) {
		ds.CronExpression = expr
	}
}

// CreateDataset 创建测试数据集
func (f *TestDataFactory) CreateDataset(opts ...DatasetOption) *models.Dataset {
	csvContent := "id,name\n1,alice\n2,bob\n"
	ds := &models.Dataset{
		Name:        "测试数据集_" + generateSuffix(),
		FileName:    "test.csv",
		Columns:     models.JSONBStringArray{"id", "name"},
		RowCount:    2,
		ColumnCount: 2,
		Encoding:    "utf-8",
		RawContent:  []byte(csvContent),
		Status:      "active",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	for _, opt := range opts {
		opt(ds)
	}

	if err := f.DB.Create(ds).Error; err != nil {
		panic(fmt.Sprintf("failed to create test dataset: %v", err))
	}

	return ds
}

// ApiKeyOption API密钥选项函数类型
type ApiKeyOption func(*models.ApiKey)

// CreateApiKey 创建测试API密钥记录
func (f *TestDataFactory) CreateApiKey(opts ...ApiKeyOption) *models.ApiKey {
	key := &models.ApiKey{
		Name:         "测试密钥_" + generateSuffix(),
		KeyPrefix:    "testpref",
		KeyValueHash: "hash_" + generateSuffix(),
		Status:       "active",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	for _, opt := range opts {
		opt(key)
	}

	if err := f.DB.Create(key).Error; err != nil {
		panic(fmt.Sprintf("failed to create test api key: %v", err))
	}

	return key
}

func generateSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()%100000)
}

// MockNotifier Mock通知渠道
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PublishValidationResult(notification *models.QualityNotification) error {
	args := m.Called(notification)
	return args.Error(0)
}

func (m *MockNotifier) Name() string {
	return "mock"
}

// MockBroadcaster Mock事件广播器
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(eventType string, data map[string]interface{}) error {
	args := m.Called(eventType, data)
	return args.Error(0)
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// AssertJSONResponse 断言JSON响应
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		actualJSON, _ := json.Marshal(actualBody)

		assert.JSONEq(t, string(expectedJSON), string(actualJSON))
	}
}
