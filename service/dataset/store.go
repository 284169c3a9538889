/*
 * @module service/dataset/store
 * @description 数据集存储服务，负责数据集元信息与原始内容的持久化和加载
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 上传保存 -> 元信息查询 -> 原始内容重载为内存表
 * @rules 只持久化数据集本身，规则与校验结果不落库
 * @dependencies dataquality-service/service/models, gorm.io/gorm
 * @refs api/controllers/dataset_controller.go, service/quality/engine.go
 */

package dataset

import (
	"dataquality-service/service/models"
	"dataquality-service/service/utils"
	"fmt"

	"gorm.io/gorm"
)

// Store 数据集存储服务
type Store struct {
	db *gorm.DB
}

// NewStore 创建数据集存储服务实例
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Save 保存上传的数据集（解析成功后调用）
func (s *Store) Save(name, fileName, encoding string, content []byte, table *MemoryTable) (*models.Dataset, error) {
	ds := &models.Dataset{
		Name:        name,
		FileName:    fileName,
		Columns:     table.Columns(),
		RowCount:    table.RowCount(),
		ColumnCount: len(table.Columns()),
		Encoding:    encoding,
		RawContent:  content,
	}

	if err := s.db.Create(ds).Error; err != nil {
		return nil, fmt.Errorf("保存数据集失败: %w", err)
	}
	return ds, nil
}

// Get 按ID查询数据集
func (s *Store) Get(id string) (*models.Dataset, error) {
	var ds models.Dataset
	if err := s.db.First(&ds, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("查询数据集 %s 失败: %w", id, err)
	}
	return &ds, nil
}

// List 分页查询数据集（不携带原始内容）
func (s *Store) List(page, size int) ([]models.Dataset, int64, error) {
	var datasets []models.Dataset
	var total int64

	if err := s.db.Model(&models.Dataset{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * size
	err := s.db.Omit("raw_content").
		Order("created_at DESC").
		Offset(offset).Limit(size).
		Find(&datasets).Error
	if err != nil {
		return nil, 0, err
	}
	return datasets, total, nil
}

// ListScheduled 查询配置了定时重检的数据集
func (s *Store) ListScheduled() ([]models.Dataset, error) {
	var datasets []models.Dataset
	err := s.db.Omit("raw_content").
		Where("cron_expression <> '' AND status = ?", "active").
		Find(&datasets).Error
	return datasets, err
}

// UpdateSchedule 更新数据集的定时重检表达式
func (s *Store) UpdateSchedule(id, cronExpression string) error {
	return s.db.Model(&models.Dataset{}).
		Where("id = ?", id).
		Update("cron_expression", cronExpression).Error
}

// Delete 删除数据集
func (s *Store) Delete(id string) error {
	return s.db.Delete(&models.Dataset{}, "id = ?", id).Error
}

// LoadTable 将数据集原始内容重新解析为内存表
func (s *Store) LoadTable(ds *models.Dataset) (*MemoryTable, error) {
	if len(ds.RawContent) == 0 {
		// List查询省略了原始内容，需要时重新取一次
		full, err := s.Get(ds.ID)
		if err != nil {
			return nil, err
		}
		ds = full
	}
	return LoadCSV(ds.RawContent, ds.Encoding)
}

// Preview 构建数据集预览：前N行、每列的探测类型和示例值
func Preview(datasetID string, table *MemoryTable, limit int) *models.DatasetPreview {
	columns := table.Columns()
	preview := &models.DatasetPreview{
		DatasetID: datasetID,
		Columns:   make([]models.ColumnPreview, 0, len(columns)),
		RowCount:  table.RowCount(),
	}

	for _, col := range columns {
		cp := models.ColumnPreview{Name: col, DetectedType: "null", SampleValue: "NULL"}
		// 第一个非空值作为示例，其类型作为探测类型
		for row := 0; row < table.RowCount(); row++ {
			cell, err := table.Value(col, row)
			if err != nil {
				break
			}
			if cell != nil {
				cp.SampleValue = *cell
				cp.DetectedType = utils.DetectValueType(*cell)
				break
			}
		}
		preview.Columns = append(preview.Columns, cp)
	}

	if limit > table.RowCount() {
		limit = table.RowCount()
	}
	for row := 0; row < limit; row++ {
		rowData := make(map[string]*string, len(columns))
		for _, col := range columns {
			cell, _ := table.Value(col, row)
			rowData[col] = cell
		}
		preview.Rows = append(preview.Rows, rowData)
	}

	return preview
}
