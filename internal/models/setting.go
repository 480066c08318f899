package models

import (
	"database/sql/driver"
	"encoding/json"
)

// JSON 类型定义，用于键值设置的结构化存储
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Setting 系统设置表（键值对存储）
type Setting struct {
	Key       string `gorm:"primarykey" json:"key"`  // 配置键
	ValueJSON JSON   `gorm:"type:json" json:"value"` // 配置值
}

// TableName 指定表名
func (Setting) TableName() string {
	return "settings"
}
