package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList 用于存储JSON格式的字符串数组
type StringList []string

// Value 实现 driver.Valuer 接口
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan 实现 sql.Scanner 接口
func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("无法扫描类型 %T 到 StringList", value)
		}
		bytes = []byte(strVal)
	}
	return json.Unmarshal(bytes, s)
}

// Article 文章表。title 到出链集合的映射，是 getOutgoingLinks 协作方的存储。
type Article struct {
	ID    uint       `gorm:"primaryKey" json:"id"`
	Title string     `gorm:"uniqueIndex;size:512;not null" json:"title"`
	Links StringList `gorm:"type:json" json:"links"`
}

// TableName 指定表名
func (Article) TableName() string {
	return "articles"
}
