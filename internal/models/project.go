package models

import (
	"time"

	"gorm.io/gorm"
)

// Project 质押项目表（前端展示的投资计划）
type Project struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                       // 主键
	Name            string         `gorm:"type:varchar(100);not null" json:"name"`                     // 项目名称
	Symbol          string         `gorm:"type:varchar(20);index;not null" json:"symbol"`              // 币种符号
	Category        string         `gorm:"type:varchar(50);index" json:"category"`                     // 项目分类
	APYDisplay      string         `gorm:"type:varchar(20)" json:"apy_display"`                        // 年化收益展示串
	MinAmount       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_amount"`    // 最小投资额
	MaxAmount       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"max_amount"`    // 最大投资额（0 为不限）
	LockDays        int            `gorm:"not null;default:0" json:"lock_days"`                        // 锁仓天数
	ContractAddress string         `gorm:"type:varchar(64)" json:"contract_address"`                   // 收款合约地址
	Status          string         `gorm:"type:varchar(20);default:'active';index" json:"status"`      // 项目状态
	SortOrder       int            `gorm:"default:0;index" json:"sort_order"`                          // 排序权重
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                    // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                             // 软删除时间
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}
