package models

import (
	"time"

	"gorm.io/gorm"
)

// Investment 投资记录表（链上 USDT 入账，按交易哈希去重）
type Investment struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                  // 主键
	UserWallet  string         `gorm:"type:varchar(64);index;not null" json:"user_wallet"`    // 投资人钱包地址
	ProjectID   uint           `gorm:"index;not null" json:"project_id"`                      // 项目ID
	Amount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`   // 投资金额（USDT）
	TxHash      string         `gorm:"type:varchar(128);uniqueIndex;not null" json:"tx_hash"` // 链上交易哈希
	Category    string         `gorm:"type:varchar(50);index" json:"category"`                // 分类标签（冗余自项目）
	Status      string         `gorm:"type:varchar(20);index;not null" json:"status"`         // 状态：pending/confirmed/failed
	InvestedAt  time.Time      `gorm:"index;not null" json:"invested_at"`                     // 投资时间（业绩归属时间）
	ConfirmedAt *time.Time     `json:"confirmed_at,omitempty"`                                // 链上确认时间
	FailReason  string         `gorm:"type:varchar(200)" json:"fail_reason,omitempty"`        // 失败原因
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                               // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间

	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"` // 项目信息
}

// TableName 指定表名
func (Investment) TableName() string {
	return "investments"
}
