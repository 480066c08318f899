package models

import (
	"time"
)

// Referral 推荐关系表（每个被推荐钱包至多一条入边）
type Referral struct {
	ID             uint       `gorm:"primarykey" json:"id"`                                        // 主键
	ReferrerWallet string     `gorm:"type:varchar(64);index;not null" json:"referrer_wallet"`      // 推荐人钱包地址
	ReferredWallet string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"referred_wallet"` // 被推荐人钱包地址（唯一，保证单一上级）
	Code           string     `gorm:"type:varchar(32);index;not null" json:"code"`                 // 注册时使用的推荐码
	Source         string     `gorm:"type:varchar(32);not null" json:"source"`                     // 来源（连接钱包 / 管理员改绑）
	CorrectedAt    *time.Time `json:"corrected_at,omitempty"`                                      // 管理员改绑时间
	CorrectedBy    string     `gorm:"type:varchar(64)" json:"corrected_by,omitempty"`              // 改绑操作管理员
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                                     // 创建时间
}

// TableName 指定表名
func (Referral) TableName() string {
	return "referrals"
}
