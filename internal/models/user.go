package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表（以钱包地址为身份，连接钱包即注册）
type User struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                           // 主键
	WalletAddress      string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"wallet_address"`    // 钱包地址（小写归一化）
	ReferralCode       string         `gorm:"type:varchar(32);uniqueIndex;not null" json:"referral_code"`     // 本人推荐码
	ReferrerWallet     string         `gorm:"type:varchar(64);index" json:"referrer_wallet,omitempty"`        // 上级钱包地址（无上级为空）
	Status             string         `gorm:"type:varchar(20);default:'active';index" json:"status"`          // 账号状态
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`                                    // Token 版本（用于全量失效）
	TokenInvalidBefore *time.Time     `gorm:"index" json:"-"`                                                 // 该时间点前签发的 Token 失效
	RegisteredAt       time.Time      `gorm:"index" json:"registered_at"`                                     // 首次连接时间
	LastConnectedAt    *time.Time     `json:"last_connected_at"`                                              // 最近连接时间
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                                        // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                                 // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
