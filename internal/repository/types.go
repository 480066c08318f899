package repository

import "time"

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page            int
	PageSize        int
	Keyword         string
	Status          string
	ReferrerWallet  string
	RegisteredFrom  *time.Time
	RegisteredTo    *time.Time
	LastConnectFrom *time.Time
	LastConnectTo   *time.Time
}

// ReferralListFilter 查询推荐记录列表的过滤条件
type ReferralListFilter struct {
	Page           int
	PageSize       int
	ReferrerWallet string
	ReferredWallet string
	Code           string
	Source         string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

// ProjectListFilter 查询质押项目列表的过滤条件
type ProjectListFilter struct {
	Page       int
	PageSize   int
	Category   string
	Search     string
	OnlyActive bool
}

// AuthzAuditLogListFilter 查询权限审计日志列表的过滤条件
type AuthzAuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	TargetAdminID   uint
	Action          string
	Role            string
	Object          string
	Method          string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}

// InvestmentListFilter 查询投资记录列表的过滤条件
type InvestmentListFilter struct {
	Page         int
	PageSize     int
	UserWallet   string
	ProjectID    uint
	Category     string
	Status       string
	TxHash       string
	InvestedFrom *time.Time
	InvestedTo   *time.Time
}
