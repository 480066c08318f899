package constants

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 质押项目状态常量
const (
	ProjectStatusActive   = "active"
	ProjectStatusArchived = "archived"
)

// 投资记录状态常量
const (
	InvestmentStatusPending   = "pending"
	InvestmentStatusConfirmed = "confirmed"
	InvestmentStatusFailed    = "failed"
)

// 推荐关系来源常量
const (
	ReferralSourceConnect = "wallet_connect"
	ReferralSourceAdmin   = "admin_correction"
)

// 验证码提供方常量
const (
	CaptchaProviderNone  = "none"
	CaptchaProviderImage = "image"
)

// 验证码校验场景常量
const (
	CaptchaSceneLogin = "login"
)

// 队列常量
const (
	QueueDefault          = "default"
	QueueCritical         = "critical"
	TaskInvestmentConfirm = "investment:confirm"
	TaskOrgExportCSV      = "organization:csv_export"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "sh"
)

// 设置键常量
const (
	SettingKeySiteConfig     = "site_config"
	SettingKeyReferralConfig = "referral_config"
	SettingKeyCaptchaConfig  = "captcha_config"
	SettingFieldSiteURL      = "site_url"
	SettingFieldLinkBaseURL  = "link_base_url"
	SettingFieldAllowRebind  = "allow_rebind"
)

// 平台结算币种（链上 USDT 本位）
const (
	SiteCurrencyDefault = "USDT"
)
