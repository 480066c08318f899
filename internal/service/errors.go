package service

import "errors"

// 业务语义错误，供 handler 层通过 errors.Is 映射响应码
var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrWeakPassword       = errors.New("password too weak")
	ErrUserDisabled       = errors.New("user disabled")

	ErrInvalidWalletAddress = errors.New("invalid wallet address")
	ErrInvalidReferralCode  = errors.New("invalid referral code")
	ErrSelfReferral         = errors.New("self referral not allowed")
	ErrReferrerNotFound     = errors.New("referrer not found")
	ErrReferralRebindOff    = errors.New("referrer rebind disabled")
	ErrReferralCycle        = errors.New("referral cycle detected")

	ErrProjectNotActive        = errors.New("project not active")
	ErrInvestmentAmountInvalid = errors.New("investment amount invalid")
	ErrInvalidTxHash           = errors.New("invalid tx hash")
	ErrDuplicateTxHash         = errors.New("duplicate tx hash")
	ErrInvestmentStatusInvalid = errors.New("investment status invalid")

	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")

	ErrDashboardRangeInvalid = errors.New("dashboard range invalid")
	ErrExportNotReady        = errors.New("export not ready")
	ErrUserStatusInvalid     = errors.New("user status invalid")
)
