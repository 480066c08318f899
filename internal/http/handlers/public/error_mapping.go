package public

import (
	"errors"

	"github.com/stakehub-next/internal/http/response"
	"github.com/stakehub-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var walletCommonErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidWalletAddress, code: response.CodeBadRequest, msg: "钱包地址格式不正确"},
	{target: service.ErrUserDisabled, code: response.CodeForbidden, msg: "账号已被禁用"},
}

var captchaErrorRules = []mappedHandlerError{
	{target: service.ErrCaptchaRequired, code: response.CodeBadRequest, msg: "请先完成验证码"},
	{target: service.ErrCaptchaInvalid, code: response.CodeBadRequest, msg: "验证码不正确或已过期"},
	{target: service.ErrCaptchaConfigInvalid, code: response.CodeInternal, msg: "验证码服务不可用"},
}

var investmentSubmitErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidWalletAddress, code: response.CodeBadRequest, msg: "钱包地址格式不正确"},
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "质押项目不存在"},
	{target: service.ErrProjectNotActive, code: response.CodeBadRequest, msg: "项目已下架，暂不可投资"},
	{target: service.ErrInvestmentAmountInvalid, code: response.CodeBadRequest, msg: "投资金额不符合项目限额"},
	{target: service.ErrInvalidTxHash, code: response.CodeBadRequest, msg: "交易哈希格式不正确"},
	{target: service.ErrDuplicateTxHash, code: response.CodeBadRequest, msg: "该交易哈希已提交过"},
}
