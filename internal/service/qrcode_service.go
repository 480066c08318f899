package service

import (
	"github.com/skip2/go-qrcode"
)

const (
	qrCodeDefaultSize = 256
	qrCodeMinSize     = 128
	qrCodeMaxSize     = 1024
)

// QRCodeService 推荐链接二维码服务
type QRCodeService struct {
	referralService *ReferralService
}

// NewQRCodeService 创建二维码服务
func NewQRCodeService(referralService *ReferralService) *QRCodeService {
	return &QRCodeService{referralService: referralService}
}

// ReferralLinkPNG 生成用户推荐链接二维码（PNG 字节流）
func (s *QRCodeService) ReferralLinkPNG(wallet string, size int) ([]byte, error) {
	my, err := s.referralService.GetMyReferral(wallet)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(my.ReferralLink, qrcode.Medium, clampQRCodeSize(size))
}

func clampQRCodeSize(size int) int {
	if size <= 0 {
		return qrCodeDefaultSize
	}
	if size < qrCodeMinSize {
		return qrCodeMinSize
	}
	if size > qrCodeMaxSize {
		return qrCodeMaxSize
	}
	return size
}
