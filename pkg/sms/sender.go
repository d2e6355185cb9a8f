// Package sms 提供短信通知服务
package sms

import (
	"context"
	"fmt"
	"time"
)

// Sender 短信发送器接口
type Sender interface {
	Send(ctx context.Context, phone, templateCode string, params map[string]string) error
	// SendPartnerRedemption 通知合作伙伴其推荐码被核销及产生的佣金
	SendPartnerRedemption(ctx context.Context, phone, code, orderID string, commission float64) error
}

// 模板键名
const (
	TemplatePartnerRedemption = "partner_redemption"
	TemplatePayoutNotify      = "payout_notify"
)

// MockSender 模拟短信发送器（用于开发/测试）
type MockSender struct {
	SentMessages []MockMessage
}

// MockMessage 模拟消息
type MockMessage struct {
	Phone        string
	TemplateCode string
	Params       map[string]string
	SentAt       time.Time
}

// NewMockSender 创建模拟发送器
func NewMockSender() *MockSender {
	return &MockSender{
		SentMessages: make([]MockMessage, 0),
	}
}

// Send 模拟发送
func (s *MockSender) Send(ctx context.Context, phone, templateCode string, params map[string]string) error {
	s.SentMessages = append(s.SentMessages, MockMessage{
		Phone:        phone,
		TemplateCode: templateCode,
		Params:       params,
		SentAt:       time.Now(),
	})
	return nil
}

// SendPartnerRedemption 模拟发送核销通知
func (s *MockSender) SendPartnerRedemption(ctx context.Context, phone, code, orderID string, commission float64) error {
	return s.Send(ctx, phone, TemplatePartnerRedemption, map[string]string{
		"code":       code,
		"order_no":   orderID,
		"commission": fmt.Sprintf("%.2f", commission),
	})
}

// GetLastMessage 获取最后发送的消息
func (s *MockSender) GetLastMessage() *MockMessage {
	if len(s.SentMessages) == 0 {
		return nil
	}
	return &s.SentMessages[len(s.SentMessages)-1]
}

// Clear 清空消息记录
func (s *MockSender) Clear() {
	s.SentMessages = make([]MockMessage, 0)
}
