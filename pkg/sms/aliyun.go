// Package sms 提供短信通知服务
package sms

import (
	"context"
	"encoding/json"
	"fmt"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	dysmsapi "github.com/alibabacloud-go/dysmsapi-20170525/v3/client"
	"github.com/alibabacloud-go/tea/tea"
)

// AliyunConfig 阿里云短信配置
type AliyunConfig struct {
	AccessKeyID     string
	AccessKeySecret string
	SignName        string
	Endpoint        string
}

// AliyunSender 阿里云短信发送器
type AliyunSender struct {
	client    *dysmsapi.Client
	signName  string
	templates map[string]string
}

// NewAliyunSender 创建阿里云短信发送器
func NewAliyunSender(cfg *AliyunConfig) (*AliyunSender, error) {
	config := &openapi.Config{
		AccessKeyId:     tea.String(cfg.AccessKeyID),
		AccessKeySecret: tea.String(cfg.AccessKeySecret),
	}

	if cfg.Endpoint != "" {
		config.Endpoint = tea.String(cfg.Endpoint)
	} else {
		config.Endpoint = tea.String("dysmsapi.aliyuncs.com")
	}

	client, err := dysmsapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sms client: %w", err)
	}

	return &AliyunSender{
		client:   client,
		signName: cfg.SignName,
		templates: map[string]string{
			TemplatePartnerRedemption: "SMS_PARTNER_REDEEM",
			TemplatePayoutNotify:      "SMS_PAYOUT_NOTIFY",
		},
	}, nil
}

// SetTemplates 覆盖模板编码
func (s *AliyunSender) SetTemplates(templates map[string]string) {
	for k, v := range templates {
		s.templates[k] = v
	}
}

// Send 发送短信
func (s *AliyunSender) Send(ctx context.Context, phone, templateCode string, params map[string]string) error {
	templateParam, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("序列化参数失败: %w", err)
	}

	request := &dysmsapi.SendSmsRequest{
		PhoneNumbers:  tea.String(phone),
		SignName:      tea.String(s.signName),
		TemplateCode:  tea.String(templateCode),
		TemplateParam: tea.String(string(templateParam)),
	}

	response, err := s.client.SendSms(request)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}

	if response.Body == nil || response.Body.Code == nil || *response.Body.Code != "OK" {
		msg := "未知错误"
		if response.Body != nil && response.Body.Message != nil {
			msg = *response.Body.Message
		}
		return fmt.Errorf("sms send failed: %s", msg)
	}

	return nil
}

// SendPartnerRedemption 通知合作伙伴其推荐码被核销
func (s *AliyunSender) SendPartnerRedemption(ctx context.Context, phone, code, orderID string, commission float64) error {
	templateCode, ok := s.templates[TemplatePartnerRedemption]
	if !ok {
		return fmt.Errorf("核销通知模板未配置")
	}

	return s.Send(ctx, phone, templateCode, map[string]string{
		"code":       code,
		"order_no":   orderID,
		"commission": fmt.Sprintf("%.2f", commission),
	})
}
