package epay

import (
	"errors"
	"net/url"
	"strings"

	"github.com/paysub/internal/constants"
)

// ErrNotifyInvalid 回调参数缺失
var ErrNotifyInvalid = errors.New("epay notify invalid")

// PayParams 页面跳转支付参数（参与签名）
type PayParams struct {
	MerchantID string // pid
	Type       string // alipay / wxpay
	OrderNo    string // out_trade_no
	NotifyURL  string // notify_url
	ReturnURL  string // return_url
	Name       string // name
	Money      string // money（两位小数字符串）
}

// ToMap 转换为签名参数表
func (p PayParams) ToMap() map[string]string {
	return map[string]string{
		"pid":          p.MerchantID,
		"type":         p.Type,
		"out_trade_no": p.OrderNo,
		"notify_url":   p.NotifyURL,
		"return_url":   p.ReturnURL,
		"name":         p.Name,
		"money":        p.Money,
	}
}

// BuildSubmitURL 生成带签名的跳转地址
func BuildSubmitURL(cfg *Config, params PayParams) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	signParams := params.ToMap()
	query := url.Values{}
	for k, v := range signParams {
		if v == "" {
			continue
		}
		query.Set(k, v)
	}
	query.Set(FieldSign, Sign(signParams, cfg.MerchantKey))
	query.Set(FieldSignType, constants.EpaySignTypeMD5)
	return cfg.SubmitEndpoint() + "?" + query.Encode(), nil
}

// Notify 异步通知字段
type Notify struct {
	MerchantID  string // pid
	TradeNo     string // trade_no
	OrderNo     string // out_trade_no
	Type        string // type
	Name        string // name
	Money       string // money
	TradeStatus string // trade_status
	Param       string // param（透传）
	Sign        string // sign
	SignType    string // sign_type
}

// ParseNotify 将表单解析为签名参数表与通知结构
// 每个 key 只取第一个值，参数表保持原样用于验签
func ParseNotify(form map[string][]string) (map[string]string, *Notify, error) {
	params := make(map[string]string, len(form))
	for key, values := range form {
		if len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}
	notify := &Notify{
		MerchantID:  params["pid"],
		TradeNo:     params["trade_no"],
		OrderNo:     params["out_trade_no"],
		Type:        params["type"],
		Name:        params["name"],
		Money:       params["money"],
		TradeStatus: params["trade_status"],
		Param:       params["param"],
		Sign:        params[FieldSign],
		SignType:    params[FieldSignType],
	}
	if strings.TrimSpace(notify.OrderNo) == "" || strings.TrimSpace(notify.Sign) == "" {
		return params, notify, ErrNotifyInvalid
	}
	return params, notify, nil
}

// IsSuccess 是否为支付成功通知
func (n *Notify) IsSuccess() bool {
	return n != nil && n.TradeStatus == constants.EpayTradeStatusSuccess
}

// IsSupportedPaymentMethod 是否为支持的支付方式
func IsSupportedPaymentMethod(method string) bool {
	switch method {
	case constants.PaymentMethodAlipay, constants.PaymentMethodWxpay:
		return true
	default:
		return false
	}
}
