package epay

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/paysub/internal/constants"
)

var (
	ErrConfigInvalid    = errors.New("epay config invalid")
	ErrSignatureMissing = errors.New("epay signature missing")
	ErrSignatureInvalid = errors.New("epay signature invalid")
	ErrSignTypeInvalid  = errors.New("epay sign type invalid")
)

// 签名保留字段，不参与签名串
const (
	FieldSign     = "sign"
	FieldSignType = "sign_type"
)

// Config 易支付配置
type Config struct {
	GatewayURL  string // 网关地址
	MerchantID  string // 商户号
	MerchantKey string // 商户密钥
	BaseURL     string // 本站对外地址（用于拼接回调与跳转地址）
	NotifyPath  string // 异步通知路径
	ReturnPath  string // 同步跳转路径
	SignType    string // 签名类型（仅支持 MD5）
}

// Validate 校验易支付配置完整性
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(c.GatewayURL) == "" {
		return fmt.Errorf("%w: gateway_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(c.MerchantID) == "" {
		return fmt.Errorf("%w: merchant_id is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(c.MerchantKey) == "" {
		return fmt.Errorf("%w: merchant_key is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	if st := strings.TrimSpace(c.SignType); st != "" && !strings.EqualFold(st, constants.EpaySignTypeMD5) {
		return fmt.Errorf("%w: %s", ErrSignTypeInvalid, st)
	}
	return nil
}

// NotifyURL 异步通知地址
func (c *Config) NotifyURL() string {
	return joinURL(c.BaseURL, c.NotifyPath)
}

// ReturnURL 同步跳转地址
func (c *Config) ReturnURL() string {
	return joinURL(c.BaseURL, c.ReturnPath)
}

// SubmitEndpoint 页面跳转支付地址
func (c *Config) SubmitEndpoint() string {
	return joinURL(c.GatewayURL, constants.EpaySubmitPath)
}

// BuildSignContent 构建待签名串
// 跳过 sign、sign_type 与空值，按 key 字节序升序，以 k=v 用 & 连接
func BuildSignContent(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		if k == FieldSign || k == FieldSignType {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

// Sign 计算签名：md5(签名串 + 商户密钥)，小写十六进制
func Sign(params map[string]string, key string) string {
	return signMD5(BuildSignContent(params) + key)
}

// Verify 校验参数中的 sign 字段
func Verify(params map[string]string, key string) error {
	sign := params[FieldSign]
	if sign == "" {
		return ErrSignatureMissing
	}
	if st := params[FieldSignType]; st != "" && !strings.EqualFold(st, constants.EpaySignTypeMD5) {
		return ErrSignTypeInvalid
	}
	if Sign(params, key) != sign {
		return ErrSignatureInvalid
	}
	return nil
}

func signMD5(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

func joinURL(base, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
