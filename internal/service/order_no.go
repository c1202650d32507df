package service

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
)

const (
	orderNoTimeLayout         = "20060102150405"
	defaultOrderNoSuffixDigit = 3
	maxOrderNoSuffixDigit     = 12
)

// OrderNoGenerator 订单号生成函数
type OrderNoGenerator func(now time.Time) string

// NewTimestampOrderNoGenerator 时间戳 + 随机数字后缀的订单号
// 唯一性由订单表唯一索引兜底，冲突时由调用方重试
func NewTimestampOrderNoGenerator(suffixDigits int) OrderNoGenerator {
	if suffixDigits <= 0 {
		suffixDigits = defaultOrderNoSuffixDigit
	}
	if suffixDigits > maxOrderNoSuffixDigit {
		suffixDigits = maxOrderNoSuffixDigit
	}
	return func(now time.Time) string {
		return now.Format(orderNoTimeLayout) + randNumeric(suffixDigits)
	}
}

func randNumeric(length int) string {
	var b strings.Builder
	b.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			b.WriteByte('0')
			continue
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String()
}
