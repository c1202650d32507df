package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSON 通用 JSON 字段类型
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return nil
	}
}

// PaymentNotification 网关回调审计表
type PaymentNotification struct {
	ID          uint      `gorm:"primarykey" json:"id"`                        // 主键
	OrderNo     string    `gorm:"type:varchar(64);index" json:"order_no"`      // 订单号
	TradeNo     string    `gorm:"type:varchar(64)" json:"trade_no"`            // 网关交易号
	TradeStatus string    `gorm:"type:varchar(32)" json:"trade_status"`        // 交易状态
	Money       string    `gorm:"type:varchar(32)" json:"money"`               // 回调金额（原样）
	Outcome     string    `gorm:"type:varchar(32);index" json:"outcome"`       // 处理结果
	Reason      string    `gorm:"type:varchar(255)" json:"reason"`             // 拒绝原因
	ClientIP    string    `gorm:"type:varchar(64)" json:"client_ip"`           // 来源 IP
	Payload     JSON      `gorm:"type:text" json:"payload"`                    // 原始参数（截断）
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                     // 创建时间
}

// TableName 指定表名
func (PaymentNotification) TableName() string {
	return "payment_notifications"
}
