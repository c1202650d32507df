package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// isDuplicateKeyError 判断是否为唯一约束冲突
// 未开启 TranslateError 的连接按方言错误文本兜底识别
func isDuplicateKeyError(db *gorm.DB, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return isDuplicateKeyMessage(dbDialectName(db), err.Error())
}

func isDuplicateKeyMessage(dialect, message string) bool {
	msg := strings.ToLower(message)
	switch dialect {
	case "postgres", "postgresql":
		return strings.Contains(msg, "sqlstate 23505") || strings.Contains(msg, "duplicate key value")
	default:
		return strings.Contains(msg, "unique constraint failed")
	}
}
