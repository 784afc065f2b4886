package repository

import (
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// 鉴权和连接类 MySQL 错误码，重连后有机会恢复
const (
	errTooManyConnections = 1040
	errAccessDenied       = 1045
	errPasswordExpired    = 1862
)

// IsRetryable 判断写入失败是否值得原样重试一次。
// 只有连接失效和鉴权类错误算瞬时故障，其余错误重试只会重复失败
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case errTooManyConnections, errAccessDenied, errPasswordExpired:
			return true
		}
	}
	return false
}
