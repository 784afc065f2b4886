package repository

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"bad connection", driver.ErrBadConn, true},
		{"invalid connection", mysql.ErrInvalidConn, true},
		{"access denied", &mysql.MySQLError{Number: 1045, Message: "Access denied"}, true},
		{"too many connections", &mysql.MySQLError{Number: 1040, Message: "Too many connections"}, true},
		{"password expired", &mysql.MySQLError{Number: 1862, Message: "Your password has expired"}, true},
		{"duplicate entry", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, false},
		{"syntax error", &mysql.MySQLError{Number: 1064, Message: "syntax error"}, false},
		{"record not found", gorm.ErrRecordNotFound, false},
		{"plain error", errors.New("写入失败"), false},
		{"wrapped bad connection", fmt.Errorf("update user: %w", driver.ErrBadConn), true},
		{"wrapped access denied", fmt.Errorf("update user: %w", &mysql.MySQLError{Number: 1045}), true},
		{"wrapped duplicate", fmt.Errorf("update user: %w", &mysql.MySQLError{Number: 1062}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}
