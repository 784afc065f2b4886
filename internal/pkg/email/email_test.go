package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("noreply@example.com", "alice@example.com", "邮箱验证", "<p>你好</p>"))

	assert.Contains(t, msg, "From: noreply@example.com\r\n")
	assert.Contains(t, msg, "To: alice@example.com\r\n")
	assert.Contains(t, msg, "Subject: 邮箱验证\r\n")
	assert.Contains(t, msg, "MIME-Version: 1.0\r\n")
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8\r\n")

	// 头部和正文之间必须有空行
	parts := strings.SplitN(msg, "\r\n\r\n", 2)
	assert.Len(t, parts, 2)
	assert.Equal(t, "<p>你好</p>", parts[1])
}

func TestVerificationBody(t *testing.T) {
	code := "a1b2c3d4e5f60718293a4b5c6d7e8f90"
	body := verificationBody(code)

	assert.Contains(t, body, code)
	assert.Contains(t, body, "验证码有效期为 24 小时")
	assert.Contains(t, body, "多模型对话平台")
}
