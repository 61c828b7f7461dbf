package authz

import (
	"strings"

	"github.com/serialguard/internal/constants"
)

// ValidateSerial 校验序列号：恰好 32 位十六进制字符，不区分大小写
func ValidateSerial(s string) bool {
	if len(s) != constants.SerialLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// NormalizeSerial 统一序列号为大写
func NormalizeSerial(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
