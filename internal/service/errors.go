package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSerial        = errors.New("invalid serial")
	ErrMissingField         = errors.New("missing required field")
	ErrApplicationNotFound  = errors.New("application not found")
	ErrApplicationReviewed  = errors.New("application already reviewed")
	ErrEntryNotFound        = errors.New("whitelist entry not found")
	ErrNotWhitelisted       = errors.New("not whitelisted")
	ErrCodeInvalidOrExpired = errors.New("verification code invalid or expired")
	ErrReapplyLimitReached  = errors.New("reapply limit reached")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrStore                = errors.New("store error")
)

// ErrorKind 错误分类
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNotFound
	KindNotWhitelisted
	KindInvalidOrExpired
	KindRetryLimitExceeded
	KindUnauthorized
	KindStore
)

// String 返回分类名称
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindNotWhitelisted:
		return "not_whitelisted"
	case KindInvalidOrExpired:
		return "invalid_or_expired"
	case KindRetryLimitExceeded:
		return "retry_limit_exceeded"
	case KindUnauthorized:
		return "unauthorized"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Kind 将业务错误归类，nil 返回 KindUnknown
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidSerial), errors.Is(err, ErrMissingField):
		return KindValidation
	case errors.Is(err, ErrApplicationNotFound), errors.Is(err, ErrApplicationReviewed), errors.Is(err, ErrEntryNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotWhitelisted):
		return KindNotWhitelisted
	case errors.Is(err, ErrCodeInvalidOrExpired):
		return KindInvalidOrExpired
	case errors.Is(err, ErrReapplyLimitReached):
		return KindRetryLimitExceeded
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrStore):
		return KindStore
	default:
		return KindUnknown
	}
}

// storeError 包装存储层错误，保留原始错误链
func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
