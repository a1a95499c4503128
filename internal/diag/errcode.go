package diag

import (
	"errors"
	"os"
	"time"

	"imecore/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志/指标汇总，与退出码解耦。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeNotFound  Code = "not_found"
	CodeInvariant Code = "invariant"
	CodeInput     Code = "input"
	CodeReadOnly  Code = "read_only"
	CodeNotLoaded Code = "not_loaded"
	CodePath      Code = "path"
	CodeIO        Code = "io"
)

// Classify 将错误归为最小分类。
// 说明：仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	switch {
	case errors.Is(err, contract.ErrNoSuchComponent):
		return CodeNotFound
	case errors.Is(err, contract.ErrReadOnly):
		return CodeReadOnly
	case errors.Is(err, contract.ErrNotLoaded):
		return CodeNotLoaded
	case errors.Is(err, contract.ErrPathInvalid):
		return CodePath
	case errors.Is(err, contract.ErrInvariantViolation), errors.Is(err, contract.ErrRegistryFrozen):
		return CodeInvariant
	case errors.Is(err, contract.ErrInvalidInput), errors.Is(err, contract.ErrMalformedEntry):
		return CodeInput
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}

// NowUTC 返回 RFC3339 UTC 时间字符串。
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
