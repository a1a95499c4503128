package contract

import "errors"

// 组合核心的最小错误分类；调用方以 errors.Is 判别。
var (
	// ErrPathInvalid: 资源标识无法映射为有效路径（空根、非法字符等）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrInvalidInput: 参数不合法（空名称、越界索引等）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoSuchComponent: 注册表中不存在该组件名；可恢复，调用方应跳过该阶段。
	ErrNoSuchComponent = errors.New("no such component")
	// ErrRegistryFrozen: 注册表已只读，拒绝继续注册。
	ErrRegistryFrozen = errors.New("registry frozen")
	// ErrReadOnly: 只读存储拒绝写操作（StableDb）。
	ErrReadOnly = errors.New("read-only db")
	// ErrNotLoaded: 词典/方案未能加载（缺失或损坏）。
	ErrNotLoaded = errors.New("not loaded")
	// ErrMalformedEntry: 单条词典记录格式错误；加载时跳过。
	ErrMalformedEntry = errors.New("malformed entry")
	// ErrNoMoreCandidates: 候选流已耗尽；非失败，仅作信号。
	ErrNoMoreCandidates = errors.New("no more candidates")
)
