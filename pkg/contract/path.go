package contract

import (
	"path"
	"strings"
)

// NormalizeResourceID 规范化资源标识，统一为跨平台稳定形式。
// 规则：
// - 使用正斜杠分隔符
// - 清理多余分隔符与路径片段（.、..）
// - 保留相对/绝对语义，不做隐式绝对化
func NormalizeResourceID(p string) string {
	s := strings.ReplaceAll(p, "\\", "/")
	return path.Clean(s)
}
