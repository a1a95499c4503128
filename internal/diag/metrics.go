package diag

import (
	"sort"
	"strconv"
	"sync"
)

// 进程内计数器。名称：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}（累计毫秒）
var (
	metricsMu sync.Mutex
	counters  = map[string]int64{}
)

func bump(key string, by int64) {
	metricsMu.Lock()
	counters[key] += by
	metricsMu.Unlock()
}

// IncOp 累加操作计数（result=success|error|skip）。
func IncOp(comp, stage, result string) {
	bump("op_total{"+comp+","+stage+","+result+"}", 1)
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	bump("error_total{"+comp+","+code+"}", 1)
}

// ObserveDuration 记录阶段耗时（毫秒，累计）。
func ObserveDuration(comp, stage string, durMS int64) {
	bump("op_duration_ms{"+comp+","+stage+"}", durMS)
}

// Snapshot 返回计数器副本。
func Snapshot() map[string]int64 {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	out := make(map[string]int64, len(counters))
	for k, v := range counters {
		out[k] = v
	}
	return out
}

// FormatSnapshot 以 "key value" 行输出，按键排序。
func FormatSnapshot(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+" "+strconv.FormatInt(m[k], 10))
	}
	return out
}

// ResetMetrics 清空计数器（测试用）。
func ResetMetrics() {
	metricsMu.Lock()
	counters = map[string]int64{}
	metricsMu.Unlock()
}
