package contract

import "strings"

// Config: 只读的键路径配置视图。路径以 "/" 分隔，"@N" 取列表第 N 项，"@last" 取末项。
type Config interface {
	Has(path string) bool
	GetString(path string) (string, bool)
	GetInt(path string) (int, bool)
	GetDouble(path string) (float64, bool)
	GetBool(path string) (bool, bool)
	// GetList 返回标量列表；非列表或缺失时为 nil。
	GetList(path string) []string
	// ListSize 返回列表长度；非列表时为 0。
	ListSize(path string) int
	// GetMap 返回标量映射（保持声明顺序的键列表与值）。
	GetMap(path string) ([]string, map[string]string)
}

// Schema: 当前输入方案的身份与配置视图。由引擎独占。
type Schema struct {
	ID            string
	Name          string
	Config        Config
	PageSize      int
	SelectKeys    string
	PageDownCycle bool
	// Horizontal: 候选横排，左右键移动高亮。
	Horizontal bool
}

// EngineHandle 为阶段可见的引擎能力。
type EngineHandle interface {
	Context() *Context
	Schema() *Schema
	Messenger() *Messenger
	// Select 选定当前段的绝对序号 index 处候选。
	Select(index int) bool
	// Commit 提交当前组合；无组合时返回 false。
	Commit() bool
	// CommitText 直接上屏一段文本（经格式化）。
	CommitText(text string)
}

// Ticket: 阶段构造上下文，构造后不可变，按值传递。
type Ticket struct {
	Engine    EngineHandle
	Schema    *Schema
	NameSpace string
	Klass     string
}

// NewTicket 解析 "klass@namespace" 形式的处方；未给出命名空间时与类名相同。
func NewTicket(engine EngineHandle, schema *Schema, prescription string) Ticket {
	t := Ticket{Engine: engine, Schema: schema}
	klass, ns, found := strings.Cut(strings.TrimSpace(prescription), "@")
	t.Klass = klass
	if found && ns != "" {
		t.NameSpace = ns
	} else {
		t.NameSpace = klass
	}
	return t
}

// Config 返回方案配置；无方案时为 nil。
func (t Ticket) Config() Config {
	if t.Schema == nil {
		return nil
	}
	return t.Schema.Config
}
