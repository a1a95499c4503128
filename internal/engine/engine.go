// Package engine 串联组字流水线：按键 → 处理器 → 分段 → 翻译/过滤 → 选定 → 格式化上屏。
// 单个 Engine 仅在一个 goroutine 中使用；多个 Engine 可并存。
package engine

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"imecore/internal/diag"
	"imecore/internal/resource"
	"imecore/internal/schema"
	"imecore/pkg/contract"
	"imecore/pkg/registry"
)

const (
	comp              = "engine"
	fallbackSegmentor = "fallback_segmentor"
)

// Options 引擎装配参数。
type Options struct {
	// Registry 为空时使用 registry.Default()。
	Registry   *registry.Registry
	Deployment *resource.Deployment
	// SchemaID 经 Deployment.SchemaResolver 加载；Schema 非空时直接使用。
	SchemaID string
	Schema   *contract.Schema
	Logger   *diag.Logger
	// Disabled 中的组件名在装配时跳过。
	Disabled []string
	// PageSizeOverride > 0 时覆盖方案的 menu/page_size。
	PageSizeOverride int
}

// MenuView 为前端所见的当前候选页。
type MenuView struct {
	Page           *contract.Page
	HighlightIndex int
	SelectKeys     string
	Preedit        string
}

var (
	_ contract.EngineHandle = (*Engine)(nil)
	_ contract.Composer     = (*Engine)(nil)
)

type Engine struct {
	reg      *registry.Registry
	dep      *resource.Deployment
	log      *diag.Logger
	session  string
	disabled map[string]struct{}
	override int

	bus    *contract.Messenger
	ctx    *contract.Context
	schema *contract.Schema

	processors  []contract.Processor
	segmentors  []contract.Segmentor
	translators []contract.Translator
	filters     []contract.Filter
	formatters  []contract.Formatter
	closers     []contract.Closer

	// 上次组字时的输入与已选段数；二者不变时不重新组字，以保留翻页与高亮。
	lastInput    string
	lastSelected int
}

// New 加载方案并构造各阶段。方案加载失败返回错误；单个组件缺失只记录并跳过。
func New(opts Options) (*Engine, error) {
	e := &Engine{
		reg:      opts.Registry,
		dep:      opts.Deployment,
		session:  uuid.NewString(),
		disabled: map[string]struct{}{},
		override: opts.PageSizeOverride,
		bus:      contract.NewMessenger(),
	}
	if e.reg == nil {
		e.reg = registry.Default()
	}
	if e.dep == nil {
		e.dep = &resource.Deployment{}
	}
	log := opts.Logger
	if log == nil {
		log = diag.NewNop()
	}
	e.log = log.With("session", e.session)
	for _, name := range opts.Disabled {
		e.disabled[name] = struct{}{}
	}
	e.ctx = contract.NewContext(e.bus)

	s := opts.Schema
	if s == nil {
		var err error
		if s, err = e.loadSchema(opts.SchemaID); err != nil {
			return nil, err
		}
	}
	e.install(s)
	return e, nil
}

func (e *Engine) loadSchema(id string) (*contract.Schema, error) {
	if id == "" {
		return nil, fmt.Errorf("engine: empty schema id: %w", contract.ErrInvalidInput)
	}
	s, err := schema.Load(e.dep.SchemaResolver(), id)
	if err != nil {
		code := string(diag.Classify(err))
		e.log.ErrorWithKV(comp, code, "schema load failed", nil, map[string]string{"schema": id, "err": err.Error()})
		diag.IncError(comp, code)
		return nil, err
	}
	return s, nil
}

// install 切换到方案 s 并重建全部阶段。
func (e *Engine) install(s *contract.Schema) {
	if e.override > 0 {
		s.PageSize = e.override
	}
	e.schema = s
	e.closers = nil
	timer := e.log.StartWithKV(comp, "build stages", map[string]string{"schema": s.ID})
	e.processors = build(e, "engine/processors", e.reg.CreateProcessor)
	e.segmentors = build(e, "engine/segmentors", e.reg.CreateSegmentor)
	if !e.hasFallback() {
		if seg, ok := createStage(e, fallbackSegmentor, e.reg.CreateSegmentor); ok {
			e.segmentors = append(e.segmentors, seg)
		}
	}
	e.translators = build(e, "engine/translators", e.reg.CreateTranslator)
	e.filters = build(e, "engine/filters", e.reg.CreateFilter)
	e.formatters = build(e, "engine/formatters", e.reg.CreateFormatter)
	n := len(e.processors) + len(e.segmentors) + len(e.translators) + len(e.filters) + len(e.formatters)
	timer.Finish("build stages", int64(n))
}

func (e *Engine) hasFallback() bool {
	if _, off := e.disabled[fallbackSegmentor]; off {
		return true
	}
	if cfg := e.schema.Config; cfg != nil {
		for _, p := range cfg.GetList("engine/segmentors") {
			if contract.NewTicket(nil, nil, p).Klass == fallbackSegmentor {
				return true
			}
		}
	}
	return false
}

func build[T any](e *Engine, path string, create func(contract.Ticket) (T, error)) []T {
	var out []T
	if e.schema.Config == nil {
		return out
	}
	for _, p := range e.schema.Config.GetList(path) {
		if v, ok := createStage(e, p, create); ok {
			out = append(out, v)
		}
	}
	return out
}

// createStage 构造单个阶段；未登记与构造失败均记录后跳过，方案其余部分照常可用。
func createStage[T any](e *Engine, prescription string, create func(contract.Ticket) (T, error)) (T, bool) {
	var zero T
	t := contract.NewTicket(e, e.schema, prescription)
	kv := map[string]string{"klass": t.Klass, "ns": t.NameSpace}
	if _, off := e.disabled[t.Klass]; off {
		e.log.DebugStart(comp, "component disabled", kv)
		return zero, false
	}
	v, err := create(t)
	if err != nil {
		code := string(diag.Classify(err))
		kv["err"] = err.Error()
		if errors.Is(err, contract.ErrNoSuchComponent) {
			e.log.Warn(comp, code, "component skipped", kv)
		} else {
			e.log.ErrorWithKV(comp, code, "component init failed", nil, kv)
		}
		diag.IncError(comp, code)
		return zero, false
	}
	if c, ok := any(v).(contract.Closer); ok {
		e.closers = append(e.closers, c)
	}
	return v, true
}

// Context 实现 contract.EngineHandle。
func (e *Engine) Context() *contract.Context     { return e.ctx }
func (e *Engine) Schema() *contract.Schema       { return e.schema }
func (e *Engine) Messenger() *contract.Messenger { return e.bus }

// Deployment 与 Logger 实现 resource.Provider，供阶段构造时取用。
func (e *Engine) Deployment() *resource.Deployment { return e.dep }
func (e *Engine) Logger() *diag.Logger             { return e.log }

// Session 返回会话标识。
func (e *Engine) Session() string { return e.session }

// ProcessKeyEvent 依次交给处理器：Accepted 即停止；Pending 记下后继续。
// 处理后输入或选定状态有变则重新组字。
func (e *Engine) ProcessKeyEvent(ev contract.KeyEvent) contract.ProcessResult {
	result := contract.Rejected
	for _, p := range e.processors {
		r := p.ProcessKeyEvent(ev)
		if r == contract.Accepted {
			result = r
			break
		}
		if r == contract.Pending {
			result = r
		}
	}
	if e.ctx.Input() != e.lastInput || e.selectedCount() != e.lastSelected {
		e.Compose()
	}
	diag.IncOp(comp, "key", result.String())
	return result
}

func (e *Engine) selectedCount() int {
	n := 0
	for _, s := range e.ctx.Composition().Segments() {
		if s.Status >= contract.Selected {
			n++
		}
	}
	return n
}

// Compose 对当前输入重新分段并翻译未翻译的段，然后广播 composition。
func (e *Engine) Compose() {
	input := e.ctx.Input()
	g := e.ctx.Composition()
	g.Reset(input)
	if err := e.segment(g); err != nil {
		e.log.ErrorWithKV("segmentor", string(diag.Classify(err)), "segmentation stalled", nil, map[string]string{"input": input, "err": err.Error()})
		diag.IncError("segmentor", string(diag.Classify(err)))
	}
	e.translateSegments(input, g)
	e.lastInput = input
	e.lastSelected = e.selectedCount()
	e.bus.Publish(contract.MsgComposition, e.ctx.Preedit())
}

// segment 反复在游标处调用分段器直到覆盖全部输入；游标不前进即为不变量违例。
func (e *Engine) segment(g *contract.Segmentation) error {
	for !g.HasFinishedSegmentation() {
		start := g.GetCurrentStartPosition()
		for _, s := range e.segmentors {
			if !s.Proceed(g) {
				break
			}
		}
		if g.GetCurrentEndPosition() <= start {
			g.Trim()
			return fmt.Errorf("no segmentor claimed position %d of %q: %w", start, g.Input(), contract.ErrInvariantViolation)
		}
		if !g.Forward() {
			break
		}
	}
	g.Trim()
	return nil
}

func (e *Engine) pageSize() int {
	if e.schema != nil && e.schema.PageSize > 0 {
		return e.schema.PageSize
	}
	return 5
}

func (e *Engine) translateSegments(input string, g *contract.Segmentation) {
	for _, seg := range g.Segments() {
		if seg.Status >= contract.Guess || seg.Start == seg.End {
			continue
		}
		menu := contract.NewMenu(e.pageSize())
		for _, tr := range e.translators {
			if t := tr.Query(input, seg); t != nil {
				menu.AddTranslation(t)
			}
		}
		for _, f := range e.filters {
			if f.TagsMatch(seg) {
				menu.AddFilter(f)
			}
		}
		seg.Menu = menu
		seg.Status = contract.Guess
	}
}

// Select 选定当前段绝对序号 index 处的候选。
// 指令型候选交给 SelectHook 执行后清空组合；选定段覆盖到输入末尾时上屏。
func (e *Engine) Select(index int) bool {
	seg := e.ctx.Composition().Back()
	if seg == nil || seg.Menu == nil || seg.Status >= contract.Selected {
		return false
	}
	c, ok := seg.Menu.GetCandidateAt(index)
	if !ok {
		return false
	}
	for _, tr := range e.translators {
		if h, ok := tr.(contract.SelectHook); ok && h.OnSelect(c) {
			e.bus.Publish(contract.MsgSelect, c.Text)
			e.ctx.Clear()
			e.Compose()
			return true
		}
	}
	seg.Menu.SetHighlight(index)
	seg.Status = contract.Selected
	seg.Close()
	e.bus.Publish(contract.MsgSelect, c.Text)
	if seg.End >= len(e.ctx.Input()) {
		seg.Status = contract.Confirmed
		return e.Commit()
	}
	e.Compose()
	return true
}

// CommitCandidate 选定当前页第 index 项（自 0 起）；越界返回 false。
func (e *Engine) CommitCandidate(index int) bool {
	seg := e.ctx.Composition().Back()
	if seg == nil || seg.Menu == nil || index < 0 {
		return false
	}
	page, ok := seg.Menu.CurrentPage()
	if !ok || index >= len(page.Candidates) {
		return false
	}
	return e.Select(page.PageNo*page.PageSize + index)
}

// compositionText 取各段高亮候选文本，无候选的段取原始输入。
func (e *Engine) compositionText() string {
	input := e.ctx.Input()
	var out []byte
	pos := 0
	for _, s := range e.ctx.Composition().Segments() {
		if s.Start == s.End || s.Start < pos || s.End > len(input) {
			continue
		}
		if c, ok := s.SelectedCandidate(); ok {
			out = append(out, c.Text...)
		} else {
			out = append(out, input[s.Start:s.End]...)
		}
		pos = s.End
	}
	if pos < len(input) {
		out = append(out, input[pos:]...)
	}
	return string(out)
}

// Commit 上屏当前组合；未在组字时返回 false。
// commit 消息先于清空输入发出，订阅方（如用户词典学习）可读取本次组合。
func (e *Engine) Commit() bool {
	if !e.ctx.IsComposing() {
		return false
	}
	e.CommitText(e.compositionText())
	e.ctx.Clear()
	e.Compose()
	return true
}

// CommitText 经格式化器处理后追加到待上屏文本并广播 commit。
func (e *Engine) CommitText(text string) {
	for _, f := range e.formatters {
		text = f.Format(text)
	}
	if text == "" {
		return
	}
	e.ctx.AppendCommit(text)
	e.bus.Publish(contract.MsgCommit, text)
	diag.IncOp(comp, "commit", "ok")
}

// GetMenu 返回当前段的候选页；无菜单时 Page 为 nil。
func (e *Engine) GetMenu() *MenuView {
	v := &MenuView{Preedit: e.ctx.Preedit(), SelectKeys: e.schema.SelectKeys}
	seg := e.ctx.Composition().Back()
	if seg == nil || seg.Menu == nil || seg.Status >= contract.Selected {
		return v
	}
	if page, ok := seg.Menu.CurrentPage(); ok {
		v.Page = page
		v.HighlightIndex = seg.Menu.Highlight()
	}
	return v
}

// SwitchSchema 加载方案 id 并重建阶段；加载失败时保持原方案。
// 旧阶段在切换前关闭，用户词典随之刷出。
func (e *Engine) SwitchSchema(id string) error {
	s, err := e.loadSchema(id)
	if err != nil {
		return err
	}
	e.apply(s)
	return nil
}

// ApplySchemaReload 重新读取当前方案文件，供文件监视触发。
func (e *Engine) ApplySchemaReload() error {
	return e.SwitchSchema(e.schema.ID)
}

func (e *Engine) apply(s *contract.Schema) {
	if err := e.closeStages(); err != nil {
		e.log.Warn(comp, string(diag.Classify(err)), "close stages", map[string]string{"err": err.Error()})
	}
	e.ctx.Clear()
	e.lastInput, e.lastSelected = "", 0
	e.install(s)
	e.bus.Publish(contract.MsgSchema, s.ID+"/"+s.Name)
	diag.IncOp(comp, "switch_schema", "ok")
}

func (e *Engine) closeStages() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c.Close())
	}
	e.closers = nil
	return errors.Join(errs...)
}

// Close 关闭全部阶段（刷出用户词典）。
func (e *Engine) Close() error {
	err := e.closeStages()
	e.processors, e.segmentors, e.translators, e.filters, e.formatters = nil, nil, nil, nil, nil
	e.log.DebugStart(comp, "engine closed", map[string]string{"schema": e.schema.ID, "commits": strconv.Itoa(len(e.ctx.CommitHistory()))})
	return err
}
