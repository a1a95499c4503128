package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"imecore/internal/schema"
	"imecore/pkg/contract"
	single "imecore/plugins/filter/singlechar"
	uniq "imecore/plugins/filter/uniquifier"
	shape "imecore/plugins/formatter/shape"
	editor "imecore/plugins/processor/editor"
	navigator "imecore/plugins/processor/navigator"
	punctuator "imecore/plugins/processor/punctuator"
	selector "imecore/plugins/processor/selector"
	speller "imecore/plugins/processor/speller"
	switchkey "imecore/plugins/processor/switchkey"
	abc "imecore/plugins/segmentor/abc"
	fallback "imecore/plugins/segmentor/fallback"
	matcher "imecore/plugins/segmentor/matcher"
	psegpunct "imecore/plugins/segmentor/punct"
	echo "imecore/plugins/translator/echo"
	ptrpunct "imecore/plugins/translator/punct"
	pswitch "imecore/plugins/translator/switcher"
	ptable "imecore/plugins/translator/table"
)

// Factory 工厂签名：由 Ticket 构造一个阶段实例。
type Factory func(t contract.Ticket) (any, error)

// decoder 由支持结构化解码的配置实现（schema.Config）。
type decoder interface {
	Decode(path string, v any) error
}

// decodeAt: 将 path 子树解码到 v；子树缺失时保持零值（默认选项）。
func decodeAt(t contract.Ticket, path string, v any) error {
	d, ok := t.Config().(decoder)
	if !ok || d == nil {
		return nil
	}
	if err := d.Decode(path, v); err != nil {
		if errors.Is(err, contract.ErrNotLoaded) {
			return nil
		}
		return fmt.Errorf("%s: decode %s: %w", t.Klass, path, err)
	}
	return nil
}

// decodeOptions: 解码 "<ns>" 子树。
func decodeOptions(t contract.Ticket, v any) error {
	return decodeAt(t, t.NameSpace, v)
}

// Registry: 名称到工厂的映射；冻结后只读。
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	frozen    bool
}

// New 创建空注册表。
func New() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register 登记工厂。冻结后返回 ErrRegistryFrozen；空名或重名返回 ErrInvalidInput。
func (r *Registry) Register(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("register %q: %w", name, contract.ErrRegistryFrozen)
	}
	if name == "" || f == nil {
		return fmt.Errorf("register %q: empty name or factory: %w", name, contract.ErrInvalidInput)
	}
	if _, dup := r.factories[name]; dup {
		return fmt.Errorf("register %q: duplicate: %w", name, contract.ErrInvalidInput)
	}
	r.factories[name] = f
	return nil
}

// Find 查找工厂。
func (r *Registry) Find(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names 返回已登记名称（升序）。
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Freeze 冻结注册表。
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen 判断是否已冻结。
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Create 以 ticket.Klass 查找工厂并构造。未登记返回 ErrNoSuchComponent（可恢复）。
func (r *Registry) Create(t contract.Ticket) (any, error) {
	f, ok := r.Find(t.Klass)
	if !ok {
		return nil, fmt.Errorf("component %q: %w", t.Klass, contract.ErrNoSuchComponent)
	}
	return f(t)
}

func create[T any](r *Registry, t contract.Ticket, kind string) (T, error) {
	var zero T
	v, err := r.Create(t)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("component %q is not a %s: %w", t.Klass, kind, contract.ErrInvariantViolation)
	}
	return out, nil
}

func (r *Registry) CreateProcessor(t contract.Ticket) (contract.Processor, error) {
	return create[contract.Processor](r, t, "processor")
}

func (r *Registry) CreateSegmentor(t contract.Ticket) (contract.Segmentor, error) {
	return create[contract.Segmentor](r, t, "segmentor")
}

func (r *Registry) CreateTranslator(t contract.Ticket) (contract.Translator, error) {
	return create[contract.Translator](r, t, "translator")
}

func (r *Registry) CreateFilter(t contract.Ticket) (contract.Filter, error) {
	return create[contract.Filter](r, t, "filter")
}

func (r *Registry) CreateFormatter(t contract.Ticket) (contract.Formatter, error) {
	return create[contract.Formatter](r, t, "formatter")
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default 返回进程级注册表：登记全部内置组件后冻结。
func Default() *Registry {
	defaultOnce.Do(func() {
		r := New()
		for _, table := range []map[string]Factory{Processors, Segmentors, Translators, Filters, Formatters} {
			for name, f := range table {
				// 各表名称互不重复
				_ = r.Register(name, f)
			}
		}
		r.Freeze()
		defaultReg = r
	})
	return defaultReg
}

// loadPunct: 读取 punctuator 节点，供标点处理器、分段器与翻译器共用。
func loadPunct(t contract.Ticket) (*schema.PunctConfig, error) {
	p, err := schema.LoadPunct(t.Config())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Klass, err)
	}
	return p, nil
}

// Processors 按键处理器工厂表（显式、零反射）。
var Processors = map[string]Factory{
	// selector: 选词与翻页
	"selector": func(t contract.Ticket) (any, error) {
		return selector.New(t), nil
	},
	// express_editor: 编辑键；speller/alphabet 决定可输入字符
	"express_editor": func(t contract.Ticket) (any, error) {
		var opts editor.Options
		if err := decodeAt(t, "speller", &opts); err != nil {
			return nil, err
		}
		if err := decodeOptions(t, &opts); err != nil {
			return nil, err
		}
		// 方案同时配置了 speller 时，字符输入交给 speller
		if cfg := t.Config(); cfg != nil && opts.CharHandling == nil {
			for _, p := range cfg.GetList("engine/processors") {
				if contract.NewTicket(nil, nil, p).Klass == "speller" {
					off := false
					opts.CharHandling = &off
				}
			}
		}
		return editor.New(t, &opts), nil
	},
	// speller: 字母表与分隔符
	"speller": func(t contract.Ticket) (any, error) {
		var opts speller.Options
		if err := decodeOptions(t, &opts); err != nil {
			return nil, err
		}
		return speller.New(t, &opts), nil
	},
	// punctuator: 标点键入与确认
	"punctuator": func(t contract.Ticket) (any, error) {
		p, err := loadPunct(t)
		if err != nil {
			return nil, err
		}
		return punctuator.New(t, p), nil
	},
	// navigator: 组字中移动光标
	"navigator": func(t contract.Ticket) (any, error) {
		return navigator.New(t), nil
	},
	// switcher: 热键唤出选项菜单
	"switcher": func(t contract.Ticket) (any, error) {
		var opts switchkey.Options
		if err := decodeOptions(t, &opts); err != nil {
			return nil, err
		}
		return switchkey.New(t, &opts)
	},
}

// Segmentors 分段器工厂表。
var Segmentors = map[string]Factory{
	// abc_segmentor: 字母段，读取 speller/* 与 <ns>/extra_tags
	"abc_segmentor": func(t contract.Ticket) (any, error) {
		var opts abc.Options
		if err := decodeAt(t, "speller", &opts); err != nil {
			return nil, err
		}
		if err := decodeOptions(t, &opts); err != nil {
			return nil, err
		}
		return abc.New(&opts), nil
	},
	// matcher: recognizer/patterns 正则识别
	"matcher": func(t contract.Ticket) (any, error) {
		var opts matcher.Options
		if cfg := t.Config(); cfg != nil {
			keys, vals := cfg.GetMap("recognizer/patterns")
			for _, k := range keys {
				opts.Patterns = append(opts.Patterns, matcher.Pattern{Tag: k, Expr: vals[k]})
			}
		}
		return matcher.New(&opts)
	},
	// punct_segmentor: 已定义的标点键切为 punct 段
	"punct_segmentor": func(t contract.Ticket) (any, error) {
		p, err := loadPunct(t)
		if err != nil {
			return nil, err
		}
		return psegpunct.New(t, p), nil
	},
	// fallback_segmentor: 兜底逐字 raw 段
	"fallback_segmentor": func(t contract.Ticket) (any, error) {
		return fallback.New(), nil
	},
}

// Translators 翻译器工厂表。
var Translators = map[string]Factory{
	// table_translator: 码表 + 用户词典
	"table_translator": func(t contract.Ticket) (any, error) {
		var opts ptable.Options
		if err := decodeOptions(t, &opts); err != nil {
			return nil, err
		}
		return ptable.New(t, &opts), nil
	},
	// switch_translator: 选项开关候选
	"switch_translator": func(t contract.Ticket) (any, error) {
		var opts pswitch.Options
		if err := decodeOptions(t, &opts); err != nil {
			return nil, err
		}
		opts.Switches = schema.LoadSwitches(t.Config())
		return pswitch.New(t, &opts), nil
	},
	// punct_translator: punct 段的符号候选
	"punct_translator": func(t contract.Ticket) (any, error) {
		p, err := loadPunct(t)
		if err != nil {
			return nil, err
		}
		return ptrpunct.New(t, p), nil
	},
	// echo_translator: 原样回显
	"echo_translator": func(t contract.Ticket) (any, error) {
		var opts echo.Options
		if err := decodeOptions(t, &opts); err != nil {
			return nil, err
		}
		return echo.New(&opts), nil
	},
}

// Filters 过滤器工厂表。
var Filters = map[string]Factory{
	// uniquifier: 按文本去重
	"uniquifier": func(t contract.Ticket) (any, error) {
		var opts uniq.Options
		if err := decodeOptions(t, &opts); err != nil {
			return nil, err
		}
		return uniq.New(&opts), nil
	},
	// single_char_filter: 单字优先
	"single_char_filter": func(t contract.Ticket) (any, error) {
		var opts single.Options
		if err := decodeOptions(t, &opts); err != nil {
			return nil, err
		}
		return single.New(t, &opts), nil
	},
}

// Formatters 上屏格式化器工厂表。
var Formatters = map[string]Factory{
	// shape_formatter: 全角转换
	"shape_formatter": func(t contract.Ticket) (any, error) {
		var opts shape.Options
		if err := decodeOptions(t, &opts); err != nil {
			return nil, err
		}
		return shape.New(t, &opts), nil
	},
}
