package schema

import (
	"errors"

	"gopkg.in/yaml.v3"

	"imecore/pkg/contract"
)

// PunctKind: 标点定义的形态。
type PunctKind int

const (
	// PunctInvalid: 无法识别的定义，查询时视同缺失。
	PunctInvalid PunctKind = iota
	// PunctUnique: 单一符号，键入即确认。
	PunctUnique
	// PunctAlternating: 候选列表，重复按键轮换。
	PunctAlternating
	// PunctCommit: {commit: x}，键入即上屏整个组合。
	PunctCommit
	// PunctPair: {pair: [左, 右]}，交替给出成对符号。
	PunctPair
)

// PunctDef: 一个按键对应的标点定义。
type PunctDef struct {
	Kind   PunctKind
	Values []string
}

// UnmarshalYAML 按节点形态识别定义；不合规的定义记为 PunctInvalid 而不报错。
func (d *PunctDef) UnmarshalYAML(n *yaml.Node) error {
	*d = PunctDef{}
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.ScalarNode:
		*d = PunctDef{Kind: PunctUnique, Values: []string{n.Value}}
	case yaml.SequenceNode:
		vals := scalars(n)
		if len(vals) > 0 {
			*d = PunctDef{Kind: PunctAlternating, Values: vals}
		}
	case yaml.MappingNode:
		if v, ok := scalar(child(n, "commit")); ok {
			*d = PunctDef{Kind: PunctCommit, Values: []string{v}}
		} else if p := child(n, "pair"); p != nil && p.Kind == yaml.SequenceNode {
			if vals := scalars(p); len(vals) == 2 && len(p.Content) == 2 {
				*d = PunctDef{Kind: PunctPair, Values: vals}
			}
		}
	}
	return nil
}

func scalars(n *yaml.Node) []string {
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		if v, ok := scalar(item); ok {
			out = append(out, v)
		}
	}
	return out
}

// PunctConfig: punctuator 节点。half_shape/full_shape 按 full_shape 选项择一，symbols 仅供翻译器查询。
type PunctConfig struct {
	UseSpace  bool                `yaml:"use_space"`
	HalfShape map[string]PunctDef `yaml:"half_shape"`
	FullShape map[string]PunctDef `yaml:"full_shape"`
	Symbols   map[string]PunctDef `yaml:"symbols"`
}

// LoadPunct 解码 punctuator 节点；节点缺失或配置不支持结构化解码时返回空定义。
func LoadPunct(cfg contract.Config) (*PunctConfig, error) {
	p := &PunctConfig{}
	c, ok := cfg.(*Config)
	if !ok || c == nil {
		return p, nil
	}
	if err := c.Decode("punctuator", p); err != nil && !errors.Is(err, contract.ErrNotLoaded) {
		return nil, err
	}
	return p, nil
}

// Lookup 查找 key 的定义：先查当前形态的映射，withSymbols 时再查 symbols。
func (p *PunctConfig) Lookup(key string, fullShape, withSymbols bool) (PunctDef, bool) {
	if p == nil {
		return PunctDef{}, false
	}
	mapping := p.HalfShape
	if fullShape {
		mapping = p.FullShape
	}
	if d, ok := mapping[key]; ok && d.Kind != PunctInvalid {
		return d, true
	}
	if withSymbols {
		if d, ok := p.Symbols[key]; ok && d.Kind != PunctInvalid {
			return d, true
		}
	}
	return PunctDef{}, false
}
