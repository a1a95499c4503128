// Package schema 加载输入方案（YAML）并提供键路径配置视图。
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"imecore/pkg/contract"
)

// Config 以 yaml.Node 树实现 contract.Config。只读。
type Config struct {
	root *yaml.Node
}

var _ contract.Config = (*Config)(nil)

// NewConfig 解析 YAML 文本。
func NewConfig(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	c := &Config{}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		c.root = doc.Content[0]
	}
	return c, nil
}

// Empty 返回空配置，所有查询均缺失。
func Empty() *Config { return &Config{} }

func (c *Config) find(path string) *yaml.Node {
	if c == nil || c.root == nil {
		return nil
	}
	n := c.root
	if path == "" || path == "/" {
		return n
	}
	for _, key := range strings.Split(strings.Trim(path, "/"), "/") {
		n = child(n, key)
		if n == nil {
			return nil
		}
		for n.Kind == yaml.AliasNode && n.Alias != nil {
			n = n.Alias
		}
	}
	return n
}

func child(n *yaml.Node, key string) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == key {
				return n.Content[i+1]
			}
		}
	case yaml.SequenceNode:
		if !strings.HasPrefix(key, "@") {
			return nil
		}
		idx := strings.TrimPrefix(key, "@")
		var i int
		if idx == "last" {
			i = len(n.Content) - 1
		} else {
			v, err := strconv.Atoi(idx)
			if err != nil {
				return nil
			}
			i = v
		}
		if i < 0 || i >= len(n.Content) {
			return nil
		}
		return n.Content[i]
	}
	return nil
}

func scalar(n *yaml.Node) (string, bool) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return "", false
	}
	return n.Value, true
}

func (c *Config) Has(path string) bool { return c.find(path) != nil }

func (c *Config) GetString(path string) (string, bool) { return scalar(c.find(path)) }

func (c *Config) GetInt(path string) (int, bool) {
	s, ok := scalar(c.find(path))
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return v, true
}

func (c *Config) GetDouble(path string) (float64, bool) {
	s, ok := scalar(c.find(path))
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (c *Config) GetBool(path string) (bool, bool) {
	n := c.find(path)
	if n == nil || n.Kind != yaml.ScalarNode {
		return false, false
	}
	var b bool
	if err := n.Decode(&b); err != nil {
		return false, false
	}
	return b, true
}

func (c *Config) GetList(path string) []string {
	n := c.find(path)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		if v, ok := scalar(item); ok {
			out = append(out, v)
		}
	}
	return out
}

func (c *Config) ListSize(path string) int {
	n := c.find(path)
	if n == nil || n.Kind != yaml.SequenceNode {
		return 0
	}
	return len(n.Content)
}

func (c *Config) GetMap(path string) ([]string, map[string]string) {
	n := c.find(path)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, nil
	}
	keys := make([]string, 0, len(n.Content)/2)
	m := make(map[string]string, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		v, ok := scalar(n.Content[i+1])
		if !ok {
			continue
		}
		k := n.Content[i].Value
		if _, dup := m[k]; !dup {
			keys = append(keys, k)
		}
		m[k] = v
	}
	return keys, m
}

// Decode 将子树解码到 v，供需要结构化读取的组件使用。
func (c *Config) Decode(path string, v any) error {
	n := c.find(path)
	if n == nil {
		return fmt.Errorf("config %q: %w", path, contract.ErrNotLoaded)
	}
	return n.Decode(v)
}
