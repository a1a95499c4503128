package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"imecore/internal/resource"
	"imecore/pkg/contract"
)

const defaultPageSize = 5

// Load 通过解析器定位 "<id>.schema.yaml" 并构造 Schema。
// 文件缺失返回 ErrNotLoaded；解析错误附带路径。
func Load(r resource.PathResolver, id string) (*contract.Schema, error) {
	path, err := r.ResolvePath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("schema %q at %s: %w", id, path, contract.ErrNotLoaded)
		}
		return nil, fmt.Errorf("schema %q: %w", id, err)
	}
	cfg, err := NewConfig(data)
	if err != nil {
		return nil, fmt.Errorf("schema %q at %s: %w", id, path, err)
	}
	return FromConfig(id, cfg), nil
}

// FromConfig 从已解析配置构造 Schema；id 为缺省标识。
func FromConfig(id string, cfg *Config) *contract.Schema {
	s := &contract.Schema{ID: id, Name: id, Config: cfg, PageSize: defaultPageSize}
	if v, ok := cfg.GetString("schema/schema_id"); ok && v != "" {
		s.ID = v
	}
	if v, ok := cfg.GetString("schema/name"); ok && v != "" {
		s.Name = v
	}
	if v, ok := cfg.GetInt("menu/page_size"); ok && v > 0 {
		s.PageSize = v
	}
	if v, ok := cfg.GetString("menu/alternative_select_keys"); ok {
		s.SelectKeys = v
	}
	if v, ok := cfg.GetBool("menu/page_down_cycle"); ok {
		s.PageDownCycle = v
	}
	if v, ok := cfg.GetBool("style/horizontal"); ok {
		s.Horizontal = v
	}
	return s
}
