package config

import (
	"errors"
	"fmt"
	"strings"

	"imecore/internal/diag"
	"imecore/internal/dict"
	"imecore/internal/engine"
	"imecore/internal/resource"
	"imecore/pkg/registry"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Schema) == "" {
		return errors.New("config: schema not set")
	}
	if strings.TrimSpace(cfg.SharedDataDir) == "" {
		return errors.New("config: shared_data_dir empty")
	}
	switch cfg.UserDB.Backend {
	case "", dict.BackendText, dict.BackendSQLite:
	default:
		return fmt.Errorf("config: user_db.backend %q not supported", cfg.UserDB.Backend)
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level %q invalid", cfg.Logging.Level)
	}
	if cfg.Menu.PageSizeOverride < 0 || cfg.Menu.PageSizeOverride > 10 {
		return fmt.Errorf("config: menu.page_size_override must be in [0,10], got %d", cfg.Menu.PageSizeOverride)
	}
	reg := registry.Default()
	for _, name := range cfg.Components.Disabled {
		if _, ok := reg.Find(name); !ok {
			return fmt.Errorf("config: disabled component %q not registered", name)
		}
	}
	return nil
}

// Deployment 由配置推出数据目录布局。
func Deployment(cfg Config) *resource.Deployment {
	return &resource.Deployment{
		SharedDataDir: cfg.SharedDataDir,
		UserDataDir:   cfg.UserDataDir,
		CacheDir:      cfg.Dict.CacheDir,
		UserDbBackend: cfg.UserDB.Backend,
	}
}

// Assemble 校验配置并构造引擎。
// 组件选项的严格解析在 registry（工厂）层进行；此处只决定方案与目录。
func Assemble(cfg Config, logger *diag.Logger) (*engine.Engine, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return engine.New(engine.Options{
		Registry:         registry.Default(),
		Deployment:       Deployment(cfg),
		SchemaID:         cfg.Schema,
		Logger:           logger,
		Disabled:         cloneStrings(cfg.Components.Disabled),
		PageSizeOverride: cfg.Menu.PageSizeOverride,
	})
}
