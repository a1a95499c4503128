package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
)

const envPrefix = "IMECORE_"

// Defaults 返回带有安全默认值的 Config 雏形。
// 注意：Schema 不设默认（必须由 JSON/ENV/CLI 提供）。
func Defaults() Config {
	return Config{
		SharedDataDir: "data",
		Logging:       Logging{Level: "info"},
		UserDB:        UserDB{Backend: "text"},
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（先去除注释与尾逗号，再严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	switch {
	case len(raw) > 0:
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		raw = b
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		if path != "" {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
		return cfg, err
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/列表为“替换”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if v := strings.TrimSpace(over.SharedDataDir); v != "" {
		out.SharedDataDir = v
	}
	if v := strings.TrimSpace(over.UserDataDir); v != "" {
		out.UserDataDir = v
	}
	if v := strings.TrimSpace(over.Schema); v != "" {
		out.Schema = v
	}
	if v := strings.TrimSpace(over.Logging.Level); v != "" {
		out.Logging.Level = v
	}
	if v := strings.TrimSpace(over.UserDB.Backend); v != "" {
		out.UserDB.Backend = v
	}
	if v := strings.TrimSpace(over.Dict.CacheDir); v != "" {
		out.Dict.CacheDir = v
	}
	if len(over.Components.Disabled) > 0 {
		out.Components.Disabled = cloneStrings(over.Components.Disabled)
	}
	if over.Menu.PageSizeOverride != 0 {
		out.Menu.PageSizeOverride = over.Menu.PageSizeOverride
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 IMECORE_；集合之外的键忽略。
// 支持：SHARED_DATA_DIR, USER_DATA_DIR, SCHEMA, LOG_LEVEL, USER_DB_BACKEND, CACHE_DIR,
// DISABLED（逗号分隔）, PAGE_SIZE
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		key, val, ok := strings.Cut(strings.TrimPrefix(kv, envPrefix), "=")
		if !ok || key == "" {
			continue
		}
		val = strings.TrimSpace(val)
		switch key {
		case "SHARED_DATA_DIR":
			over.SharedDataDir = val
		case "USER_DATA_DIR":
			over.UserDataDir = val
		case "SCHEMA":
			over.Schema = val
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "USER_DB_BACKEND":
			over.UserDB.Backend = val
		case "CACHE_DIR":
			over.Dict.CacheDir = val
		case "DISABLED":
			over.Components.Disabled = splitComma(val)
		case "PAGE_SIZE":
			if val == "" {
				continue
			}
			n, err := strconv.Atoi(val)
			if err != nil {
				return over, fmt.Errorf("env %sPAGE_SIZE=%q: %w", envPrefix, val, err)
			}
			over.Menu.PageSizeOverride = n
		}
	}
	return over, nil
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
