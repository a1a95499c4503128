package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "imecore/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [dir]",
		Short: "生成默认配置与示例方案",
		Long: `init-config 在目录（缺省当前目录）下生成 config.json、.env 模板，
以及示例方案 data/luna.schema.yaml 与码表 data/luna.table.txt。已存在的文件跳过，不覆盖。
dir 为 "-" 时仅将配置打印到标准输出。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = strings.TrimSpace(args[0])
			}
			cfg := cfgpkg.DefaultTemplateConfig()
			if dir == "-" {
				if err := writeConfig("-", cfg, cmd.OutOrStdout()); err != nil {
					return runtimeErr("%v", err)
				}
				return nil
			}
			for _, sub := range []string{cfg.SharedDataDir, cfg.UserDataDir} {
				if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
					return configErr("生成默认配置失败: %v", err)
				}
			}
			if err := skipExisting(writeConfig(filepath.Join(dir, "config.json"), cfg, cmd.OutOrStdout())); err != nil {
				return configErr("生成默认配置失败: %v", err)
			}
			files := []struct{ path, content string }{
				{filepath.Join(dir, ".env"), dotEnvTemplate()},
				{filepath.Join(dir, cfg.SharedDataDir, cfgpkg.SampleSchemaID+".schema.yaml"), cfgpkg.SampleSchema},
				{filepath.Join(dir, cfg.SharedDataDir, cfgpkg.SampleSchemaID+".table.txt"), cfgpkg.SampleTable},
			}
			for _, f := range files {
				if err := skipExisting(writeNew(f.path, f.content)); err != nil {
					// 模板文件生成失败不影响配置
					fprintf(cmd.ErrOrStderr(), "提示：%s 生成失败（已跳过）：%v\n", f.path, err)
				}
			}
			return nil
		},
	}
}

func skipExisting(err error) error {
	if errors.Is(err, os.ErrExist) {
		return nil
	}
	return err
}

// dotEnvTemplate 列出 EnvOverlay 支持的覆盖项；空值表示未设置。
func dotEnvTemplate() string {
	var b strings.Builder
	b.WriteString("# imecore .env 模板（由 init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > JSON\n")
	b.WriteString("# 空值表示未设置；按需填写。\n\n")

	b.WriteString("# 配置来源（可二选一）\n")
	b.WriteString("IMECORE_CONFIG_FILE=\n")
	b.WriteString("IMECORE_CONFIG_JSON=\n\n")

	b.WriteString("# 目录与方案\n")
	b.WriteString("IMECORE_SHARED_DATA_DIR=\n")
	b.WriteString("IMECORE_USER_DATA_DIR=\n")
	b.WriteString("IMECORE_SCHEMA=\n")
	b.WriteString("IMECORE_CACHE_DIR=\n\n")

	b.WriteString("# 运行参数\n")
	b.WriteString("IMECORE_LOG_LEVEL=\n")
	b.WriteString("IMECORE_USER_DB_BACKEND=\n")
	b.WriteString("IMECORE_PAGE_SIZE=\n")
	b.WriteString("IMECORE_DISABLED=\n")
	return b.String()
}
