package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	cfgpkg "imecore/internal/config"
	"imecore/internal/diag"
	"imecore/internal/dict"
	"imecore/internal/resource"
	"imecore/pkg/contract"
)

func newCompileCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "compile <dict-id>...",
		Short: "预编译码表快照",
		Long: `compile 将码表源文件（.dict.yaml 或 .table.txt）编译为快照，写入 dict.cache_dir。
快照携带源文件摘要；源文件未变时命中已有快照。`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			cfg, err := loadConfig(g)
			if err != nil {
				return &exitError{code: exitConfig, err: err}
			}
			dep := cfgpkg.Deployment(cfg)
			cache := dep.CacheResolver()
			if cache == nil {
				return configErr("dict.cache_dir 未设置")
			}
			logger := newLogger(genCorrID(), cfg.Logging.Level)
			defer logger.Close()

			for _, id := range args {
				src, err := findSource(dep, id)
				if err != nil {
					logger.ErrorWithKV("compile", string(diag.Classify(err)), "source not found", &start, map[string]string{"dictionary": id})
					return runtimeErr("%v", err)
				}
				out, err := cache.ResolvePath(id)
				if err != nil {
					return configErr("快照路径: %v", err)
				}
				d, hit, err := dict.LoadCompiled(out, src, logger)
				if err != nil {
					logger.ErrorWithKV("compile", string(diag.Classify(err)), "compile failed", &start, map[string]string{"dictionary": id})
					diag.IncError("compile", string(diag.Classify(err)))
					return runtimeErr("编译 %s 失败: %v", id, err)
				}
				state := "compiled"
				if hit {
					state = "up-to-date"
				}
				fprintf(cmd.OutOrStdout(), "[%s] %s -> %s (%d entries)\n", state, id, out, d.Size())
				diag.IncOp("compile", "dict", state)
				_ = d.Close()
			}
			logger.InfoFinish("compile", "done", start, int64(len(args)))
			return nil
		},
	}
}

// findSource 依部署的码表来源顺序查找存在的源文件。
func findSource(dep *resource.Deployment, id string) (string, error) {
	for _, r := range dep.DictSources() {
		path, err := r.ResolvePath(id)
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("dictionary %q: source not found under %s: %w", id, dep.SharedDataDir, contract.ErrNotLoaded)
}
