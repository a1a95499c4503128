package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cfgpkg "imecore/internal/config"
	"imecore/internal/diag"
)

var newLogger = diag.NewLogger

// 退出码：0 成功；1 运行期错误；3 配置/装配错误。
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 3
)

// exitError 携带退出码，由 run 统一转换。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func configErr(format string, a ...any) error {
	return &exitError{code: exitConfig, err: fmt.Errorf(format, a...)}
}

func runtimeErr(format string, a ...any) error {
	return &exitError{code: exitRuntime, err: fmt.Errorf(format, a...)}
}

// globalFlags: 各子命令共用的配置来源与覆盖项。
type globalFlags struct {
	config    string
	schema    string
	sharedDir string
	userDir   string
	logLevel  string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = loadDotEnv(".env")

	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			fprintf(stderr, "%v\n", ee.err)
			return ee.code
		}
		// 旗标与参数错误
		fprintf(stderr, "%v\n", err)
		return exitConfig
	}
	return exitOK
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "imecore",
		Short: "输入法组字引擎控制台",
		Long: `imecore 按方案装配按键处理、分段、翻译、过滤与格式化阶段，
从按键序列驱动组字，并在终端回显预编辑、候选页与上屏文本。

配置优先级：CLI > ENV(.env) > JSON(config.json) > 默认值。`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.config, "config", "", "配置文件路径（JSON，允许注释）；缺省读取 ./config.json（若存在）")
	pf.StringVar(&g.schema, "schema", "", "方案标识（覆盖配置）")
	pf.StringVar(&g.sharedDir, "shared-data-dir", "", "共享数据目录（覆盖配置）")
	pf.StringVar(&g.userDir, "user-data-dir", "", "用户数据目录（覆盖配置）")
	pf.StringVar(&g.logLevel, "log-level", "", "日志等级 debug|info|warn|error（覆盖配置）")

	root.AddCommand(newConsoleCmd(g), newCompileCmd(g), newInitCmd())
	return root
}

// loadConfig 依优先级合并配置并校验。
func loadConfig(g *globalFlags) (cfgpkg.Config, error) {
	var cfgJSON []byte
	if s := os.Getenv("IMECORE_CONFIG_JSON"); s != "" {
		cfgJSON = []byte(s)
	}
	path := g.config
	if path == "" {
		path = os.Getenv("IMECORE_CONFIG_FILE")
	}
	// 默认读取工作目录下 config.json（若存在）
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}

	cfg := cfgpkg.Defaults()
	if path != "" || len(cfgJSON) > 0 {
		base, err := cfgpkg.LoadJSON(path, cfgJSON)
		if err != nil {
			return cfg, fmt.Errorf("配置解析失败: %w", err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, fmt.Errorf("环境变量解析失败: %w", err)
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	var overCLI cfgpkg.Config
	overCLI.Schema = strings.TrimSpace(g.schema)
	overCLI.SharedDataDir = strings.TrimSpace(g.sharedDir)
	overCLI.UserDataDir = strings.TrimSpace(g.userDir)
	overCLI.Logging.Level = strings.TrimSpace(g.logLevel)
	cfg = cfgpkg.Merge(cfg, overCLI)

	if err := cfgpkg.Validate(cfg); err != nil {
		return cfg, fmt.Errorf("配置校验失败: %w", err)
	}
	return cfg, nil
}

func genCorrID() string { return uuid.NewString() }

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func dumpConfig(w io.Writer, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, _ = w.Write(append([]byte("有效配置:\n"), b...))
	_, _ = w.Write([]byte("\n"))
	return nil
}

// writeConfig 写出 JSON 配置；path 为 "-" 时写到 stdout。不覆盖已存在文件。
func writeConfig(path string, c cfgpkg.Config, stdout io.Writer) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = stdout.Write(append(b, '\n'))
		return err
	}
	return writeNew(path, string(b)+"\n")
}

// writeNew 以 O_EXCL 创建文件；已存在时返回 os.ErrExist。
func writeNew(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// loadDotEnv 读取简单的 .env 文件格式并注入进程环境。
// 规则：
// - 忽略不存在的文件；无法读取时返回错误（但调用处可忽略）。
// - 跳过空行与以 # 开头的行；支持可选的前缀 "export "。
// - 仅按首个 '=' 分割；若 value 被成对的单/双引号包裹，则去除外层引号。
// - 不覆盖已存在的环境变量（保持系统/调用者优先）。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if len(val) >= 2 {
			if (val[0] == '\'' && val[len(val)-1] == '\'') || (val[0] == '"' && val[len(val)-1] == '"') {
				quoted := val[0]
				val = val[1 : len(val)-1]
				if quoted == '"' {
					val = strings.ReplaceAll(val, "\\n", "\n")
					val = strings.ReplaceAll(val, "\\t", "\t")
					val = strings.ReplaceAll(val, "\\\"", "\"")
					val = strings.ReplaceAll(val, "\\\\", "\\")
				}
			}
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}
