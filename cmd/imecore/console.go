package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	cfgpkg "imecore/internal/config"
	"imecore/internal/diag"
	"imecore/internal/engine"
	"imecore/pkg/contract"
)

type consoleOptions struct {
	keys   string
	watch  bool
	stats  bool
	status bool
}

// reloadDebounce 合并编辑器保存时的连续写事件。
const reloadDebounce = 150 * time.Millisecond

func newConsoleCmd(g *globalFlags) *cobra.Command {
	o := &consoleOptions{}
	cmd := &cobra.Command{
		Use:   "console",
		Short: "以按键序列驱动组字并回显",
		Long: `console 装配配置中的方案，逐键送入引擎，并输出预编辑、候选页与上屏文本。

按键序列中普通字符逐个成键，命名键写作 {name}，如 "ni{space}"、"nihao{Page_Down}2"。
未给出 --keys 时逐行读取标准输入，每行一个序列。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConsole(cmd, g, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.keys, "keys", "", "按键序列；缺省逐行读取标准输入")
	f.BoolVar(&o.watch, "watch", false, "监视方案文件，变更后重新装配（仅标准输入模式）")
	f.BoolVar(&o.stats, "stats", false, "结束时输出计数器快照")
	f.BoolVar(&o.status, "status", true, "回显组字状态")
	return cmd
}

func runConsole(cmd *cobra.Command, g *globalFlags, o *consoleOptions) error {
	start := time.Now()
	cfg, err := loadConfig(g)
	if err != nil {
		_ = dumpConfig(cmd.ErrOrStderr(), cfg)
		return &exitError{code: exitConfig, err: err}
	}
	logger := newLogger(genCorrID(), cfg.Logging.Level)
	defer logger.Close()

	e, err := cfgpkg.Assemble(cfg, logger)
	if err != nil {
		logger.Error("console", string(diag.Classify(err)), "assemble failed", &start)
		return configErr("装配失败: %v", err)
	}
	defer func() {
		if err := e.Close(); err != nil {
			logger.Warn("console", string(diag.Classify(err)), "engine close", map[string]string{"err": err.Error()})
		}
	}()

	term := diag.NewTerminal(cmd.OutOrStdout(), o.status)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)
	term.SessionStart(e.Schema().ID, e.Schema().Name)
	cancel := e.Messenger().Subscribe(contract.MsgAny, func(typ, value string) {
		switch typ {
		case contract.MsgCommit:
			term.Commit(value)
		case contract.MsgSchema:
			id, name, _ := strings.Cut(value, "/")
			term.SessionStart(id, name)
		case contract.MsgOption:
			term.Notice("option", value)
		case contract.MsgNoMoreCandidates:
			term.Notice(typ, "")
		}
	})
	defer cancel()

	c := &console{e: e, term: term, log: logger}
	if o.keys != "" {
		err = c.feed(o.keys)
	} else {
		var reload <-chan struct{}
		if o.watch {
			ctx, stop := context.WithCancel(cmd.Context())
			defer stop()
			path, rerr := e.Deployment().SchemaResolver().ResolvePath(e.Schema().ID)
			if rerr != nil {
				return configErr("监视方案失败: %v", rerr)
			}
			ch, wait, werr := watchFile(ctx, path, logger)
			if werr != nil {
				return runtimeErr("监视方案失败: %v", werr)
			}
			defer func() { stop(); wait() }()
			reload = ch
		}
		err = c.loop(cmd.InOrStdin(), reload)
	}

	if o.stats {
		for _, line := range diag.FormatSnapshot(diag.Snapshot()) {
			fprintf(cmd.OutOrStdout(), "%s\n", line)
		}
	}
	term.SessionFinish(err == nil, time.Since(start))
	if err != nil {
		logger.Error("console", string(diag.Classify(err)), "first error", &start)
		return runtimeErr("运行失败: %v", err)
	}
	logger.InfoFinish("console", "session", start, int64(len(e.Context().CommitHistory())))
	return nil
}

// console 把按键序列送入引擎并刷新回显。
type console struct {
	e    *engine.Engine
	term *diag.Terminal
	log  *diag.Logger
}

func (c *console) feed(seq string) error {
	evs, err := contract.ParseKeySequence(seq)
	if err != nil {
		return err
	}
	ctx := c.e.Context()
	for _, ev := range evs {
		res := c.e.ProcessKeyEvent(ev)
		// 引擎不处理的可打印键直接交给应用
		if res == contract.Rejected && ev.Printable() && !ctx.IsComposing() {
			c.term.Notice("pass", string(rune(ev.Keycode)))
		}
		ctx.ClearCommitText()
		m := c.e.GetMenu()
		if m.Preedit != "" || m.Page != nil {
			c.term.Compose(m.Preedit, m.Page, m.HighlightIndex, m.SelectKeys)
		}
	}
	return nil
}

// loop 逐行读取序列；reload 触发时重新装配当前方案。单行解析失败只提示不退出。
func (c *console) loop(r io.Reader, reload <-chan struct{}) error {
	lines := make(chan string)
	done := make(chan struct{})
	errc := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		errc <- sc.Err()
	}()
	defer func() { close(done); wg.Wait() }()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := c.feed(line); err != nil {
				c.term.Notice("error", err.Error())
				c.log.Warn("console", string(diag.Classify(err)), "bad key sequence", map[string]string{"line": line, "err": err.Error()})
			}
		case <-reload:
			if err := c.e.ApplySchemaReload(); err != nil {
				c.term.Notice("reload", fmt.Sprintf("failed: %v", err))
				continue
			}
			c.log.DebugStart("console", "schema reloaded", map[string]string{"schema": c.e.Schema().ID})
		}
	}
}

// watchFile 监视 path 所在目录，对该文件的写入/创建事件去抖后发信号。
// 返回的 wait 在 ctx 取消后等待监视协程退出。
func watchFile(ctx context.Context, path string, log *diag.Logger) (<-chan struct{}, func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, nil, err
	}
	out := make(chan struct{}, 1)
	base := filepath.Base(path)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer w.Close()
		var mu sync.Mutex
		var timer *time.Timer
		defer func() {
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					continue
				}
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, func() {
					select {
					case out <- struct{}{}:
					default:
					}
				})
				mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("console", string(diag.Classify(err)), "watch error", map[string]string{"path": path, "err": err.Error()})
			}
		}
	}()
	return out, wg.Wait, nil
}
