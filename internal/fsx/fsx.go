// Package fsx 提供词典、用户词库与编译缓存共用的落盘工具：同目录临时文件 + 原子替换。
package fsx

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"imecore/pkg/contract"
)

// Options: 写入选项；零值即默认。
type Options struct {
	// Atomic: 是否使用原子替换。默认 true；显式 false 直接覆盖写。
	Atomic *bool
	// PermFile/PermDir: 为 0 表示使用默认 0644/0755。
	PermFile os.FileMode
	PermDir  os.FileMode
	// BufSize: 写缓冲区大小；<=0 使用 64KiB。
	BufSize int
}

func (o *Options) normalized() (atomic bool, pf, pd os.FileMode, bsz int) {
	atomic, pf, pd, bsz = true, 0o644, 0o755, 64*1024
	if o == nil {
		return
	}
	if o.Atomic != nil {
		atomic = *o.Atomic
	}
	if o.PermFile != 0 {
		pf = o.PermFile
	}
	if o.PermDir != 0 {
		pd = o.PermDir
	}
	if o.BufSize > 0 {
		bsz = o.BufSize
	}
	return
}

// WriteFile 将 r 的全部字节写入 dest。
func WriteFile(ctx context.Context, dest string, r io.Reader, opts *Options) error {
	return WriteWith(ctx, dest, opts, func(w io.Writer) error {
		_, err := io.Copy(w, readerWithCtx(ctx, r))
		return err
	})
}

// WriteWith 以回调方式产出内容；回调返回错误时目标文件保持原样（原子模式）。
func WriteWith(ctx context.Context, dest string, opts *Options, fill func(w io.Writer) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if strings.TrimSpace(dest) == "" {
		return contract.ErrPathInvalid
	}
	atomic, pf, pd, bsz := opts.normalized()
	if err := os.MkdirAll(filepath.Dir(dest), pd); err != nil {
		return err
	}
	if atomic {
		return writeAtomic(dest, pf, bsz, fill)
	}
	return writeOverwrite(dest, pf, bsz, fill)
}

func writeOverwrite(dest string, perm os.FileMode, bsz int, fill func(io.Writer) error) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, bsz)
	if err := fill(bw); err != nil {
		return err
	}
	return bw.Flush()
}

func writeAtomic(dest string, perm os.FileMode, bsz int, fill func(io.Writer) error) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, perm)

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	bw := bufio.NewWriterSize(tmp, bsz)
	if err := fill(bw); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := osReplace(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// 最佳努力：同步父目录
	_ = syncDir(dir)
	return nil
}

// readerWithCtx: 在每次 Read 前检查 ctx 是否已取消。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}
	return cr.r.Read(p)
}
