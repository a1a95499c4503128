package dict

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"imecore/internal/diag"
	"imecore/internal/fsx"
	"imecore/pkg/contract"
)

// 编译快照布局：magic(4) | version(1) | blake3(源文件)(32) | zstd(cbor(snapshot))。
var compiledMagic = [4]byte{'I', 'M', 'E', 'T'}

const compiledVersion = 1

const headerLen = 4 + 1 + 32

var errStaleSnapshot = errors.New("compiled snapshot is stale")

type snapshot struct {
	Name  string     `cbor:"1,keyasint"`
	Codes []snapCode `cbor:"2,keyasint"`
}

type snapCode struct {
	Code    string      `cbor:"1,keyasint"`
	Entries []snapEntry `cbor:"2,keyasint"`
}

type snapEntry struct {
	Text   string  `cbor:"1,keyasint"`
	Weight float64 `cbor:"2,keyasint"`
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("dict: CBOR encoder initialization failed: " + err.Error())
	}
}

// Checksum 计算源文件内容的 blake3 摘要。
func Checksum(data []byte) [32]byte { return blake3.Sum256(data) }

// Compile 将词典编码为快照字节；sum 为源文件摘要。
func Compile(d *Dictionary, sum [32]byte) ([]byte, error) {
	snap := snapshot{Name: d.name, Codes: make([]snapCode, 0, len(d.codes))}
	for _, code := range d.codes {
		list := d.entries[code]
		sc := snapCode{Code: code, Entries: make([]snapEntry, len(list))}
		for i, e := range list {
			sc.Entries[i] = snapEntry{Text: e.Text, Weight: e.Weight}
		}
		snap.Codes = append(snap.Codes, sc)
	}
	raw, err := encMode.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer enc.Close()

	out := make([]byte, 0, headerLen+len(raw)/3)
	out = append(out, compiledMagic[:]...)
	out = append(out, compiledVersion)
	out = append(out, sum[:]...)
	return enc.EncodeAll(raw, out), nil
}

// Decompile 校验头部并解码；want 非 nil 时要求摘要一致。
func Decompile(data []byte, want *[32]byte) (*Dictionary, error) {
	if len(data) < headerLen || !bytes.Equal(data[:4], compiledMagic[:]) {
		return nil, fmt.Errorf("bad snapshot header: %w", contract.ErrMalformedEntry)
	}
	if data[4] != compiledVersion {
		return nil, fmt.Errorf("snapshot version %d: %w", data[4], errStaleSnapshot)
	}
	if want != nil && !bytes.Equal(data[5:headerLen], want[:]) {
		return nil, errStaleSnapshot
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data[headerLen:], nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %v: %w", err, contract.ErrMalformedEntry)
	}
	var snap snapshot
	if err := cbor.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %v: %w", err, contract.ErrMalformedEntry)
	}
	entries := make(map[string][]DictEntry, len(snap.Codes))
	for _, sc := range snap.Codes {
		list := make([]DictEntry, len(sc.Entries))
		for i, e := range sc.Entries {
			list[i] = DictEntry{Text: e.Text, Code: sc.Code, Weight: e.Weight}
		}
		entries[sc.Code] = list
	}
	return newDictionaryFromEntries(snap.Name, entries, nil), nil
}

// DictName 由源文件名推出词典名（去掉 .dict.yaml / .table.txt）。
func DictName(path string) string {
	base := filepath.Base(path)
	for _, suf := range []string{".dict.yaml", ".table.txt"} {
		if strings.HasSuffix(base, suf) {
			return strings.TrimSuffix(base, suf)
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadCompiled 优先使用与源文件摘要一致的快照；否则从源文件重建并写回快照。
// 返回的词典只读；fromCache 表示是否命中快照。
func LoadCompiled(cachePath, sourcePath string, log *diag.Logger) (d *Dictionary, fromCache bool, err error) {
	src, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %v: %w", sourcePath, err, contract.ErrNotLoaded)
	}
	sum := Checksum(src)
	if data, rerr := os.ReadFile(cachePath); rerr == nil {
		d, derr := Decompile(data, &sum)
		if derr == nil {
			d.log = log
			return d, true, nil
		}
		log.DebugStart("dict", "recompile", map[string]string{"cache": cachePath, "reason": derr.Error()})
	}

	t := log.Start("dict", "compile")
	db := NewStableDb(sourcePath, DictName(sourcePath))
	db.SetLogger(log)
	d, err = LoadDictionary(db, log)
	if err != nil {
		return nil, false, err
	}
	data, err := Compile(d, sum)
	if err != nil {
		return nil, false, err
	}
	if werr := fsx.WriteFile(context.Background(), cachePath, bytes.NewReader(data), nil); werr != nil {
		log.Warn("dict", string(diag.Classify(werr)), "write snapshot failed", map[string]string{"cache": cachePath, "err": werr.Error()})
	}
	t.Finish("compiled "+d.name, int64(d.Size()))
	return d, false, nil
}
