package table

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imecore/internal/diag"
	"imecore/internal/dict"
	"imecore/internal/resource"
	"imecore/pkg/contract"
)

const lunaTable = "# luna\n" +
	"你\tni\t100\n" +
	"尼\tni\t40\n" +
	"泥\tni\t30\n" +
	"你好\tnihao\t80\n" +
	"你们\tnimen\t60\n" +
	"好\thao\t90\n"

// fakeEngine 同时实现 EngineHandle 与 resource.Provider。
type fakeEngine struct {
	ctx *contract.Context
	bus *contract.Messenger
	dep *resource.Deployment
}

func (f *fakeEngine) Context() *contract.Context          { return f.ctx }
func (f *fakeEngine) Schema() *contract.Schema            { return nil }
func (f *fakeEngine) Messenger() *contract.Messenger      { return f.bus }
func (f *fakeEngine) Select(int) bool                     { return false }
func (f *fakeEngine) Commit() bool                        { return false }
func (f *fakeEngine) CommitText(string)                   {}
func (f *fakeEngine) Deployment() *resource.Deployment    { return f.dep }
func (f *fakeEngine) Logger() *diag.Logger                { return diag.NewNop() }

func setup(t *testing.T, backend string) (*fakeEngine, *resource.Deployment) {
	t.Helper()
	shared := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(shared, "luna.table.txt"), []byte(lunaTable), 0o644))
	dep := &resource.Deployment{SharedDataDir: shared, UserDataDir: t.TempDir(), UserDbBackend: backend}
	bus := contract.NewMessenger()
	return &fakeEngine{ctx: contract.NewContext(bus), bus: bus, dep: dep}, dep
}

func texts(cs []contract.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Text
	}
	return out
}

func TestTableQueryWithCompletion(t *testing.T) {
	eng, _ := setup(t, "")
	tr := New(contract.Ticket{Engine: eng}, &Options{Dictionary: "luna"})
	defer tr.Close()
	require.True(t, tr.Available())

	seg := contract.NewSegment(0, 2, "abc")
	got := contract.Drain(tr.Query("ni", &seg), -1)
	if diff := cmp.Diff([]string{"你", "你好", "你们", "尼", "泥"}, texts(got)); diff != "" {
		t.Fatalf("候选 (-want +got):\n%s", diff)
	}
	assert.Equal(t, "table", got[0].Type)
	assert.Equal(t, "completion", got[1].Type)
	assert.Equal(t, "~hao", got[1].Comment)

	raw := contract.NewSegment(0, 2, "raw")
	assert.Nil(t, tr.Query("ni", &raw), "标签不符")
	none := contract.NewSegment(0, 2, "abc")
	assert.Nil(t, tr.Query("zz", &none))
}

func TestTableExactOnlyAndDelimiter(t *testing.T) {
	eng, _ := setup(t, "")
	off := false
	tr := New(contract.Ticket{Engine: eng}, &Options{Dictionary: "luna", EnableCompletion: &off, EnableUserDict: &off, InitialQuality: 1})
	defer tr.Close()
	tr.delimiters = "'"
	seg := contract.NewSegment(0, 6, "abc")
	got := contract.Drain(tr.Query("ni'hao", &seg), -1)
	require.Len(t, got, 1)
	assert.Equal(t, "你好", got[0].Text)
	assert.Equal(t, float64(81), got[0].Quality)
}

func TestTableLearnsOnCommit(t *testing.T) {
	for _, backend := range []string{dict.BackendText, dict.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			eng, dep := setup(t, backend)
			tr := New(contract.Ticket{Engine: eng}, &Options{Dictionary: "luna"})

			ctx := eng.ctx
			ctx.SetInput("ni")
			comp := ctx.Composition()
			comp.Reset("ni")
			require.True(t, comp.AddSegment(contract.NewSegment(0, 2, "abc")))
			s := comp.Back()
			s.Menu = contract.NewMenu(5)
			s.Menu.AddTranslation(tr.Query("ni", s))
			require.True(t, s.Menu.SetHighlight(3))
			s.Status = contract.Selected
			eng.bus.Publish(contract.MsgCommit, "尼")

			got := contract.Drain(tr.Query("ni", s), 2)
			assert.Equal(t, []string{"尼", "你"}, texts(got), "学习后用户词条居前")
			assert.Equal(t, "user_table", got[0].Type)
			require.NoError(t, tr.Close())

			// 重新加载后仍在
			again := New(contract.Ticket{Engine: eng}, &Options{Dictionary: "luna"})
			defer again.Close()
			got = contract.Drain(again.Query("ni", s), 1)
			assert.Equal(t, "尼", got[0].Text)
			p, err := dep.UserDbResolver().ResolvePath("luna")
			require.NoError(t, err)
			_, err = os.Stat(p)
			assert.NoError(t, err)
		})
	}
}

// TestTableLearnsHighlightedOnCommit 直接上屏整个组合时，未选定段按高亮项学习。
func TestTableLearnsHighlightedOnCommit(t *testing.T) {
	eng, _ := setup(t, dict.BackendText)
	tr := New(contract.Ticket{Engine: eng}, &Options{Dictionary: "luna"})
	defer tr.Close()

	ctx := eng.ctx
	ctx.SetInput("nihao,")
	comp := ctx.Composition()
	comp.Reset("nihao,")
	for _, span := range [][2]int{{0, 2}, {2, 5}} {
		require.True(t, comp.AddSegment(contract.NewSegment(span[0], span[1], "abc")))
		s := comp.Back()
		s.Menu = contract.NewMenu(5)
		s.Menu.AddTranslation(tr.Query("nihao,", s))
		s.Status = contract.Guess
		comp.Forward()
	}
	require.True(t, comp.AddSegment(contract.NewSegment(5, 6, "raw")))
	require.True(t, comp.At(0).Menu.SetHighlight(3))
	eng.bus.Publish(contract.MsgCommit, "尼好，")

	ni := contract.NewSegment(0, 2, "abc")
	got := contract.Drain(tr.Query("ni", &ni), 1)
	require.Len(t, got, 1)
	assert.Equal(t, "尼", got[0].Text)
	assert.Equal(t, "user_table", got[0].Type)

	hao := contract.NewSegment(0, 3, "abc")
	got = contract.Drain(tr.Query("hao", &hao), 1)
	require.Len(t, got, 1)
	assert.Equal(t, "好", got[0].Text)
	assert.Equal(t, "user_table", got[0].Type)

	// 无组合时的上屏（如原样上屏已清空上下文）不学习
	ctx.Clear()
	eng.bus.Publish(contract.MsgCommit, "nihao")
	got = contract.Drain(tr.Query("ni", &ni), -1)
	assert.Equal(t, 1, countType(got, "user_table"))
}

func countType(cs []contract.Candidate, typ string) int {
	n := 0
	for _, c := range cs {
		if c.Type == typ {
			n++
		}
	}
	return n
}

func TestTableUnavailable(t *testing.T) {
	eng, _ := setup(t, "")
	tr := New(contract.Ticket{Engine: eng}, &Options{Dictionary: "missing"})
	assert.False(t, tr.Available())
	seg := contract.NewSegment(0, 2, "abc")
	assert.Nil(t, tr.Query("ni", &seg))
	assert.NoError(t, tr.Close())
	assert.Nil(t, New(contract.Ticket{}, nil).Query("ni", &seg))
}

func TestTableCompiledCache(t *testing.T) {
	eng, dep := setup(t, "")
	dep.CacheDir = t.TempDir()
	off := false
	tr := New(contract.Ticket{Engine: eng}, &Options{Dictionary: "luna", EnableUserDict: &off})
	require.True(t, tr.Available())
	require.NoError(t, tr.Close())
	p, err := dep.CacheResolver().ResolvePath("luna")
	require.NoError(t, err)
	_, err = os.Stat(p)
	require.NoError(t, err, "首次加载写出快照")

	tr = New(contract.Ticket{Engine: eng}, &Options{Dictionary: "luna", EnableUserDict: &off})
	defer tr.Close()
	seg := contract.NewSegment(0, 3, "abc")
	assert.Equal(t, []string{"好"}, texts(contract.Drain(tr.Query("hao", &seg), -1)))
}
