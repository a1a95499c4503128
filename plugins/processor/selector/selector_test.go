package selector

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imecore/pkg/contract"
)

type fakeEngine struct {
	ctx      *contract.Context
	bus      *contract.Messenger
	schema   *contract.Schema
	selected []int
}

func (f *fakeEngine) Context() *contract.Context     { return f.ctx }
func (f *fakeEngine) Schema() *contract.Schema       { return f.schema }
func (f *fakeEngine) Messenger() *contract.Messenger { return f.bus }
func (f *fakeEngine) Select(i int) bool              { f.selected = append(f.selected, i); return true }
func (f *fakeEngine) Commit() bool                   { return false }
func (f *fakeEngine) CommitText(string)              {}

// withMenu 构造含 n 个候选的单段组合。
func withMenu(n int, schema *contract.Schema, tags ...string) *fakeEngine {
	bus := contract.NewMessenger()
	f := &fakeEngine{ctx: contract.NewContext(bus), bus: bus, schema: schema}
	f.ctx.SetInput("ni")
	comp := f.ctx.Composition()
	comp.Reset("ni")
	if len(tags) == 0 {
		tags = []string{"abc"}
	}
	comp.AddSegment(contract.NewSegment(0, 2, tags...))
	seg := comp.Back()
	seg.Menu = contract.NewMenu(schema.PageSize)
	tr := contract.NewFifoTranslation()
	for i := 0; i < n; i++ {
		tr.Append(contract.Candidate{Type: "table", End: 2, Text: strconv.Itoa(i), Quality: float64(n - i)})
	}
	seg.Menu.AddTranslation(tr)
	seg.Status = contract.Guess
	return f
}

func key(t *testing.T, repr string) contract.KeyEvent {
	t.Helper()
	ev, err := contract.ParseKeyEvent(repr)
	require.NoError(t, err)
	return ev
}

func TestSelectByDigit(t *testing.T) {
	f := withMenu(12, &contract.Schema{PageSize: 5})
	p := New(contract.Ticket{Engine: f})
	assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, "Page_Down")))
	assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, "2")))
	assert.Equal(t, []int{6}, f.selected, "页首 5 + 序号 1")

	assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, "0")))
	assert.Equal(t, []int{6}, f.selected, "0 对应页内第 10 项，页大小 5 时不选")
}

func TestSelectBeyondPage(t *testing.T) {
	f := withMenu(3, &contract.Schema{PageSize: 5})
	p := New(contract.Ticket{Engine: f})
	assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, "5")))
	assert.Empty(t, f.selected, "超出本页候选数：接受但不选")
	assert.Equal(t, contract.Rejected, p.ProcessKeyEvent(key(t, "a")))
}

func TestCustomSelectKeys(t *testing.T) {
	f := withMenu(5, &contract.Schema{PageSize: 5, SelectKeys: "asdf"})
	p := New(contract.Ticket{Engine: f})
	p.ProcessKeyEvent(key(t, "d"))
	assert.Equal(t, []int{2}, f.selected)
	assert.Equal(t, contract.Rejected, p.ProcessKeyEvent(key(t, "1")), "自定义选字键时数字不选")
}

func TestPagingBoundary(t *testing.T) {
	f := withMenu(7, &contract.Schema{PageSize: 5})
	var signals int
	f.bus.Subscribe(contract.MsgNoMoreCandidates, func(string, string) { signals++ })
	p := New(contract.Ticket{Engine: f})
	menu := f.ctx.Composition().Back().Menu

	assert.Equal(t, contract.Pending, p.ProcessKeyEvent(key(t, "Page_Up")))
	assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, "period")))
	assert.Equal(t, 1, menu.PageNo())
	assert.Equal(t, contract.Pending, p.ProcessKeyEvent(key(t, "equal")))
	assert.Equal(t, 2, signals)

	assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, "comma")))
	assert.Equal(t, 0, menu.PageNo())
	p.ProcessKeyEvent(key(t, "Down"))
	p.ProcessKeyEvent(key(t, "Down"))
	assert.Equal(t, 2, menu.Highlight())
	p.ProcessKeyEvent(key(t, "Up"))
	assert.Equal(t, 1, menu.Highlight())
	p.ProcessKeyEvent(key(t, "End"))
	assert.Equal(t, 4, menu.Highlight(), "End 停在本页末项")
	assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, "Home")))
	assert.Equal(t, 0, menu.Highlight())
	assert.Equal(t, contract.Rejected, p.ProcessKeyEvent(key(t, "Home")), "已在首项时交给光标移动")
}

func TestLeftRightByLayout(t *testing.T) {
	f := withMenu(5, &contract.Schema{PageSize: 5})
	p := New(contract.Ticket{Engine: f})
	menu := f.ctx.Composition().Back().Menu
	assert.Equal(t, contract.Rejected, p.ProcessKeyEvent(key(t, "Right")), "竖排时左右键移动光标")
	assert.Equal(t, 0, menu.Highlight())

	h := withMenu(5, &contract.Schema{PageSize: 5, Horizontal: true})
	p = New(contract.Ticket{Engine: h})
	menu = h.ctx.Composition().Back().Menu
	assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, "Right")))
	assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, "Right")))
	assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, "Left")))
	assert.Equal(t, 1, menu.Highlight())
}

func TestPageDownCycle(t *testing.T) {
	f := withMenu(7, &contract.Schema{PageSize: 5, PageDownCycle: true})
	p := New(contract.Ticket{Engine: f})
	menu := f.ctx.Composition().Back().Menu
	p.ProcessKeyEvent(key(t, "Page_Down"))
	assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, "Page_Down")))
	assert.Equal(t, 0, menu.PageNo())
}

func TestSelectorIgnores(t *testing.T) {
	raw := withMenu(3, &contract.Schema{PageSize: 5}, "raw")
	assert.Equal(t, contract.Rejected, New(contract.Ticket{Engine: raw}).ProcessKeyEvent(key(t, "1")))

	f := withMenu(3, &contract.Schema{PageSize: 5})
	p := New(contract.Ticket{Engine: f})
	assert.Equal(t, contract.Rejected, p.ProcessKeyEvent(key(t, "Release+1")))
	assert.Equal(t, contract.Rejected, p.ProcessKeyEvent(key(t, "Alt+1")))
	assert.Equal(t, contract.Rejected, p.ProcessKeyEvent(key(t, "Control+1")))
	assert.Equal(t, contract.Rejected, New(contract.Ticket{}).ProcessKeyEvent(key(t, "1")))
}
