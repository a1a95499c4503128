package punctuator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imecore/internal/schema"
	"imecore/pkg/contract"
	psegpunct "imecore/plugins/segmentor/punct"
	ptrpunct "imecore/plugins/translator/punct"
)

const punctYAML = `
punctuator:
  half_shape:
    ",": "，"
    "/": ["／", "÷", "？"]
    '"': {pair: ["“", "”"]}
    "!": {commit: "！"}
  full_shape:
    "/": "／"
`

// fakeEngine 以标点分段器与翻译器组字，其余字符各成一个 abc 段。
type fakeEngine struct {
	ctx      *contract.Context
	bus      *contract.Messenger
	punct    *schema.PunctConfig
	selected []int
	commits  int
}

func (f *fakeEngine) Context() *contract.Context     { return f.ctx }
func (f *fakeEngine) Schema() *contract.Schema       { return &contract.Schema{PageSize: 5} }
func (f *fakeEngine) Messenger() *contract.Messenger { return f.bus }
func (f *fakeEngine) CommitText(string)              {}

func (f *fakeEngine) Select(i int) bool {
	f.selected = append(f.selected, i)
	f.ctx.Clear()
	return true
}

func (f *fakeEngine) Commit() bool {
	f.commits++
	f.ctx.Clear()
	return true
}

func (f *fakeEngine) Compose() {
	t := contract.Ticket{Engine: f}
	seg := psegpunct.New(t, f.punct)
	tr := ptrpunct.New(t, f.punct)
	input := f.ctx.Input()
	g := f.ctx.Composition()
	g.Reset(input)
	for !g.HasFinishedSegmentation() {
		k := g.GetCurrentStartPosition()
		if seg.Proceed(g) {
			g.AddSegment(contract.NewSegment(k, k+1, "abc"))
		}
		if !g.Forward() {
			break
		}
	}
	g.Trim()
	for _, s := range g.Segments() {
		s.Menu = contract.NewMenu(5)
		if r := tr.Query(input, s); r != nil {
			s.Menu.AddTranslation(r)
		}
		s.Status = contract.Guess
	}
}

func setup(t *testing.T) (*fakeEngine, *Processor) {
	t.Helper()
	cfg, err := schema.NewConfig([]byte(punctYAML))
	require.NoError(t, err)
	punct, err := schema.LoadPunct(cfg)
	require.NoError(t, err)
	bus := contract.NewMessenger()
	f := &fakeEngine{ctx: contract.NewContext(bus), bus: bus, punct: punct}
	return f, New(contract.Ticket{Engine: f}, punct)
}

func key(t *testing.T, repr string) contract.KeyEvent {
	t.Helper()
	ev, err := contract.ParseKeyEvent(repr)
	require.NoError(t, err)
	return ev
}

func TestUniqueConfirms(t *testing.T) {
	f, p := setup(t)
	f.ctx.SetInput("ni")
	assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, "comma")))
	assert.Equal(t, []int{0}, f.selected)
	assert.Equal(t, 0, f.commits)
}

func TestCommitKind(t *testing.T) {
	f, p := setup(t)
	f.ctx.SetInput("hao")
	assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, "!")))
	assert.Equal(t, 1, f.commits)
	assert.Empty(t, f.selected)
}

func TestPairAlternatesSides(t *testing.T) {
	f, p := setup(t)
	for i := 0; i < 3; i++ {
		assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, `"`)))
	}
	assert.Equal(t, []int{0, 1, 0}, f.selected)
}

func TestAlternatingCycles(t *testing.T) {
	f, p := setup(t)
	assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, "slash")))
	require.Equal(t, "/", f.ctx.Input())
	menu := f.ctx.Composition().Back().Menu
	assert.Equal(t, 0, menu.Highlight())

	for _, want := range []int{1, 2, 0} {
		assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, "slash")))
		assert.Equal(t, "/", f.ctx.Input(), "重复按键不再追加输入")
		assert.Equal(t, want, menu.Highlight())
	}
	assert.Empty(t, f.selected)

	// 其他标点之后的同一键重新入输入
	f.ctx.SetInput("ab")
	f.Compose()
	p.ProcessKeyEvent(key(t, "slash"))
	assert.Equal(t, "ab/", f.ctx.Input())
}

func TestFullShapeMapping(t *testing.T) {
	f, p := setup(t)
	f.ctx.SetOption("full_shape", true)
	assert.Equal(t, contract.Accepted, p.ProcessKeyEvent(key(t, "slash")))
	assert.Equal(t, []int{0}, f.selected, "full_shape 下 / 为单一符号")

	assert.Equal(t, contract.Rejected, p.ProcessKeyEvent(key(t, "comma")), "full_shape 未定义逗号")
}

func TestRejects(t *testing.T) {
	f, p := setup(t)
	assert.Equal(t, contract.Rejected, p.ProcessKeyEvent(key(t, "a")))
	assert.Equal(t, contract.Rejected, p.ProcessKeyEvent(key(t, "Control+comma")))
	assert.Equal(t, contract.Rejected, p.ProcessKeyEvent(key(t, "Release+comma")))
	assert.Equal(t, contract.Rejected, p.ProcessKeyEvent(key(t, "Return")))
	f.ctx.SetInput("ni")
	assert.Equal(t, contract.Rejected, p.ProcessKeyEvent(key(t, "space")))
	assert.Equal(t, "ni", f.ctx.Input())
	assert.Empty(t, f.selected)
}
