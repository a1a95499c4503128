package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imecore/internal/resource"
	"imecore/pkg/contract"
)

const lunaYAML = `
schema:
  schema_id: luna
  name: 明月
menu:
  page_size: 7
  page_down_cycle: true
engine:
  processors: [selector, express_editor]
  translators:
    - table_translator
    - echo_translator
switches:
  - name: full_shape
    states: [半角, 全角]
  - options: [simp, trad]
    states: [简, 繁]
recognizer:
  patterns:
    number: "^[0-9]+$"
    url: "^(www[.]|https?:).*$"
defaults: &d
  weight: 1.5
alias: *d
`

func TestConfigPaths(t *testing.T) {
	c, err := NewConfig([]byte(lunaYAML))
	require.NoError(t, err)

	v, ok := c.GetString("schema/name")
	assert.True(t, ok)
	assert.Equal(t, "明月", v)

	n, ok := c.GetInt("menu/page_size")
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	b, ok := c.GetBool("menu/page_down_cycle")
	assert.True(t, ok)
	assert.True(t, b)

	assert.Equal(t, []string{"table_translator", "echo_translator"}, c.GetList("engine/translators"))
	assert.Equal(t, 2, c.ListSize("switches"))
	name, _ := c.GetString("switches/@0/name")
	assert.Equal(t, "full_shape", name)
	assert.Equal(t, []string{"simp", "trad"}, c.GetList("switches/@last/options"))

	keys, m := c.GetMap("recognizer/patterns")
	assert.Equal(t, []string{"number", "url"}, keys)
	assert.Equal(t, "^[0-9]+$", m["number"])

	w, ok := c.GetDouble("alias/weight")
	assert.True(t, ok, "别名引用可读")
	assert.Equal(t, 1.5, w)

	// 缺失与类型不符
	_, ok = c.GetString("menu")
	assert.False(t, ok)
	_, ok = c.GetInt("schema/name")
	assert.False(t, ok)
	assert.Nil(t, c.GetList("schema/name"))
	assert.Equal(t, 0, c.ListSize("nope"))
	assert.False(t, c.Has("switches/@9"))
	assert.False(t, c.Has("switches/x"))
	assert.True(t, c.Has("engine"))

	var sw []struct {
		Name   string   `yaml:"name"`
		States []string `yaml:"states"`
	}
	require.NoError(t, c.Decode("switches", &sw))
	assert.Equal(t, "全角", sw[0].States[1])
	assert.Error(t, c.Decode("missing", &sw))
}

func TestEmptyConfig(t *testing.T) {
	c := Empty()
	assert.False(t, c.Has("a"))
	_, ok := c.GetBool("a/b")
	assert.False(t, ok)
	s := FromConfig("plain", c)
	assert.Equal(t, "plain", s.ID)
	assert.Equal(t, 5, s.PageSize)
	assert.Equal(t, "", s.SelectKeys)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "luna_pinyin.schema.yaml"), []byte(lunaYAML), 0o644))
	r := resource.NewResolver(resource.SchemaType, dir)

	s, err := Load(r, "luna_pinyin")
	require.NoError(t, err)
	assert.Equal(t, "luna", s.ID)
	assert.Equal(t, "明月", s.Name)
	assert.Equal(t, 7, s.PageSize)
	assert.True(t, s.PageDownCycle)

	_, err = Load(r, "missing")
	assert.True(t, errors.Is(err, contract.ErrNotLoaded))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.schema.yaml"), []byte("a: [1, 2"), 0o644))
	_, err = Load(r, "bad")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bad.schema.yaml")

	_, err = Load(resource.NewResolver(resource.SchemaType, ""), "luna_pinyin")
	assert.True(t, errors.Is(err, contract.ErrPathInvalid))
}

func TestLoadSwitches(t *testing.T) {
	c, err := NewConfig([]byte(`
switches:
  - name: ascii_mode
    reset: 0
    states: [中文, 西文]
  - options: [simp, trad]
    reset: 1
    states: [简, 繁]
  - states: [无名]
  - name: full_shape
`))
	require.NoError(t, err)
	sw := LoadSwitches(c)
	require.Len(t, sw, 3)
	assert.Equal(t, "ascii_mode", sw[0].Name)
	assert.Equal(t, "西文", sw[0].StateLabel(1))
	assert.True(t, sw[1].Radio())
	assert.Equal(t, -1, sw[2].Reset)
	assert.Equal(t, "", sw[2].StateLabel(0))

	ctx := contract.NewContext(nil)
	ctx.SetOption("ascii_mode", true)
	InitializeOptions(sw, ctx)
	assert.False(t, ctx.GetOption("ascii_mode"))
	assert.False(t, ctx.GetOption("simp"))
	assert.True(t, ctx.GetOption("trad"))
	assert.Nil(t, LoadSwitches(nil))
}

func TestLoadPunct(t *testing.T) {
	const text = `
punctuator:
  use_space: true
  half_shape:
    ",": "，"
    "/": ["／", "÷"]
    '"': {pair: ["“", "”"]}
    "!": {commit: "！"}
    "#": {pair: [a]}
    "$": {}
  full_shape:
    "/": "／"
  symbols:
    "/fh": ["©", "®"]
`
	c, err := NewConfig([]byte(text))
	require.NoError(t, err)
	p, err := LoadPunct(c)
	require.NoError(t, err)
	assert.True(t, p.UseSpace)

	cases := []struct {
		key  string
		kind PunctKind
		vals []string
	}{
		{",", PunctUnique, []string{"，"}},
		{"/", PunctAlternating, []string{"／", "÷"}},
		{`"`, PunctPair, []string{"“", "”"}},
		{"!", PunctCommit, []string{"！"}},
	}
	for _, tc := range cases {
		d, ok := p.Lookup(tc.key, false, false)
		require.True(t, ok, tc.key)
		assert.Equal(t, tc.kind, d.Kind, tc.key)
		assert.Equal(t, tc.vals, d.Values, tc.key)
	}

	_, ok := p.Lookup("#", false, false)
	assert.False(t, ok, "pair 须恰有两项")
	_, ok = p.Lookup("$", false, false)
	assert.False(t, ok)

	d, ok := p.Lookup("/", true, false)
	require.True(t, ok)
	assert.Equal(t, PunctUnique, d.Kind, "全角形态取 full_shape")

	_, ok = p.Lookup("/fh", false, false)
	assert.False(t, ok, "symbols 仅在 withSymbols 时可见")
	d, ok = p.Lookup("/fh", false, true)
	require.True(t, ok)
	assert.Equal(t, []string{"©", "®"}, d.Values)
}

func TestLoadPunctMissing(t *testing.T) {
	c, err := NewConfig([]byte(lunaYAML))
	require.NoError(t, err)
	p, err := LoadPunct(c)
	require.NoError(t, err)
	_, ok := p.Lookup(",", false, true)
	assert.False(t, ok)

	var nilCfg *PunctConfig
	_, ok = nilCfg.Lookup(",", false, true)
	assert.False(t, ok)

	bad, err := NewConfig([]byte("punctuator:\n  half_shape: [a]\n"))
	require.NoError(t, err)
	_, err = LoadPunct(bad)
	assert.Error(t, err)
}
