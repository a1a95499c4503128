package punct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imecore/internal/schema"
	"imecore/pkg/contract"
	"imecore/plugins/segmentor/fallback"
)

func punctConfig(t *testing.T) *schema.PunctConfig {
	t.Helper()
	cfg, err := schema.NewConfig([]byte("punctuator:\n  half_shape:\n    \",\": \"，\"\n    \"/\": [\"／\", \"÷\"]\n"))
	require.NoError(t, err)
	p, err := schema.LoadPunct(cfg)
	require.NoError(t, err)
	return p
}

func TestPunctSegments(t *testing.T) {
	s := New(contract.Ticket{}, punctConfig(t))
	fb := fallback.New()
	g := contract.NewSegmentation("a,/中.")
	for !g.HasFinishedSegmentation() {
		if s.Proceed(g) {
			fb.Proceed(g)
		}
		if !g.Forward() {
			break
		}
	}
	g.Trim()
	require.NoError(t, g.Covered())

	var got []string
	for _, seg := range g.Segments() {
		got = append(got, seg.TagList()[0]+":"+g.Input()[seg.Start:seg.End])
	}
	assert.Equal(t, []string{"raw:a", "punct:,", "punct:/", "raw:中."}, got)
}

func TestPunctLeavesClaimedSegment(t *testing.T) {
	s := New(contract.Ticket{}, punctConfig(t))
	g := contract.NewSegmentation(",,")
	require.True(t, g.AddSegment(contract.NewSegment(0, 2, "abc")))
	assert.True(t, s.Proceed(g), "已被认领的段交给后续分段器")
	assert.Equal(t, 2, g.Back().End)

	empty := contract.NewSegmentation("")
	assert.False(t, s.Proceed(empty))
}
