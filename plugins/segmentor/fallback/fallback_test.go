package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imecore/pkg/contract"
)

// segmentAll 模拟引擎循环：仅有兜底分段器时逐字前移。
func segmentAll(t *testing.T, input string) *contract.Segmentation {
	t.Helper()
	g := contract.NewSegmentation(input)
	s := New()
	for !g.HasFinishedSegmentation() {
		before := g.GetCurrentStartPosition()
		s.Proceed(g)
		if !g.Forward() {
			break
		}
		require.Greater(t, g.GetCurrentStartPosition(), before)
	}
	return g
}

func TestFallbackMergesRawRun(t *testing.T) {
	g := segmentAll(t, "1,你")
	g.Trim()
	require.Equal(t, 1, g.Len(), "相邻 raw 段合并")
	assert.Equal(t, len("1,你"), g.Back().End)
	assert.True(t, g.Back().HasTag("raw"))
	assert.NoError(t, g.Covered())
}

func TestFallbackLeavesClaimedSegment(t *testing.T) {
	g := contract.NewSegmentation("ab")
	require.True(t, g.AddSegment(contract.NewSegment(0, 2, "abc")))
	assert.False(t, New().Proceed(g))
	assert.Equal(t, 2, g.Back().End)
	assert.False(t, g.Back().HasTag("raw"))
}

func TestFallbackDoesNotExtendTranslatedSegment(t *testing.T) {
	g := contract.NewSegmentation("12")
	require.True(t, g.AddSegment(contract.NewSegment(0, 1, "raw")))
	g.Back().Status = contract.Guess
	g.Forward()
	New().Proceed(g)
	require.Equal(t, 2, g.Len())
	assert.Equal(t, 1, g.Back().Start, "非 Void 段不延伸，另起新段")
}
