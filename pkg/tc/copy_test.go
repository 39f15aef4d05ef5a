package tc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderADBRepeatsPatternAcrossBlocks(t *testing.T) {
	p := ADB{
		Pattern:     []byte{0xAB},
		PatternSize: 4,
		BlockCount:  2,
	}
	buf := renderADB(p)
	assert.Equal(t, []byte{0xAB, 0, 0, 0, 0xAB, 0, 0, 0}, buf)
}

func TestRenderADBHonorsPatternOffset(t *testing.T) {
	p := ADB{
		Pattern:       []byte{1, 2},
		PatternOffset: 2,
		PatternSize:   4,
		BlockCount:    1,
	}
	buf := renderADB(p)
	assert.Equal(t, []byte{0, 0, 1, 2}, buf)
}

func TestRenderADBEmptyInputsYieldNil(t *testing.T) {
	assert.Nil(t, renderADB(ADB{}))
	assert.Nil(t, renderADB(ADB{Pattern: []byte{1}, PatternSize: 0, BlockCount: 1}))
	assert.Nil(t, renderADB(ADB{Pattern: []byte{1}, PatternSize: 1, BlockCount: 0}))
}
