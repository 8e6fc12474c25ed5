package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupLabel(t *testing.T) {
	l, err := LookupLabel("62")
	require.NoError(t, err)
	assert.Equal(t, Endless, l.FormFactor)
	assert.Equal(t, 696, l.DotsWidth)
	assert.Zero(t, l.DotsLength)
	assert.False(t, l.IsDieCut())

	d, err := LookupLabel("d24")
	require.NoError(t, err)
	assert.Equal(t, RoundDieCut, d.FormFactor)
	assert.True(t, d.IsDieCut())

	for _, bad := range []string{"62.5", "0", "-1", "sixty-two", ""} {
		_, err := LookupLabel(bad)
		assert.Error(t, err, bad)
	}
}

func TestPrintableHighRes(t *testing.T) {
	l, err := LookupLabel("62x29")
	require.NoError(t, err)
	w, h := l.Printable(false)
	assert.Equal(t, [2]int{696, 271}, [2]int{w, h})
	w, h = l.Printable(true)
	assert.Equal(t, [2]int{1392, 542}, [2]int{w, h})
}

func TestTwoColorTable(t *testing.T) {
	assert.True(t, SupportsTwoColor("QL-800"))
	assert.True(t, SupportsTwoColor("ql-820nwb"))
	assert.False(t, SupportsTwoColor("QL-500"))
	assert.False(t, SupportsTwoColor("nope"))
}

func TestCompatible(t *testing.T) {
	ql500, _ := LookupModel("QL-500")
	ql800, _ := LookupModel("QL-800")
	ql1100, _ := LookupModel("QL-1100")
	red, _ := LookupLabel("62red")
	wide, _ := LookupLabel("102")

	assert.Error(t, Compatible(ql500, red))
	assert.NoError(t, Compatible(ql800, red))
	assert.Error(t, Compatible(ql800, wide))
	assert.NoError(t, Compatible(ql1100, wide))
	assert.Equal(t, 90, ql500.RowBytes())
	assert.Equal(t, 162, ql1100.RowBytes())
}
