package ref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		id       string
		row, col int
	}{
		{"A1", 0, 0},
		{"B12", 11, 1},
		{"Z1", 0, 25},
		{"C100", 99, 2},
		{"A999999", 999998, 0},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			row, col, err := Parse(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.row, row)
			assert.Equal(t, tt.col, col)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []string{
		"",
		"A",
		"1",
		"a1",     // lowercase column
		"AA1",    // multi-letter column
		"A0",     // row zero
		"A01",    // leading zero
		"A-1",    // negative
		"A1.5",   // non-integer
		"1A",     // reversed
		"A 1",    // embedded space
		"Ä1", // non-ASCII letter
	}

	for _, id := range tests {
		t.Run(id, func(t *testing.T) {
			_, _, err := Parse(id)
			require.Error(t, err)
			assert.True(t, IsMalformed(err), "expected a reference error, got %v", err)
		})
	}
}

func TestFormat_Valid(t *testing.T) {
	id, err := Format(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "A1", id)

	id, err = Format(11, 1)
	require.NoError(t, err)
	assert.Equal(t, "B12", id)

	id, err = Format(0, 25)
	require.NoError(t, err)
	assert.Equal(t, "Z1", id)
}

func TestFormat_OutOfRange(t *testing.T) {
	_, err := Format(0, 26)
	assert.Error(t, err, "columns beyond Z are unsupported and must fail explicitly")

	_, err = Format(0, -1)
	assert.Error(t, err)

	_, err = Format(-1, 0)
	assert.Error(t, err)
}

func TestParseFormat_RoundTrip(t *testing.T) {
	// Format(Parse(s)) == s for every valid id in a representative grid.
	for col := 0; col < MaxColumns; col++ {
		for row := 0; row < 100; row++ {
			id, err := Format(row, col)
			require.NoError(t, err)

			r, c, err := Parse(id)
			require.NoError(t, err)
			assert.Equal(t, row, r)
			assert.Equal(t, col, c)

			back, err := Format(r, c)
			require.NoError(t, err)
			assert.Equal(t, id, back)
		}
	}
}

func TestExpandRange_SingleCell(t *testing.T) {
	ids, err := ExpandRange("A1", "A1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, ids)
}

func TestExpandRange_RowMajor(t *testing.T) {
	ids, err := ExpandRange("A1", "B2")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B1", "A2", "B2"}, ids)
}

func TestExpandRange_OrderIndependent(t *testing.T) {
	forward, err := ExpandRange("A1", "C3")
	require.NoError(t, err)
	backward, err := ExpandRange("C3", "A1")
	require.NoError(t, err)
	assert.Equal(t, forward, backward)

	// Mixed corners normalize too.
	mixed, err := ExpandRange("C1", "A3")
	require.NoError(t, err)
	assert.Equal(t, forward, mixed)
}

func TestExpandRange_Column(t *testing.T) {
	ids, err := ExpandRange("A1", "A5")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2", "A3", "A4", "A5"}, ids)
}

func TestExpandRange_Malformed(t *testing.T) {
	_, err := ExpandRange("A0", "B2")
	assert.True(t, IsMalformed(err))

	_, err = ExpandRange("A1", "b2")
	assert.True(t, IsMalformed(err))
}

func TestSplitRange(t *testing.T) {
	start, end, err := SplitRange("A1:B5")
	require.NoError(t, err)
	assert.Equal(t, "A1", start)
	assert.Equal(t, "B5", end)

	_, _, err = SplitRange("A1")
	assert.True(t, IsMalformed(err))

	_, _, err = SplitRange("A1:")
	assert.True(t, IsMalformed(err))

	_, _, err = SplitRange("A1:B2:C3")
	assert.True(t, IsMalformed(err), "second colon lands in the end reference")
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("A1"))
	assert.True(t, Valid("Z999"))
	assert.False(t, Valid("a1"))
	assert.False(t, Valid("AA1"))
	assert.False(t, Valid(""))
}
