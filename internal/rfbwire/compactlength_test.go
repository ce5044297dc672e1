package rfbwire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCompactLengthRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.IntRange(0, MaxCompactLength).Draw(t, "v")

		var buf bytes.Buffer
		require.NoError(t, WriteCompactLength(&buf, v))
		require.LessOrEqual(t, buf.Len(), 3)

		got, err := ReadCompactLengthFrom(&buf)
		require.NoError(t, err)
		require.Equal(t, v, got)
	})
}

func TestCompactLengthEncodedSizes(t *testing.T) {
	cases := []struct {
		v    int
		size int
	}{
		{0, 1},
		{0x7f, 1},
		{0x80, 2},
		{0x3fff, 2},
		{0x4000, 3},
		{MaxCompactLength, 3},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		require.NoError(t, WriteCompactLength(&buf, c.v))
		assert.Equal(t, c.size, buf.Len(), "value %#x", c.v)
	}
}

func TestCompactLengthRejectsTooLargeValues(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCompactLength(&buf, MaxCompactLength+1)
	require.ErrorIs(t, err, ErrCompactLengthTooLarge)
	assert.Contains(t, err.Error(), "number too large")
	assert.Zero(t, buf.Len())
}
