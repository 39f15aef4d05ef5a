package rpc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFragmentHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFragmentHeader(&buf, 1234))

	hdr, err := ReadFragmentHeader(&buf)
	require.NoError(t, err)
	assert.True(t, hdr.IsLast)
	assert.Equal(t, uint32(1234), hdr.Length)
}

func TestValidateFragmentSizeRejectsOversized(t *testing.T) {
	err := ValidateFragmentSize(MaxFragmentSize + 1)
	require.Error(t, err)
}

func TestReadRecordConcatenatesFragments(t *testing.T) {
	var buf bytes.Buffer
	// Two fragments, not-last then last.
	var raw [4]byte
	writeHeader := func(length uint32, last bool) {
		v := length
		if last {
			v |= lastFragmentBit
		}
		raw[0] = byte(v >> 24)
		raw[1] = byte(v >> 16)
		raw[2] = byte(v >> 8)
		raw[3] = byte(v)
		buf.Write(raw[:])
	}

	writeHeader(3, false)
	buf.Write([]byte("abc"))
	writeHeader(2, true)
	buf.Write([]byte("de"))

	record, err := ReadRecord(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcde"), record)
}
