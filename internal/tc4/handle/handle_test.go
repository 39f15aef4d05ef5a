package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleEqual(t *testing.T) {
	a := NewHandle([]byte{1, 2, 3})
	b := NewHandle([]byte{1, 2, 3})
	c := NewHandle([]byte{1, 2, 4})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestHandleIsZero(t *testing.T) {
	var h Handle
	assert.True(t, h.IsZero())
	assert.False(t, NewHandle([]byte{1}).IsZero())
}

func TestHandleBytesAreCopied(t *testing.T) {
	raw := []byte{1, 2, 3}
	h := NewHandle(raw)
	raw[0] = 99
	assert.Equal(t, byte(1), h.Bytes()[0])
}

func TestStateidNoStateSentinel(t *testing.T) {
	assert.True(t, NoStateSentinel.IsNoState())

	var zero Stateid
	assert.False(t, zero.IsNoState())
}
