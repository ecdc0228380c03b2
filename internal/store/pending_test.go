package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPendingMapPerID(t *testing.T) {
	p := NewPendingMap()

	p.Set(1, "approve")
	p.Set(2, "revoke")

	assert.True(t, p.IsPending(1))
	assert.Equal(t, "approve", p.Op(1))
	assert.Equal(t, "revoke", p.Op(2))
	assert.False(t, p.IsPending(3), "unrelated id must stay interactive")

	p.Clear(1)
	assert.False(t, p.IsPending(1))
	assert.True(t, p.IsPending(2), "clearing one id must not affect another")
	assert.Equal(t, 1, p.Len())

	p.Clear(99) // no entry, must not panic
}

func TestConfirmSingleArmedID(t *testing.T) {
	var c Confirm

	_, ok := c.Armed()
	assert.False(t, ok)

	c.Arm(1)
	assert.True(t, c.IsArmed(1))
	assert.False(t, c.IsArmed(2))

	// arming a second id displaces the first
	c.Arm(2)
	assert.False(t, c.IsArmed(1))
	assert.True(t, c.IsArmed(2))

	id, ok := c.Armed()
	assert.True(t, ok)
	assert.Equal(t, 2, id)

	c.Disarm()
	assert.False(t, c.IsArmed(2))
	_, ok = c.Armed()
	assert.False(t, ok)
}
