package hecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityString(t *testing.T) {
	e := Entity{id: 3, gen: 7}
	assert.Equal(t, "Entity(3:7)", e.String())
	assert.Equal(t, "Entity(dangling)", Dangling.String())
}

func TestEntityAccessors(t *testing.T) {
	e := Entity{id: 42, gen: 1}
	assert.Equal(t, uint32(42), e.ID())
	assert.Equal(t, uint32(1), e.Generation())
}

func TestDanglingNeverContained(t *testing.T) {
	fr := NewFrame()
	assert.False(t, fr.Contains(Dangling))
}
