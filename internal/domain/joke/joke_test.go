package joke

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestList_Add(t *testing.T) {
	l, ok := List{}.Add("  knock knock ")
	assert.True(t, ok)
	assert.Equal(t, List{"knock knock"}, l)

	same, ok := l.Add("   ")
	assert.False(t, ok)
	assert.Equal(t, l, same)
}

func TestList_Random(t *testing.T) {
	_, ok := List{}.Random(nil)
	assert.False(t, ok)

	l := List{"a", "b", "c"}
	got, ok := l.Random(func(n int) int { return n - 1 })
	assert.True(t, ok)
	assert.Equal(t, "c", got)

	got, ok = l.Random(nil)
	assert.True(t, ok)
	assert.Contains(t, l, got)
}
