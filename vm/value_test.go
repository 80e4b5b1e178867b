package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFalseyOnlyNullAndFalse(t *testing.T) {
	assert.True(t, Null().IsFalsey())
	assert.True(t, Bool(false).IsFalsey())
	assert.False(t, Bool(true).IsFalsey())
	assert.False(t, Real(0).IsFalsey())
	assert.False(t, Real(-1).IsFalsey())
}

func TestCoerceReal(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  float64
		ok    bool
	}{
		{"bool true", Bool(true), 1, true},
		{"bool false", Bool(false), 0, true},
		{"real passthrough", Real(3.5), 3.5, true},
		{"null rejected", Null(), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := coerceReal(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestValueEqual(t *testing.T) {
	assert.True(t, Real(1).Equal(Real(1)))
	assert.False(t, Real(1).Equal(Real(2)))
	assert.True(t, Null().Equal(Null()))
	assert.False(t, Bool(true).Equal(Real(1)))
}

func TestFxHashIsDeterministicAndByteSensitive(t *testing.T) {
	assert.Equal(t, fxHash([]byte("hello")), fxHash([]byte("hello")))
	assert.NotEqual(t, fxHash([]byte("hello")), fxHash([]byte("world")))
}
