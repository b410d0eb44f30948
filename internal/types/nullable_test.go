package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNullFloat(t *testing.T) {
	var unset NullFloat
	assert.False(t, unset.Positive())
	assert.Equal(t, 7.0, unset.Or(7))
	assert.Equal(t, "...", unset.Format("$%.2f", "..."))

	zero := Some(0)
	assert.False(t, zero.Positive())
	assert.Equal(t, "$0.00", zero.Format("$%.2f", "..."))

	price := Some(2650.456)
	assert.True(t, price.Positive())
	assert.Equal(t, "$2650.46", price.Format("$%.2f", "..."))
	assert.Equal(t, 2650.456, price.Or(0))
}
