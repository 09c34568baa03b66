package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueNames(t *testing.T) {
	got := UniqueNames([]string{" Tea", "Bread", "", "Tea ", "tea", "  ", "Soup"})
	assert.Equal(t, []string{"Tea", "Bread", "tea", "Soup"}, got)
	assert.Empty(t, UniqueNames(nil))
}

func TestValidName(t *testing.T) {
	assert.False(t, ValidName(""))
	assert.True(t, ValidName("Plov"))
	assert.True(t, ValidName(strings.Repeat("ш", MaxNameLength)), "limit counts runes, not bytes")
	assert.False(t, ValidName(strings.Repeat("a", MaxNameLength+1)))
}
