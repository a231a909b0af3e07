package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPassword(hash, "correct horse battery staple"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestSanitizeStripsScript(t *testing.T) {
	out := Sanitize(`hello <script>alert(1)</script>world`)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "hello")
}
