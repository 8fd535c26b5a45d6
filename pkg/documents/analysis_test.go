package documents

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	assert.Equal(t, "short", Summarize("short", 500))

	content := strings.Repeat("a", 10) + strings.Repeat("m", 10) + strings.Repeat("z", 10)
	got := Summarize(content, 9)

	parts := strings.Split(got, truncationMarker)
	assert.Equal(t, []string{"aaa", "mmm", "zzz"}, parts)
}

func TestSummarize_DefaultLength(t *testing.T) {
	content := strings.Repeat("x", 600)
	got := Summarize(content, 0)
	assert.Len(t, strings.Split(got, truncationMarker), 3)
}

func TestKeywords(t *testing.T) {
	text := "Go is great. Go routines are great; channels are great too. The channels!"
	got := Keywords(text, 2)
	assert.Equal(t, []string{"great", "channels"}, got)

	assert.Empty(t, Keywords("the and of it", 10))
	assert.Equal(t, []string{"alpha", "beta"}, Keywords("alpha beta", 0))
}
