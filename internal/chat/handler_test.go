package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateShortTextUntouched(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello"))
	assert.Equal(t, "", Truncate(""))
}

func TestTruncateEnforcesCeiling(t *testing.T) {
	long := strings.Repeat("a", MaxMessageRunes+500)
	out := Truncate(long)

	assert.Len(t, []rune(out), MaxMessageRunes)
	assert.True(t, strings.HasSuffix(out, "[message truncated]"))
}

func TestTruncateCountsRunesNotBytes(t *testing.T) {
	long := strings.Repeat("é", MaxMessageRunes)
	assert.Equal(t, long, Truncate(long))

	over := long + "é"
	out := Truncate(over)
	assert.Len(t, []rune(out), MaxMessageRunes)
}
