package stamps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabel(t *testing.T) {
	assert.Equal(t, "🙏", Label("pray"))
	assert.Equal(t, "おつかれ", Label("otsu"))
	assert.Equal(t, "mystery", Label("mystery"))
	assert.True(t, IsBuiltin("growth"))
	assert.False(t, IsBuiltin("zange"))
	for _, k := range Builtin {
		assert.True(t, IsBuiltin(k), k)
	}
}

func TestReactionNotice(t *testing.T) {
	assert.Equal(t, "Bob さんがあなたの投稿に 🙏", ReactionNotice("Bob", "pray"))
	assert.Equal(t, "Bob さんがあなたの投稿にスタンプ（わかる）", ReactionNotice("Bob", "wakaru"))
}
