package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeMarkdownV1(t *testing.T) {
	got, err := EscapeMarkdown("a_b *c* [d] `e`", MarkdownV1)
	require.NoError(t, err)
	assert.Equal(t, "a\\_b \\*c\\* \\[d] \\`e\\`", got)
	assert.Equal(t, "Teh Tarik", EscapeV1("Teh Tarik"))
}

func TestEscapeMarkdownV2(t *testing.T) {
	got, err := EscapeMarkdown("1.50 (x)!", MarkdownV2)
	require.NoError(t, err)
	assert.Equal(t, "1\\.50 \\(x\\)\\!", got)
}

func TestEscapeMarkdownUnsupported(t *testing.T) {
	_, err := EscapeMarkdown("x", 3)
	assert.Error(t, err)
}
