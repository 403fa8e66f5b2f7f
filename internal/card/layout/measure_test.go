package layout

import (
	"testing"
	"unicode/utf8"

	"card-studio/internal/card/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runeWidth(s string) float64 { return float64(utf8.RuneCountInString(s)) }

func TestWrapLines(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width float64
		want  []string
	}{
		{name: "no width", text: "hello world", width: 0, want: []string{"hello world"}},
		{name: "fits", text: "hello", width: 10, want: []string{"hello"}},
		{name: "breaks and drops leading space", text: "hello world", width: 6, want: []string{"hello", "world"}},
		{name: "explicit newline", text: "ab\ncd", width: 10, want: []string{"ab", "cd"}},
		{name: "cyrillic graphemes", text: "Улаанбаатар", width: 5, want: []string{"Улаан", "баата", "р"}},
		{name: "empty", text: "", width: 10, want: []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wrapLines(tt.text, tt.width, runeWidth))
		})
	}
}

func TestWrapLines_KeepsCombiningMarks(t *testing.T) {
	// "е" + U+0308: одна графема из двух рун.
	lines := wrapLines("ае\u0308б", 2, runeWidth)
	assert.Equal(t, []string{"а", "е\u0308", "б"}, lines)
}

func TestBlockHeight(t *testing.T) {
	assert.Equal(t, 10.0, blockHeight(10, 1))
	assert.InDelta(t, 21.6, blockHeight(10, 2), 1e-9)
	assert.Equal(t, 10.0, blockHeight(10, 0))
}

func TestFontMeasurer(t *testing.T) {
	m, err := NewFontMeasurer("")
	require.NoError(t, err)

	style := models.TextStyle{FontSize: 18, FontFamily: "Times New Roman", FontWeight: "bold", Width: 200}

	one := m.Measure("Бат", style)
	require.Len(t, one.Lines, 1)
	assert.Greater(t, one.Height, 0.0)
	assert.Greater(t, one.Width, 0.0)
	assert.LessOrEqual(t, one.Width, 200.0)

	long := m.Measure("Бат-Эрдэнэ Болдбаатар Ганзоригийн Төмөрбаатар", style)
	assert.Greater(t, len(long.Lines), 1)
	assert.InDelta(t, one.Height*(1+float64(len(long.Lines)-1)*LineHeight), long.Height, 1e-6)
	assert.LessOrEqual(t, long.Width, 200.0)

	again := m.Measure("Бат", style)
	assert.Equal(t, one, again)
}

func TestFontMeasurer_BoldIsWider(t *testing.T) {
	m, err := NewFontMeasurer("")
	require.NoError(t, err)

	regular := m.Measure("Contact", models.TextStyle{FontSize: 16})
	bold := m.Measure("Contact", models.TextStyle{FontSize: 16, FontWeight: "bold"})
	assert.Greater(t, bold.Width, regular.Width)
}

func TestFontMeasurer_MissingDir(t *testing.T) {
	m, err := NewFontMeasurer(t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, m)
}
