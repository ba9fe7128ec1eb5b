package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitWindows(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		size        int
		overlap     int
		wantTexts   []string
		wantOffsets []int
	}{
		{
			name:        "shorter than window",
			text:        "Article 5",
			size:        20,
			overlap:     5,
			wantTexts:   []string{"Article 5"},
			wantOffsets: []int{0},
		},
		{
			name:        "quarter overlap",
			text:        "abcdefghijkl",
			size:        8,
			overlap:     2,
			wantTexts:   []string{"abcdefgh", "ghijkl"},
			wantOffsets: []int{0, 6},
		},
		{
			name:        "exact multiple",
			text:        "abcdef",
			size:        4,
			overlap:     1,
			wantTexts:   []string{"abcd", "def"},
			wantOffsets: []int{0, 3},
		},
		{
			name:        "overlap larger than window falls back to no overlap",
			text:        "abcdef",
			size:        3,
			overlap:     5,
			wantTexts:   []string{"abc", "def"},
			wantOffsets: []int{0, 3},
		},
		{
			name:        "blank windows dropped",
			text:        "ab      ",
			size:        2,
			overlap:     0,
			wantTexts:   []string{"ab"},
			wantOffsets: []int{0},
		},
		{
			name: "empty text",
			text: "",
			size: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitWindows(tt.text, tt.size, tt.overlap)
			require.Len(t, got, len(tt.wantTexts))
			for i, w := range got {
				assert.Equal(t, tt.wantTexts[i], w.Text)
				assert.Equal(t, tt.wantOffsets[i], w.Offset)
			}
		})
	}
}

func TestSplitWindowsRuneSafe(t *testing.T) {
	text := strings.Repeat("€", 10)
	got := SplitWindows(text, 4, 1)
	require.NotEmpty(t, got)
	for _, w := range got {
		assert.LessOrEqual(t, len([]rune(w.Text)), 4)
		assert.Equal(t, string([]rune(text)[w.Offset:w.Offset+len([]rune(w.Text))]), w.Text)
	}
}
