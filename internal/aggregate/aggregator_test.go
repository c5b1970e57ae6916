package aggregate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-transcriber/internal/domain"
)

func TestAggregator_ThreePages(t *testing.T) {
	a := New()
	for k := 1; k <= 3; k++ {
		require.NoError(t, a.Add(k, fmt.Sprintf("TEXT%d", k)))
	}

	assert.Equal(t, 3, a.Pages())
	assert.Equal(t,
		"\n\n--- Page 1 ---\nTEXT1\n\n--- Page 2 ---\nTEXT2\n\n--- Page 3 ---\nTEXT3",
		a.String())
}

func TestAggregator_DelimitersAscending(t *testing.T) {
	a := New()
	const n = 12
	for k := 1; k <= n; k++ {
		require.NoError(t, a.Add(k, "body"))
	}

	matches := regexp.MustCompile(`--- Page (\d+) ---`).FindAllStringSubmatch(a.String(), -1)
	require.Len(t, matches, n)
	for i, m := range matches {
		assert.Equal(t, fmt.Sprint(i+1), m[1])
	}
}

func TestAggregator_RejectsOutOfOrder(t *testing.T) {
	tests := []struct {
		name  string
		pages []int
	}{
		{name: "starts at two", pages: []int{2}},
		{name: "gap", pages: []int{1, 3}},
		{name: "repeat", pages: []int{1, 1}},
		{name: "descending", pages: []int{1, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New()
			var err error
			for _, p := range tt.pages {
				if err = a.Add(p, "x"); err != nil {
					break
				}
			}
			require.Error(t, err)
			assert.True(t, domain.IsType(err, domain.ErrorTypeExtraction))
		})
	}
}

func TestAggregator_EmptyPageText(t *testing.T) {
	a := New()
	require.NoError(t, a.Add(1, ""))
	assert.Equal(t, "\n\n--- Page 1 ---\n", a.String())
}

func TestAggregator_WriteFileOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gemini_output.txt")
	require.NoError(t, os.WriteFile(path, []byte("previous run content that is much longer than the new one"), 0o644))

	a := New()
	require.NoError(t, a.Add(1, "fresh"))
	require.NoError(t, a.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\n\n--- Page 1 ---\nfresh", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files should remain")
}

func TestAggregator_WriteFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.txt")

	a := New()
	require.NoError(t, a.Add(1, "x"))
	require.NoError(t, a.WriteFile(path))
	assert.FileExists(t, path)
}

func TestAggregator_WriteFileFailure(t *testing.T) {
	dir := t.TempDir()
	// The output path is an existing directory, so the rename fails
	path := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "keep"), []byte("k"), 0o644))

	a := New()
	require.NoError(t, a.Add(1, "x"))
	err := a.WriteFile(path)

	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeIO))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be cleaned up")
}
