package discovery

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "/p/**/*.c.{ts,js}", Normalize("/p/**/*.c.@(ts|js)"))
	assert.Equal(t, "/p/*.{yaml}", Normalize("/p/*.@(yaml)"))
	assert.Equal(t, "/p/*.{a,b}", Normalize("/p/*.{a,b}"))
}

func TestGlob_RecursiveFilesOnlyInStableOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.c.yaml"), "")
	writeFile(t, filepath.Join(dir, "a.c.yml"), "")
	writeFile(t, filepath.Join(dir, "nested", "deep", "c.c.json"), "")
	writeFile(t, filepath.Join(dir, "skip.c.txt"), "")
	writeFile(t, filepath.Join(dir, "dir.c.yaml", "inner.txt"), "")

	pattern := dir + "/**/*.c.@(yaml|yml|json)"
	first, err := Glob(pattern)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.c.yml"),
		filepath.Join(dir, "b.c.yaml"),
		filepath.Join(dir, "nested", "deep", "c.c.json"),
	}, first)

	second, err := Glob(pattern)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGlob_BadPattern(t *testing.T) {
	_, err := Glob("/p/[unclosed")
	assert.Error(t, err)
}

func TestMatchAndBase(t *testing.T) {
	pattern := "/proj/src/commands/**/*.c.@(yaml|json)"
	assert.True(t, Match(pattern, "/proj/src/commands/fun/roll.c.json"))
	assert.False(t, Match(pattern, "/proj/src/commands/fun/roll.e.json"))
	assert.Equal(t, "/proj/src/commands", Base(pattern))
}
