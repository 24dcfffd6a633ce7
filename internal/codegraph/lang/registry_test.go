package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_ByExtension(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		path string
		tag  string
	}{
		{"main.go", "go"},
		{"script.py", "python"},
		{"app.js", "javascript"},
		{"app.tsx", "typescript"},
		{"Main.java", "java"},
		{"lib.rs", "rust"},
		{"model.rb", "ruby"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			tag, ok := r.Detect(tt.path, nil)
			require.True(t, ok)
			assert.Equal(t, tt.tag, tag)
		})
	}
}

func TestDetect_ByShebang(t *testing.T) {
	r := NewRegistry()
	tag, ok := r.Detect("build_script", []byte("#!/usr/bin/env python\nimport sys\n"))
	require.True(t, ok)
	assert.Equal(t, "python", tag)
}

func TestDetect_Unknown(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Detect("README.weird", []byte("some content"))
	assert.False(t, ok)
}

func TestDetect_Memoized(t *testing.T) {
	r := NewRegistry()

	tag1, ok1 := r.Detect("main.go", nil)
	tag2, ok2 := r.Detect("other.go", nil)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, tag1, tag2)
}

func TestPatternsFor_KnownLanguage(t *testing.T) {
	r := NewRegistry()
	patterns := r.PatternsFor("go")
	assert.False(t, patterns.Empty())
	assert.Contains(t, patterns.FunctionTypes, "function_declaration")
}

func TestPatternsFor_UnknownLanguage(t *testing.T) {
	r := NewRegistry()
	patterns := r.PatternsFor("cobol")
	assert.True(t, patterns.Empty())
}

func TestIsSupported(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.IsSupported("main.go"))
	assert.False(t, r.IsSupported("image.png"))
}

func TestExtensionsFor(t *testing.T) {
	r := NewRegistry()
	exts := r.ExtensionsFor("python")
	assert.Contains(t, exts, ".py")
}

func TestGrammarFor(t *testing.T) {
	r := NewRegistry()
	assert.NotNil(t, r.GrammarFor("go"))
	assert.Nil(t, r.GrammarFor("unknown"))
}

func TestIsStdlib(t *testing.T) {
	assert.True(t, IsStdlib("python", "os"))
	assert.False(t, IsStdlib("python", "requests"))
	assert.False(t, IsStdlib("unknown-language", "os"))
}
