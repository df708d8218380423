package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ordinal/internal/reorder"
)

const sample = `
lists: about: {
	fixed: ["hero"]
}
lists: team: {
	numbering: "sparse"
	step:      100
	groups: ["leadership", "staff"]
}
lists: faq: numbering: "sparse"
`

func TestParse_Lists(t *testing.T) {
	cfg, err := Parse([]byte(sample), "lists.cue")
	require.NoError(t, err)

	assert.Equal(t, []string{"about", "faq", "team"}, cfg.Names())

	about := cfg.Lookup("about")
	assert.Equal(t, "about", about.Name)
	assert.True(t, about.Numbering.IsDense())
	assert.Empty(t, about.Groups)
	assert.True(t, about.IsFixed("hero"))
	assert.False(t, about.IsFixed("intro"))

	team := cfg.Lookup("team")
	assert.Equal(t, reorder.Sparse(100), team.Numbering)
	assert.Equal(t, []string{"leadership", "staff"}, team.Groups)

	faq := cfg.Lookup("faq")
	assert.Equal(t, reorder.Sparse(DefaultSparseStep), faq.Numbering)
}

func TestLookup_UndeclaredFallsBack(t *testing.T) {
	cfg, err := Parse([]byte(sample), "lists.cue")
	require.NoError(t, err)

	l := cfg.Lookup("news")
	assert.Equal(t, "news", l.Name)
	assert.True(t, l.Numbering.IsDense())
	assert.Empty(t, l.Groups)
	assert.False(t, cfg.Declared("news"))
	assert.True(t, cfg.Declared("team"))

	var nilCfg *Config
	assert.Equal(t, "x", nilCfg.Lookup("x").Name)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse([]byte(""), "empty.cue")
	require.NoError(t, err)
	assert.Empty(t, cfg.Names())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax error", `lists: {`},
		{"unknown numbering", `lists: a: numbering: "random"`},
		{"unknown field", `lists: a: numberng: "dense"`},
		{"negative step", `lists: a: { numbering: "sparse", step: -1 }`},
		{"groups not strings", `lists: a: groups: [1, 2]`},
		{"step on dense list", `lists: a: step: 5`},
		{"duplicate group", `lists: a: groups: ["x", "x"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.cue")
			require.Error(t, err)

			var cerr *Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, ErrCodeInvalid, cerr.Code)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lists.cue")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Names(), 3)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrCodeNotFound, cerr.Code)
}
