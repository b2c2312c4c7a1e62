package templates

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin_LoadsAllTemplates(t *testing.T) {
	store, err := Builtin()
	require.NoError(t, err)

	list := store.List()
	require.Len(t, list, 3)
	assert.Equal(t, "documentary", list[0].ID)
	assert.Equal(t, "educational", list[1].ID)
	assert.Equal(t, "storytelling", list[2].ID)

	doc, err := store.Get("documentary")
	require.NoError(t, err)
	assert.Equal(t, "Documentary", doc.Name)
	require.Len(t, doc.Sections, 3)
	assert.Equal(t, "Main Content", doc.Sections[1].Name)
}

func TestGet_Unknown(t *testing.T) {
	store, err := Builtin()
	require.NoError(t, err)

	_, err = store.Get("opera")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "opera", nf.ID)
}

func TestLoad_ExtraDirectory(t *testing.T) {
	dir := t.TempDir()
	doc := `id: podcast
name: Podcast
sections:
  - name: Opening
    min_words: 50
    max_words: 120
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "podcast.yaml"), []byte(doc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	store, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, store.List(), 4)

	byID := store.ByID()
	assert.Equal(t, "Podcast", byID["podcast"].Name)
}

func TestLoad_DuplicateID(t *testing.T) {
	dir := t.TempDir()
	doc := "id: documentary\nname: Copy\nsections:\n  - name: A\n    min_words: 1\n    max_words: 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dup.yml"), []byte(doc), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate template id documentary")
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"))
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
}

func TestParse_SchemaViolation(t *testing.T) {
	_, err := Parse("bad.yaml", []byte("id: Bad Id\nname: Bad\nsections: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match template schema")
}

func TestParse_MinGreaterThanMax(t *testing.T) {
	doc := "id: odd\nname: Odd\nsections:\n  - name: A\n    min_words: 20\n    max_words: 10\n"
	_, err := Parse("odd.yaml", []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_words greater than max_words")
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse("broken.yaml", []byte("id: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid YAML")
}
