package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func newTestVault(t *testing.T, exclude ...string) (*Vault, string) {
	t.Helper()
	root := t.TempDir()
	v, err := New(root, exclude)
	require.NoError(t, err)
	return v, root
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = New(t.TempDir(), []string{"archive/[unclosed"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestVault_List(t *testing.T) {
	v, root := newTestVault(t)

	writeFile(t, root, "recipes/pasta.md", "# Pasta")
	writeFile(t, root, "memories/2026-02-12.md", "# Memories")
	writeFile(t, root, "top.md", "top")
	writeFile(t, root, "notes.txt", "not markdown")
	writeFile(t, root, ".obsidian/workspace.md", "hidden dir")
	writeFile(t, root, "recipes/.trash/old.md", "nested hidden dir")

	paths, err := v.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"memories/2026-02-12.md",
		"recipes/pasta.md",
		"top.md",
	}, paths)
}

func TestVault_List_MissingRoot(t *testing.T) {
	v, err := New(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	require.NoError(t, err)

	paths, err := v.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestVault_List_Exclude(t *testing.T) {
	v, root := newTestVault(t, "archive/**", "**/draft-*.md")

	writeFile(t, root, "archive/2020/old.md", "old")
	writeFile(t, root, "notes/draft-idea.md", "draft")
	writeFile(t, root, "notes/idea.md", "idea")

	paths, err := v.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"notes/idea.md"}, paths)
}

func TestVault_Read(t *testing.T) {
	v, root := newTestVault(t)
	writeFile(t, root, "recipes/pasta.md", "## Pasta\n\nTomatoes.")

	doc, ok, err := v.Read(context.Background(), "recipes/pasta.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "recipes/pasta.md", doc.Path)
	assert.Equal(t, "## Pasta\n\nTomatoes.", doc.Content)
	assert.False(t, doc.ModTime.IsZero())

	_, ok, err = v.Read(context.Background(), "missing.md")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = v.Read(context.Background(), "recipes")
	require.NoError(t, err)
	assert.False(t, ok, "directories are not documents")
}

func TestVault_RejectsEscapingPaths(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	for _, p := range []string{"../outside.md", "a/../../outside.md", "/etc/passwd", "", "."} {
		_, _, err := v.Read(ctx, p)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, p)

		err = v.Append(ctx, p, "# h\n", "x")
		assert.ErrorIs(t, err, domain.ErrInvalidInput, p)
	}
}

func TestVault_Append(t *testing.T) {
	v, root := newTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.Append(ctx, "memories/2026-02-12.md", "# Memories — 2026-02-12\n", "\n## 09:00:00\n\nfirst\n"))
	require.NoError(t, v.Append(ctx, "memories/2026-02-12.md", "# Memories — 2026-02-12\n", "\n## 10:00:00\n\nsecond\n"))

	content, err := os.ReadFile(filepath.Join(root, "memories", "2026-02-12.md"))
	require.NoError(t, err)
	assert.Equal(t,
		"# Memories — 2026-02-12\n\n## 09:00:00\n\nfirst\n\n## 10:00:00\n\nsecond\n",
		string(content))
}

func TestVault_Append_Errors(t *testing.T) {
	v, root := newTestVault(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "memories", "dir.md"), 0755))
	err := v.Append(ctx, "memories/dir.md", "# h\n", "text\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memories/dir.md")

	writeFile(t, root, "notes/read-only.md", "")
	f, err := os.Open(filepath.Join(root, "notes", "read-only.md"))
	require.NoError(t, err)
	defer f.Close()
	assert.Error(t, appendText(f, "# h\n", "text\n"))
}

func TestVault_Indexable(t *testing.T) {
	v, _ := newTestVault(t, "private/**")

	tests := []struct {
		path string
		want bool
	}{
		{"a.md", true},
		{"deep/nested/a.md", true},
		{"a.txt", false},
		{".hidden/a.md", false},
		{"x/.git/a.md", false},
		{"private/secret.md", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Indexable(tt.path))
		})
	}
}
