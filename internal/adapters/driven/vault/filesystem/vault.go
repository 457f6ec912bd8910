package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Extension is the file extension of indexable documents.
const Extension = ".md"

// Ensure Vault implements the interface.
var _ driven.Vault = (*Vault)(nil)

// Vault is a driven.Vault over a directory on the local filesystem.
type Vault struct {
	root    string
	exclude []string
}

// New creates a vault rooted at root. Exclude patterns are doublestar globs
// matched against vault-relative paths, e.g. "archive/**" or "**/draft-*.md".
func New(root string, exclude []string) (*Vault, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: vault path is required", domain.ErrInvalidConfig)
	}
	for _, pattern := range exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: invalid exclude pattern %q", domain.ErrInvalidConfig, pattern)
		}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving vault path: %w", err)
	}
	return &Vault{root: abs, exclude: append([]string(nil), exclude...)}, nil
}

// Root returns the absolute vault directory.
func (v *Vault) Root() string {
	return v.root
}

// List walks the vault and returns every markdown document, in lexical order.
func (v *Vault) List(ctx context.Context) ([]string, error) {
	paths := []string{}
	err := filepath.WalkDir(v.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == v.root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if p != v.root && isHidden(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := v.relative(p)
		if err != nil {
			return err
		}
		if v.Indexable(rel) {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing vault: %w", err)
	}
	return paths, nil
}

// Read returns the document at the vault-relative path.
func (v *Vault) Read(_ context.Context, rel string) (domain.Document, bool, error) {
	abs, err := v.resolve(rel)
	if err != nil {
		return domain.Document{}, false, err
	}

	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Document{}, false, nil
	}
	if err != nil {
		return domain.Document{}, false, fmt.Errorf("reading %s: %w", rel, err)
	}
	if info.IsDir() {
		return domain.Document{}, false, nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return domain.Document{}, false, fmt.Errorf("reading %s: %w", rel, err)
	}
	return domain.Document{
		Path:    path.Clean(filepath.ToSlash(rel)),
		Content: string(content),
		ModTime: info.ModTime(),
	}, true, nil
}

// Append adds text to the end of the document, creating it with header first
// when it does not exist yet.
func (v *Vault) Append(_ context.Context, rel, header, text string) error {
	abs, err := v.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", rel, err)
	}

	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", rel, err)
	}
	if err := appendText(f, header, text); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", rel, err)
	}
	return nil
}

// appendText writes text to f, prefixed by header when f is empty.
func appendText(f *os.File, header, text string) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		text = header + text
	}
	_, err = f.WriteString(text)
	return err
}

// Indexable reports whether a vault-relative path names a document that List
// would return.
func (v *Vault) Indexable(rel string) bool {
	if !strings.HasSuffix(rel, Extension) {
		return false
	}
	dir := path.Dir(rel)
	for _, part := range strings.Split(dir, "/") {
		if part != "." && isHidden(part) {
			return false
		}
	}
	return !v.excluded(rel)
}

func (v *Vault) excluded(rel string) bool {
	for _, pattern := range v.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// relative converts an absolute path under the root to a vault-relative one.
func (v *Vault) relative(abs string) (string, error) {
	rel, err := filepath.Rel(v.root, abs)
	if err != nil {
		return "", fmt.Errorf("relativising %s: %w", abs, err)
	}
	return filepath.ToSlash(rel), nil
}

// resolve maps a vault-relative path to an absolute one inside the root.
func (v *Vault) resolve(rel string) (string, error) {
	clean := path.Clean(filepath.ToSlash(rel))
	if rel == "" || clean == "." || path.IsAbs(clean) || filepath.IsAbs(rel) ||
		clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: path %q is outside the vault", domain.ErrInvalidInput, rel)
	}
	return filepath.Join(v.root, filepath.FromSlash(clean)), nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
