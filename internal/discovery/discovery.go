// Package discovery pairs original documents with their modified copies.
package discovery

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/dannyswat/xmlmerge/internal/codec"
)

// VariantFile is one modified copy of a document.
type VariantFile struct {
	Name string // base name of the mod directory
	Path string
}

// FileSet groups everything known about one document file name.
type FileSet struct {
	Name     string
	Original string // empty when only mods carry the file
	Variants []VariantFile
}

// HasOriginal reports whether the original directory holds the file.
func (s FileSet) HasOriginal() bool {
	return s.Original != ""
}

// Scan lists supported documents in originalDir and each of modDirs.
// Missing directories contribute nothing. Sets are sorted by file name and
// variants keep the order of modDirs. Variants are named after the base name
// of their directory, so two mod directories with the same base name are an error.
func Scan(fsys afero.Fs, originalDir string, modDirs []string) ([]FileSet, error) {
	sets := make(map[string]*FileSet)
	get := func(name string) *FileSet {
		s, ok := sets[name]
		if !ok {
			s = &FileSet{Name: name}
			sets[name] = s
		}
		return s
	}

	originals, err := listDocuments(fsys, originalDir)
	if err != nil {
		return nil, err
	}
	for _, name := range originals {
		get(name).Original = filepath.Join(originalDir, name)
	}

	seen := make(map[string]string, len(modDirs))
	for _, dir := range modDirs {
		variant := filepath.Base(filepath.Clean(dir))
		if prev, ok := seen[variant]; ok {
			return nil, errors.Errorf("mod directories %s and %s share the variant name %q", prev, dir, variant)
		}
		seen[variant] = dir

		names, err := listDocuments(fsys, dir)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			s := get(name)
			s.Variants = append(s.Variants, VariantFile{Name: variant, Path: filepath.Join(dir, name)})
		}
	}

	out := make([]FileSet, 0, len(sets))
	for _, s := range sets {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func listDocuments(fsys afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read directory %s", dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !codec.Supported(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
