// Package loader reads documents from the filesystem.
package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperjump/kotaeru/internal/extract"
	"github.com/hyperjump/kotaeru/internal/models"
	"go.uber.org/zap"
)

const docIDPrefix = "doc:"

// DefaultPatterns matches the file types the extractor understands.
var DefaultPatterns = []string{"*.txt", "*.md", "*.rst", "*.pdf", "*.docx", "*.xlsx"}

// DocID returns a stable document ID for the given path.
// Same path always yields the same ID, so re-loading a file replaces
// its previous documents instead of duplicating them.
func DocID(path string) string {
	normalized := filepath.Clean(path)
	hash := sha256.Sum256([]byte(normalized))
	return docIDPrefix + hex.EncodeToString(hash[:])
}

// Loader produces documents from some source.
type Loader interface {
	Load() ([]models.Document, error)
}

// Multi concatenates the output of several loaders.
type Multi []Loader

// Load runs every loader in order. Any loader error aborts the load;
// skipping policies live inside the individual loaders.
func (m Multi) Load() ([]models.Document, error) {
	var docs []models.Document
	for _, l := range m {
		loaded, err := l.Load()
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}

// File loads a single file as one document.
type File struct {
	path      string
	extractor *extract.Extractor
}

// NewFile returns a loader for the file at path.
func NewFile(path string) *File {
	return &File{path: path, extractor: extract.NewExtractor()}
}

// Load reads the file and returns a single document with source and
// file_name metadata.
func (l *File) Load() ([]models.Document, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", l.path)
	}
	text, err := l.extractor.Extract(l.path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", l.path, err)
	}
	doc := models.NewDocument(text, map[string]interface{}{
		models.MetaSource:   l.path,
		models.MetaFileName: filepath.Base(l.path),
	})
	doc.ID = DocID(l.path)
	return []models.Document{doc}, nil
}

// Directory loads every matching file under a root directory.
type Directory struct {
	root     string
	patterns []string
	logger   *zap.Logger
}

// DirectoryOption configures a Directory loader.
type DirectoryOption func(*Directory)

// WithPatterns sets the glob patterns matched against file base names.
func WithPatterns(patterns []string) DirectoryOption {
	return func(l *Directory) {
		if len(patterns) > 0 {
			l.patterns = patterns
		}
	}
}

// WithLogger sets a logger for skipped-file warnings.
func WithLogger(logger *zap.Logger) DirectoryOption {
	return func(l *Directory) { l.logger = logger }
}

// NewDirectory returns a loader that walks root recursively and loads
// every regular file whose base name matches one of the patterns.
func NewDirectory(root string, opts ...DirectoryOption) *Directory {
	l := &Directory{
		root:     root,
		patterns: DefaultPatterns,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load walks the tree and returns one document per readable matching
// file. A file that cannot be read or extracted is logged and skipped;
// it never aborts the walk.
func (l *Directory) Load() ([]models.Document, error) {
	absRoot, err := filepath.Abs(l.root)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absRoot)
	}

	var docs []models.Document
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			l.logger.Warn("skipping unreadable entry", zap.String("path", path), zap.Error(walkErr))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !l.matches(filepath.Base(path)) {
			return nil
		}
		// Resolve symlinks so we only load regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		loaded, loadErr := NewFile(path).Load()
		if loadErr != nil {
			l.logger.Warn("skipping unloadable file", zap.String("path", path), zap.Error(loadErr))
			return nil
		}
		docs = append(docs, loaded...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", absRoot, err)
	}
	return docs, nil
}

func (l *Directory) matches(name string) bool {
	for _, pattern := range l.patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
