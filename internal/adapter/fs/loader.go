package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"speechqa/internal/domain"
)

var (
	ErrSourceNotFound  = errors.New("source document not found")
	ErrAmbiguousSource = errors.New("source pattern matches more than one file")
)

// Loader reads a single plain-text source document.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

// Load returns the full, untransformed text of the file at path. The path may be
// a doublestar glob, in which case it must match exactly one file.
func (l *Loader) Load(path string) (domain.Document, error) {
	resolved, err := resolve(path)
	if err != nil {
		return domain.Document{}, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Document{}, fmt.Errorf("%w: %s: %w", ErrSourceNotFound, resolved, err)
		}
		return domain.Document{}, fmt.Errorf("failed to stat source: %w", err)
	}
	if info.IsDir() {
		return domain.Document{}, fmt.Errorf("source is a directory: %s", resolved)
	}

	content, err := ReadFile(resolved)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to read source: %w", err)
	}

	abs, err := filepath.Abs(resolved)
	if err != nil {
		return domain.Document{}, err
	}

	return domain.Document{
		ID:          DocumentID(abs),
		Path:        abs,
		Content:     content,
		ContentHash: ContentHash(content),
		ModTime:     info.ModTime(),
	}, nil
}

func resolve(path string) (string, error) {
	if !hasMeta(path) {
		return path, nil
	}

	all, err := doublestar.FilepathGlob(path)
	if err != nil {
		return "", fmt.Errorf("invalid source pattern %q: %w", path, err)
	}

	var matches []string
	for _, m := range all {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			matches = append(matches, m)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: no file matches %s", ErrSourceNotFound, path)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %d files", ErrAmbiguousSource, path, len(matches))
	}
}

func hasMeta(path string) bool {
	for _, r := range path {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// DocumentID derives a stable identifier for the document at an absolute path.
func DocumentID(absPath string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+absPath)).String()
}

// ContentHash returns the hex SHA-256 of the document text.
func ContentHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
