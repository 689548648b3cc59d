package filestore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jmvidalr/corredora/core"
)

// Subfolders, one per document category.
const (
	SubdirHistoriales = "historiales"
	SubdirFirmas      = "firmas"
	SubdirRecibos     = "recibos"
	SubdirFotos       = "fotos"
)

var (
	// errors
	ErrNotFound = errors.New("file not found")

	errFileTooLarge    = errors.New("file is too large")
	errInvalidFileType = errors.New("file type is not allowed")
)

// Store persists uploaded binaries on local disk under collision-resistant
// names and serves them back by their stored relative path.
type Store struct {
	root            string
	maxImageSize    int64
	maxDocumentSize int64
}

func NewStore(conf *core.Config) (*Store, error) {
	if err := os.MkdirAll(conf.Upload.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &Store{
		root:            conf.Upload.Dir,
		maxImageSize:    conf.Upload.MaxImageSize,
		maxDocumentSize: conf.Upload.MaxDocumentSize,
	}, nil
}

// SaveDocument stores a PDF document (max 10MB by default) and returns its
// relative path.
func (s *Store) SaveDocument(r io.Reader, subdir, filename, contentType string) (string, error) {
	if contentType != "application/pdf" {
		return "", core.NewValidationError(errInvalidFileType, core.FieldError{Field: filename, Error: errInvalidFileType.Error()})
	}
	return s.save(r, subdir, filename, s.maxDocumentSize)
}

// SaveImage stores an image (max 5MB by default) and returns its relative path.
func (s *Store) SaveImage(r io.Reader, subdir, filename, contentType string) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", core.NewValidationError(errInvalidFileType, core.FieldError{Field: filename, Error: errInvalidFileType.Error()})
	}
	return s.save(r, subdir, filename, s.maxImageSize)
}

func (s *Store) save(r io.Reader, subdir, filename string, maxSize int64) (string, error) {
	dir := filepath.Join(s.root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating subdir")
	}

	relPath := filepath.Join(subdir, uniqueName(filename))
	f, err := os.Create(filepath.Join(s.root, relPath))
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	defer func() { _ = f.Close() }()

	// read one byte past the limit to detect oversize uploads
	n, err := io.Copy(f, io.LimitReader(r, maxSize+1))
	if err != nil {
		_ = os.Remove(filepath.Join(s.root, relPath))
		return "", errors.Wrap(err, "writing file")
	}
	if n > maxSize {
		_ = os.Remove(filepath.Join(s.root, relPath))
		return "", core.NewValidationError(errFileTooLarge, core.FieldError{Field: filename, Error: errFileTooLarge.Error()})
	}
	return relPath, nil
}

// Open returns the stored file for streaming; ErrNotFound if it is gone.
func (s *Store) Open(relPath string) (*os.File, error) {
	f, err := os.Open(filepath.Join(s.root, relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "opening file")
	}
	return f, nil
}

// Exists reports whether the stored path is still present on disk.
func (s *Store) Exists(relPath string) bool {
	if relPath == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(s.root, relPath))
	return err == nil
}

// uniqueName generates a content-free, collision-resistant filename:
// <epoch-millis>-<random-hex><ext>.
func uniqueName(filename string) string {
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano()/int64(time.Millisecond), hex.EncodeToString(suffix), ext)
}
