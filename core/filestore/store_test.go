package filestore

import (
	"bytes"
	"io/ioutil"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/jmvidalr/corredora/core"
)

func newTestStore(t *testing.T) *Store {
	dir, err := ioutil.TempDir("", "filestore")
	if err != nil {
		t.Fatalf("TempDir(): %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	conf := &core.Config{}
	conf.Upload.Dir = dir
	conf.Upload.MaxImageSize = 1 << 10 // tiny limits for tests
	conf.Upload.MaxDocumentSize = 2 << 10

	store, err := NewStore(conf)
	if err != nil {
		t.Fatalf("NewStore(): %v", err)
	}
	return store
}

func TestStore_SaveDocument(t *testing.T) {
	store := newTestStore(t)

	relPath, err := store.SaveDocument(strings.NewReader("%PDF-1.4 lol"), SubdirHistoriales, "historial.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("SaveDocument(): %v", err)
	}
	if matched, _ := regexp.MatchString(`^historiales/\d+-[0-9a-f]{8}\.pdf$`, relPath); !matched {
		t.Errorf("SaveDocument() relPath = %q, want <subdir>/<epoch-millis>-<hex>.pdf", relPath)
	}
	if !store.Exists(relPath) {
		t.Errorf("Exists(%q) = false, want true", relPath)
	}

	f, err := store.Open(relPath)
	if err != nil {
		t.Fatalf("Open(): %v", err)
	}
	defer f.Close()
	content, _ := ioutil.ReadAll(f)
	if string(content) != "%PDF-1.4 lol" {
		t.Errorf("Open() content = %q", content)
	}
}

func TestStore_SaveDocument_wrongType(t *testing.T) {
	store := newTestStore(t)

	_, err := store.SaveDocument(strings.NewReader("hi"), SubdirHistoriales, "historial.exe", "application/octet-stream")
	if _, ok := err.(*core.ValidationError); !ok {
		t.Errorf("SaveDocument() error = %v, want *core.ValidationError", err)
	}
}

func TestStore_SaveImage_tooLarge(t *testing.T) {
	store := newTestStore(t)

	big := bytes.Repeat([]byte("a"), (1<<10)+1)
	_, err := store.SaveImage(bytes.NewReader(big), SubdirFirmas, "firma.png", "image/png")
	if _, ok := err.(*core.ValidationError); !ok {
		t.Errorf("SaveImage() error = %v, want *core.ValidationError", err)
	}
}

func TestStore_Exists_missing(t *testing.T) {
	store := newTestStore(t)

	if store.Exists("recibos/does-not-exist.pdf") {
		t.Error("Exists() = true for a missing file")
	}
	if store.Exists("") {
		t.Error("Exists() = true for an empty path")
	}
	if _, err := store.Open("recibos/does-not-exist.pdf"); err != ErrNotFound {
		t.Errorf("Open() error = %v, want ErrNotFound", err)
	}
}
