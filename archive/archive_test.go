package archive_test

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/PilotDataPlatform/download/archive"
	"github.com/PilotDataPlatform/download/cmn"
	"github.com/PilotDataPlatform/download/internal/tassert"
	"github.com/PilotDataPlatform/download/metadata"
)

type fakeStore struct {
	mu   sync.Mutex
	seen []string
}

func (f *fakeStore) Download(ctx context.Context, bucket, objectPath, localPath string) error {
	f.mu.Lock()
	f.seen = append(f.seen, bucket+"/"+objectPath)
	f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(localPath, []byte("content of "+objectPath), 0o644)
}

func (f *fakeStore) PresignGET(ctx context.Context, bucket, objectPath string) (string, error) {
	return "https://example/" + bucket + "/" + objectPath, nil
}

func mkItem(name, parentPath, locationURI string) metadata.Item {
	it := metadata.Item{Type: cmn.ItemFile, Name: name, ParentPath: parentPath}
	it.Storage.LocationURI = locationURI
	return it
}

func TestStageDownloadsEveryItem(t *testing.T) {
	store := &fakeStore{}
	b := archive.NewBuilder(store, 4, 2)

	items := []metadata.Item{
		mkItem("a.txt", "", "https://minio/gr-projA/a.txt"),
		mkItem("b.txt", "folder1", "https://minio/gr-projA/folder1/b.txt"),
	}

	dir := t.TempDir()
	staged, err := b.Stage(context.Background(), dir, items)
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, len(staged) == 2, "expected 2 staged files, got %d", len(staged))

	for _, sf := range staged {
		_, err := os.Stat(filepath.Join(dir, sf.LocalPath))
		tassert.CheckFatal(t, err)
	}
}

func TestStagePreservesParentPathAsDirTree(t *testing.T) {
	store := &fakeStore{}
	b := archive.NewBuilder(store, 4, 2)

	items := []metadata.Item{
		mkItem("c.txt", "folderA.folderB", "https://minio/gr-projA/folderA/folderB/c.txt"),
	}

	dir := t.TempDir()
	staged, err := b.Stage(context.Background(), dir, items)
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, len(staged) == 1, "expected 1 staged file")
	tassert.Errorf(t, staged[0].LocalPath == filepath.Join("folderA", "folderB", "c.txt"),
		"unexpected local path: %q", staged[0].LocalPath)
}

func TestZipProducesReadableArchive(t *testing.T) {
	store := &fakeStore{}
	b := archive.NewBuilder(store, 4, 2)

	dir := t.TempDir()
	tassert.CheckFatal(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	tassert.CheckFatal(t, os.WriteFile(filepath.Join(dir, "root.txt"), []byte("root"), 0o644))
	tassert.CheckFatal(t, os.WriteFile(filepath.Join(dir, "sub", "nested.txt"), []byte("nested"), 0o644))

	dest := filepath.Join(t.TempDir(), "out.zip")
	tassert.CheckFatal(t, b.Zip(context.Background(), dir, dest))

	r, err := zip.OpenReader(dest)
	tassert.CheckFatal(t, err)
	defer r.Close()

	names := map[string]bool{}
	for _, f := range r.File {
		names[f.Name] = true
	}
	tassert.Errorf(t, names["root.txt"], "expected root.txt in archive")
	tassert.Errorf(t, names["sub/nested.txt"], "expected sub/nested.txt in archive")
}

func TestZipContentMatches(t *testing.T) {
	store := &fakeStore{}
	b := archive.NewBuilder(store, 4, 2)

	dir := t.TempDir()
	tassert.CheckFatal(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("hello"), 0o644))

	dest := filepath.Join(t.TempDir(), "out.zip")
	tassert.CheckFatal(t, b.Zip(context.Background(), dir, dest))

	r, err := zip.OpenReader(dest)
	tassert.CheckFatal(t, err)
	defer r.Close()

	tassert.Fatalf(t, len(r.File) == 1, "expected 1 file in archive")
	rc, err := r.File[0].Open()
	tassert.CheckFatal(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	tassert.CheckFatal(t, err)
	tassert.Errorf(t, string(data) == "hello", "content mismatch: %q", string(data))
}
