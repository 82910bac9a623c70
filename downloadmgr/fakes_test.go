package downloadmgr

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/PilotDataPlatform/download/activity"
	"github.com/PilotDataPlatform/download/archive"
	"github.com/PilotDataPlatform/download/cmn"
	"github.com/PilotDataPlatform/download/internal/tassert"
	"github.com/PilotDataPlatform/download/jobstore"
	"github.com/PilotDataPlatform/download/metadata"
	"github.com/PilotDataPlatform/download/token"
)

const testSecret = "test-secret"

// testHarness bundles a Manager with the fakes backing it, so tests can
// assert against the fakes after driving the Manager's public operations.
type testHarness struct {
	mgr      *Manager
	jobs     *jobstore.Store
	locker   *fakeLocker
	activity *fakeActivity
	objects  *fakeObjectStore
	tokens   *token.Codec
}

func newTestHarness(t *testing.T, items map[string]metadata.Item, recursive map[string][]metadata.Item) *testHarness {
	t.Helper()

	jobs, err := jobstore.Open(":memory:")
	tassert.CheckFatal(t, err)
	t.Cleanup(func() { _ = jobs.Close() })

	locker := &fakeLocker{}
	act := &fakeActivity{}
	objects := &fakeObjectStore{presignURL: "https://example/presigned"}
	codec := token.NewCodec(testSecret, 1)

	deps := Deps{
		Metadata:       &fakeMetadata{items: items, recursive: recursive},
		Containers:     &fakeContainerClient{},
		InternalStore:  objects,
		PublicStore:    objects,
		Locks:          locker,
		Approval:       &fakeApproval{},
		Activity:       act,
		Jobs:           jobs,
		Builder:        fakeBuilder{},
		Tokens:         codec,
		DatasetSchemas: &fakeDatasetSchemas{},
	}
	cfg := Config{
		RootPath:              t.TempDir(),
		ItemActivitySchema:    activity.NewSchema(activity.ItemSchemaName, cmn.TopicItemActivity, ""),
		DatasetActivitySchema: activity.NewSchema(activity.DatasetSchemaName, cmn.TopicDatasetActivity, ""),
	}

	return &testHarness{
		mgr:      New(deps, cfg),
		jobs:     jobs,
		locker:   locker,
		activity: act,
		objects:  objects,
		tokens:   codec,
	}
}

// fakeMetadata is a stand-in for metadata.Client keyed on item id and
// recursive-listing parent path, for tests that don't need a real HTTP
// round trip.
type fakeMetadata struct {
	items     map[string]metadata.Item
	recursive map[string][]metadata.Item
}

func (f *fakeMetadata) GetByID(ctx context.Context, id string) (metadata.Item, error) {
	it, ok := f.items[id]
	if !ok {
		return metadata.Item{}, cmn.NewErrItemNotFound(id)
	}
	return it, nil
}

func (f *fakeMetadata) ListRecursive(ctx context.Context, containerCode, containerType, owner string, zone int, parentPath string) ([]metadata.Item, error) {
	return f.recursive[parentPath], nil
}

// fakeContainerClient is a stand-in for container.Client: Validate succeeds
// unless missing names the container code it should reject.
type fakeContainerClient struct {
	missing string
}

func (f *fakeContainerClient) Validate(ctx context.Context, containerCode, containerType string) error {
	if f.missing != "" && containerCode == f.missing {
		return cmn.NewErrContainerNotFound(containerCode)
	}
	return nil
}

// fakeObjectStore is a stand-in for objstore.ObjectStore: Download just
// writes placeholder bytes, PresignGET returns a fixed URL.
type fakeObjectStore struct {
	presignURL string

	mu         sync.Mutex
	downloaded []string
}

func (f *fakeObjectStore) Download(ctx context.Context, bucket, objectPath, localPath string) error {
	f.mu.Lock()
	f.downloaded = append(f.downloaded, bucket+"/"+objectPath)
	f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(localPath, []byte("data"), 0o644)
}

func (f *fakeObjectStore) PresignGET(ctx context.Context, bucket, objectPath string) (string, error) {
	return f.presignURL, nil
}

// fakeLocker is a stand-in for lockclient.Client.
type fakeLocker struct {
	acquireErr error

	mu       sync.Mutex
	acquired []string
	released bool
}

func (f *fakeLocker) Acquire(ctx context.Context, keys []string, mode cmn.LockMode) error {
	if f.acquireErr != nil {
		return f.acquireErr
	}
	f.mu.Lock()
	f.acquired = append(f.acquired, keys...)
	f.mu.Unlock()
	return nil
}

func (f *fakeLocker) Release(ctx context.Context, keys []string, mode cmn.LockMode) error {
	f.mu.Lock()
	f.released = true
	f.mu.Unlock()
	return nil
}

// fakeApproval is a stand-in for approval.Store.
type fakeApproval struct {
	allowed map[string]struct{}
}

func (f *fakeApproval) AllowedIDs(ctx context.Context, requestID string) (map[string]struct{}, error) {
	return f.allowed, nil
}

// fakeActivity is a stand-in for activity.Log, recording every published
// message for assertion.
type fakeActivity struct {
	mu        sync.Mutex
	published []activity.Message
}

func (f *fakeActivity) Publish(schema activity.Schema, msg activity.Message) error {
	f.mu.Lock()
	f.published = append(f.published, msg)
	f.mu.Unlock()
	return nil
}

// fakeBuilder is a stand-in for archive.Builder: Stage writes one file per
// item directly under tmpFolder, Zip writes a minimal valid zip archive.
type fakeBuilder struct{}

func (fakeBuilder) Stage(ctx context.Context, tmpFolder string, items []metadata.Item) ([]archive.StagedFile, error) {
	if err := os.MkdirAll(tmpFolder, 0o755); err != nil {
		return nil, err
	}
	staged := make([]archive.StagedFile, 0, len(items))
	for _, it := range items {
		local := filepath.Join(tmpFolder, it.Name)
		if err := os.WriteFile(local, []byte("data"), 0o644); err != nil {
			return nil, err
		}
		staged = append(staged, archive.StagedFile{Item: it, LocalPath: it.Name})
	}
	return staged, nil
}

func (fakeBuilder) Zip(ctx context.Context, tmpFolder, destZipPath string) error {
	f, err := os.Create(destZipPath)
	if err != nil {
		return err
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	if w, err := zw.Create("placeholder.txt"); err == nil {
		_, _ = w.Write([]byte("data"))
	}
	return zw.Close()
}

// fakeDatasetSchemas is a stand-in for a DatasetSchemaClient.
type fakeDatasetSchemas struct {
	docs []SchemaDoc
}

func (f *fakeDatasetSchemas) FetchSchemas(ctx context.Context, datasetCode, standard string) ([]SchemaDoc, error) {
	return f.docs, nil
}
