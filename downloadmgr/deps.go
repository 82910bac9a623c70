// Package downloadmgr implements the DownloadManager orchestrator of
// spec.md §4.9-4.10: the two archive-assembly pipelines (file/folder vs.
// whole dataset) and the background worker state machine, composed out of
// the leaf clients in the sibling packages. Grounded on original_source's
// app/commons/download_manager.py (_DownloadClient.zip_worker and
// add_schemas) and app/commons/download_manager/dataset_download_manager.py,
// reworked per spec §9 into composition over inheritance rather than a
// _DownloadClient base class with a dataset subclass: each Prepare* call
// enumerates its own files into an archiveJobContext, one worker routine
// (runWorker) assembles either kind, switching on the context's isDataset
// flag for schema embedding, and Retrieve picks the activity schema from the
// container type.
package downloadmgr

import (
	"context"

	"github.com/PilotDataPlatform/download/activity"
	"github.com/PilotDataPlatform/download/archive"
	"github.com/PilotDataPlatform/download/cmn"
	"github.com/PilotDataPlatform/download/jobstore"
	"github.com/PilotDataPlatform/download/metadata"
	"github.com/PilotDataPlatform/download/token"
)

// MetadataClient is the subset of metadata.Client the manager depends on.
type MetadataClient interface {
	GetByID(ctx context.Context, id string) (metadata.Item, error)
	ListRecursive(ctx context.Context, containerCode, containerType, owner string, zone int, parentPath string) ([]metadata.Item, error)
}

// ObjectStore is re-exported for convenience so callers constructing a
// Manager don't need to import objstore directly just for the interface.
type ObjectStore interface {
	Download(ctx context.Context, bucket, objectPath, localPath string) error
	PresignGET(ctx context.Context, bucket, objectPath string) (string, error)
}

// Locker is the subset of lockclient.Client the manager depends on.
type Locker interface {
	Acquire(ctx context.Context, keys []string, mode cmn.LockMode) error
	Release(ctx context.Context, keys []string, mode cmn.LockMode) error
}

// ApprovalClient is the subset of approval.Store the manager depends on.
type ApprovalClient interface {
	AllowedIDs(ctx context.Context, requestID string) (map[string]struct{}, error)
}

// ContainerClient confirms a project or dataset named in a request actually
// exists, per spec.md §4.9 step 1.
type ContainerClient interface {
	Validate(ctx context.Context, containerCode, containerType string) error
}

// ActivityPublisher is the subset of activity.Log the manager depends on.
type ActivityPublisher interface {
	Publish(schema activity.Schema, msg activity.Message) error
}

// JobRecorder is the subset of jobstore.Store the manager depends on.
type JobRecorder interface {
	Set(key string, rec jobstore.Record) error
	ScanPrefix(prefix string) ([]jobstore.Record, error)
}

// ArchiveBuilder is the subset of archive.Builder the manager depends on.
type ArchiveBuilder interface {
	Stage(ctx context.Context, tmpFolder string, items []metadata.Item) ([]archive.StagedFile, error)
	Zip(ctx context.Context, tmpFolder, destZipPath string) error
}

// TokenCodec is the subset of token.Codec the manager depends on.
type TokenCodec interface {
	Issue(p token.Payload) (string, error)
	Verify(tok string) (token.Payload, error)
	VerifyDatasetVersion(tok string) (token.DatasetVersionPayload, error)
}

// DatasetSchemaClient fetches a dataset's schema documents for a given
// standard (spec.md §4.10's "Dataset schema assembly").
type DatasetSchemaClient interface {
	FetchSchemas(ctx context.Context, datasetCode, standard string) ([]SchemaDoc, error)
}

// SchemaDoc is one named schema document returned by the dataset service.
type SchemaDoc struct {
	Name    string
	Content interface{}
}

// Deps bundles every collaborator the manager composes.
type Deps struct {
	Metadata       MetadataClient
	Containers     ContainerClient
	InternalStore  ObjectStore
	PublicStore    ObjectStore
	Locks          Locker
	Approval       ApprovalClient
	Activity       ActivityPublisher
	Jobs           JobRecorder
	Builder        ArchiveBuilder
	Tokens         TokenCodec
	DatasetSchemas DatasetSchemaClient
}

// Config carries the manager's own knobs (scratch layout, activity schemas).
type Config struct {
	RootPath              string
	ItemActivitySchema    activity.Schema
	DatasetActivitySchema activity.Schema
}

// Manager is the DownloadManager of spec.md §4.9.
type Manager struct {
	deps     Deps
	cfg      Config
	counters cmn.JobCounters
}

// New builds a Manager over deps and cfg.
func New(deps Deps, cfg Config) *Manager {
	return &Manager{deps: deps, cfg: cfg}
}

// Stats snapshots the job-lifecycle counters.
func (m *Manager) Stats() map[string]int64 {
	return m.counters.Snapshot()
}
