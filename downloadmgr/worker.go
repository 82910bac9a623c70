package downloadmgr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"

	"github.com/PilotDataPlatform/download/cmn"
	"github.com/PilotDataPlatform/download/jobstore"
	"github.com/PilotDataPlatform/download/lockclient"
	"github.com/PilotDataPlatform/download/metadata"
)

// runWorker executes the background state machine of spec.md §4.10:
// acquire locks -> fetch -> [dataset: write schemas] -> zip (if needed) ->
// READY, with locks released on every exit path and any failure moving the
// job to CANCELLED. The worker does not publish an activity-log event;
// Retrieve publishes it when the caller collects the result.
func (m *Manager) runWorker(jctx *archiveJobContext) {
	ctx := context.Background()
	glog.Infof("download worker: starting job %s (container %s/%s)", jctx.jobID, jctx.containerType, jctx.containerCode)

	lockKeys := buildLockKeys(jctx)
	mode := cmn.LockRead

	if err := m.deps.Locks.Acquire(ctx, lockKeys, mode); err != nil {
		m.cancel(jctx, err)
		return
	}
	defer func() { _ = m.deps.Locks.Release(ctx, lockKeys, mode) }()

	items := make([]metadata.Item, len(jctx.filesToZip))
	for i, f := range jctx.filesToZip {
		items[i] = metadata.Item{
			ID:            f.id,
			Type:          f.itemType,
			Name:          f.name,
			ParentPath:    f.parentPath,
			Zone:          f.zone,
			ContainerCode: f.containerCode,
			ContainerType: f.containerType,
		}
		items[i].Storage.LocationURI = f.locationURI
	}

	if _, err := m.deps.Builder.Stage(ctx, jctx.tmpFolder, items); err != nil {
		m.cancel(jctx, err)
		return
	}

	if jctx.isDataset {
		if err := m.writeDatasetSchemas(ctx, jctx); err != nil {
			m.cancel(jctx, err)
			return
		}
	}

	if jctx.folderDownload || len(jctx.filesToZip) > 1 {
		destZip := jctx.tmpFolder + ".zip"
		if err := m.deps.Builder.Zip(ctx, jctx.tmpFolder, destZip); err != nil {
			m.cancel(jctx, err)
			return
		}
	}

	if err := m.recordStatus(jctx, cmn.JobReadyForDownloading, readyPayloadExtras(jctx)); err != nil {
		m.cancel(jctx, err)
		return
	}
	m.counters.Ready.Inc()
	glog.Infof("download worker: job %s ready for download", jctx.jobID)
}

// readyPayloadExtras stashes the item-identity fields retrieve() needs to
// publish the activity-log event later, since the ephemeral
// archiveJobContext does not survive past this goroutine (spec.md §3:
// "Ownership... the JobStore owns the persisted progress record").
func readyPayloadExtras(jctx *archiveJobContext) map[string]interface{} {
	multi := jctx.folderDownload || len(jctx.filesToZip) > 1
	extras := map[string]interface{}{"multi": multi}

	if multi {
		extras["item_name"] = filepath.Base(jctx.resultFileName)
		return extras
	}
	if len(jctx.filesToZip) == 1 {
		f := jctx.filesToZip[0]
		extras["item_id"] = f.id
		extras["item_name"] = f.name
		extras["item_parent_path"] = f.parentPath
	}
	return extras
}

// cancel moves the job to CANCELLED with the stringified cause, per
// spec.md §4.10's failure policy. Recording failures are swallowed — there
// is no further terminal state to fall back to.
func (m *Manager) cancel(jctx *archiveJobContext, cause error) {
	glog.Errorf("download worker: job %s cancelled: %v", jctx.jobID, cause)
	m.counters.Cancelled.Inc()
	_ = m.recordStatus(jctx, cmn.JobCancelled, map[string]interface{}{"error_msg": cause.Error()})
}

func (m *Manager) recordStatus(jctx *archiveJobContext, status cmn.JobStatus, extra map[string]interface{}) error {
	payload := map[string]interface{}{}
	if len(jctx.filesToZip) > 0 {
		payload["zone"] = jctx.filesToZip[0].zone
	}
	for k, v := range extra {
		payload[k] = v
	}

	rec := jobstore.Record{
		SessionID:     jctx.sessionID,
		JobID:         jctx.jobID,
		Source:        jctx.resultFileName,
		Action:        cmn.ActionDataDownload,
		Status:        status,
		ContainerCode: jctx.containerCode,
		Operator:      jctx.operator,
		Payload:       payload,
	}
	key := jobstore.Key(jctx.sessionID, jctx.jobID, cmn.ActionDataDownload, jctx.containerCode, jctx.operator, jctx.resultFileName)
	return m.deps.Jobs.Set(key, rec)
}

// buildLockKeys builds one resource key per file, per spec.md §4.3.
func buildLockKeys(jctx *archiveJobContext) []string {
	keys := make([]string, 0, len(jctx.filesToZip))
	for _, f := range jctx.filesToZip {
		keys = append(keys, lockclient.BuildResourceKey(f.containerCode, f.containerType, f.zone, f.parentPath, f.name))
	}
	return keys
}

// writeDatasetSchemas fetches both schema standards and writes them under
// the job's scratch directory, per spec.md §4.10's "Dataset schema
// assembly". A missing schema set is not an error.
func (m *Manager) writeDatasetSchemas(ctx context.Context, jctx *archiveJobContext) error {
	if err := os.MkdirAll(filepath.Join(jctx.tmpFolder, "data"), 0o755); err != nil {
		return err
	}

	standards := []struct {
		standard string
		prefix   string
	}{
		{cmn.SchemaStandardDefault, "default"},
		{cmn.SchemaStandardOpenMINDS, "openMINDS"},
	}

	for _, s := range standards {
		docs, err := m.deps.DatasetSchemas.FetchSchemas(ctx, jctx.containerCode, s.standard)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			body, err := cmn.MarshalIndent(doc.Content, "", "    ")
			if err != nil {
				return err
			}
			path := filepath.Join(jctx.tmpFolder, fmt.Sprintf("%s_%s", s.prefix, doc.Name))
			if err := os.WriteFile(path, body, 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}
