package downloadmgr

import (
	"context"
	"os"
	"strings"

	"github.com/golang/glog"

	"github.com/PilotDataPlatform/download/activity"
	"github.com/PilotDataPlatform/download/cmn"
	"github.com/PilotDataPlatform/download/jobstore"
	"github.com/PilotDataPlatform/download/objstore"
)

// Retrieve implements spec.md §4.9's retrieve operation: verify the token,
// resolve it to either a redirect URL or a local file, then record SUCCEED
// and publish the activity-log event using the item-identity fields
// readyPayloadExtras stashed in the record's payload at READY time (see
// DESIGN.md, "Activity publish timing").
func (m *Manager) Retrieve(ctx context.Context, tok string) (RetrieveResult, error) {
	p, err := m.deps.Tokens.Verify(tok)
	if err != nil {
		return RetrieveResult{}, err
	}

	var result RetrieveResult
	if strings.HasPrefix(p.FilePath, "http") {
		result = RetrieveResult{Redirect: true, URL: p.FilePath}
	} else {
		if _, err := os.Stat(p.FilePath); err != nil {
			return RetrieveResult{}, cmn.NewErrFileNotFound(p.FilePath)
		}
		result = RetrieveResult{LocalPath: p.FilePath}
	}

	rec, err := m.findRecord(p)
	if err != nil {
		return RetrieveResult{}, err
	}

	rec.Status = cmn.JobSucceed
	key := jobstore.Key(rec.SessionID, rec.JobID, rec.Action, rec.ContainerCode, rec.Operator, rec.Source)
	if err := m.deps.Jobs.Set(key, rec); err != nil {
		return RetrieveResult{}, err
	}
	m.counters.Succeeded.Inc()
	glog.Infof("download: job %s retrieved by %s", rec.JobID, rec.Operator)

	m.publishRetrieveActivity(rec, p.ContainerType)

	return result, nil
}

// RetrieveDatasetVersion implements spec.md §4.1's frozen-dataset-version
// download path: a token carrying `location` instead of `file_path`,
// resolved straight to a presigned URL with no JobStore involvement.
func (m *Manager) RetrieveDatasetVersion(ctx context.Context, tok string) (string, error) {
	p, err := m.deps.Tokens.VerifyDatasetVersion(tok)
	if err != nil {
		return "", err
	}
	bucket, objectPath, err := objstore.ParseLocation(p.Location)
	if err != nil {
		return "", err
	}
	return m.deps.PublicStore.PresignGET(ctx, bucket, objectPath)
}

// publishRetrieveActivity rebuilds the activity message from the persisted
// record payload, since the worker goroutine that had the original item
// identity is long gone by the time retrieve() runs. The record carries no
// container type, so containerType comes from the verified token.
func (m *Manager) publishRetrieveActivity(rec jobstore.Record, containerType string) {
	schema := m.cfg.ItemActivitySchema
	if containerType == cmn.ContainerDataset {
		schema = m.cfg.DatasetActivitySchema
	}

	multi, _ := rec.Payload["multi"].(bool)

	itemType := cmn.ItemFile
	itemName := ""
	itemParentPath := ""
	var itemID *string

	if multi {
		itemType = cmn.ItemFolder
		if v, ok := rec.Payload["item_name"].(string); ok {
			itemName = v
		}
	} else {
		if v, ok := rec.Payload["item_id"].(string); ok {
			id := v
			itemID = &id
		}
		if v, ok := rec.Payload["item_name"].(string); ok {
			itemName = v
		}
		if v, ok := rec.Payload["item_parent_path"].(string); ok {
			itemParentPath = v
		}
	}

	msg := activity.NewItemDownloadMessage(itemID, itemType, itemName, itemParentPath, rec.ContainerCode, containerType, payloadZone(rec.Payload), rec.Operator)
	_ = m.deps.Activity.Publish(schema, msg)
}

// payloadZone reads the zone field out of a record payload, tolerating both
// the float64 shape json.Unmarshal produces after a JobStore round-trip and
// a plain int for payloads built in-process.
func payloadZone(payload map[string]interface{}) int {
	switch v := payload["zone"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
