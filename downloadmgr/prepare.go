package downloadmgr

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/PilotDataPlatform/download/cmn"
	"github.com/PilotDataPlatform/download/jobstore"
	"github.com/PilotDataPlatform/download/metadata"
	"github.com/PilotDataPlatform/download/objstore"
	"github.com/PilotDataPlatform/download/token"
)

// PrepareFileOrFolder implements spec.md §4.9's file/folder preparation flow.
func (m *Manager) PrepareFileOrFolder(ctx context.Context, req PrepareFileOrFolderRequest) (PrepareResult, error) {
	if err := m.deps.Containers.Validate(ctx, req.ContainerCode, req.ContainerType); err != nil {
		return PrepareResult{}, err
	}

	var allowed map[string]struct{}
	if req.ApprovalRequestID != "" {
		var err error
		allowed, err = m.deps.Approval.AllowedIDs(ctx, req.ApprovalRequestID)
		if err != nil {
			return PrepareResult{}, err
		}
	}

	var files []fileToZip
	folderDownload := false

	for _, id := range req.ItemIDs {
		item, err := m.deps.Metadata.GetByID(ctx, id)
		if err != nil {
			return PrepareResult{}, err
		}

		var resolved []metadata.Item
		if item.Type == cmn.ItemFolder {
			folderDownload = true
			parentPath := metadata.EffectiveParentPath(item)
			resolved, err = m.deps.Metadata.ListRecursive(ctx, req.ContainerCode, req.ContainerType, item.Owner, item.Zone, parentPath)
			if err != nil {
				return PrepareResult{}, err
			}
		} else {
			resolved = []metadata.Item{item}
		}

		for _, f := range resolved {
			if allowed != nil {
				if _, ok := allowed[f.ID]; !ok {
					continue
				}
			}
			files = append(files, toFileToZip(f))
		}
	}

	if len(files) == 0 && req.ContainerType == cmn.ContainerProject {
		return PrepareResult{}, cmn.NewErrEmptySelection()
	}

	jobID := newJobID()
	tmpFolder := scratchDir(m.cfg.RootPath, req.ContainerType, req.ContainerCode)

	jctx := &archiveJobContext{
		sessionID:      req.SessionID,
		jobID:          jobID,
		operator:       req.Operator,
		containerCode:  req.ContainerCode,
		containerType:  req.ContainerType,
		tmpFolder:      tmpFolder,
		filesToZip:     files,
		folderDownload: folderDownload,
	}

	var err error
	if !folderDownload && len(files) == 1 {
		bucket, objectPath, perr := objstore.ParseLocation(files[0].locationURI)
		if perr != nil {
			return PrepareResult{}, perr
		}
		jctx.resultFileName, err = m.deps.PublicStore.PresignGET(ctx, bucket, objectPath)
		if err != nil {
			return PrepareResult{}, err
		}
	} else {
		jctx.resultFileName = tmpFolder + ".zip"
	}

	return m.prepareCommon(ctx, jctx)
}

// PrepareDataset implements spec.md §4.9's whole-dataset preparation flow.
func (m *Manager) PrepareDataset(ctx context.Context, code, operator, sessionID string) (PrepareResult, error) {
	if err := m.deps.Containers.Validate(ctx, code, cmn.ContainerDataset); err != nil {
		return PrepareResult{}, err
	}

	items, err := m.deps.Metadata.ListRecursive(ctx, code, cmn.ContainerDataset, operator, cmn.ZoneCore, "")
	if err != nil {
		return PrepareResult{}, err
	}

	files := make([]fileToZip, 0, len(items))
	for _, it := range items {
		files = append(files, toFileToZip(it))
	}

	jobID := newJobID()
	tmpFolder := scratchDir(m.cfg.RootPath, cmn.ContainerDataset, code)

	jctx := &archiveJobContext{
		sessionID:            sessionID,
		jobID:                jobID,
		operator:             operator,
		containerCode:        code,
		containerType:        cmn.ContainerDataset,
		tmpFolder:            tmpFolder,
		filesToZip:           files,
		folderDownload:       true, // always zips, even with zero files (schemas alone)
		useInternalStoreOnly: true,
		isDataset:            true,
		resultFileName:       tmpFolder + ".zip",
	}

	return m.prepareCommon(ctx, jctx)
}

// prepareCommon issues the token, records the ZIPPING status, and spawns
// the background worker — the part of spec.md §4.9 shared by both flows.
func (m *Manager) prepareCommon(ctx context.Context, jctx *archiveJobContext) (PrepareResult, error) {
	zone := 0
	if len(jctx.filesToZip) > 0 {
		zone = jctx.filesToZip[0].zone
	}

	tok, err := m.deps.Tokens.Issue(token.Payload{
		FilePath:      jctx.resultFileName,
		ContainerCode: jctx.containerCode,
		ContainerType: jctx.containerType,
		Operator:      jctx.operator,
		SessionID:     jctx.sessionID,
		JobID:         jctx.jobID,
		Payload:       map[string]interface{}{"zone": zone},
	})
	if err != nil {
		return PrepareResult{}, err
	}

	rec := jobstore.Record{
		SessionID:     jctx.sessionID,
		JobID:         jctx.jobID,
		Source:        jctx.resultFileName,
		Action:        cmn.ActionDataDownload,
		Status:        cmn.JobZipping,
		ContainerCode: jctx.containerCode,
		Operator:      jctx.operator,
		Payload:       map[string]interface{}{"hash_code": tok, "zone": zone},
	}
	key := jobstore.Key(jctx.sessionID, jctx.jobID, cmn.ActionDataDownload, jctx.containerCode, jctx.operator, jctx.resultFileName)
	if err := m.deps.Jobs.Set(key, rec); err != nil {
		return PrepareResult{}, err
	}
	m.counters.Zipping.Inc()
	glog.Infof("download: filed job %s for operator %s, container %s/%s", jctx.jobID, jctx.operator, jctx.containerType, jctx.containerCode)

	go m.runWorker(jctx)

	return PrepareResult{Token: tok, Record: rec}, nil
}

func toFileToZip(item metadata.Item) fileToZip {
	parentPath := item.ParentPath
	return fileToZip{
		id:            item.ID,
		itemType:      item.Type,
		name:          item.Name,
		parentPath:    parentPath,
		zone:          item.Zone,
		containerCode: item.ContainerCode,
		containerType: item.ContainerType,
		locationURI:   item.Storage.LocationURI,
	}
}

func newJobID() string {
	return cmn.JobIDPrefix + strconv.FormatInt(time.Now().Unix(), 10)
}

// scratchDir builds <root>/tmp/<container_type><container_code>_<unix-seconds>
// per spec.md §6's scratch layout.
func scratchDir(root, containerType, containerCode string) string {
	return filepath.Join(root, "tmp", fmt.Sprintf("%s%s_%d", containerType, containerCode, time.Now().Unix()))
}
