package downloadmgr

import "github.com/PilotDataPlatform/download/jobstore"

// PrepareFileOrFolderRequest is the input to PrepareFileOrFolder (spec.md §4.9).
type PrepareFileOrFolderRequest struct {
	ItemIDs            []string
	Operator           string
	ContainerCode      string
	ContainerType      string // cmn.ContainerProject or cmn.ContainerDataset
	SessionID          string
	ApprovalRequestID  string // optional
}

// PrepareResult is returned by every Prepare* operation.
type PrepareResult struct {
	Token  string
	Record jobstore.Record
}

// RetrieveResult tells the caller whether to redirect or stream a local file.
type RetrieveResult struct {
	Redirect  bool
	URL       string // set when Redirect is true
	LocalPath string // set when Redirect is false
}

// archiveJobContext is the ephemeral context held by the background worker
// for the lifetime of one job (spec.md §3, "Archive job context").
type archiveJobContext struct {
	sessionID     string
	jobID         string
	operator      string
	containerCode string
	containerType string

	tmpFolder      string
	filesToZip     []fileToZip
	resultFileName string
	folderDownload bool

	useInternalStoreOnly bool
	isDataset            bool
}

// fileToZip pairs a resolved metadata item with its flattened bucket/object
// location, matching the original's "location" flattening of storage.location_uri.
type fileToZip struct {
	id            string
	itemType      string
	name          string
	parentPath    string
	zone          int
	containerCode string
	containerType string
	locationURI   string
}
