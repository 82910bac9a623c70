// Command downloadsvcd is the download orchestration service's entrypoint:
// it wires cfg.Load() into every leaf client, composes a downloadmgr.Manager,
// and serves the six HTTP paths of spec.md §6 as thin handlers, per
// SPEC_FULL.md's "cmd/downloadsvcd — entrypoint" section.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/golang/glog"

	"github.com/PilotDataPlatform/download/activity"
	"github.com/PilotDataPlatform/download/approval"
	"github.com/PilotDataPlatform/download/archive"
	"github.com/PilotDataPlatform/download/cfg"
	"github.com/PilotDataPlatform/download/container"
	"github.com/PilotDataPlatform/download/downloadmgr"
	"github.com/PilotDataPlatform/download/jobstore"
	"github.com/PilotDataPlatform/download/lockclient"
	"github.com/PilotDataPlatform/download/metadata"
	"github.com/PilotDataPlatform/download/objstore"
	"github.com/PilotDataPlatform/download/token"
)

const (
	maxConcurrentFetches = 8
	maxConcurrentZips    = 2
)

func main() {
	defer glog.Flush()

	c, err := cfg.Load()
	if err != nil {
		glog.Fatalf("downloadsvcd: %v", err)
	}

	jobs, err := jobstore.Open(c.JobStorePath)
	if err != nil {
		glog.Fatalf("downloadsvcd: open jobstore: %v", err)
	}
	defer jobs.Close()

	internalStore, err := objstore.New(c.ObjectStoreInternalEndpoint, c.ObjectStoreAccessKey, c.ObjectStoreSecretKey, c.ObjectStoreInternalTLS)
	if err != nil {
		glog.Fatalf("downloadsvcd: internal object store: %v", err)
	}
	publicStore, err := objstore.New(c.ObjectStorePublicEndpoint, c.ObjectStoreAccessKey, c.ObjectStoreSecretKey, c.ObjectStorePublicTLS)
	if err != nil {
		glog.Fatalf("downloadsvcd: public object store: %v", err)
	}

	approvalStore, err := approval.Open(c.PostgresDSN, c.PostgresSchema, c.ApprovalTable)
	if err != nil {
		glog.Fatalf("downloadsvcd: approval store: %v", err)
	}
	defer approvalStore.Close()

	activityLog, err := activity.Open(c.KafkaBrokers)
	if err != nil {
		glog.Fatalf("downloadsvcd: activity log: %v", err)
	}
	defer activityLog.Close()

	deps := downloadmgr.Deps{
		Metadata:       metadata.New(c.MetadataService),
		Containers:     container.New(c.ProjectService, c.DatasetService),
		InternalStore:  internalStore,
		PublicStore:    publicStore,
		Locks:          lockclient.New(c.DataopsService),
		Approval:       approvalStore,
		Activity:       activityLog,
		Jobs:           jobs,
		Builder:        archive.NewBuilder(internalStore, maxConcurrentFetches, maxConcurrentZips),
		Tokens:         token.NewCodec(c.DownloadTokenSecret, c.DownloadTokenTTLScale),
		DatasetSchemas: downloadmgr.NewHTTPDatasetSchemaClient(c.DatasetService),
	}
	mgrCfg := downloadmgr.Config{
		RootPath:              c.RootPath,
		ItemActivitySchema:    activity.NewSchema(activity.ItemSchemaName, c.KafkaItemTopic, activity.DefaultItemSchemaJSON),
		DatasetActivitySchema: activity.NewSchema(activity.DatasetSchemaName, c.KafkaDatasetTopic, activity.DefaultDatasetSchemaJSON),
	}

	mgr := downloadmgr.New(deps, mgrCfg)
	srv := newServer(mgr, jobs, approvalStore)

	addr := fmt.Sprintf("%s:%d", c.Host, c.Port)
	glog.Infof("downloadsvcd: listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.mux()); err != nil && err != http.ErrServerClosed {
		glog.Errorf("downloadsvcd: server exited: %v", err)
		os.Exit(1)
	}
}
