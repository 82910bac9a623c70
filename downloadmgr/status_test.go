package downloadmgr

import (
	"context"
	"testing"

	"github.com/PilotDataPlatform/download/cmn"
	"github.com/PilotDataPlatform/download/internal/tassert"
	"github.com/PilotDataPlatform/download/jobstore"
	"github.com/PilotDataPlatform/download/token"
)

func TestStatusReturnsTheFiledRecord(t *testing.T) {
	h := newTestHarness(t, nil, nil)

	rec := jobstore.Record{
		SessionID:     "s1",
		JobID:         "jobX",
		Source:        "/tmp/jobX.zip",
		Action:        cmn.ActionDataDownload,
		Status:        cmn.JobZipping,
		ContainerCode: "projA",
		Operator:      "erik",
		Payload:       map[string]interface{}{"zone": 0},
	}
	key := jobstore.Key(rec.SessionID, rec.JobID, rec.Action, rec.ContainerCode, rec.Operator, rec.Source)
	tassert.CheckFatal(t, h.jobs.Set(key, rec))

	tok, err := h.tokens.Issue(token.Payload{
		FilePath:      rec.Source,
		ContainerCode: rec.ContainerCode,
		ContainerType: cmn.ContainerProject,
		Operator:      rec.Operator,
		SessionID:     rec.SessionID,
		JobID:         rec.JobID,
	})
	tassert.CheckFatal(t, err)

	got, err := h.mgr.Status(context.Background(), tok)
	tassert.CheckFatal(t, err)
	tassert.Errorf(t, got.Status == cmn.JobZipping, "expected ZIPPING, got %v", got.Status)
	tassert.Errorf(t, got.JobID == "jobX", "expected jobX, got %q", got.JobID)
}

func TestStatusJobNotFound(t *testing.T) {
	h := newTestHarness(t, nil, nil)

	tok, err := h.tokens.Issue(token.Payload{
		FilePath:      "/tmp/never-filed.zip",
		ContainerCode: "projA",
		ContainerType: cmn.ContainerProject,
		Operator:      "erik",
		SessionID:     "s1",
		JobID:         "missing-job",
	})
	tassert.CheckFatal(t, err)

	_, err = h.mgr.Status(context.Background(), tok)
	tassert.Fatalf(t, err != nil, "expected an error for a job with no filed record")
	tassert.Errorf(t, cmn.IsKind(err, cmn.KindJobNotFound), "expected KindJobNotFound, got %v", err)
}
