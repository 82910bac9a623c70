package downloadmgr

import (
	"context"

	"github.com/PilotDataPlatform/download/cmn"
	"github.com/PilotDataPlatform/download/jobstore"
	"github.com/PilotDataPlatform/download/token"
)

// Status implements spec.md §4.9's status-poll operation: verify the token,
// then look up the one progress record the prepare call filed for it.
func (m *Manager) Status(ctx context.Context, tok string) (jobstore.Record, error) {
	p, err := m.deps.Tokens.Verify(tok)
	if err != nil {
		return jobstore.Record{}, err
	}
	return m.findRecord(p)
}

// findRecord scans the JobStore for the single record a prepare call filed
// for p's session/job/container/operator, per the composite key layout of
// spec.md §3.
func (m *Manager) findRecord(p token.Payload) (jobstore.Record, error) {
	prefix := jobstore.StatusPrefix(p.SessionID, p.JobID, p.ContainerCode, p.Operator)
	records, err := m.deps.Jobs.ScanPrefix(prefix)
	if err != nil {
		return jobstore.Record{}, err
	}
	if len(records) == 0 {
		return jobstore.Record{}, cmn.NewErrJobNotFound(prefix)
	}
	return records[0], nil
}
