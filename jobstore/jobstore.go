// Package jobstore persists job progress records in the embedded key-value
// cache described in spec.md §4.2, grounded on the teacher's
// dbdriver/bunt.go (same buntdb.Open/AscendKeys pattern) and
// original_source's helpers.py set_status/get_status functions.
package jobstore

import (
	"strings"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/PilotDataPlatform/download/cmn"
)

const autoShrinkSize = 1 << 20 // 1MiB, matches the teacher's dbdriver threshold

// Record is one job progress entry, keyed by the composite string built by
// Key (spec.md §3, "Job record").
type Record struct {
	SessionID       string                 `json:"session_id"`
	JobID           string                 `json:"job_id"`
	Source          string                 `json:"source"`
	Action          string                 `json:"action"`
	Status          cmn.JobStatus          `json:"status"`
	ContainerCode   string                 `json:"container_code"`
	Operator        string                 `json:"operator"`
	Payload         map[string]interface{} `json:"payload"`
	UpdateTimestamp int64                  `json:"update_timestamp"`
}

// Store wraps a buntdb.DB with the set/scan-by-prefix/delete-by-prefix
// operations spec.md §4.2 names, plus the composite key format from §3.
type Store struct {
	db *buntdb.DB
}

// Open opens (creating if absent) the buntdb file at path. Pass ":memory:"
// for an ephemeral, process-local cache.
func Open(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, cmn.NewErrUpstreamUnavailable(err, "jobstore")
	}
	db.SetConfig(buntdb.Config{
		SyncPolicy:           buntdb.EverySecond,
		AutoShrinkMinSize:    autoShrinkSize,
		AutoShrinkPercentage: 50,
	})
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Key builds the composite job-record key named in spec.md §3:
// dataaction:{session}:Container:{job}:{action}:{container}:{operator}:{source}
func Key(session, job, action, container, operator, source string) string {
	return strings.Join([]string{
		"dataaction", session, "Container", job, action, container, operator, source,
	}, ":")
}

// StatusPrefix builds the prefix used to scan for a job's record irrespective
// of its source field, per spec.md §4's "retrieve" lookup:
// dataaction:{session}:Container:{job}:data_download:{container}:{operator}
func StatusPrefix(session, job, container, operator string) string {
	return strings.Join([]string{
		"dataaction", session, "Container", job, cmn.ActionDataDownload, container, operator,
	}, ":") + ":"
}

// Set overwrites the record stored at key.
func (s *Store) Set(key string, rec Record) error {
	if rec.UpdateTimestamp == 0 {
		rec.UpdateTimestamp = time.Now().Unix()
	}
	b, err := cmn.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, string(b), nil)
		return err
	})
}

// ScanPrefix returns every record whose key begins with prefix. Order is not
// guaranteed, matching spec.md §4.2.
func (s *Store) ScanPrefix(prefix string) ([]Record, error) {
	var recs []Record
	err := s.db.View(func(tx *buntdb.Tx) error {
		var walkErr error
		tx.AscendKeys(prefix+"*", func(_, value string) bool {
			var rec Record
			if walkErr = cmn.Unmarshal([]byte(value), &rec); walkErr != nil {
				return false
			}
			recs = append(recs, rec)
			return true
		})
		return walkErr
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// DeletePrefix enumerates then removes every key beginning with prefix.
func (s *Store) DeletePrefix(prefix string) error {
	var keys []string
	err := s.db.View(func(tx *buntdb.Tx) error {
		tx.AscendKeys(prefix+"*", func(key, _ string) bool {
			keys = append(keys, key)
			return true
		})
		return nil
	})
	if err != nil || len(keys) == 0 {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		for _, k := range keys {
			if _, err := tx.Delete(k); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}
		return nil
	})
}
