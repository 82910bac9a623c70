// Package lockclient acquires and releases the batch advisory locks
// described in spec.md §4.3, over the remote data-ops service's bulk lock
// endpoint. Grounded on original_source's app/commons/locks.go
// bulk_lock_operation (all-or-nothing, 3600s timeout, no retries) and the
// teacher's api.ReqParams request-building style in api/utils.go.
package lockclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/PilotDataPlatform/download/cmn"
)

const bulkLockPath = "resource/lock/bulk"

// Client talks to the data-ops service's bulk resource-lock endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against baseURL (e.g. "http://dataops.svc:5063/v2/"),
// with the 3600s remote-call timeout spec.md §4.3 mandates and no retries.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 3600 * time.Second},
	}
}

type bulkRequest struct {
	ResourceKeys []string `json:"resource_keys"`
	Operation    string   `json:"operation"`
}

// Acquire locks every key in keys under mode, all-or-nothing: on any denial
// no lock is held and the call fails with cmn.KindResourceLocked.
func (c *Client) Acquire(ctx context.Context, keys []string, mode cmn.LockMode) error {
	return c.bulk(ctx, http.MethodPost, keys, mode)
}

// Release is best-effort and must be invoked on every exit path of any
// worker that previously acquired locks.
func (c *Client) Release(ctx context.Context, keys []string, mode cmn.LockMode) error {
	return c.bulk(ctx, http.MethodDelete, keys, mode)
}

func (c *Client) bulk(ctx context.Context, method string, keys []string, mode cmn.LockMode) error {
	if len(keys) == 0 {
		return nil
	}
	body, err := json.Marshal(bulkRequest{ResourceKeys: keys, Operation: string(mode)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+bulkLockPath, bytes.NewReader(body))
	if err != nil {
		return cmn.NewErrUpstreamUnavailable(err, "lockclient")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return cmn.NewErrUpstreamUnavailable(err, "lockclient")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cmn.NewErrResourceLocked(fmt.Errorf("lock service returned %d", resp.StatusCode), keys)
	}
	return nil
}

// BuildResourceKey builds a resource key of the form
// <bucket>/<parent_path>/<name> (spec.md §4.3). For project items bucket is
// zone-prefixed (gr-/core-); for dataset items it is the container code
// unchanged.
func BuildResourceKey(containerCode, containerType string, zone int, parentPath, name string) string {
	bucket := containerCode
	if containerType == cmn.ContainerProject {
		bucket = zoneBucketPrefix(zone) + containerCode
	}
	path := name
	if parentPath != "" {
		path = parentPath + "/" + name
	}
	return bucket + "/" + path
}

func zoneBucketPrefix(zone int) string {
	if zone == cmn.ZoneCore {
		return cmn.CoreBucketPrefix
	}
	return cmn.GreenBucketPrefix
}
