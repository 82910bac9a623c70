// Package metadata queries the upstream metadata service for item
// descriptors, per spec.md §4.4. Grounded on original_source's
// app/resources/helpers.py (get_files_folder_by_id,
// get_files_folder_recursive) and the teacher's api.ReqParams-style GET
// helper in api/utils.go.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PilotDataPlatform/download/cmn"
)

// Item mirrors spec.md §3's Item descriptor.
type Item struct {
	ID            string `json:"id"`
	Type          string `json:"type"` // cmn.ItemFile or cmn.ItemFolder
	Name          string `json:"name"`
	Owner         string `json:"owner"`
	ParentPath    string `json:"parent_path"`
	ContainerCode string `json:"container_code"`
	ContainerType string `json:"container_type"`
	Zone          int    `json:"zone"`
	Storage       struct {
		LocationURI string `json:"location_uri"`
	} `json:"storage"`
}

// Client talks to the metadata service's item/search endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

type itemEnvelope struct {
	Result json.RawMessage `json:"result"`
}

// GetByID fetches one item, failing with cmn.KindItemNotFound if it is
// missing (spec.md §4.4).
func (c *Client) GetByID(ctx context.Context, id string) (Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"item/"+id+"/", nil)
	if err != nil {
		return Item{}, cmn.NewErrUpstreamUnavailable(err, "metadata")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Item{}, cmn.NewErrUpstreamUnavailable(err, "metadata")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Item{}, cmn.NewErrItemNotFound(id)
	}
	if resp.StatusCode != http.StatusOK {
		return Item{}, cmn.NewErrUpstreamUnavailable(fmt.Errorf("metadata service returned %d", resp.StatusCode), "metadata")
	}

	var env itemEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return Item{}, cmn.NewErrUpstreamUnavailable(err, "metadata")
	}
	if len(env.Result) == 0 || string(env.Result) == "{}" || string(env.Result) == "null" {
		return Item{}, cmn.NewErrItemNotFound(id)
	}

	var item Item
	if err := json.Unmarshal(env.Result, &item); err != nil {
		return Item{}, cmn.NewErrUpstreamUnavailable(err, "metadata")
	}
	return item, nil
}

// ListRecursive returns every non-archived file descendant of parentPath
// within the given zone (spec.md §4.4).
func (c *Client) ListRecursive(ctx context.Context, containerCode, containerType, owner string, zone int, parentPath string) ([]Item, error) {
	q := url.Values{}
	q.Set("container_code", containerCode)
	q.Set("container_type", containerType)
	q.Set("owner", owner)
	q.Set("zone", strconv.Itoa(zone))
	q.Set("recursive", "true")
	q.Set("archived", "false")
	q.Set("parent_path", parentPath)
	q.Set("type", cmn.ItemFile)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"items/search/?"+q.Encode(), nil)
	if err != nil {
		return nil, cmn.NewErrUpstreamUnavailable(err, "metadata")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, cmn.NewErrUpstreamUnavailable(err, "metadata")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, cmn.NewErrUpstreamUnavailable(fmt.Errorf("metadata service returned %d", resp.StatusCode), "metadata")
	}

	var env struct {
		Result []Item `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, cmn.NewErrUpstreamUnavailable(err, "metadata")
	}
	return env.Result, nil
}

// EffectiveParentPath computes the parent_path used to look up an item's
// file descendants, per spec.md §4.4: for a folder it is
// "parent_path.name" (or just "name" when parent_path is empty); for a
// file it is meaningless since the caller should use the item itself.
func EffectiveParentPath(item Item) string {
	if item.ParentPath == "" {
		return item.Name
	}
	return item.ParentPath + "." + item.Name
}
