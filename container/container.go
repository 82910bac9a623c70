// Package container validates that a project or dataset named in a download
// request actually exists, per spec.md §4.9 step 1. Grounded on
// original_source's app/routers/v2/api_data_download.py ("check the
// container exist": a ProjectClient.get(code=...) call for project
// containers, a GET .../dataset-peek/{code} call for dataset containers,
// either one treated as a miss on anything but a clean 200) and the
// teacher's plain net/http client idiom also used by metadata and
// lockclient.
package container

import (
	"context"
	"net/http"
	"time"

	"github.com/PilotDataPlatform/download/cmn"
)

// Client checks container existence against the project service (for
// container_type "project") or the dataset service (for "dataset").
type Client struct {
	projectBaseURL string
	datasetBaseURL string
	http           *http.Client
}

// New builds a Client. Either base URL may be empty if the service is not
// configured to serve that container type; a lookup against an empty base
// URL fails closed with KindUpstreamUnavailable.
func New(projectBaseURL, datasetBaseURL string) *Client {
	return &Client{
		projectBaseURL: projectBaseURL,
		datasetBaseURL: datasetBaseURL,
		http:           &http.Client{Timeout: 30 * time.Second},
	}
}

// Validate confirms containerCode exists for containerType, returning
// cmn.NewErrContainerNotFound on a miss.
func (c *Client) Validate(ctx context.Context, containerCode, containerType string) error {
	switch containerType {
	case cmn.ContainerDataset:
		return c.peek(ctx, c.datasetBaseURL, "dataset-peek/"+containerCode, containerCode)
	default:
		return c.peek(ctx, c.projectBaseURL, "v1/projects/"+containerCode, containerCode)
	}
}

func (c *Client) peek(ctx context.Context, baseURL, path, containerCode string) error {
	if baseURL == "" {
		return cmn.NewErrUpstreamUnavailable(nil, "container")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		return cmn.NewErrUpstreamUnavailable(err, "container")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return cmn.NewErrUpstreamUnavailable(err, "container")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return cmn.NewErrContainerNotFound(containerCode)
	}
	if resp.StatusCode != http.StatusOK {
		return cmn.NewErrContainerNotFound(containerCode)
	}
	return nil
}
