package downloadmgr

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/PilotDataPlatform/download/cmn"
)

// HTTPDatasetSchemaClient fetches a dataset's schema documents from the
// dataset service, grounded on original_source's
// app/commons/download_manager/dataset_download_manager.py's "schema/list"
// call (the schemas a dataset archive bundles alongside its files).
type HTTPDatasetSchemaClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPDatasetSchemaClient(baseURL string) *HTTPDatasetSchemaClient {
	return &HTTPDatasetSchemaClient{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

type schemaListRequest struct {
	DatasetGeid string `json:"dataset_geid"`
	Standard    string `json:"standard"`
	IsDraft     bool   `json:"is_draft"`
}

type schemaListResult struct {
	Name    string                 `json:"name"`
	Content map[string]interface{} `json:"content"`
}

type schemaListEnvelope struct {
	Result []schemaListResult `json:"result"`
}

// FetchSchemas implements downloadmgr.DatasetSchemaClient.
func (c *HTTPDatasetSchemaClient) FetchSchemas(ctx context.Context, datasetCode, standard string) ([]SchemaDoc, error) {
	body, err := cmn.Marshal(schemaListRequest{DatasetGeid: datasetCode, Standard: standard, IsDraft: false})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"schema/list", bytes.NewReader(body))
	if err != nil {
		return nil, cmn.NewErrUpstreamUnavailable(err, "dataset-schema")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, cmn.NewErrUpstreamUnavailable(err, "dataset-schema")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, cmn.NewErrUpstreamUnavailable(errors.Errorf("unexpected status %d", resp.StatusCode), "dataset-schema")
	}

	var envelope schemaListEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, errors.Wrap(err, "decode schema/list response")
	}

	docs := make([]SchemaDoc, 0, len(envelope.Result))
	for _, r := range envelope.Result {
		docs = append(docs, SchemaDoc{Name: r.Name, Content: r.Content})
	}
	return docs, nil
}
