package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/PilotDataPlatform/download/approval"
	"github.com/PilotDataPlatform/download/cmn"
	"github.com/PilotDataPlatform/download/downloadmgr"
	"github.com/PilotDataPlatform/download/jobstore"
)

// server holds the composed Manager plus the handles the health check
// touches directly, per spec.md §6's six-path HTTP surface.
type server struct {
	mgr      *downloadmgr.Manager
	jobs     *jobstore.Store
	approval *approval.Store
}

func newServer(mgr *downloadmgr.Manager, jobs *jobstore.Store, approvalStore *approval.Store) *server {
	return &server{mgr: mgr, jobs: jobs, approval: approvalStore}
}

func (s *server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/download/status/", s.handleStatus)
	mux.HandleFunc("/v1/download/", s.handleRetrieve)
	mux.HandleFunc("/v2/download/pre/", s.handlePrepareFileOrFolder)
	mux.HandleFunc("/v2/dataset/download/pre", s.handlePrepareDataset)
	mux.HandleFunc("/v2/dataset/download/", s.handleRetrieveDatasetVersion)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

// envelope is the {code, result, error_msg} response shape spec.md §6 names
// for every JSON response.
type envelope struct {
	Code     int         `json:"code"`
	Result   interface{} `json:"result,omitempty"`
	ErrorMsg string      `json:"error_msg,omitempty"`
}

func writeResult(w http.ResponseWriter, status int, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Code: status, Result: result})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if e, ok := err.(*cmn.Error); ok {
		status = e.Status()
	}
	glog.Errorf("downloadsvcd: request failed: %v", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Code: status, ErrorMsg: err.Error()})
}

func sessionIDFromRequest(r *http.Request) string {
	if c, err := r.Cookie("sessionId"); err == nil {
		return c.Value
	}
	return ""
}

// handleStatus implements GET /v1/download/status/{token}.
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	tok := strings.TrimPrefix(r.URL.Path, "/v1/download/status/")
	rec, err := s.mgr.Status(r.Context(), tok)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, rec)
}

// handleRetrieve implements GET /v1/download/{token}: streams the archive
// or 307-redirects to the presigned URL, per spec.md §4.9's retrieve().
func (s *server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	tok := strings.TrimPrefix(r.URL.Path, "/v1/download/")
	result, err := s.mgr.Retrieve(r.Context(), tok)
	if err != nil {
		writeError(w, err)
		return
	}
	if result.Redirect {
		http.Redirect(w, r, result.URL, http.StatusTemporaryRedirect)
		return
	}
	http.ServeFile(w, r, result.LocalPath)
}

type prepareFileOrFolderBody struct {
	Files             []struct{ ID string `json:"id"` } `json:"files"`
	Operator          string                             `json:"operator"`
	ContainerCode     string                             `json:"container_code"`
	ContainerType     string                             `json:"container_type"`
	ApprovalRequestID string                             `json:"approval_request_id"`
}

// handlePrepareFileOrFolder implements POST /v2/download/pre/, per spec.md
// §6's documented request body and status codes (200/404/422/500).
func (s *server) handlePrepareFileOrFolder(w http.ResponseWriter, r *http.Request) {
	var body prepareFileOrFolderBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeResult(w, http.StatusUnprocessableEntity, nil)
		return
	}
	if body.Operator == "" || body.ContainerCode == "" || body.ContainerType == "" || len(body.Files) == 0 {
		writeResult(w, http.StatusUnprocessableEntity, nil)
		return
	}

	ids := make([]string, 0, len(body.Files))
	for _, f := range body.Files {
		ids = append(ids, f.ID)
	}

	result, err := s.mgr.PrepareFileOrFolder(r.Context(), downloadmgr.PrepareFileOrFolderRequest{
		ItemIDs:           ids,
		Operator:          body.Operator,
		ContainerCode:     body.ContainerCode,
		ContainerType:     body.ContainerType,
		SessionID:         sessionIDFromRequest(r),
		ApprovalRequestID: body.ApprovalRequestID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, result)
}

type prepareDatasetBody struct {
	DatasetCode string `json:"dataset_code"`
	Operator    string `json:"operator"`
}

// handlePrepareDataset implements POST /v2/dataset/download/pre.
func (s *server) handlePrepareDataset(w http.ResponseWriter, r *http.Request) {
	var body prepareDatasetBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeResult(w, http.StatusUnprocessableEntity, nil)
		return
	}
	if body.DatasetCode == "" || body.Operator == "" {
		writeResult(w, http.StatusUnprocessableEntity, nil)
		return
	}

	result, err := s.mgr.PrepareDataset(r.Context(), body.DatasetCode, body.Operator, sessionIDFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, result)
}

// handleRetrieveDatasetVersion implements GET /v2/dataset/download/{token}.
func (s *server) handleRetrieveDatasetVersion(w http.ResponseWriter, r *http.Request) {
	tok := strings.TrimPrefix(r.URL.Path, "/v2/dataset/download/")
	url, err := s.mgr.RetrieveDatasetVersion(r.Context(), tok)
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// handleHealth implements GET /v1/health: 204 when the cache and the
// relational store are reachable, per spec.md §6.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.jobs.ScanPrefix("healthcheck:"); err != nil {
		writeError(w, err)
		return
	}
	if err := s.approval.Ping(ctx); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
