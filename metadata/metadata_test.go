package metadata_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PilotDataPlatform/download/cmn"
	"github.com/PilotDataPlatform/download/internal/tassert"
	"github.com/PilotDataPlatform/download/metadata"
)

func TestGetByIDFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tassert.Errorf(t, r.URL.Path == "/item/abc-123/", "unexpected path %q", r.URL.Path)
		_, _ = w.Write([]byte(`{"result": {"id": "abc-123", "type": "file", "name": "x.txt"}}`))
	}))
	defer srv.Close()

	c := metadata.New(srv.URL + "/")
	item, err := c.GetByID(context.Background(), "abc-123")
	tassert.CheckFatal(t, err)
	tassert.Errorf(t, item.ID == "abc-123", "id mismatch: %q", item.ID)
	tassert.Errorf(t, item.Type == cmn.ItemFile, "type mismatch: %q", item.Type)
}

func TestGetByIDNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result": {}}`))
	}))
	defer srv.Close()

	c := metadata.New(srv.URL + "/")
	_, err := c.GetByID(context.Background(), "missing")
	tassert.Fatalf(t, err != nil, "expected ItemNotFound")
	tassert.Errorf(t, cmn.IsKind(err, cmn.KindItemNotFound), "expected KindItemNotFound, got %v", err)
}

func TestGetByIDEmptyResultTreatedAsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result": {}}`))
	}))
	defer srv.Close()

	c := metadata.New(srv.URL + "/")
	_, err := c.GetByID(context.Background(), "empty")
	tassert.Fatalf(t, err != nil, "expected ItemNotFound")
	tassert.Errorf(t, cmn.IsKind(err, cmn.KindItemNotFound), "expected KindItemNotFound, got %v", err)
}

func TestListRecursive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		tassert.Errorf(t, q.Get("container_code") == "projA", "container_code mismatch")
		tassert.Errorf(t, q.Get("zone") == "1", "zone mismatch: %q", q.Get("zone"))
		tassert.Errorf(t, q.Get("type") == cmn.ItemFile, "type mismatch")
		_, _ = w.Write([]byte(`{"result": [{"id": "f1", "type": "file", "name": "a.txt"}, {"id": "f2", "type": "file", "name": "b.txt"}]}`))
	}))
	defer srv.Close()

	c := metadata.New(srv.URL + "/")
	items, err := c.ListRecursive(context.Background(), "projA", cmn.ContainerProject, "erik", cmn.ZoneCore, "folderA")
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, len(items) == 2, "expected 2 items, got %d", len(items))
	tassert.Errorf(t, items[0].ID == "f1", "first item mismatch")
}

func TestEffectiveParentPath(t *testing.T) {
	top := metadata.Item{Name: "folderA"}
	tassert.Errorf(t, metadata.EffectiveParentPath(top) == "folderA", "top-level mismatch")

	nested := metadata.Item{ParentPath: "root", Name: "folderA"}
	tassert.Errorf(t, metadata.EffectiveParentPath(nested) == "root.folderA", "nested mismatch")
}
