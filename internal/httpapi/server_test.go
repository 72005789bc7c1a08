package httpapi

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/canvasdb/placeviewer/internal/dataset"
	"github.com/canvasdb/placeviewer/internal/record"
)

func writeLog(t *testing.T, path string, start uint64, placements []record.Placement) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var uidCount uint32
	for _, p := range placements {
		if p.UID+1 > uidCount {
			uidCount = p.UID + 1
		}
	}
	h := record.PlacementHeader{
		Version:  record.PlacementVersion,
		Size:     2,
		Start:    start,
		Count:    uint32(len(placements)),
		UIDCount: uidCount,
	}
	if err := record.WritePlacementHeader(f, h); err != nil {
		t.Fatal(err)
	}
	for _, p := range placements {
		if err := record.WritePlacement(f, p); err != nil {
			t.Fatal(err)
		}
	}
}

func testServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	writeLog(t, filepath.Join(dir, "city_log_0_0.bin"), 1000, []record.Placement{
		{TS: 0, UID: 0, X: 0, Y: 0, Color: 3},
		{TS: 5, UID: 1, X: 1, Y: 1, Color: 7},
	})

	reg, err := dataset.LoadRegistry(dir, dataset.Config{Datasets: []dataset.DatasetConfig{
		{Name: "city", Prefix: "city", Palette: []uint32{0x111111, 0x222222, 0x333333, 0x444444, 0x555555, 0x666666, 0x777777, 0x888888}, SizeX: 2, SizeY: 2, SizeTile: 2},
	}})
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return NewServer(reg)
}

func TestHandleQ1_OK(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/images/city/tiles/0/0/ts/1010.png", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("content-type"); ct != "image/png" {
		t.Errorf("content-type = %q, want image/png", ct)
	}
	if cc := rec.Header().Get("cache-control"); cc != "max-age=2678400" {
		t.Errorf("cache-control = %q, want max-age=2678400", cc)
	}
}

func TestHandleQ1_UnknownDataset404(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/images/nope/tiles/0/0/ts/1010.png", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleQ1_TimestampBeforeStart404(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/images/city/tiles/0/0/ts/1.png", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleQ2_OK(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/images/city/tiles/0/0/diff-ts/1001_1010.png", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleQ3_UnknownUser404(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/images/city/tiles/0/0/uid/99.png", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleUIDRem_OK(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/images/city/tiles/0/0/uid-rem/1_1010.png", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
}
