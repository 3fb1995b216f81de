package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/romangod6/sitemap-aggregator/internal/crawler"
	"github.com/romangod6/sitemap-aggregator/internal/models"
	"github.com/romangod6/sitemap-aggregator/internal/sitemap"
	"github.com/spf13/afero"
)

type fakeStore struct {
	runs []*models.Run
}

func (f *fakeStore) Initialize() error { return nil }
func (f *fakeStore) Close() error      { return nil }

func (f *fakeStore) CreateRun(ctx context.Context, run *models.Run) error {
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeStore) UpdateRun(ctx context.Context, run *models.Run) error { return nil }

func (f *fakeStore) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	for _, run := range f.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, error) {
	return f.runs, nil
}

type fakeStarter struct {
	err     error
	started int
}

func (f *fakeStarter) Start(ctx context.Context) (*models.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.started++
	return models.NewRun("https://docs.example.org/index.rst.txt", "globalsitemap.xml"), nil
}

func newTestRouter(store *fakeStore, starter RunStarter, fs afero.Fs) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	var h *Handler
	if store == nil {
		h = NewHandler(nil, starter, fs, "globalsitemap.xml")
	} else {
		h = NewHandler(store, starter, fs, "globalsitemap.xml")
	}
	h.Register(router)
	return router
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakeStore{}, &fakeStarter{}, afero.NewMemMapFs())

	rec := serve(router, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("Expected healthy body, got %q", rec.Body.String())
	}
}

func TestSitemapIndexRoutes(t *testing.T) {
	fs := afero.NewMemMapFs()
	router := newTestRouter(&fakeStore{}, &fakeStarter{}, fs)

	if rec := serve(router, http.MethodGet, "/globalsitemap.xml"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before generation, got %d", rec.Code)
	}

	urls := []string{"https://a.example.com/sitemap.xml", "https://b.example.com/sitemap.xml"}
	if err := sitemap.NewWriter(fs, "globalsitemap.xml").Write(urls); err != nil {
		t.Fatalf("Failed to write index: %v", err)
	}

	rec := serve(router, http.MethodGet, "/globalsitemap.xml")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("Expected XML content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<loc>https://b.example.com/sitemap.xml</loc>") {
		t.Errorf("Expected index body, got %q", rec.Body.String())
	}

	rec = serve(router, http.MethodGet, "/api/sitemaps")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var locs []string
	if err := json.Unmarshal(rec.Body.Bytes(), &locs); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if len(locs) != 2 || locs[0] != urls[0] {
		t.Errorf("Expected %v, got %v", urls, locs)
	}
}

func TestRunRoutes(t *testing.T) {
	store := &fakeStore{}
	run := models.NewRun("https://docs.example.org/index.rst.txt", "globalsitemap.xml")
	store.CreateRun(context.Background(), run)
	router := newTestRouter(store, &fakeStarter{}, afero.NewMemMapFs())

	rec := serve(router, http.MethodGet, "/api/runs")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), run.ID.String()) {
		t.Errorf("Expected run list to contain %s, got %q", run.ID, rec.Body.String())
	}

	rec = serve(router, http.MethodGet, "/api/runs/"+run.ID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	if rec := serve(router, http.MethodGet, "/api/runs/not-a-uuid"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad id, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/api/runs/"+uuid.New().String()); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown run, got %d", rec.Code)
	}
}

func TestRunRoutesWithoutStore(t *testing.T) {
	router := newTestRouter(nil, &fakeStarter{}, afero.NewMemMapFs())

	if rec := serve(router, http.MethodGet, "/api/runs"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a store, got %d", rec.Code)
	}
}

func TestStartRun(t *testing.T) {
	starter := &fakeStarter{}
	router := newTestRouter(&fakeStore{}, starter, afero.NewMemMapFs())

	rec := serve(router, http.MethodPost, "/api/runs")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	if starter.started != 1 {
		t.Errorf("Expected one run started, got %d", starter.started)
	}

	busy := newTestRouter(&fakeStore{}, &fakeStarter{err: crawler.ErrRunInProgress}, afero.NewMemMapFs())
	if rec := serve(busy, http.MethodPost, "/api/runs"); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 while a run is in progress, got %d", rec.Code)
	}
}
