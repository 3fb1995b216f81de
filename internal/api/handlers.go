package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/romangod6/sitemap-aggregator/internal/crawler"
	"github.com/romangod6/sitemap-aggregator/internal/models"
	"github.com/romangod6/sitemap-aggregator/internal/sitemap"
	"github.com/romangod6/sitemap-aggregator/internal/storage"
	"github.com/spf13/afero"
)

// RunStarter launches a background generation.
type RunStarter interface {
	Start(ctx context.Context) (*models.Run, error)
}

type Handler struct {
	store      storage.Store
	runner     RunStarter
	fs         afero.Fs
	outputPath string
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type PaginationResponse struct {
	Data  interface{} `json:"data"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func NewHandler(store storage.Store, runner RunStarter, fs afero.Fs, outputPath string) *Handler {
	return &Handler{
		store:      store,
		runner:     runner,
		fs:         fs,
		outputPath: outputPath,
	}
}

func (h *Handler) Register(router gin.IRouter) {
	router.GET("/globalsitemap.xml", h.GetSitemapIndex)

	api := router.Group("/api")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})

		api.GET("/sitemaps", h.ListSitemaps)

		runs := api.Group("/runs")
		{
			runs.GET("", h.ListRuns)
			runs.GET("/:id", h.GetRun)
			runs.POST("", h.StartRun)
		}
	}
}

func (h *Handler) GetSitemapIndex(c *gin.Context) {
	data, err := afero.ReadFile(h.fs, h.outputPath)
	if errors.Is(err, os.ErrNotExist) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Sitemap index not generated yet"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to read sitemap index"})
		return
	}

	c.Data(http.StatusOK, "application/xml; charset=utf-8", data)
}

func (h *Handler) ListSitemaps(c *gin.Context) {
	index, err := sitemap.Read(h.fs, h.outputPath)
	if errors.Is(err, os.ErrNotExist) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Sitemap index not generated yet"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to read sitemap index"})
		return
	}

	c.JSON(http.StatusOK, index.Locations())
}

func (h *Handler) ListRuns(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	page, limit := getPaginationParams(c)
	offset := (page - 1) * limit

	runs, err := h.store.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch runs"})
		return
	}

	if runs == nil {
		runs = []*models.Run{}
	}

	c.JSON(http.StatusOK, PaginationResponse{
		Data:  runs,
		Page:  page,
		Limit: limit,
	})
}

func (h *Handler) GetRun(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid run ID"})
		return
	}

	run, err := h.store.GetRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch run"})
		return
	}

	if run == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *Handler) StartRun(c *gin.Context) {
	// the run outlives the request
	run, err := h.runner.Start(context.WithoutCancel(c.Request.Context()))
	if errors.Is(err, crawler.ErrRunInProgress) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "A run is already in progress"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to start run"})
		return
	}

	c.JSON(http.StatusAccepted, run)
}

func (h *Handler) requireStore(c *gin.Context) bool {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Run history requires a database"})
		return false
	}
	return true
}

// Utility functions
func getPaginationParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	return page, limit
}
