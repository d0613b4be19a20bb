// Package strains is the HTTP surface: analysis endpoints, the terpene
// reference catalog and strain name search.
package strains

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"terptracker/internal/analyzer"
	"terptracker/internal/apierr"
	"terptracker/internal/cache"
	"terptracker/pkg/logger"
	"terptracker/pkg/models"
)

const (
	Version = "0.1.0"
	apiName = "TerpTracker"

	analysisKeyPrefix = "analysis:"
	minQueryLen       = 2
)

type Analyzer interface {
	AnalyzeURL(ctx context.Context, url string) (*models.AnalysisResult, error)
	AnalyzeStrain(ctx context.Context, name string) (*models.AnalysisResult, error)
}

// Directory answers strain name queries.
type Directory interface {
	Autocomplete(ctx context.Context, q string, limit int) ([]models.StrainMatch, error)
	Search(ctx context.Context, q string, limit int) ([]models.StrainMatch, error)
}

type Handler struct {
	Analyzer  Analyzer
	Directory Directory
	Cache     cache.Store
	CacheTTL  time.Duration
	// Debug includes internal error detail in 500 responses.
	Debug bool
	Log   *logger.Logger
}

func NewHandler(a Analyzer, d Directory, store cache.Store, ttl time.Duration, debug bool, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Handler{
		Analyzer:  a,
		Directory: d,
		Cache:     store,
		CacheTTL:  ttl,
		Debug:     debug,
		Log:       log.With("handler", "strains"),
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze-url", h.analyzeURL)       // POST /api/analyze-url
	rg.POST("/analyze-strain", h.analyzeStrain) // POST /api/analyze-strain
	rg.GET("/terpenes", h.listTerpenes)
	rg.GET("/terpenes/:key", h.getTerpene)
	rg.GET("/strains/autocomplete", h.autocomplete)
	rg.GET("/strains/search", h.search)
	rg.GET("/version", h.version)
}

type analyzeURLRequest struct {
	URL string `json:"url"`
}

type analyzeStrainRequest struct {
	StrainName string `json:"strain_name"`
}

func (h *Handler) analyzeURL(c *gin.Context) {
	var req analyzeURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apierr.BadRequest("invalid_body", err))
		return
	}
	target := strings.TrimSpace(req.URL)
	if !isHTTPURL(target) {
		h.fail(c, apierr.BadRequest("invalid_url", errors.New("url must be an absolute http(s) URL")))
		return
	}

	ctx := c.Request.Context()
	key := analysisKey(target)
	if h.Cache != nil {
		var cached models.AnalysisResult
		if h.Cache.Get(ctx, key, &cached) {
			h.Log.Debug("analysis cache hit", "url", target)
			c.JSON(http.StatusOK, &cached)
			return
		}
	}

	res, err := h.Analyzer.AnalyzeURL(ctx, target)
	if err != nil {
		h.fail(c, err)
		return
	}
	if h.Cache != nil {
		h.Cache.Set(ctx, key, res, h.CacheTTL)
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) analyzeStrain(c *gin.Context) {
	var req analyzeStrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apierr.BadRequest("invalid_body", err))
		return
	}
	name := strings.TrimSpace(req.StrainName)
	if name == "" {
		h.fail(c, apierr.BadRequest("invalid_strain_name", errors.New("strain_name is required")))
		return
	}

	res, err := h.Analyzer.AnalyzeStrain(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, analyzer.ErrNoData) {
			err = apierr.NotFound("not_found", errors.New("strain '"+name+"' not found in database"))
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) listTerpenes(c *gin.Context) {
	c.JSON(http.StatusOK, terpeneCatalog)
}

func (h *Handler) getTerpene(c *gin.Context) {
	key := strings.ToLower(c.Param("key"))
	t, ok := lookupTerpene(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Terpene '" + key + "' not found", "code": "not_found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) autocomplete(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if len([]rune(q)) < minQueryLen {
		h.fail(c, apierr.BadRequest("invalid_query", errors.New("q must be at least 2 characters")))
		return
	}
	items, err := h.Directory.Autocomplete(c.Request.Context(), q, parseInt(c.Query("limit"), 10))
	if err != nil {
		h.fail(c, apierr.New(http.StatusInternalServerError, "autocomplete_failed", err))
		return
	}
	if items == nil {
		items = []models.StrainMatch{}
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		h.fail(c, apierr.BadRequest("invalid_query", errors.New("q is required")))
		return
	}
	items, err := h.Directory.Search(c.Request.Context(), q, parseInt(c.Query("limit"), 20))
	if err != nil {
		h.fail(c, apierr.New(http.StatusInternalServerError, "search_failed", err))
		return
	}
	if items == nil {
		items = []models.StrainMatch{}
	}
	c.JSON(http.StatusOK, gin.H{
		"query":   q,
		"total":   len(items),
		"results": items,
	})
}

func (h *Handler) version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": Version, "api": apiName})
}

// fail renders err. No-data becomes 404; unknown errors become a generic
// 500 whose detail is only shown in debug mode.
func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, analyzer.ErrNoData) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "not_found"})
		return
	}

	ae := apierr.From(err, "analysis_failed")
	if ae.Status >= http.StatusInternalServerError {
		h.Log.Error("request failed", "path", c.FullPath(), "code", ae.Code, "error", err)
		msg := "Analysis failed"
		if h.Debug {
			msg += ": " + ae.Error()
		}
		c.JSON(ae.Status, gin.H{"error": msg, "code": ae.Code})
		return
	}
	c.JSON(ae.Status, gin.H{"error": ae.Error(), "code": ae.Code})
}

func analysisKey(u string) string {
	sum := md5.Sum([]byte(u))
	return analysisKeyPrefix + hex.EncodeToString(sum[:])
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
