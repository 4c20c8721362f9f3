package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/engine"
	"github.com/andresuchdata/replenish/internal/ingest"
	"github.com/andresuchdata/replenish/internal/report"
	"github.com/andresuchdata/replenish/internal/service"
)

type AnalysisHandler struct {
	service *service.AnalysisService
}

func NewAnalysisHandler(svc *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: svc}
}

// saveUpload stores the multipart "file" field and returns its path.
func (h *AnalysisHandler) saveUpload(c *gin.Context) (string, bool) {
	file, err := c.FormFile("file")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "no file provided")
		return "", false
	}
	if !ingest.SupportedExtension(file.Filename) {
		errorResponse(c, http.StatusBadRequest, fmt.Sprintf("%s: %v", file.Filename, ingest.ErrUnsupportedFormat))
		return "", false
	}

	path, err := h.service.UploadPath(file.Filename)
	if err != nil {
		respondError(c, err)
		return "", false
	}
	if err := c.SaveUploadedFile(file, path); err != nil {
		log.Error().Err(err).Str("filename", file.Filename).Msg("failed to save uploaded file")
		errorResponse(c, http.StatusInternalServerError, "failed to save uploaded file")
		return "", false
	}
	return path, true
}

// UploadDataset replaces the dataset with an uploaded counts export.
func (h *AnalysisHandler) UploadDataset(c *gin.Context) {
	path, ok := h.saveUpload(c)
	if !ok {
		return
	}

	res, err := h.service.LoadDataset(c.Request.Context(), path)
	if errors.Is(err, engine.ErrNoDemandColumns) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  err.Error(),
			"report": res.Report,
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"skus":   len(res.Series),
		"report": res.Report,
	})
}

// UploadPurchaseOrders adds lead-time samples and open orders.
func (h *AnalysisHandler) UploadPurchaseOrders(c *gin.Context) {
	path, ok := h.saveUpload(c)
	if !ok {
		return
	}

	imp, err := h.service.LoadPurchaseOrders(c.Request.Context(), path)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, imp)
}

func (h *AnalysisHandler) ListSkus(c *gin.Context) {
	filter := parseFilter(c)
	skus, total := h.service.ListSkus(c.Request.Context(), filter)
	c.JSON(http.StatusOK, gin.H{
		"items":     skus,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func (h *AnalysisHandler) GetSku(c *gin.Context) {
	ss, err := h.service.GetSku(c.Request.Context(), c.Param("sku"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ss)
}

func (h *AnalysisHandler) GetDecision(c *gin.Context) {
	d, err := h.service.GetDecision(c.Request.Context(), c.Param("sku"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

type vendorRequest struct {
	Vendor string `json:"vendor"`
}

func (h *AnalysisHandler) SetSkuVendor(c *gin.Context) {
	var req vendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}
	d, err := h.service.SetSkuVendor(c.Request.Context(), c.Param("sku"), req.Vendor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListDecisions returns decisions as JSON, or as a CSV download with
// format=csv.
func (h *AnalysisHandler) ListDecisions(c *gin.Context) {
	filter := parseFilter(c)

	if strings.EqualFold(c.Query("format"), "csv") {
		filter.Page, filter.PageSize = 0, 0
		decisions, _ := h.service.ListDecisions(c.Request.Context(), filter)
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="decisions.csv"`)
		if err := report.WriteDecisionsCSV(c.Writer, decisions); err != nil {
			log.Error().Err(err).Msg("failed to write decisions csv")
		}
		return
	}

	decisions, total := h.service.ListDecisions(c.Request.Context(), filter)
	c.JSON(http.StatusOK, gin.H{
		"items":     decisions,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func (h *AnalysisHandler) GetValidation(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Report(c.Request.Context()))
}

func (h *AnalysisHandler) ListVendors(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Vendors(c.Request.Context()))
}

type leadTimeRequest struct {
	Weeks *float64 `json:"weeks"`
}

func (h *AnalysisHandler) SetVendorLeadTime(c *gin.Context) {
	var req leadTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Weeks == nil {
		errorResponse(c, http.StatusBadRequest, "weeks is required")
		return
	}
	lead, err := h.service.SetVendorLeadTime(c.Request.Context(), c.Param("vendor"), *req.Weeks)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

func (h *AnalysisHandler) ClearVendorLeadTime(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ClearVendorLeadTime(c.Request.Context(), c.Param("vendor")))
}

func (h *AnalysisHandler) GetPlanning(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Planning(c.Request.Context()))
}

type windowRequest struct {
	Days *int `json:"days"`
}

func (h *AnalysisHandler) SetPlanningWindow(c *gin.Context) {
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Days == nil {
		errorResponse(c, http.StatusBadRequest, "days is required")
		return
	}
	st, err := h.service.SetPlanningWindow(c.Request.Context(), *req.Days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func parseFilter(c *gin.Context) service.Filter {
	filter := service.Filter{
		Search:         strings.TrimSpace(c.Query("search")),
		Vendor:         strings.TrimSpace(c.Query("vendor")),
		Classification: domain.Classification(strings.TrimSpace(c.Query("classification"))),
		Tier:           domain.Tier(strings.ToUpper(strings.TrimSpace(c.Query("tier")))),
		Page:           parsePositiveIntWithDefault(c.Query("page"), 1),
		PageSize:       parsePositiveIntWithDefault(c.Query("page_size"), 50),
	}
	if raw := strings.TrimSpace(c.Query("decision")); raw != "" {
		d, ok := domain.ParseDecision(raw)
		if !ok {
			// unknown labels match nothing
			d = domain.Decision(raw)
		}
		filter.Decision = d
	}
	return filter
}

func parsePositiveIntWithDefault(value string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v > 0 {
		return v
	}
	return fallback
}
