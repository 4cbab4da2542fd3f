package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collectgame/backend/internal/service"
)

type ReportsHandler struct {
	reportService *service.ReportService
}

func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{reportService: reportService}
}

func (h *ReportsHandler) Ranking(c *gin.Context) {
	limit := queryInt(c, "limit", service.DefaultRankingLimit)
	ranking, apiErr := h.reportService.Ranking(c.Request.Context(), limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "", gin.H{"ranking": ranking})
}

func (h *ReportsHandler) Stats(c *gin.Context) {
	stats, apiErr := h.reportService.Stats(c.Request.Context())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "", gin.H{"stats": stats})
}

func (h *ReportsHandler) UserReport(c *gin.Context) {
	report, apiErr := h.reportService.UserReport(c.Request.Context(), c.Param("userId"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "", gin.H{"report": report})
}

func (h *ReportsHandler) Search(c *gin.Context) {
	results, apiErr := h.reportService.Search(c.Request.Context(), c.Query("query"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "", gin.H{
		"results": results.Results,
		"total":   results.Total,
	})
}
