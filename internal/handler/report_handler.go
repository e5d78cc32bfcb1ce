package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/codeathon-api/internal/service"
	"github.com/campushub/codeathon-api/pkg/response"
)

// ReportHandler wires report export and dashboard endpoints.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Summary godoc
// @Summary Department credit summary
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/credit-summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	rows, err := h.service.DepartmentCreditSummary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Export godoc
// @Summary Export the credit summary
// @Description Renders the summary as csv or pdf and returns a signed download URL
// @Tags Reports
// @Produce json
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {object} response.Envelope
// @Router /reports/credit-summary/export [post]
func (h *ReportHandler) Export(c *gin.Context) {
	format := service.ReportFormat(c.DefaultQuery("format", "csv"))
	file, err := h.service.Export(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, file, nil)
}

// Download godoc
// @Summary Download a generated report
// @Tags Reports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /reports/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	handle, err := h.service.Resolve(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer handle.File.Close() //nolint:errcheck
	c.FileAttachment(handle.File.Name(), handle.Name)
}

// Dashboard godoc
// @Summary Admin overview counters
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}
