package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campushub/codeathon-api/internal/models"
	"github.com/campushub/codeathon-api/internal/service"
	"github.com/campushub/codeathon-api/pkg/config"
	appErrors "github.com/campushub/codeathon-api/pkg/errors"
	"github.com/campushub/codeathon-api/pkg/response"
	"github.com/campushub/codeathon-api/pkg/storage"
)

// ParticipationHandler wires the participation lifecycle endpoints.
type ParticipationHandler struct {
	service *service.ParticipationService
	uploads *storage.LocalStorage
	cfg     config.UploadsConfig
}

// NewParticipationHandler creates a new handler.
func NewParticipationHandler(svc *service.ParticipationService, uploads *storage.LocalStorage, cfg config.UploadsConfig) *ParticipationHandler {
	return &ParticipationHandler{service: svc, uploads: uploads, cfg: cfg}
}

// Submit godoc
// @Summary Submit a participation claim
// @Description Student files a hackathon participation claim for review
// @Tags Participations
// @Accept json
// @Produce json
// @Param payload body service.SubmitParticipationRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /participations [post]
func (h *ParticipationHandler) Submit(c *gin.Context) {
	var req service.SubmitParticipationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}
	record, err := h.service.Submit(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// UploadCertificate godoc
// @Summary Attach a certificate
// @Description Upload the participation certificate for a pending submission
// @Tags Participations
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Participation ID"
// @Param certificate formData file true "Certificate file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /participations/{id}/certificate [post]
func (h *ParticipationHandler) UploadCertificate(c *gin.Context) {
	path, err := saveUpload(c, h.uploads, h.cfg, "certificate", "certificates")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.AttachCertificate(c.Request.Context(), actorFromContext(c), c.Param("id"), path); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"certificate_path": path}, nil)
}

// Decide godoc
// @Summary Decide a submission
// @Description Proctor accepts or declines one pending or previously decided submission
// @Tags Participations
// @Accept json
// @Produce json
// @Param id path string true "Participation ID"
// @Param payload body service.DecideParticipationRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /participations/{id}/decision [post]
func (h *ParticipationHandler) Decide(c *gin.Context) {
	var req service.DecideParticipationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}
	record, err := h.service.Decide(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// BulkDecide godoc
// @Summary Decide a batch of submissions
// @Description Apply one verdict to many submissions with per-item isolation
// @Tags Participations
// @Accept json
// @Produce json
// @Param payload body service.BulkDecideRequest true "Bulk decision payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /participations/bulk-decision [post]
func (h *ParticipationHandler) BulkDecide(c *gin.Context) {
	var req service.BulkDecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk decision payload"))
		return
	}
	result, err := h.service.BulkDecide(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListMine godoc
// @Summary List own submissions
// @Tags Participations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /participations/mine [get]
func (h *ParticipationHandler) ListMine(c *gin.Context) {
	records, pagination, err := h.service.ListForStudent(c.Request.Context(), actorFromContext(c), participationFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// ListForProctor godoc
// @Summary List submissions in proctor scope
// @Description view=mine lists owned students' submissions, view=all the whole department
// @Tags Participations
// @Produce json
// @Param view query string false "mine or all"
// @Success 200 {object} response.Envelope
// @Router /participations/review [get]
func (h *ParticipationHandler) ListForProctor(c *gin.Context) {
	view := c.DefaultQuery("view", "mine")
	records, pagination, err := h.service.ListForProctor(c.Request.Context(), actorFromContext(c), view, participationFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// ListAll godoc
// @Summary List all submissions
// @Tags Participations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /participations [get]
func (h *ParticipationHandler) ListAll(c *gin.Context) {
	records, pagination, err := h.service.ListAll(c.Request.Context(), participationFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get one submission
// @Tags Participations
// @Produce json
// @Param id path string true "Participation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /participations/{id} [get]
func (h *ParticipationHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

func participationFilterFromQuery(c *gin.Context) models.ParticipationFilter {
	filter := models.ParticipationFilter{
		Status:     models.ParticipationStatus(c.Query("status")),
		Department: c.Query("department"),
		Page:       intQuery(c, "page", 1),
		PageSize:   intQuery(c, "page_size", 20),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	if raw := c.Query("year"); raw != "" {
		if year, err := strconv.Atoi(raw); err == nil {
			filter.Year = &year
		}
	}
	return filter
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
