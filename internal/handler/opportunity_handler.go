package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/codeathon-api/internal/service"
	"github.com/campushub/codeathon-api/pkg/config"
	appErrors "github.com/campushub/codeathon-api/pkg/errors"
	"github.com/campushub/codeathon-api/pkg/response"
	"github.com/campushub/codeathon-api/pkg/storage"
)

// OpportunityHandler wires opportunity endpoints.
type OpportunityHandler struct {
	service  *service.OpportunityService
	proctors *service.ProctorService
	uploads  *storage.LocalStorage
	cfg      config.UploadsConfig
}

// NewOpportunityHandler creates a new handler.
func NewOpportunityHandler(svc *service.OpportunityService, proctors *service.ProctorService, uploads *storage.LocalStorage, cfg config.UploadsConfig) *OpportunityHandler {
	return &OpportunityHandler{service: svc, proctors: proctors, uploads: uploads, cfg: cfg}
}

// Create godoc
// @Summary Declare an opportunity
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param payload body service.CreateOpportunityRequest true "Opportunity payload"
// @Success 201 {object} response.Envelope
// @Router /opportunities [post]
func (h *OpportunityHandler) Create(c *gin.Context) {
	var req service.CreateOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid opportunity payload"))
		return
	}
	opportunity, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, opportunity)
}

// Close godoc
// @Summary Close an opportunity
// @Tags Opportunities
// @Produce json
// @Param id path string true "Opportunity ID"
// @Success 204 {object} response.Envelope
// @Router /opportunities/{id}/close [post]
func (h *OpportunityHandler) Close(c *gin.Context) {
	if err := h.service.Close(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadPoster godoc
// @Summary Attach a poster image
// @Tags Opportunities
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Opportunity ID"
// @Param poster formData file true "Poster file"
// @Success 200 {object} response.Envelope
// @Router /opportunities/{id}/poster [post]
func (h *OpportunityHandler) UploadPoster(c *gin.Context) {
	path, err := saveUpload(c, h.uploads, h.cfg, "poster", "posters")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.AttachPoster(c.Request.Context(), c.Param("id"), path); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"poster_path": path}, nil)
}

// Get godoc
// @Summary Get one opportunity with its invitation sets
// @Tags Opportunities
// @Produce json
// @Param id path string true "Opportunity ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /opportunities/{id} [get]
func (h *OpportunityHandler) Get(c *gin.Context) {
	opportunity, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, opportunity, nil)
}

// List godoc
// @Summary List opportunities
// @Tags Opportunities
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /opportunities [get]
func (h *OpportunityHandler) List(c *gin.Context) {
	opportunities, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, opportunities, nil)
}

// Scan godoc
// @Summary Scan for eligible students
// @Description Evaluates the eligibility criteria against all students
// @Tags Opportunities
// @Produce json
// @Param id path string true "Opportunity ID"
// @Success 200 {object} response.Envelope
// @Router /opportunities/{id}/scan [get]
func (h *OpportunityHandler) Scan(c *gin.Context) {
	students, err := h.service.Scan(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Invite godoc
// @Summary Invite students
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param id path string true "Opportunity ID"
// @Param payload body service.InviteRequest true "Invite payload"
// @Success 204 {object} response.Envelope
// @Router /opportunities/{id}/invite [post]
func (h *OpportunityHandler) Invite(c *gin.Context) {
	var req service.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid invite payload"))
		return
	}
	if err := h.service.Invite(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkInterest godoc
// @Summary Accept an invitation
// @Tags Opportunities
// @Produce json
// @Param id path string true "Opportunity ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /opportunities/{id}/interest [post]
func (h *OpportunityHandler) MarkInterest(c *gin.Context) {
	if err := h.service.MarkInterest(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Radar godoc
// @Summary Proctor radar for an opportunity
// @Description Lists the proctor's invited students and whether each accepted
// @Tags Opportunities
// @Produce json
// @Param id path string true "Opportunity ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /opportunities/{id}/radar [get]
func (h *OpportunityHandler) Radar(c *gin.Context) {
	actor := actorFromContext(c)
	proctor, err := h.proctors.Profile(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "caller is not a proctor"))
		return
	}
	entries, err := h.service.Radar(c.Request.Context(), proctor.ID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
