package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/codeathon-api/internal/models"
	"github.com/campushub/codeathon-api/internal/service"
	"github.com/campushub/codeathon-api/pkg/config"
	appErrors "github.com/campushub/codeathon-api/pkg/errors"
	"github.com/campushub/codeathon-api/pkg/response"
	"github.com/campushub/codeathon-api/pkg/storage"
)

// TeamHandler wires the team lifecycle endpoints.
type TeamHandler struct {
	service *service.TeamService
	uploads *storage.LocalStorage
	cfg     config.UploadsConfig
}

// NewTeamHandler creates a new handler.
func NewTeamHandler(svc *service.TeamService, uploads *storage.LocalStorage, cfg config.UploadsConfig) *TeamHandler {
	return &TeamHandler{service: svc, uploads: uploads, cfg: cfg}
}

// Create godoc
// @Summary Create a draft team
// @Tags Teams
// @Accept json
// @Produce json
// @Param payload body service.CreateTeamRequest true "Team payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teams [post]
func (h *TeamHandler) Create(c *gin.Context) {
	var req service.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid team payload"))
		return
	}
	team, err := h.service.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, team)
}

// Join godoc
// @Summary Join a draft team by code
// @Tags Teams
// @Accept json
// @Produce json
// @Param payload body service.JoinTeamRequest true "Join payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /teams/join [post]
func (h *TeamHandler) Join(c *gin.Context) {
	var req service.JoinTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid join payload"))
		return
	}
	team, err := h.service.Join(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team, nil)
}

// Submit godoc
// @Summary Submit a team for approval
// @Tags Teams
// @Produce json
// @Param id path string true "Team ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /teams/{id}/submit [post]
func (h *TeamHandler) Submit(c *gin.Context) {
	team, err := h.service.Submit(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team, nil)
}

// UploadCertificate godoc
// @Summary Upload own member certificate
// @Tags Teams
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Team ID"
// @Param certificate formData file true "Certificate file"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teams/{id}/certificate [post]
func (h *TeamHandler) UploadCertificate(c *gin.Context) {
	path, err := saveUpload(c, h.uploads, h.cfg, "certificate", "team-certificates")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.UploadCertificate(c.Request.Context(), actorFromContext(c), c.Param("id"), path); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"certificate_path": path}, nil)
}

// VerifyCertificate godoc
// @Summary Verify a member certificate
// @Tags Teams
// @Produce json
// @Param id path string true "Team ID"
// @Param studentId path string true "Student ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teams/{id}/members/{studentId}/verify [post]
func (h *TeamHandler) VerifyCertificate(c *gin.Context) {
	if err := h.service.VerifyCertificate(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Decide godoc
// @Summary Decide a submitted team
// @Tags Teams
// @Accept json
// @Produce json
// @Param id path string true "Team ID"
// @Param payload body service.DecideTeamRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /teams/{id}/decision [post]
func (h *TeamHandler) Decide(c *gin.Context) {
	var req service.DecideTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}
	team, err := h.service.Decide(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team, nil)
}

// Reopen godoc
// @Summary Reopen a declined team
// @Tags Teams
// @Produce json
// @Param id path string true "Team ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /teams/{id}/reopen [post]
func (h *TeamHandler) Reopen(c *gin.Context) {
	team, err := h.service.Reopen(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team, nil)
}

// Get godoc
// @Summary Get a team with its roster
// @Tags Teams
// @Produce json
// @Param id path string true "Team ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teams/{id} [get]
func (h *TeamHandler) Get(c *gin.Context) {
	team, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team, nil)
}

// List godoc
// @Summary List teams
// @Tags Teams
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teams [get]
func (h *TeamHandler) List(c *gin.Context) {
	filter := models.TeamFilter{
		UpcomingHackathonID: c.Query("upcoming_hackathon_id"),
		Status:              models.TeamStatus(c.Query("status")),
		ProctorID:           c.Query("proctor_id"),
		Page:                intQuery(c, "page", 1),
		PageSize:            intQuery(c, "page_size", 20),
	}
	teams, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teams, pagination)
}
