package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/codeathon-api/internal/service"
	appErrors "github.com/campushub/codeathon-api/pkg/errors"
	"github.com/campushub/codeathon-api/pkg/response"
)

// HackathonHandler wires the upcoming hackathon catalog endpoints.
type HackathonHandler struct {
	service *service.HackathonService
}

// NewHackathonHandler creates a new handler.
func NewHackathonHandler(svc *service.HackathonService) *HackathonHandler {
	return &HackathonHandler{service: svc}
}

// List godoc
// @Summary List upcoming hackathons
// @Tags Hackathons
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /hackathons [get]
func (h *HackathonHandler) List(c *gin.Context) {
	hackathons, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hackathons, nil)
}

// Get godoc
// @Summary Get one upcoming hackathon
// @Tags Hackathons
// @Produce json
// @Param id path string true "Hackathon ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /hackathons/{id} [get]
func (h *HackathonHandler) Get(c *gin.Context) {
	hackathon, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hackathon, nil)
}

// Create godoc
// @Summary Announce an upcoming hackathon
// @Tags Hackathons
// @Accept json
// @Produce json
// @Param payload body service.UpcomingHackathonRequest true "Hackathon payload"
// @Success 201 {object} response.Envelope
// @Router /hackathons [post]
func (h *HackathonHandler) Create(c *gin.Context) {
	var req service.UpcomingHackathonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid hackathon payload"))
		return
	}
	hackathon, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, hackathon)
}

// Update godoc
// @Summary Edit an upcoming hackathon
// @Tags Hackathons
// @Accept json
// @Produce json
// @Param id path string true "Hackathon ID"
// @Param payload body service.UpcomingHackathonRequest true "Hackathon payload"
// @Success 200 {object} response.Envelope
// @Router /hackathons/{id} [put]
func (h *HackathonHandler) Update(c *gin.Context) {
	var req service.UpcomingHackathonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid hackathon payload"))
		return
	}
	hackathon, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hackathon, nil)
}

// Delete godoc
// @Summary Remove an upcoming hackathon
// @Tags Hackathons
// @Produce json
// @Param id path string true "Hackathon ID"
// @Success 204 {object} response.Envelope
// @Router /hackathons/{id} [delete]
func (h *HackathonHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
