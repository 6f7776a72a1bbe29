package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crashalert/backend/internal/model"
	"github.com/crashalert/backend/internal/service"
)

type AccidentHandler struct {
	svc *service.AccidentService
}

func NewAccidentHandler(svc *service.AccidentService) *AccidentHandler {
	return &AccidentHandler{svc: svc}
}

// CreateAccident godoc
// @Summary Ingest a detected accident (internal)
// @Description Called by the ML detection service with the X-Internal-Secret header.
// @Tags accidents
// @Accept json
// @Produce json
// @Param request body model.CreateAccidentRequest true "Detected accident"
// @Success 201 {object} model.AccidentEnvelope
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/internal/accidents [post]
func (h *AccidentHandler) CreateAccident(c *gin.Context) {
	var req model.CreateAccidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	accident, err := h.svc.CreateAccident(c.Request.Context(), req)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.AccidentEnvelope{Status: "success", Data: accident})
}

// GetActiveAccidents godoc
// @Summary List active and assigned accidents visible to the caller
// @Tags accidents
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.AccidentListEnvelope
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/accidents/active [get]
func (h *AccidentHandler) GetActiveAccidents(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	accidents, err := h.svc.ActiveAccidents(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, model.AccidentListEnvelope{Status: "success", Data: accidents})
}

// GetHandledAccidents godoc
// @Summary List handled accidents visible to the caller
// @Tags accidents
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.AccidentListEnvelope
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/accidents/handled [get]
func (h *AccidentHandler) GetHandledAccidents(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	accidents, err := h.svc.HandledAccidents(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, model.AccidentListEnvelope{Status: "success", Data: accidents})
}

// GetAccident godoc
// @Summary Get a single accident
// @Tags accidents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Accident ID"
// @Success 200 {object} model.AccidentEnvelope
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/accidents/{id} [get]
func (h *AccidentHandler) GetAccident(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	accident, err := h.svc.GetAccident(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.AccidentEnvelope{Status: "success", Data: accident})
}

// ChangeStatus godoc
// @Summary Change accident status
// @Description Assigning an accident records the acting user as assignee.
// @Tags accidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.UpdateAccidentStatusRequest true "Accident ID and new status"
// @Success 200 {object} model.AccidentEnvelope
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/accidents/status [post]
func (h *AccidentHandler) ChangeStatus(c *gin.Context) {
	var req model.UpdateAccidentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AccidentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	accident, err := h.svc.ChangeStatus(c.Request.Context(), req.AccidentID, req.Status, user)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.AccidentEnvelope{Status: "success", Data: accident})
}
