package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crashalert/backend/internal/model"
	"github.com/crashalert/backend/internal/service"
)

type CameraHandler struct {
	svc *service.CameraService
}

func NewCameraHandler(svc *service.CameraService) *CameraHandler {
	return &CameraHandler{svc: svc}
}

// CreateCamera godoc
// @Summary Register a camera (admin only)
// @Tags cameras
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.CreateCameraRequest true "Camera"
// @Success 201 {object} model.CameraEnvelope
// @Failure 400 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/cameras [post]
func (h *CameraHandler) CreateCamera(c *gin.Context) {
	var req model.CreateCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	camera, err := h.svc.CreateCamera(c.Request.Context(), req)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.CameraEnvelope{Status: "success", Data: camera})
}

// GetCamera godoc
// @Summary Get a camera by its camera ID
// @Tags cameras
// @Produce json
// @Security BearerAuth
// @Param cameraId path string true "Camera ID"
// @Success 200 {object} model.CameraEnvelope
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/cameras/{cameraId} [get]
func (h *CameraHandler) GetCamera(c *gin.Context) {
	cameraID := c.Param("cameraId")
	camera, err := h.svc.GetCamera(c.Request.Context(), cameraID)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.CameraEnvelope{Status: "success", Data: camera})
}

// AssignCameras godoc
// @Summary Replace a user's camera assignments (admin only)
// @Tags cameras
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.AssignCamerasRequest true "User ID and camera IDs"
// @Success 200 {object} model.StatusResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/cameras/assign [post]
func (h *CameraHandler) AssignCameras(c *gin.Context) {
	var req model.AssignCamerasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.svc.AssignCameras(c.Request.Context(), req); err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "assigned"})
}
