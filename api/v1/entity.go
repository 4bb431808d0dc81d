package v1

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tim7en/pm-app-sub001/dto"
	"github.com/tim7en/pm-app-sub001/lifecycle"
	"github.com/tim7en/pm-app-sub001/models"
	"github.com/tim7en/pm-app-sub001/services"
)

// EntityHandler serves the admin lifecycle endpoints
type EntityHandler struct {
	service *services.EntityService
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(service *services.EntityService) *EntityHandler {
	return &EntityHandler{service: service}
}

// GetEntity godoc
// @Summary Get a live record
// @Tags entities
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Record ID"
// @Success 200 {object} models.Record
// @Router /admin/entities/{type}/{id} [get]
func (h *EntityHandler) GetEntity(c *gin.Context) {
	record, err := h.service.GetEntity(c.Request.Context(), entityType(c), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to retrieve record", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   record,
	})
}

// ListDeleted godoc
// @Summary List soft-deleted records of a type
// @Tags entities
// @Produce json
// @Param type path string true "Entity type"
// @Param limit query int false "Maximum number of records"
// @Success 200 {object} dto.DeletedListResponse
// @Router /admin/entities/{type}/deleted [get]
func (h *EntityHandler) ListDeleted(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid limit",
		})
		return
	}

	response, err := h.service.ListDeleted(c.Request.Context(), entityType(c), limit)
	if err != nil {
		respondError(c, "Failed to list deleted records", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   response,
	})
}

// DeleteEntity godoc
// @Summary Soft-delete a record and its dependents
// @Tags entities
// @Accept json
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Record ID"
// @Param request body dto.TransitionRequest false "Cascade and reason"
// @Success 200 {object} dto.TransitionResponse
// @Router /admin/entities/{type}/{id}/delete [post]
func (h *EntityHandler) DeleteEntity(c *gin.Context) {
	var req dto.TransitionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	response, err := h.service.DeleteEntity(c.Request.Context(), entityType(c), c.Param("id"), c.GetString("userId"), req)
	if err != nil {
		respondError(c, "Failed to delete record", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   response,
	})
}

// RestoreEntity godoc
// @Summary Restore a soft-deleted record
// @Tags entities
// @Accept json
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Record ID"
// @Param request body dto.TransitionRequest false "Cascade and reason"
// @Success 200 {object} dto.TransitionResponse
// @Router /admin/entities/{type}/{id}/restore [post]
func (h *EntityHandler) RestoreEntity(c *gin.Context) {
	var req dto.TransitionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	response, err := h.service.RestoreEntity(c.Request.Context(), entityType(c), c.Param("id"), c.GetString("userId"), req)
	if err != nil {
		respondError(c, "Failed to restore record", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   response,
	})
}

// Cleanup godoc
// @Summary Permanently erase expired soft-deleted records
// @Tags entities
// @Accept json
// @Produce json
// @Param type path string true "Entity type"
// @Param request body dto.CleanupRequest false "Retention overrides"
// @Success 200 {object} dto.CleanupResponse
// @Router /admin/entities/{type}/cleanup [post]
func (h *EntityHandler) Cleanup(c *gin.Context) {
	var req dto.CleanupRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	response, err := h.service.Cleanup(c.Request.Context(), entityType(c), req)
	if err != nil {
		respondError(c, "Failed to clean up records", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   response,
	})
}

func entityType(c *gin.Context) models.EntityType {
	return models.EntityType(c.Param("type"))
}

// bindOptionalJSON binds the request body when one is present
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid request: " + err.Error(),
		})
		return false
	}
	return true
}

func respondError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, lifecycle.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lifecycle.ErrVersionConflict):
		status = http.StatusConflict
	}

	c.JSON(status, gin.H{
		"status":  "error",
		"message": message + ": " + err.Error(),
	})
}
