package handler

import (
	"errors"
	"net/http"
	"time"

	"cluster-registration/internal/model"
	"cluster-registration/internal/service"
	apperrors "cluster-registration/pkg/app_errors"
	"cluster-registration/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EventHandler struct {
	service service.EventService
}

func NewEventHandler(service service.EventService) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("events", h.List)
		router.GET("events/:id", h.GetByID)
		router.POST("events", h.Create)
		router.PUT("events/:id/status", h.UpdateStatus)
	}
}

// CreateEventRequest 建立活動請求
type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description *string   `json:"description"`
	StartAt     time.Time `json:"start_at" binding:"required"`
	EndAt       time.Time `json:"end_at" binding:"required"`
	Location    *string   `json:"location"`
	CapacityMax *int      `json:"capacity_max" binding:"required"`
	Price       float64   `json:"price"`
}

// UpdateEventStatusRequest 更新活動狀態請求
type UpdateEventStatusRequest struct {
	Status model.EventStatus `json:"status" binding:"required"`
}

// EventResponse 活動響應
type EventResponse struct {
	*model.Event
	RemainingCapacity int  `json:"remaining_capacity"`
	Registrable       bool `json:"registrable"`
}

func newEventResponse(event *model.Event) EventResponse {
	return EventResponse{
		Event:             event,
		RemainingCapacity: event.RemainingCapacity(),
		Registrable:       event.IsRegistrable() && !event.IsFull(),
	}
}

func (h *EventHandler) List(c *gin.Context) {
	events, err := h.service.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "List")
		return
	}
	resp := make([]EventResponse, 0, len(events))
	for _, event := range events {
		resp = append(resp, newEventResponse(event))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EventHandler) GetByID(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	event, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "GetByID")
		return
	}
	c.JSON(http.StatusOK, newEventResponse(event))
}

func (h *EventHandler) Create(c *gin.Context) {
	var req CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	created, err := h.service.Create(c.Request.Context(), model.CreateEventParams{
		Title:       req.Title,
		Description: req.Description,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Location:    req.Location,
		CapacityMax: *req.CapacityMax,
		Price:       req.Price,
	})
	if err != nil {
		h.handleError(c, err, "Create")
		return
	}
	c.JSON(http.StatusCreated, newEventResponse(created))
}

func (h *EventHandler) UpdateStatus(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req UpdateEventStatusRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	updated, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.handleError(c, err, "UpdateStatus")
		return
	}
	c.JSON(http.StatusOK, newEventResponse(updated))
}

func (h *EventHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, apperrors.ErrInvalidStatusTransition):
		log.Warn("Invalid status transition")
		c.JSON(http.StatusConflict, gin.H{"error": "Invalid status transition"})
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
