package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"cluster-registration/internal/model"
	"cluster-registration/internal/service"
	apperrors "cluster-registration/pkg/app_errors"
	"cluster-registration/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

const (
	statusOK     = "ok"
	statusExists = "exists"
	statusFull   = "full"
	statusError  = "error"

	errorCodeDB       = "DB_ERROR"
	errorCodeInternal = "INTERNAL_ERROR"

	msgMethodNotAllowed = "Método no permitido. Use POST"
	msgNotFound         = "Evento no encontrado o no está disponible"
	msgFull             = "Cupo agotado para este evento"
	msgExists           = "Ya estás registrado en este evento"
	msgRegistered       = "Registrado exitosamente"
	msgDBError          = "Error de base de datos, intente nuevamente"
	msgInternalError    = "Error interno del servidor"

	// 與既有內網前端一致的時間格式
	timestampLayout = "2006-01-02 15:04:05"
)

// RegistrationResponse 報名端點的 JSON 外殼
type RegistrationResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
}

type RegisteredData struct {
	RegistroID        int    `json:"registro_id"`
	EventoID          int    `json:"evento_id"`
	EventoTitulo      string `json:"evento_titulo"`
	Usuario           string `json:"usuario"`
	Email             string `json:"email"`
	FechaRegistro     string `json:"fecha_registro"`
	CapacidadRestante int    `json:"capacidad_restante"`
}

type ExistingData struct {
	FechaRegistro string `json:"fecha_registro"`
	Estado        string `json:"estado"`
}

// RegisterEventRequest 報名請求。數字欄位用 json.Number，前端送字串或數字都可以
type RegisterEventRequest struct {
	EventoID         json.Number `json:"evento_id" form:"evento_id"`
	NombreUsuario    string      `json:"nombre_usuario" form:"nombre_usuario"`
	EmailContacto    string      `json:"email_contacto" form:"email_contacto"`
	EmpresaID        json.Number `json:"empresa_id" form:"empresa_id"`
	UsuarioID        json.Number `json:"usuario_id" form:"usuario_id"`
	NombreEmpresa    *string     `json:"nombre_empresa" form:"nombre_empresa"`
	TelefonoContacto *string     `json:"telefono_contacto" form:"telefono_contacto"`
	Comentarios      *string     `json:"comentarios" form:"comentarios"`
}

func (r RegisterEventRequest) toInput() model.RegisterInput {
	eventID, err := strconv.Atoi(strings.TrimSpace(r.EventoID.String()))
	if err != nil {
		eventID = 0
	}
	return model.RegisterInput{
		EventID:      eventID,
		ContactName:  r.NombreUsuario,
		ContactEmail: r.EmailContacto,
		ContactPhone: r.TelefonoContacto,
		CompanyName:  r.NombreEmpresa,
		CompanyID:    optionalInt64(r.EmpresaID),
		UserID:       optionalInt64(r.UsuarioID),
		Comments:     r.Comentarios,
	}
}

func optionalInt64(n json.Number) *int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(n.String()), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

type RegistrationHandler struct {
	service service.RegistrationService
}

func NewRegistrationHandler(service service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

func (h *RegistrationHandler) RegisterRoutes(r *gin.Engine) {
	public := r.Group("", CORS())
	{
		public.Any("/api/v1/registrations", h.Register)
		// 舊版內網表單的路徑
		public.Any("/register_evento.php", h.Register)
	}

	admin := r.Group("/api/v1")
	{
		admin.GET("events/:id/registrations", h.ListByEvent)
		admin.GET("registrations/:id", h.GetByID)
		admin.PUT("registrations/:id/confirm", h.Confirm)
		admin.PUT("registrations/:id/reject", h.Reject)
	}
}

func (h *RegistrationHandler) Register(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, RegistrationResponse{Status: statusError, Message: msgMethodNotAllowed})
		return
	}

	req := bindRegisterRequest(c)

	result, err := h.service.RegisterForEvent(c.Request.Context(), req.toInput())
	if err != nil {
		h.handleRegisterError(c, err)
		return
	}

	switch result.Outcome {
	case model.OutcomeValidationError:
		c.JSON(http.StatusBadRequest, RegistrationResponse{Status: statusError, Message: result.Validation.Error()})
	case model.OutcomeNotFound:
		c.JSON(http.StatusNotFound, RegistrationResponse{Status: statusError, Message: msgNotFound})
	case model.OutcomeFull:
		c.JSON(http.StatusOK, RegistrationResponse{Status: statusFull, Message: msgFull})
	case model.OutcomeExists:
		c.JSON(http.StatusOK, RegistrationResponse{
			Status:  statusExists,
			Message: msgExists,
			Data: ExistingData{
				FechaRegistro: result.Existing.RegisteredAt.Format(timestampLayout),
				Estado:        string(result.Existing.Status),
			},
		})
	case model.OutcomeOK:
		c.JSON(http.StatusOK, RegistrationResponse{
			Status:  statusOK,
			Message: msgRegistered,
			Data: RegisteredData{
				RegistroID:        result.Registration.ID,
				EventoID:          result.Event.ID,
				EventoTitulo:      result.Event.Title,
				Usuario:           result.Registration.ContactName,
				Email:             result.Registration.ContactEmail,
				FechaRegistro:     result.Registration.RegisteredAt.Format(timestampLayout),
				CapacidadRestante: result.RemainingCapacity,
			},
		})
	default:
		h.handleRegisterError(c, errors.New("unknown registration outcome: "+string(result.Outcome)))
	}
}

// bindRegisterRequest 先以 JSON 解析，失敗或是表單請求時改用 form 欄位
func bindRegisterRequest(c *gin.Context) RegisterEventRequest {
	var req RegisterEventRequest
	contentType := c.ContentType()
	if contentType != binding.MIMEPOSTForm && contentType != binding.MIMEMultipartPOSTForm {
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err == nil {
			return req
		}
		req = RegisterEventRequest{}
	}
	_ = c.ShouldBindWith(&req, binding.Form)
	return req
}

func (h *RegistrationHandler) handleRegisterError(c *gin.Context, err error) {
	log := logger.WithComponent("handler").With(zap.String("operation", "Register"), zap.Error(err))
	if apperrors.IsStorageError(err) {
		log.Error("Storage error")
		c.JSON(http.StatusInternalServerError, RegistrationResponse{
			Status:    statusError,
			Message:   msgDBError,
			ErrorCode: errorCodeDB,
		})
		return
	}
	log.Error("Unexpected error")
	c.JSON(http.StatusInternalServerError, RegistrationResponse{
		Status:    statusError,
		Message:   msgInternalError,
		ErrorCode: errorCodeInternal,
	})
}

func (h *RegistrationHandler) ListByEvent(c *gin.Context) {
	eventID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	registrations, err := h.service.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.handleError(c, err, "ListByEvent")
		return
	}
	c.JSON(http.StatusOK, registrations)
}

func (h *RegistrationHandler) GetByID(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	registration, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "GetByID")
		return
	}
	c.JSON(http.StatusOK, registration)
}

func (h *RegistrationHandler) Confirm(c *gin.Context) {
	h.review(c, model.RegistrationStatusConfirmed, "Confirm")
}

func (h *RegistrationHandler) Reject(c *gin.Context) {
	h.review(c, model.RegistrationStatusRejected, "Reject")
}

func (h *RegistrationHandler) review(c *gin.Context, status model.RegistrationStatus, operation string) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	registration, err := h.service.Review(c.Request.Context(), id, status)
	if err != nil {
		h.handleError(c, err, operation)
		return
	}
	c.JSON(http.StatusOK, registration)
}

func (h *RegistrationHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrRegistrationNotFound):
		log.Warn("Registration not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Registration not found"})
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
