package handler_test

import (
	"net/http"
	"testing"
	"time"

	cacheMocks "cluster-registration/internal/cache/mocks"
	"cluster-registration/internal/handler"
	queueMocks "cluster-registration/internal/queue/mocks"
	repoMocks "cluster-registration/internal/repository/mocks"
	"cluster-registration/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// 以真實的 RegistrationService 搭配沒有任何預期呼叫的 mock，
// 確認超出 int4 的活動 id 不會進到資料庫
func setupRegistrationRouterWithService(t *testing.T) *gin.Engine {
	t.Helper()
	svc := service.NewRegistrationService(
		repoMocks.NewMockTxBeginner(t),
		repoMocks.NewMockEventRepository(t),
		repoMocks.NewMockRegistrationRepository(t),
		cacheMocks.NewMockEventCache(t),
		queueMocks.NewMockNotificationQueue(t),
		time.Second,
	)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handler.Recovery(zap.NewNop()))
	handler.NewRegistrationHandler(svc).RegisterRoutes(router)
	return router
}

func TestRegister_EventIDOutOfRange(t *testing.T) {
	t.Run("Numeric id above int4 is not found", func(t *testing.T) {
		router := setupRegistrationRouterWithService(t)

		w := serve(router, createJSONHTTPRequest(http.MethodPost, "/api/v1/registrations", map[string]interface{}{
			"evento_id":      9999999999,
			"nombre_usuario": "Bob",
			"email_contacto": "bob@x.com",
		}))

		assert.Equal(t, http.StatusNotFound, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "error", body["status"])
		assert.Equal(t, "Evento no encontrado o no está disponible", body["message"])
		assert.NotContains(t, body, "error_code")
	})

	t.Run("String id above int4 is not found", func(t *testing.T) {
		router := setupRegistrationRouterWithService(t)

		w := serve(router, createJSONHTTPRequest(http.MethodPost, "/register_evento.php", map[string]interface{}{
			"evento_id":      "2147483648",
			"nombre_usuario": "Bob",
			"email_contacto": "bob@x.com",
		}))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
