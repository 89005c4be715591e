package api

import (
	models "CopyFlow/internal/domain/models"
	"CopyFlow/internal/usecase"
	xhttp "CopyFlow/pkg/http"
	xlogger "CopyFlow/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ReplicationHandler exposes the UI boundary over Echo: session control,
// client management and read-only access to counters and the journal.
type ReplicationHandler struct {
	logger *xlogger.Logger
	engine *usecase.Engine
}

func NewReplicationHandler(logger *xlogger.Logger, engine *usecase.Engine) *ReplicationHandler {
	return &ReplicationHandler{logger: logger, engine: engine}
}

func (h *ReplicationHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.POST("/master", h.ConnectMaster)
	g.DELETE("/master", h.DisconnectMaster)
	g.POST("/replication/start", h.StartReplication)
	g.POST("/replication/stop", h.StopReplication)
	g.POST("/clients", h.AddClient)
	g.DELETE("/clients/:id", h.RemoveClient)
	g.GET("/status", h.Status)
	g.GET("/stats", h.Stats)
	g.GET("/logs", h.Logs)
}

func (h *ReplicationHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// ConnectMaster opens the upstream session. The connection completes
// asynchronously; poll /api/status for the outcome.
func (h *ReplicationHandler) ConnectMaster(c echo.Context) error {
	req := &models.CredentialRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.engine.ConnectMaster(c.Request().Context(), req.Token, req.AppID); err != nil {
		h.logger.Warn("master connect rejected", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, h.engine.Master())
}

func (h *ReplicationHandler) DisconnectMaster(c echo.Context) error {
	h.engine.DisconnectMaster()
	return xhttp.NoContentResponse(c)
}

// StartReplication activates fan-out and resets the counters.
func (h *ReplicationHandler) StartReplication(c echo.Context) error {
	if err := h.engine.StartReplication(); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, h.engine.Stats())
}

func (h *ReplicationHandler) StopReplication(c echo.Context) error {
	h.engine.StopReplication()
	return xhttp.SuccessResponse(c, h.engine.Stats())
}

// AddClient registers a subscriber credential and returns the new client id.
func (h *ReplicationHandler) AddClient(c echo.Context) error {
	req := &models.CredentialRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	id := h.engine.AddClient(c.Request().Context(), req.Token, req.AppID)
	return xhttp.CreatedResponse(c, models.ClientCreatedResponse{ID: id})
}

// RemoveClient closes and removes a client. Idempotent.
func (h *ReplicationHandler) RemoveClient(c echo.Context) error {
	h.engine.RemoveClient(c.Param("id"))
	return xhttp.NoContentResponse(c)
}

func (h *ReplicationHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, models.StatusResponse{
		Active:  h.engine.Active(),
		Master:  h.engine.Master(),
		Clients: h.engine.Clients(),
	})
}

func (h *ReplicationHandler) Stats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.Stats())
}

func (h *ReplicationHandler) Logs(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.Logs())
}
