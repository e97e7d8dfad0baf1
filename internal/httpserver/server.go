package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/markopsai/chapii-demo/internal/assistant"
	"github.com/markopsai/chapii-demo/internal/notify"
	"github.com/markopsai/chapii-demo/internal/session"
)

// Server exposes the call state, the assistant directory, and the call
// controls to the browser UI as JSON endpoints.
type Server struct {
	echo     *echo.Echo
	bridge   *session.Bridge
	dir      *assistant.Directory
	notifier *notify.Notifier
}

// New constructs the HTTP server with routes.
func New(bridge *session.Bridge, dir *assistant.Directory, notifier *notify.Notifier) *Server {
	s := &Server{
		echo:     newEcho(),
		bridge:   bridge,
		dir:      dir,
		notifier: notifier,
	}
	s.register()
	return s
}

// Router returns the handler for the http.Server.
func (s *Server) Router() http.Handler { return s.echo }

func (s *Server) register() {
	e := s.echo
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/api/assistants", s.getAssistants)
	e.GET("/api/assistants/:id", s.getAssistant)
	e.POST("/api/assistants/select", s.selectAssistant)
	e.GET("/api/state", s.getState)
	e.POST("/api/call/start", s.startCall)
	e.POST("/api/call/stop", s.stopCall)
	e.POST("/api/call/toggle", s.toggleCall)
	e.POST("/api/extracted/clear", s.clearExtracted)
}

type assistantsResponse struct {
	Assistants []assistantView `json:"assistants"`
	SelectedID string          `json:"selectedId,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type assistantView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) getAssistants(c echo.Context) error {
	resp := assistantsResponse{SelectedID: s.dir.SelectedID()}
	for _, a := range s.dir.Assistants() {
		resp.Assistants = append(resp.Assistants, assistantView{ID: a.ID, Name: a.Name})
	}
	// An empty list with a non-empty error means the fetch failed, not that
	// no assistants exist.
	if err := s.dir.Err(); err != nil {
		resp.Error = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) getAssistant(c echo.Context) error {
	a, ok := s.dir.Fetch(c.Request().Context(), c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "assistant not found"})
	}
	return c.JSON(http.StatusOK, a)
}

type selectRequest struct {
	ID string `json:"id"`
}

func (s *Server) selectAssistant(c echo.Context) error {
	var req selectRequest
	if err := c.Bind(&req); err != nil || req.ID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "assistant id required"})
	}
	if !s.dir.Select(req.ID) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown assistant id"})
	}
	return c.JSON(http.StatusOK, echo.Map{"selectedId": req.ID})
}

type stateResponse struct {
	session.Snapshot
	Notification *notify.Notification `json:"notification,omitempty"`
}

func (s *Server) getState(c echo.Context) error {
	return c.JSON(http.StatusOK, stateResponse{
		Snapshot:     s.bridge.Snapshot(),
		Notification: s.notifier.Current(),
	})
}

func (s *Server) startCall(c echo.Context) error {
	return s.callResult(c, s.bridge.Start(c.Request().Context(), s.dir.SelectedID()))
}

func (s *Server) stopCall(c echo.Context) error {
	return s.callResult(c, s.bridge.Stop())
}

func (s *Server) toggleCall(c echo.Context) error {
	return s.callResult(c, s.bridge.Toggle(c.Request().Context(), s.dir.SelectedID()))
}

func (s *Server) callResult(c echo.Context, err error) error {
	if errors.Is(err, session.ErrAssistantRequired) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "status": s.bridge.Status()})
	}
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error(), "status": s.bridge.Status()})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": s.bridge.Status()})
}

func (s *Server) clearExtracted(c echo.Context) error {
	s.bridge.ClearExtracted()
	return c.NoContent(http.StatusNoContent)
}
