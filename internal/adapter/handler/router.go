package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hoangtranvan/speaker-id-service/pkg/config"
)

// Router holds all handlers.
type Router struct {
	cfg     *config.Config
	speaker *Speaker
}

// NewRouter creates a new router with all handlers.
func NewRouter(cfg *config.Config, speaker *Speaker) *Router {
	return &Router{cfg: cfg, speaker: speaker}
}

// Setup configures all application routes.
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/healthz", rt.healthz)

	api := e.Group("/api")
	rt.setupEnrollmentRoutes(api)
	rt.setupIdentificationRoutes(api)
	rt.setupMeetingRoutes(api)
	rt.setupSpeakerRoutes(api)
}

func (rt *Router) setupEnrollmentRoutes(g *echo.Group) {
	if rt.speaker != nil {
		g.POST("/enroll", rt.speaker.Enroll)
		g.POST("/enroll-from-meeting", rt.speaker.EnrollFromMeeting)
		return
	}
	g.POST("/enroll", rt.notImplemented)
	g.POST("/enroll-from-meeting", rt.notImplemented)
}

func (rt *Router) setupIdentificationRoutes(g *echo.Group) {
	if rt.speaker != nil {
		g.POST("/identify", rt.speaker.Identify)
		g.POST("/confirm-speaker", rt.speaker.ConfirmSpeaker)
		return
	}
	g.POST("/identify", rt.notImplemented)
	g.POST("/confirm-speaker", rt.notImplemented)
}

func (rt *Router) setupMeetingRoutes(g *echo.Group) {
	if rt.speaker == nil {
		g.GET("/meeting/:id", rt.notImplemented)
		g.GET("/meeting/:id/speaker/:sid/clip", rt.notImplemented)
		g.POST("/meeting/:id/cleanup", rt.notImplemented)
		g.POST("/meeting/:id/summary", rt.notImplemented)
		return
	}
	g.GET("/meeting/:id", rt.speaker.MeetingSnapshot)
	g.GET("/meeting/:id/speaker/:sid/clip", rt.speaker.SpeakerClip)
	g.POST("/meeting/:id/cleanup", rt.speaker.MeetingCleanup)
	g.POST("/meeting/:id/summary", rt.speaker.SummarizeMeeting)
}

func (rt *Router) setupSpeakerRoutes(g *echo.Group) {
	if rt.speaker == nil {
		g.GET("/speakers", rt.notImplemented)
		g.DELETE("/speakers/:name", rt.notImplemented)
		g.POST("/speakers/sync", rt.notImplemented)
		return
	}
	g.GET("/speakers", rt.speaker.ListSpeakers)
	g.DELETE("/speakers/:name", rt.speaker.DeleteSpeaker)
	g.POST("/speakers/sync", rt.speaker.SyncSpeakers)
}

func (rt *Router) healthz(c echo.Context) error {
	if rt.speaker != nil {
		return rt.speaker.Healthz(c)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// notImplemented returns 501 Not Implemented when a handler has not been
// wired in main.go.
func (rt *Router) notImplemented(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, map[string]interface{}{
		"error":   "this endpoint is not yet implemented",
		"path":    c.Request().URL.Path,
		"method":  c.Request().Method,
		"message": "please initialize the required handler in main.go",
	})
}
