// Package httpapi exposes form sessions over HTTP. Every mutating route
// answers with the session's view; validation messages raised by the engine
// travel in the view's errors array.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbxark/intakeform/command"
	"github.com/tbxark/intakeform/form"
	"github.com/tbxark/intakeform/logger"
	"github.com/tbxark/intakeform/session"
	"github.com/tbxark/intakeform/voice"
)

const defaultMaxAudioBytes = 10 << 20

var errBadRequest = errors.New("bad request")

type Server struct {
	sessions      *session.Manager
	parser        command.Parser
	maxAudioBytes int64
	log           *logger.Logger
}

type Option func(*Server)

// WithParser enables the free-form command route.
func WithParser(p command.Parser) Option {
	return func(s *Server) { s.parser = p }
}

// WithMaxAudioBytes caps the body of an audio upload.
func WithMaxAudioBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxAudioBytes = n
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = logger.OrNop(l) }
}

func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:      sessions,
		maxAudioBytes: defaultMaxAudioBytes,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Routes() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	threads := engine.Group("/threads/:thread")
	threads.GET("", s.handleView)
	threads.DELETE("", s.handleClose)
	threads.POST("/turns", s.handleTurn)
	threads.POST("/commands", s.handleCommand)

	answers := threads.Group("/answers")
	answers.POST("/select", s.handleSelect)
	answers.POST("/toggle", s.handleToggle)
	answers.POST("/text", s.handleText)

	options := threads.Group("/options")
	options.POST("/expand", s.handleExpand)
	options.POST("/draft", s.handleDraft)
	options.POST("/record", s.handleRecord)
	options.POST("/transcript", s.handleTranscript)
	options.POST("/audio", s.handleAudio)

	blocks := threads.Group("/blocks/:block")
	blocks.POST("/submit", s.handleSubmit)
	blocks.POST("/choose", s.handleChoose)
	return engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type response struct {
	View  *session.View `json:"view,omitempty"`
	Error *APIError     `json:"error,omitempty"`
}

func (s *Server) respond(c *gin.Context, view session.View, err error) {
	if err == nil {
		c.JSON(http.StatusOK, response{View: &view})
		return
	}
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Warn("request failed", "path", c.FullPath(), "thread", c.Param("thread"), "error", err)
	}
	resp := response{Error: &APIError{Message: err.Error(), Code: code}}
	if view.ThreadID != "" {
		resp.View = &view
	}
	c.JSON(status, resp)
}

func respondError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, response{Error: &APIError{Message: err.Error(), Code: code}})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, form.ErrIncomplete):
		return http.StatusUnprocessableEntity, "incomplete"
	case errors.Is(err, form.ErrUnknownBlock):
		return http.StatusNotFound, "unknown_block"
	case errors.Is(err, form.ErrWrongMode):
		return http.StatusConflict, "wrong_mode"
	case errors.Is(err, form.ErrTerminal):
		return http.StatusConflict, "submitted"
	case errors.Is(err, session.ErrNoTurn):
		return http.StatusConflict, "no_turn"
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, session.ErrNoRelay):
		return http.StatusConflict, "no_relay"
	case errors.Is(err, session.ErrNoUpload):
		return http.StatusConflict, "no_upload"
	case errors.Is(err, voice.ErrNotRecording):
		return http.StatusConflict, "not_recording"
	case errors.Is(err, session.ErrNoStarter), errors.Is(err, form.ErrNoDispatcher):
		return http.StatusNotImplemented, "unsupported"
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable, "closed"
	case errors.Is(err, command.ErrUnrecognized), errors.Is(err, command.ErrUsage):
		return http.StatusBadRequest, "bad_command"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusBadGateway, "dispatch_failed"
	}
}

func (s *Server) session(c *gin.Context) (*session.Session, bool) {
	sess, _, err := s.sessions.Open(c.Request.Context(), c.Param("thread"))
	if err != nil {
		status, code := classify(err)
		if code == "dispatch_failed" {
			status, code = http.StatusInternalServerError, "store"
		}
		respondError(c, status, code, err)
		return nil, false
	}
	return sess, true
}

// bind decodes the JSON body into req, answering 400 on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_json", err)
		return false
	}
	return true
}
