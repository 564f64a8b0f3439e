package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbxark/intakeform/form"
	"github.com/tbxark/intakeform/session"
	"github.com/tbxark/intakeform/types"
	"github.com/tbxark/intakeform/voice"
)

type turnRequest struct {
	Raw string `json:"raw"`
}

type fieldRequest struct {
	Block    string `json:"block" binding:"required"`
	Question string `json:"question"`
	Option   string `json:"option"`
	Text     string `json:"text"`
}

func (r fieldRequest) optionKey() types.OptionKey {
	return types.NewOptionKey(r.Block, r.Question, r.Option)
}

type recordRequest struct {
	fieldRequest
	Action string `json:"action"`
}

type transcriptRequest struct {
	fieldRequest
	Token string `json:"token" binding:"required"`
	Error string `json:"error"`
}

type chooseRequest struct {
	Option string `json:"option" binding:"required"`
}

type commandRequest struct {
	Input string `json:"input" binding:"required"`
}

func (s *Server) handleView(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	view, err := sess.View(c.Request.Context())
	s.respond(c, view, err)
}

func (s *Server) handleClose(c *gin.Context) {
	if err := s.sessions.Close(c.Param("thread")); err != nil {
		status, code := classify(err)
		respondError(c, status, code, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleTurn renders raw as the next turn, or asks the dialogue engine for
// the opening turn when raw is empty.
func (s *Server) handleTurn(c *gin.Context) {
	var req turnRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if req.Raw == "" {
		view, err := sess.Start(c.Request.Context())
		s.respond(c, view, err)
		return
	}
	view, err := sess.NewTurn(c.Request.Context(), req.Raw)
	s.respond(c, view, err)
}

func (s *Server) handleCommand(c *gin.Context) {
	if s.parser == nil {
		respondError(c, http.StatusNotImplemented, "unsupported", errors.New("command parsing is not enabled"))
		return
	}
	var req commandRequest
	if !bind(c, &req) {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	blocks, err := sess.Blocks(ctx)
	if err != nil {
		s.respond(c, session.View{}, err)
		return
	}
	cmd, err := s.parser.ParseCommand(ctx, req.Input, blocks)
	if err != nil {
		s.respond(c, session.View{}, err)
		return
	}
	view, err := sess.Execute(ctx, cmd)
	s.respond(c, view, err)
}

// mutate decodes a field request and applies fn on the session loop.
func (s *Server) mutate(c *gin.Context, fn func(ctx context.Context, e *form.Engine, req fieldRequest) error) {
	var req fieldRequest
	if !bind(c, &req) {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	view, err := sess.Do(c.Request.Context(), func(ctx context.Context, e *form.Engine) error {
		if _, ok := e.Block(req.Block); !ok {
			return fmt.Errorf("%w: %s", form.ErrUnknownBlock, req.Block)
		}
		return fn(ctx, e, req)
	})
	s.respond(c, view, err)
}

func (s *Server) handleSelect(c *gin.Context) {
	s.mutate(c, func(ctx context.Context, e *form.Engine, req fieldRequest) error {
		e.SelectSingle(req.Block, req.Question, req.Option)
		return nil
	})
}

func (s *Server) handleToggle(c *gin.Context) {
	s.mutate(c, func(ctx context.Context, e *form.Engine, req fieldRequest) error {
		e.ToggleMultiple(req.Block, req.Question, req.Option)
		return nil
	})
}

func (s *Server) handleText(c *gin.Context) {
	s.mutate(c, func(ctx context.Context, e *form.Engine, req fieldRequest) error {
		e.SetText(req.Block, req.Question, req.Text)
		return nil
	})
}

func (s *Server) handleExpand(c *gin.Context) {
	s.mutate(c, func(ctx context.Context, e *form.Engine, req fieldRequest) error {
		e.ToggleExpansion(req.optionKey())
		return nil
	})
}

func (s *Server) handleDraft(c *gin.Context) {
	s.mutate(c, func(ctx context.Context, e *form.Engine, req fieldRequest) error {
		e.SetExpansionText(req.optionKey(), req.Text)
		return nil
	})
}

// handleRecord starts, stops or toggles (the default) a capture.
func (s *Server) handleRecord(c *gin.Context) {
	var req recordRequest
	if !bind(c, &req) {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	key := req.optionKey()
	view, err := sess.Do(c.Request.Context(), func(ctx context.Context, e *form.Engine) error {
		if _, ok := e.Block(req.Block); !ok {
			return fmt.Errorf("%w: %s", form.ErrUnknownBlock, req.Block)
		}
		switch req.Action {
		case "start":
			_, err := e.StartRecording(ctx, key)
			return err
		case "stop":
			e.StopRecording(key)
			return nil
		case "", "toggle":
			_, err := e.ToggleRecording(ctx, key)
			return err
		default:
			return fmt.Errorf("%w: record action %q", errBadRequest, req.Action)
		}
	})
	s.respond(c, view, err)
}

// handleTranscript accepts a result recognized by the client. It is applied
// asynchronously; the view reflects it once the session loop has run it.
func (s *Server) handleTranscript(c *gin.Context) {
	var req transcriptRequest
	if !bind(c, &req) {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	t := voice.Transcript{Key: req.optionKey(), Token: req.Token, Text: req.Text}
	switch req.Error {
	case "":
	case "no_speech":
		t.Err = voice.ErrNoSpeech
	default:
		t.Err = errors.New(req.Error)
	}
	if err := sess.Deliver(c.Request.Context(), t); err != nil {
		status, code := classify(err)
		respondError(c, status, code, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) handleSubmit(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	view, err := sess.Submit(c.Request.Context(), c.Param("block"))
	s.respond(c, view, err)
}

func (s *Server) handleChoose(c *gin.Context) {
	var req chooseRequest
	if !bind(c, &req) {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	view, err := sess.Choose(c.Request.Context(), c.Param("block"), req.Option)
	s.respond(c, view, err)
}

// handleAudio takes the raw audio body for the capture addressed by the
// block, question and option query parameters.
func (s *Server) handleAudio(c *gin.Context) {
	key := types.NewOptionKey(c.Query("block"), c.Query("question"), c.Query("option"))
	if key.BlockID == "" || key.OptionID == "" {
		respondError(c, http.StatusBadRequest, "bad_request", errors.New("block and option are required"))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxAudioBytes)
	audio, err := c.GetRawData()
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(c, http.StatusRequestEntityTooLarge, "too_large", err)
		return
	}
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if err := sess.Upload(c.Request.Context(), key, audio); err != nil {
		status, code := classify(err)
		respondError(c, status, code, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
