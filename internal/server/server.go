// Package server exposes the adapter over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/m2tx/gemini_adapter/internal/adapter"
	"github.com/m2tx/gemini_adapter/internal/chat"
	"github.com/m2tx/gemini_adapter/internal/logging"
	"github.com/m2tx/gemini_adapter/internal/model"
	"github.com/m2tx/gemini_adapter/internal/sse"
)

const (
	ThreadIDHeader = "X-Thread-Id"
	RunIDHeader    = "X-Run-Id"
)

// Responder is the part of *adapter.Adapter the server uses.
type Responder interface {
	Model() string
	GetResponse(ctx context.Context, req chat.Request) (*adapter.Response, error)
	Thread(ctx context.Context, threadID string) ([]model.Content, error)
	DeleteThread(ctx context.Context, threadID string) error
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func newErrorBody(errType string, err error) errorBody {
	return errorBody{Error: errorDetail{Message: err.Error(), Type: errType}}
}

// NewRouter builds the gin engine serving r.
func NewRouter(r Responder) *gin.Engine {
	router := gin.New()
	router.Use(logging.GinLogger(), logging.GinRecovery())

	h := &handler{responder: r}
	router.GET("/healthz", h.health)
	router.POST("/copilotkit/chat", h.chat)
	router.GET("/threads/:id", h.thread)
	router.DELETE("/threads/:id", h.deleteThread)

	return router
}

type handler struct {
	responder Responder
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model": h.responder.Model()})
}

func (h *handler) chat(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, newErrorBody("invalid_request_error", err))
		return
	}

	resp, err := h.responder.GetResponse(c.Request.Context(), req)
	if err != nil {
		status, errType := classify(err)
		if status >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		c.JSON(status, newErrorBody(errType, err))
		return
	}
	defer resp.Stream.Close()

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set(ThreadIDHeader, resp.ThreadID)
	header.Set(RunIDHeader, resp.RunID)
	c.Status(http.StatusOK)
	c.Writer.Flush()

	if err := copyStream(c.Writer, resp.Stream); err != nil {
		entry := log.WithFields(log.Fields{
			"request_id": logging.RequestID(c),
			"thread_id":  resp.ThreadID,
			"run_id":     resp.RunID,
		}).WithError(err)

		var upstream *adapter.UpstreamStreamError
		if !errors.As(err, &upstream) {
			entry.Debug("client stopped reading the response stream")
			return
		}

		entry.Warn("response stream ended with an upstream error")
		if werr := sse.NewWriter(c.Writer).WriteError(newErrorBody("upstream_error", err)); werr == nil {
			c.Writer.Flush()
		}
	}
}

// copyStream forwards src to w record by record, flushing after each read.
// Errors from src are returned as is; a failed write to w is returned too.
func copyStream(w gin.ResponseWriter, src io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			w.Flush()
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, chat.ErrInvalidRequest),
		errors.Is(err, adapter.ErrEmptyConversation),
		errors.Is(err, adapter.ErrMalformedFunctionCallArguments),
		errors.Is(err, adapter.ErrUnsupportedMessageRole):
		return http.StatusBadRequest, "invalid_request_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

func (h *handler) thread(c *gin.Context) {
	contents, err := h.responder.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, newErrorBody("server_error", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"thread_id": c.Param("id"), "contents": contents})
}

func (h *handler) deleteThread(c *gin.Context) {
	if err := h.responder.DeleteThread(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, newErrorBody("server_error", err))
		return
	}

	c.Status(http.StatusNoContent)
}
