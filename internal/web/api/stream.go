package api

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wpkernel/wpkgen/internal/build"
	"github.com/wpkernel/wpkgen/internal/compiler/cache"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/plan"
	webcontext "github.com/wpkernel/wpkgen/internal/web/context"
	"github.com/wpkernel/wpkgen/internal/web/response"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time a connection may sit idle between requests
	readWait = 5 * time.Minute
)

// Stream message types
const (
	MessageWarning = "warning"
	MessageResult  = "result"
	MessageError   = "error"
)

// StreamRequest is one build requested over the stream
type StreamRequest struct {
	Format                plan.Format `json:"format,omitempty"`
	Plan                  string      `json:"plan"`
	IncludeBaseController *bool       `json:"includeBaseController,omitempty"`
}

// StreamMessage is sent by the server. A build produces any number of
// warning messages followed by exactly one result or error message.
type StreamMessage struct {
	Type     string                  `json:"type"`
	Warning  *errors.Warning         `json:"warning,omitempty"`
	Cached   bool                    `json:"cached,omitempty"`
	Artifact *cache.Artifact         `json:"artifact,omitempty"`
	Error    *response.ErrorResponse `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// tokens, not cookies, authenticate the stream
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleStream serves builds over a websocket until the client closes it
func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an error status
		return
	}
	defer conn.Close()

	conn.SetReadLimit(MaxPlanBytes)
	log := s.logger.With(zap.String("request_id", webcontext.GetRequestID(r.Context())))

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("stream closed", zap.Error(err))
			}
			return
		}

		var req StreamRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if err := writeMessage(conn, StreamMessage{Type: MessageError, Error: errorBody(err)}); err != nil {
				return
			}
			continue
		}

		if err := s.streamBuild(r, conn, req); err != nil {
			log.Debug("stream write failed", zap.Error(err))
			return
		}
	}
}

func (s *Service) streamBuild(r *http.Request, conn *websocket.Conn, req StreamRequest) error {
	var writeErr error
	send := func(msg StreamMessage) {
		if writeErr != nil {
			return
		}
		writeErr = writeMessage(conn, msg)
	}

	format := req.Format
	if format == "" {
		format = plan.FormatYAML
	}
	res, err := s.pipeline.Run(r.Context(), build.Input{
		Source:                []byte(req.Plan),
		Format:                format,
		IncludeBaseController: req.IncludeBaseController,
		OnWarning: func(w errors.Warning) {
			send(StreamMessage{Type: MessageWarning, Warning: &w})
		},
	})
	if err != nil {
		s.metrics.failed()
		send(StreamMessage{Type: MessageError, Error: errorBody(err)})
		return writeErr
	}

	send(StreamMessage{Type: MessageResult, Cached: res.Cached, Artifact: res.Artifact})
	return writeErr
}

func writeMessage(conn *websocket.Conn, msg StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func errorBody(err error) *response.ErrorResponse {
	body := &response.ErrorResponse{Error: "build_failed", Message: err.Error()}
	if diags := errors.Diagnostics(err); len(diags) > 0 {
		body.Error = "invalid_plan"
		body.Code = string(diags[0].Code)
		body.Details = diags
	}
	return body
}
