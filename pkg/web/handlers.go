package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/ashikalishaik/ai-call-agent/pkg/bridge"
	"github.com/ashikalishaik/ai-call-agent/pkg/store"
	"github.com/ashikalishaik/ai-call-agent/pkg/twiml"
)

// handleIncomingCall answers the telephony webhook with TwiML that
// greets the caller and connects the bidirectional media stream.
func (s *Server) handleIncomingCall(c *fiber.Ctx) error {
	callSID := c.FormValue("CallSid")
	from := c.FormValue("From")
	to := c.FormValue("To")

	if callSID == "" {
		s.logger.Warn("webhook missing CallSid")
		return s.sendTwiML(c, errorTwiML())
	}

	session := bridge.NewSession(callSID, from, to)
	if err := s.cfg.Registry.Add(session); err != nil {
		s.logger.Warn("webhook rejected", "call_sid", callSID, "error", err)
		return s.sendTwiML(c, errorTwiML())
	}

	// A caller can hang up during the greeting, before the provider
	// dials the media stream back. Sessions still pending at the
	// deadline are abandoned; evict them so the registry only holds
	// live calls.
	time.AfterFunc(s.cfg.PendingTTL, func() {
		if session.Status() == bridge.StatusPending {
			s.logger.Info("evicting abandoned call", "call_sid", callSID)
			s.cfg.Registry.Remove(callSID)
		}
	})

	s.logger.Info("incoming call", "call_sid", callSID, "from", from)

	response := twiml.New().
		Say(fmt.Sprintf("Hello, calling %s.", s.cfg.AgentName)).
		Say("Please wait while I connect you to our AI assistant.").
		Pause(1).
		ConnectStream(fmt.Sprintf("wss://%s/media-stream", s.cfg.PublicHost))

	return s.sendTwiML(c, response)
}

func (s *Server) sendTwiML(c *fiber.Ctx, response *twiml.VoiceResponse) error {
	c.Set(fiber.HeaderContentType, twiml.ContentType)
	return c.SendString(response.RenderString())
}

// errorTwiML apologizes and hangs up. Sent with status 200 so the
// provider speaks it instead of playing its own failure message.
func errorTwiML() *twiml.VoiceResponse {
	return twiml.New().
		Say("Sorry, there was an error. Please try again later.").
		Hangup()
}

// streamProbeLimit bounds how many preamble frames the stream handler
// reads while waiting for the start event that names the call.
const streamProbeLimit = 8

// handleMediaStream owns one media stream socket. The provider only
// identifies the call in its start frame, so the handler reads until
// start, resolves the session, then hands the connection and the
// already-read frames to the call's bridge.
func (s *Server) handleMediaStream(conn *websocket.Conn) {
	defer conn.Close()

	callSID, buffered, err := readUntilStart(conn)
	if err != nil {
		s.logger.Warn("media stream rejected", "error", err)
		return
	}

	session, err := s.cfg.Registry.Get(callSID)
	if err != nil {
		s.logger.Warn("media stream for unknown call", "call_sid", callSID)
		return
	}

	b, err := s.cfg.NewBridge(session)
	if err != nil {
		s.logger.Error("bridge construction failed", "call_sid", callSID, "error", err)
		s.cfg.Registry.Remove(callSID)
		return
	}

	if err := b.Run(context.Background(), &replayConn{conn: conn, pending: buffered}); err != nil {
		s.logger.Error("bridge failed", "call_sid", callSID, "error", err)
	}
}

// readUntilStart consumes frames up to and including the start event
// and returns the call SID plus every frame read, for replay.
func readUntilStart(conn *websocket.Conn) (string, [][]byte, error) {
	var buffered [][]byte

	for len(buffered) < streamProbeLimit {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return "", nil, err
		}
		buffered = append(buffered, data)

		var probe struct {
			Event string `json:"event"`
			Start struct {
				CallSID string `json:"callSid"`
			} `json:"start"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			continue
		}
		if probe.Event == "start" {
			if probe.Start.CallSID == "" {
				return "", nil, errors.New("start frame missing callSid")
			}
			return probe.Start.CallSID, buffered, nil
		}
	}
	return "", nil, errors.New("no start frame in stream preamble")
}

// replayConn re-delivers the frames the handler consumed while probing
// for the start event, then reads from the live connection.
type replayConn struct {
	conn    *websocket.Conn
	pending [][]byte
}

func (c *replayConn) ReadMessage() (int, []byte, error) {
	if len(c.pending) > 0 {
		data := c.pending[0]
		c.pending = c.pending[1:]
		return websocket.TextMessage, data, nil
	}
	return c.conn.ReadMessage()
}

func (c *replayConn) WriteMessage(messageType int, data []byte) error {
	return c.conn.WriteMessage(messageType, data)
}

func (c *replayConn) Close() error {
	return c.conn.Close()
}

// handleListSummaries returns stored call summaries, newest first.
func (s *Server) handleListSummaries(c *fiber.Ctx) error {
	summaries, err := s.cfg.Store.List(c.Context())
	if err != nil {
		s.logger.Error("list summaries failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list summaries",
		})
	}
	return c.JSON(fiber.Map{
		"count":     len(summaries),
		"summaries": summaries,
	})
}

// handleGetSummary returns one summary by call SID.
func (s *Server) handleGetSummary(c *fiber.Ctx) error {
	sid := c.Params("sid")

	summary, err := s.cfg.Store.Get(c.Context(), sid)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "summary not found",
		})
	}
	if err != nil {
		s.logger.Error("get summary failed", "call_sid", sid, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load summary",
		})
	}
	return c.JSON(summary)
}

// handleHealth reports liveness and the number of in-flight calls.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	backend := s.cfg.StoreBackend
	if backend == "" {
		backend = "memory"
	}
	return c.JSON(fiber.Map{
		"status":       "ok",
		"active_calls": s.cfg.Registry.Count(),
		"store":        backend,
	})
}
