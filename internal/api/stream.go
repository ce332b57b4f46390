package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-server/internal/domain"
)

// AssessmentEvent is the summary broadcast to stream clients when an
// assessment completes.
type AssessmentEvent struct {
	Type             string                `json:"type"`
	AssessmentID     string                `json:"assessment_id"`
	PatientID        string                `json:"patient_id"`
	RiskCategory     domain.RiskCategory   `json:"risk_category"`
	ReferralRequired bool                  `json:"referral_required"`
	TriggerReason    string                `json:"trigger_reason"`
	ConfidenceTier   domain.ConfidenceTier `json:"confidence_tier,omitempty"`
	Timestamp        time.Time             `json:"timestamp"`
}

type streamClient struct {
	id   string
	send chan []byte
}

// StreamHub fans completed assessment summaries out to connected
// dashboard clients. The stream is read-only: inbound messages are
// drained and discarded.
type StreamHub struct {
	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	log     *logrus.Logger
}

// NewStreamHub creates an empty hub.
func NewStreamHub(logger *logrus.Logger) *StreamHub {
	return &StreamHub{
		clients: make(map[*streamClient]struct{}),
		log:     logger,
	}
}

func (h *StreamHub) register(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *StreamHub) unregister(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// ClientCount returns the number of connected stream clients.
func (h *StreamHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a completed assessment summary to every client.
// Slow clients are skipped rather than blocking the assessment path.
func (h *StreamHub) Broadcast(resp *domain.AssessmentResponse) {
	if resp == nil || resp.Assessment == nil {
		return
	}

	event := AssessmentEvent{
		Type:             "assessment.completed",
		AssessmentID:     resp.AssessmentID,
		PatientID:        resp.PatientID,
		RiskCategory:     resp.Assessment.RiskCategory,
		ReferralRequired: resp.Assessment.ReferralRequired,
		TriggerReason:    resp.Assessment.TriggerReason,
		Timestamp:        time.Now().UTC(),
	}
	if resp.Confidence != nil {
		event.ConfidenceTier = resp.Confidence.Tier
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.log.WithError(err).Error("Failed to marshal assessment event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
}

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// handleStream upgrades the connection and attaches it to the hub.
func (h *StreamHub) handleStream(c *gin.Context) {
	ws, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := &streamClient{
		id:   uuid.New().String(),
		send: make(chan []byte, 64),
	}
	h.register(client)
	h.log.WithField("client_id", client.id).Debug("Stream client connected")

	go h.writePump(client, ws)
	go h.readPump(client, ws)
}

func (h *StreamHub) readPump(client *streamClient, ws *websocket.Conn) {
	defer func() {
		h.unregister(client)
		ws.Close()
	}()

	// Inbound messages are ignored; reading only detects disconnects.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *StreamHub) writePump(client *streamClient, ws *websocket.Conn) {
	defer ws.Close()

	for message := range client.send {
		if err := ws.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}
