// Package server exposes the HTTP surface: websocket signaling for peer
// setup plus health and metrics endpoints.
package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/bhanuprakashpeddi-1432/Object-detection-WebRTC/internal/detect"
	"github.com/bhanuprakashpeddi-1432/Object-detection-WebRTC/internal/metrics"
	"github.com/bhanuprakashpeddi-1432/Object-detection-WebRTC/internal/rtc"
)

// Server routes signaling and monitoring traffic to the detection service.
type Server struct {
	log       *zap.Logger
	svc       *detect.Service
	rec       *metrics.Recorder
	newSource rtc.SourceFactory
	upgrader  websocket.Upgrader
}

func New(log *zap.Logger, svc *detect.Service, rec *metrics.Recorder, newSource rtc.SourceFactory) *Server {
	return &Server{
		log:       log,
		svc:       svc,
		rec:       rec,
		newSource: newSource,
		upgrader: websocket.Upgrader{
			// Browsers on other origins negotiate freely, matching the
			// permissive CORS posture of the signaling plane.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.Handle("/prometheus", s.rec.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/ws/{connection_id}", s.handleSignaling)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"model_loaded": s.svc.Available(),
		"performance":  s.svc.PerformanceStats(),
		"pool":         s.svc.PoolStats(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.PerformanceStats())
}

// signalMessage is the signaling envelope exchanged over the websocket.
type signalMessage struct {
	Type      string                   `json:"type"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

// handleSignaling owns one client's signaling session: it creates the peer,
// relays offer/answer and ICE candidates, and tears the peer down when the
// websocket goes away or any exchange fails.
func (s *Server) handleSignaling(w http.ResponseWriter, r *http.Request) {
	connectionID := mux.Vars(r)["connection_id"]
	log := s.log.With(zap.String("connection_id", connectionID))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	log.Info("signaling session established")

	writer := &wsWriter{conn: conn}
	peer, err := rtc.NewPeer(connectionID, s.log, s.svc, s.newSource, s.rec, func(c webrtc.ICECandidateInit) {
		if err := writer.send(signalMessage{Type: "ice-candidate", Candidate: &c}); err != nil {
			log.Warn("send ice candidate", zap.Error(err))
		}
	})
	if err != nil {
		log.Error("create peer", zap.Error(err))
		return
	}
	defer peer.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Info("signaling session ended", zap.Error(err))
			return
		}

		var msg signalMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn("invalid signaling message", zap.Error(err))
			return
		}

		switch msg.Type {
		case "offer":
			answer, err := peer.HandleOffer(msg.SDP)
			if err != nil {
				log.Error("handle offer", zap.Error(err))
				return
			}
			if err := writer.send(signalMessage{Type: "answer", SDP: answer}); err != nil {
				log.Warn("send answer", zap.Error(err))
				return
			}
		case "ice-candidate":
			if msg.Candidate == nil {
				continue
			}
			if err := peer.AddCandidate(*msg.Candidate); err != nil {
				log.Warn("add ice candidate", zap.Error(err))
			}
		default:
			log.Warn("unknown signaling message type", zap.String("type", msg.Type))
		}
	}
}

// wsWriter serializes concurrent writes to one websocket connection;
// gorilla allows a single writer at a time.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) send(msg signalMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(msg)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
