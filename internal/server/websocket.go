package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"hill-valley/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	topicVoting = "voting"
	wsWriteWait = 5 * time.Second
)

func triviaTopic(gameID uint) string {
	return "trivia:" + idString(gameID)
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// wsHub fans live updates out to the sockets subscribed to a topic.
type wsHub struct {
	mu     sync.Mutex
	topics map[string]map[*wsConn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		topics: make(map[string]map[*wsConn]struct{}),
	}
}

func (h *wsHub) Add(topic string, conn *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.topics[topic]
	if group == nil {
		group = make(map[*wsConn]struct{})
		h.topics[topic] = group
	}
	group[conn] = struct{}{}
}

func (h *wsHub) Remove(topic string, conn *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.topics[topic]
	if group == nil {
		return
	}
	delete(group, conn)
	_ = conn.conn.Close()
	if len(group) == 0 {
		delete(h.topics, topic)
	}
}

func (h *wsHub) Count(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

func (h *wsHub) Send(conn *wsConn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = conn.write(data)
}

func (h *wsHub) Broadcast(topic string, payload any) {
	h.mu.Lock()
	group := h.topics[topic]
	conns := make([]*wsConn, 0, len(group))
	for conn := range group {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.write(data); err != nil {
			h.Remove(topic, conn)
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleTriviaWebsocket(c *gin.Context) {
	game, err := s.store.FindGame(c.Param("id"))
	if err != nil {
		writeError(c, storeStatus(err), err.Error())
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	topic := triviaTopic(game.ID)
	log.Info().Uint("game_id", game.ID).Str("remote", c.Request.RemoteAddr).Msg("ws connected")
	ws := &wsConn{conn: conn}
	s.ws.Add(topic, ws)
	s.ws.Send(ws, triviaUpdate(*game))
	go s.readWS(topic, ws)
}

func (s *Server) handleVotingWebsocket(c *gin.Context) {
	update, err := s.votingUpdate()
	if err != nil {
		writeServerError(c, "failed to load voting state", err)
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	log.Info().Str("remote", c.Request.RemoteAddr).Msg("ws connected voting")
	ws := &wsConn{conn: conn}
	s.ws.Add(topicVoting, ws)
	s.ws.Send(ws, update)
	go s.readWS(topicVoting, ws)
}

func (s *Server) readWS(topic string, conn *wsConn) {
	defer s.ws.Remove(topic, conn)
	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			log.Debug().Err(err).Str("topic", topic).Msg("ws disconnected")
			return
		}
	}
}

// publish broadcasts to websocket subscribers and, when configured, mirrors
// the payload to the realtime database in the background.
func (s *Server) publish(topic string, payload any) {
	s.ws.Broadcast(topic, payload)
	if s.mirror == nil {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.mirror.Publish(ctx, topic, payload); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("mirror publish failed")
		}
	}()
}

type TriviaUpdate struct {
	Type        string             `json:"type"`
	Game        GameView           `json:"game"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

func triviaUpdate(game db.Game) TriviaUpdate {
	return TriviaUpdate{
		Type:        "trivia",
		Game:        gameView(game),
		Leaderboard: leaderboard(game.Participants),
	}
}

func (s *Server) broadcastGame(gameID uint) {
	game, err := s.store.FindGame(idString(gameID))
	if err != nil {
		log.Warn().Err(err).Uint("game_id", gameID).Msg("failed to load game for broadcast")
		return
	}
	s.publish(triviaTopic(game.ID), triviaUpdate(*game))
}
