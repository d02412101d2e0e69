// Package mockserver is a small local stand-in for the GeoFinder 1v1
// service: room provisioning over HTTP plus the game loop over WebSocket.
// It implements just enough of the protocol for the harness to play a full
// game without the real deployment.
package mockserver

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/OOF2510/geofinder-harness/internal/countries"
	"github.com/OOF2510/geofinder-harness/internal/proto"
)

// Match lifecycle states, as the original service names them.
const (
	stateWaiting  = "waiting"
	statePlaying  = "playing"
	stateFinished = "finished"
)

// Options tunes the mock game. Zero values fall back to the real service's
// pacing (5 rounds, 30s each).
type Options struct {
	BypassAppCheck string // empty accepts any credential
	Rounds         int
	RoundDuration  time.Duration
	RoundGap       time.Duration
	Logger         *zerolog.Logger
	Rand           *rand.Rand
}

type eventHandler func(ctx context.Context, m *match, conn *websocket.Conn, data json.RawMessage)

// Server hosts the provisioning endpoint and the per-room game loops.
type Server struct {
	opts     Options
	log      *zerolog.Logger
	picker   *countries.Picker
	handlers map[string]eventHandler

	mu      sync.Mutex
	matches map[string]*match
}

type player struct {
	id   string
	role string
	conn *websocket.Conn
}

type match struct {
	hash string

	mu           sync.Mutex
	host         *player
	guest        *player
	state        string
	round        int
	secret       countries.Country
	answers      map[string]countries.Country
	bothAnswered chan struct{}
	hostScore    int
	guestScore   int
}

// New builds a mock server.
func New(opts Options) *Server {
	if opts.Rounds <= 0 {
		opts.Rounds = 5
	}
	if opts.RoundDuration <= 0 {
		opts.RoundDuration = 30 * time.Second
	}
	if opts.RoundGap <= 0 {
		opts.RoundGap = 3 * time.Second
	}

	s := &Server{
		opts:    opts,
		log:     opts.Logger,
		picker:  countries.NewPicker(opts.Rand),
		matches: make(map[string]*match),
	}
	s.handlers = map[string]eventHandler{
		proto.EventAuth:         s.handleAuth,
		proto.EventSubmitAnswer: s.handleSubmitAnswer,
		"ping":                  s.handlePing,
	}
	return s
}

// Handler returns the HTTP surface: provisioning, game socket, status.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/1v1/new", s.createRoom)
	r.GET("/ws", s.serveGame)
	r.GET("/status", s.status)
	return r
}

func (s *Server) createRoom(c *gin.Context) {
	if s.opts.BypassAppCheck != "" && c.Query("bypassAppCheck") != s.opts.BypassAppCheck {
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}

	hash := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	m := &match{hash: hash, state: stateWaiting}

	s.mu.Lock()
	s.matches[hash] = m
	s.mu.Unlock()

	s.log.Info().Str("room_hash", hash).Msg("room created")
	c.JSON(http.StatusOK, gin.H{"hash": hash, "ok": true})
}

func (s *Server) status(c *gin.Context) {
	s.mu.Lock()
	active := len(s.matches)
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "active_matches": active})
}

func (s *Server) serveGame(c *gin.Context) {
	hash := c.Query("roomHash")
	if hash == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing roomHash"})
		return
	}

	s.mu.Lock()
	m := s.matches[hash]
	s.mu.Unlock()
	if m == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid room hash"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.Warn().Err(err).Msg("ws accept failed")
		return
	}

	s.log.Info().Str("room_hash", hash).Msg("game socket connected")
	s.readLoop(context.Background(), m, conn)
}

func (s *Server) readLoop(ctx context.Context, m *match, conn *websocket.Conn) {
	defer s.dropConn(m, conn)

	for {
		var env struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			s.log.Debug().Err(err).Str("room_hash", m.hash).Msg("game socket read ended")
			return
		}

		if handler, ok := s.handlers[env.Event]; ok {
			handler(ctx, m, conn, env.Data)
		} else {
			_ = conn.Write(ctx, websocket.MessageText, []byte("Unknown event: "+env.Event))
		}
	}
}

func (s *Server) handlePing(ctx context.Context, _ *match, conn *websocket.Conn, _ json.RawMessage) {
	_ = conn.Write(ctx, websocket.MessageText, []byte("pong"))
}

func (s *Server) handleAuth(ctx context.Context, m *match, conn *websocket.Conn, data json.RawMessage) {
	var d proto.AuthData
	if err := json.Unmarshal(data, &d); err != nil || d.Hash == "" {
		s.writeMessage(ctx, conn, proto.ServerMessage{Type: proto.TypeError, Message: "Missing hash"})
		return
	}

	m.mu.Lock()
	var p *player
	switch {
	case m.host == nil:
		p = &player{id: uuid.NewString(), role: "host", conn: conn}
		m.host = p
	case m.guest == nil:
		p = &player{id: uuid.NewString(), role: "guest", conn: conn}
		m.guest = p
	default:
		m.mu.Unlock()
		s.writeMessage(ctx, conn, proto.ServerMessage{Type: proto.TypeError, Message: "Match is full"})
		return
	}
	start := m.host != nil && m.guest != nil && m.state == stateWaiting
	if start {
		m.state = statePlaying
	}
	roomState := m.state
	m.mu.Unlock()

	s.log.Info().Str("room_hash", m.hash).Str("role", p.role).Str("player_id", p.id).Msg("player authenticated")
	s.writeMessage(ctx, conn, proto.ServerMessage{
		Type:      proto.TypeAuthOK,
		PlayerID:  p.id,
		Role:      p.role,
		RoomState: roomState,
	})

	if start {
		go s.runGame(m)
	}
}

func (s *Server) handleSubmitAnswer(ctx context.Context, m *match, conn *websocket.Conn, data json.RawMessage) {
	var d proto.SubmitAnswerData
	if err := json.Unmarshal(data, &d); err != nil || d.PlayerID == "" || d.CountryCode == "" {
		s.writeMessage(ctx, conn, proto.ServerMessage{Type: proto.TypeError, Message: "Missing fields"})
		return
	}

	m.mu.Lock()
	known := (m.host != nil && d.PlayerID == m.host.id) || (m.guest != nil && d.PlayerID == m.guest.id)
	if !known || m.state != statePlaying || m.answers == nil {
		m.mu.Unlock()
		if !known {
			s.writeMessage(ctx, conn, proto.ServerMessage{Type: proto.TypeError, Message: "Unknown player"})
		}
		return
	}
	m.answers[d.PlayerID] = countries.Country{Code: d.CountryCode, Name: d.CountryName}
	both := len(m.answers) >= 2
	ch := m.bothAnswered
	m.mu.Unlock()

	s.log.Info().Str("room_hash", m.hash).Str("player_id", d.PlayerID).Str("code", d.CountryCode).Msg("answer submitted")
	if both {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// runGame drives the round loop for one match once both players are in.
func (s *Server) runGame(m *match) {
	ctx := context.Background()

	for i := 1; i <= s.opts.Rounds; i++ {
		m.mu.Lock()
		m.round = i
		m.secret = s.picker.Pick()
		m.answers = make(map[string]countries.Country, 2)
		m.bothAnswered = make(chan struct{}, 1)
		ch := m.bothAnswered
		m.mu.Unlock()

		s.broadcast(ctx, m, proto.ServerMessage{Type: proto.TypeRoundStart, RoundIndex: i})

		select {
		case <-ch:
		case <-time.After(s.opts.RoundDuration):
		}

		m.mu.Lock()
		if m.host != nil {
			if a, ok := m.answers[m.host.id]; ok && a.Code == m.secret.Code {
				m.hostScore++
			}
		}
		if m.guest != nil {
			if a, ok := m.answers[m.guest.id]; ok && a.Code == m.secret.Code {
				m.guestScore++
			}
		}
		result := proto.ServerMessage{
			Type:       proto.TypeRoundResult,
			RoundIndex: i,
			HostScore:  m.hostScore,
			GuestScore: m.guestScore,
		}
		m.mu.Unlock()

		s.broadcast(ctx, m, result)
		if i < s.opts.Rounds {
			time.Sleep(s.opts.RoundGap)
		}
	}

	m.mu.Lock()
	m.state = stateFinished
	winner := "draw"
	if m.hostScore > m.guestScore {
		winner = "host"
	} else if m.guestScore > m.hostScore {
		winner = "guest"
	}
	end := proto.ServerMessage{
		Type:       proto.TypeGameEnd,
		Winner:     winner,
		HostScore:  m.hostScore,
		GuestScore: m.guestScore,
	}
	m.mu.Unlock()

	s.log.Info().Str("room_hash", m.hash).Str("winner", winner).Msg("game finished")
	s.broadcast(ctx, m, end)
}

func (s *Server) broadcast(ctx context.Context, m *match, msg proto.ServerMessage) {
	m.mu.Lock()
	conns := make([]*websocket.Conn, 0, 2)
	if m.host != nil && m.host.conn != nil {
		conns = append(conns, m.host.conn)
	}
	if m.guest != nil && m.guest.conn != nil {
		conns = append(conns, m.guest.conn)
	}
	m.mu.Unlock()

	for _, conn := range conns {
		s.writeMessage(ctx, conn, msg)
	}
}

func (s *Server) writeMessage(ctx context.Context, conn *websocket.Conn, msg proto.ServerMessage) {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := wsjson.Write(writeCtx, conn, msg); err != nil {
		s.log.Debug().Err(err).Str("type", msg.Type).Msg("mock write failed")
	}
}

func (s *Server) dropConn(m *match, conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "closing")

	m.mu.Lock()
	if m.host != nil && m.host.conn == conn {
		m.host.conn = nil
	}
	if m.guest != nil && m.guest.conn == conn {
		m.guest.conn = nil
	}
	m.mu.Unlock()
}
