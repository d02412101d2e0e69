// Package client simulates one GeoFinder player over a WebSocket connection.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/OOF2510/geofinder-harness/internal/countries"
	"github.com/OOF2510/geofinder-harness/internal/proto"
)

// State tracks where a simulated client is in its lifecycle.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FrameRecorder receives a copy of every frame the client reads or writes.
type FrameRecorder interface {
	Record(role, direction string, payload []byte)
}

// Message is one entry of the client's inbound audit log. Type is empty when
// the frame did not parse as a server message.
type Message struct {
	Raw        []byte
	Type       string
	ReceivedAt time.Time
}

// Options configures a simulated client.
type Options struct {
	URL      string
	Role     string
	RoomHash string

	Picker         *countries.Picker
	Clock          clockwork.Clock
	Logger         zerolog.Logger
	Recorder       FrameRecorder // optional
	AnswerDelayMin time.Duration
	AnswerDelayMax time.Duration
	GameEndGrace   time.Duration
}

// Client is one simulated player: a socket, its identity state, and an
// append-only log of everything the server pushed at it.
type Client struct {
	conn     *websocket.Conn
	role     string
	roomHash string

	picker   *countries.Picker
	clock    clockwork.Clock
	log      zerolog.Logger
	recorder FrameRecorder

	answerDelayMin time.Duration
	answerDelayMax time.Duration
	gameEndGrace   time.Duration

	writeMu sync.Mutex // one outbound frame at a time

	mu            sync.Mutex
	state         State
	playerID      string
	authenticated bool
	authSent      bool
	winner        string
	hostScore     int
	guestScore    int
	sawGameEnd    bool
	messages      []Message

	done     chan struct{}
	doneOnce sync.Once
}

// Dial connects a simulated client. The returned client is in the connected,
// unauthenticated state; Run must be started to service inbound events.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.URL, err)
	}

	c := &Client{
		conn:           conn,
		role:           opts.Role,
		roomHash:       opts.RoomHash,
		picker:         opts.Picker,
		clock:          opts.Clock,
		log:            opts.Logger,
		recorder:       opts.Recorder,
		answerDelayMin: opts.AnswerDelayMin,
		answerDelayMax: opts.AnswerDelayMax,
		gameEndGrace:   opts.GameEndGrace,
		state:          StateConnected,
		done:           make(chan struct{}),
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.picker == nil {
		c.picker = countries.NewPicker(nil)
	}

	c.log.Info().Str("url", opts.URL).Msg("connected")
	return c, nil
}

// Run reads inbound frames until the connection closes, dispatching each one.
// It always ends in the closed state and releases Done.
func (c *Client) Run(ctx context.Context) {
	defer c.markDone()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			c.recordClosure(err)
			return
		}
		c.handle(ctx, data)
	}
}

// Done is released once the connection is fully closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// SendAuth emits the authentication handshake. The orchestrator calls this
// exactly once per client; there is no retry.
func (c *Client) SendAuth(ctx context.Context) error {
	c.mu.Lock()
	already := c.authSent
	c.authSent = true
	c.mu.Unlock()
	if already {
		return fmt.Errorf("auth already sent")
	}

	c.log.Info().Str("room_hash", c.roomHash).Msg("sending auth")
	return c.send(ctx, proto.Outbound{
		Event: proto.EventAuth,
		Data:  proto.AuthData{Hash: c.roomHash},
	})
}

// Close shuts the socket down with the given status. Safe to call more than
// once; later calls are no-ops at the transport level.
func (c *Client) Close(status websocket.StatusCode, reason string) {
	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
	_ = c.conn.Close(status, reason)
}

// handle appends the frame to the audit log and then dispatches on its type.
// The log write happens before any state transition, parsed or not.
func (c *Client) handle(ctx context.Context, raw []byte) {
	var msg proto.ServerMessage
	parseErr := json.Unmarshal(raw, &msg)

	entry := Message{Raw: append([]byte(nil), raw...), ReceivedAt: c.clock.Now()}
	if parseErr == nil {
		entry.Type = msg.Type
	}
	c.mu.Lock()
	c.messages = append(c.messages, entry)
	c.mu.Unlock()

	if c.recorder != nil {
		c.recorder.Record(c.role, "in", raw)
	}

	if parseErr != nil {
		// Opaque frame: logged, no state change, not fatal.
		c.log.Info().Str("raw", string(raw)).Msg("raw message")
		return
	}

	switch msg.Type {
	case proto.TypeAuthOK:
		c.onAuthOK(msg)
	case proto.TypeRoundStart:
		c.onRoundStart(ctx, msg)
	case proto.TypeGameEnd:
		c.onGameEnd(ctx, msg)
	default:
		c.log.Debug().Str("type", msg.Type).RawJSON("payload", raw).Msg("received")
	}
}

// onAuthOK flips the authenticated flag. Only the first auth_ok has any
// effect; the transition is one-way.
func (c *Client) onAuthOK(msg proto.ServerMessage) {
	c.mu.Lock()
	if c.authenticated {
		c.mu.Unlock()
		c.log.Debug().Msg("duplicate auth_ok ignored")
		return
	}
	c.authenticated = true
	c.playerID = msg.PlayerID
	if c.state == StateConnected {
		c.state = StateAuthenticated
	}
	c.mu.Unlock()

	c.log.Info().Str("player_id", msg.PlayerID).Str("assigned_role", msg.Role).Msg("authenticated")
}

// onRoundStart schedules exactly one answer, delayed to mimic a human
// player thinking. The timer is never canceled; if the game ends first the
// late send is dropped on the floor.
func (c *Client) onRoundStart(ctx context.Context, msg proto.ServerMessage) {
	delay := c.picker.Delay(c.answerDelayMin, c.answerDelayMax)
	c.log.Info().Int("round", msg.RoundIndex).Dur("delay", delay).Msg("round started, answer scheduled")

	timer := c.clock.After(delay)
	go func() {
		select {
		case <-timer:
		case <-ctx.Done():
			return
		}

		c.mu.Lock()
		closed := c.state == StateClosed || c.sawGameEnd
		playerID := c.playerID
		c.mu.Unlock()
		if closed {
			c.log.Debug().Msg("answer timer fired after game end, dropping")
			return
		}

		guess := c.picker.Pick()
		c.log.Info().Str("country", guess.Name).Str("code", guess.Code).Msg("submitting guess")
		_ = c.send(ctx, proto.Outbound{
			Event: proto.EventSubmitAnswer,
			Data: proto.SubmitAnswerData{
				Hash:        c.roomHash,
				PlayerID:    playerID,
				CountryCode: guess.Code,
				CountryName: guess.Name,
			},
		})
	}()
}

// onGameEnd records the result and closes the socket after a grace period so
// in-flight server frames can settle.
func (c *Client) onGameEnd(ctx context.Context, msg proto.ServerMessage) {
	c.mu.Lock()
	c.sawGameEnd = true
	c.winner = msg.Winner
	c.hostScore = msg.HostScore
	c.guestScore = msg.GuestScore
	c.mu.Unlock()

	c.log.Info().
		Str("winner", msg.Winner).
		Int("host_score", msg.HostScore).
		Int("guest_score", msg.GuestScore).
		Msg("game ended")

	timer := c.clock.After(c.gameEndGrace)
	go func() {
		select {
		case <-timer:
		case <-ctx.Done():
		}
		c.Close(websocket.StatusNormalClosure, "game over")
	}()
}

// send writes one outbound envelope. Transport failures are logged but never
// escalate; a send against a closing socket is an accepted no-op.
func (c *Client) send(ctx context.Context, msg proto.Outbound) error {
	if c.recorder != nil {
		if raw, err := json.Marshal(msg); err == nil {
			c.recorder.Record(c.role, "out", raw)
		}
	}

	c.writeMu.Lock()
	err := wsjson.Write(ctx, c.conn, msg)
	c.writeMu.Unlock()
	if err != nil {
		c.log.Warn().Err(err).Str("event", msg.Event).Msg("send failed")
		return err
	}
	return nil
}

func (c *Client) recordClosure(err error) {
	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()

	status := websocket.CloseStatus(err)
	if status == -1 {
		c.log.Warn().Err(err).Msg("connection closed")
		return
	}
	c.log.Info().Int("code", int(status)).Err(err).Msg("connection closed")
}

func (c *Client) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

// Role returns the client's role tag.
func (c *Client) Role() string { return c.role }

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Authenticated reports whether an auth_ok has been received.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// PlayerID returns the server-assigned identity, empty until authenticated.
func (c *Client) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// Result returns the recorded game outcome and whether game_end was seen.
func (c *Client) Result() (winner string, hostScore, guestScore int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.winner, c.hostScore, c.guestScore, c.sawGameEnd
}

// Messages returns a snapshot of the inbound audit log in arrival order.
func (c *Client) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}
