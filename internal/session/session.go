// Package session orchestrates one harness run: provision a room, drive a
// host and a guest client through the game, and stop at the hard deadline.
package session

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/OOF2510/geofinder-harness/internal/client"
	"github.com/OOF2510/geofinder-harness/internal/config"
	"github.com/OOF2510/geofinder-harness/internal/countries"
	"github.com/OOF2510/geofinder-harness/internal/log"
	"github.com/OOF2510/geofinder-harness/internal/room"
	"github.com/OOF2510/geofinder-harness/internal/transcript"
)

// Roles of the two simulated players.
const (
	RoleHost  = "host"
	RoleGuest = "guest"
)

// Result summarizes one session run.
type Result struct {
	SessionID          string
	RoomHash           string
	HostAuthenticated  bool
	GuestAuthenticated bool
	Winner             string
	HostScore          int
	GuestScore         int
	GameEnded          bool
	TimedOut           bool
}

// Session runs one two-player simulation. Config is required; the remaining
// fields default to production implementations and exist for tests.
type Session struct {
	Config config.Config
	Logger *zerolog.Logger

	Clock      clockwork.Clock
	Rand       *rand.Rand
	HTTPClient *http.Client
}

// Run executes the session to completion: both sockets closed, the session
// timeout, or context cancellation, whichever comes first. A provisioning
// failure aborts before any socket is opened.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	clock := s.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	picker := countries.NewPicker(s.Rand)
	logger := s.Logger
	if logger == nil {
		logger = log.New("info")
	}

	prov := room.NewProvisioner(s.Config.RoomAPIURL, s.Config.BypassAppCheck, s.HTTPClient, logger)
	roomHash, err := prov.CreateRoom(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{SessionID: uuid.NewString(), RoomHash: roomHash}

	var recorder client.FrameRecorder
	if s.Config.TranscriptPath != "" {
		store, err := transcript.Open(s.Config.TranscriptPath)
		if err != nil {
			return nil, fmt.Errorf("open transcript store: %w", err)
		}
		defer store.Close()
		recorder = transcript.NewRecorder(store, result.SessionID, logger)
		logger.Info().Str("path", s.Config.TranscriptPath).Str("session_id", result.SessionID).Msg("recording transcript")
	}

	wsURL := fmt.Sprintf("%s/ws?roomHash=%s", s.Config.WSBaseURL, roomHash)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Both connections are established concurrently; neither waits on the other.
	type dialed struct {
		c   *client.Client
		err error
	}
	dials := make(map[string]chan dialed, 2)
	for _, role := range []string{RoleHost, RoleGuest} {
		ch := make(chan dialed, 1)
		dials[role] = ch
		go func(role string) {
			c, err := client.Dial(runCtx, client.Options{
				URL:            wsURL,
				Role:           role,
				RoomHash:       roomHash,
				Picker:         picker,
				Clock:          clock,
				Logger:         log.ForRole(logger, role),
				Recorder:       recorder,
				AnswerDelayMin: s.Config.AnswerDelayMin,
				AnswerDelayMax: s.Config.AnswerDelayMax,
				GameEndGrace:   s.Config.GameEndGrace,
			})
			ch <- dialed{c: c, err: err}
		}(role)
	}

	clients := make(map[string]*client.Client, 2)
	var dialErr error
	for role, ch := range dials {
		d := <-ch
		if d.err != nil {
			dialErr = fmt.Errorf("connect %s: %w", role, d.err)
			continue
		}
		clients[role] = d.c
	}
	if dialErr != nil {
		for _, c := range clients {
			c.Close(websocket.StatusGoingAway, "peer dial failed")
		}
		return nil, dialErr
	}
	host, guest := clients[RoleHost], clients[RoleGuest]

	go host.Run(runCtx)
	go guest.Run(runCtx)

	bothClosed := make(chan struct{})
	go func() {
		<-host.Done()
		<-guest.Done()
		close(bothClosed)
	}()

	authTimer := clock.After(s.Config.AuthDelay)
	checkTimer := clock.After(s.Config.AuthCheckDelay)
	deadline := clock.After(s.Config.SessionTimeout)

	for {
		select {
		case <-authTimer:
			authTimer = nil
			logger.Info().Msg("sending auth handshakes")
			if err := host.SendAuth(runCtx); err != nil {
				logger.Warn().Err(err).Msg("host auth send failed")
			}
			if err := guest.SendAuth(runCtx); err != nil {
				logger.Warn().Err(err).Msg("guest auth send failed")
			}

		case <-checkTimer:
			checkTimer = nil
			if !host.Authenticated() || !guest.Authenticated() {
				logger.Warn().
					Bool("host_authenticated", host.Authenticated()).
					Bool("guest_authenticated", guest.Authenticated()).
					Msg("still waiting for authentication")
			}

		case <-deadline:
			logger.Warn().Dur("timeout", s.Config.SessionTimeout).Msg("session timeout reached, closing")
			result.TimedOut = true
			host.Close(websocket.StatusGoingAway, "session timeout")
			guest.Close(websocket.StatusGoingAway, "session timeout")
			s.collect(result, host, guest)
			return result, nil

		case <-bothClosed:
			logger.Info().Msg("both clients closed, session complete")
			s.collect(result, host, guest)
			return result, nil

		case <-ctx.Done():
			host.Close(websocket.StatusGoingAway, "interrupted")
			guest.Close(websocket.StatusGoingAway, "interrupted")
			s.collect(result, host, guest)
			return result, ctx.Err()
		}
	}
}

func (s *Session) collect(result *Result, host, guest *client.Client) {
	result.HostAuthenticated = host.Authenticated()
	result.GuestAuthenticated = guest.Authenticated()

	// Either client's view of the final score works; prefer one that saw it.
	for _, c := range []*client.Client{host, guest} {
		if winner, hostScore, guestScore, ok := c.Result(); ok {
			result.Winner = winner
			result.HostScore = hostScore
			result.GuestScore = guestScore
			result.GameEnded = true
			return
		}
	}
}
