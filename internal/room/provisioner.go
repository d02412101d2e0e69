// Package room obtains a shared room hash from the GeoFinder provisioning API.
package room

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// CreationError reports a failed provisioning attempt. It is fatal for the
// session: no client may be created without a room hash.
type CreationError struct {
	Reason string
	Err    error
}

func (e *CreationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("create room: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("create room: %s", e.Reason)
}

func (e *CreationError) Unwrap() error { return e.Err }

// Provisioner issues the one-shot room creation request. The server does not
// guarantee idempotency, so CreateRoom must be called exactly once per session.
type Provisioner struct {
	httpClient     *http.Client
	endpoint       string
	bypassAppCheck string
	log            *zerolog.Logger
}

// NewProvisioner builds a provisioner for the given endpoint. A nil httpClient
// gets a default with a request timeout.
func NewProvisioner(endpoint, bypassAppCheck string, httpClient *http.Client, logger *zerolog.Logger) *Provisioner {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Provisioner{
		httpClient:     httpClient,
		endpoint:       endpoint,
		bypassAppCheck: bypassAppCheck,
		log:            logger,
	}
}

// CreateRoom requests a new room and returns its hash. Any failure, including
// an ok=false body, yields a *CreationError and no partial hash.
func (p *Provisioner) CreateRoom(ctx context.Context) (string, error) {
	reqURL := fmt.Sprintf("%s?bypassAppCheck=%s", p.endpoint, url.QueryEscape(p.bypassAppCheck))

	p.log.Info().Str("endpoint", p.endpoint).Msg("creating room")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", &CreationError{Reason: "build request", Err: err}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &CreationError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	var body struct {
		Hash string `json:"hash"`
		Ok   bool   `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &CreationError{Reason: "decode response", Err: err}
	}
	if !body.Ok {
		return "", &CreationError{Reason: "server returned ok=false"}
	}
	if body.Hash == "" {
		return "", &CreationError{Reason: "server returned empty hash"}
	}

	p.log.Info().Str("room_hash", body.Hash).Msg("room created")
	return body.Hash, nil
}
