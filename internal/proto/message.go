package proto

// Outbound is the envelope for events the harness sends to the game server.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

const (
	EventAuth         = "auth"
	EventSubmitAnswer = "submit_answer"
)

// AuthData identifies the room the client wants to join.
type AuthData struct {
	Hash string `json:"hash"`
}

// SubmitAnswerData carries one country guess for the current round.
type SubmitAnswerData struct {
	Hash        string `json:"hash"`
	PlayerID    string `json:"playerId"`
	CountryCode string `json:"countryCode"`
	CountryName string `json:"countryName"`
}

// Server-pushed message types, discriminated by the "type" field.
const (
	TypeAuthOK      = "auth_ok"
	TypeRoundStart  = "round_start"
	TypeRoundResult = "round_result"
	TypeGameEnd     = "game_end"
	TypeError       = "error"
)

// ServerMessage is the flat shape the game server pushes. Fields are
// populated per Type; unrecognized types still decode, so the audit log
// keeps the discriminator.
type ServerMessage struct {
	Type       string `json:"type"`
	PlayerID   string `json:"playerId,omitempty"`
	Role       string `json:"role,omitempty"`
	RoomState  string `json:"roomState,omitempty"`
	RoundIndex int    `json:"roundIndex"`
	ImageURL   string `json:"imageUrl,omitempty"`
	Winner     string `json:"winner,omitempty"`
	HostScore  int    `json:"hostScore"`
	GuestScore int    `json:"guestScore"`
	Message    string `json:"message,omitempty"`
}
