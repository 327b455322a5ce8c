package domain

import "time"

type RoomStatus string

const (
	StatusLobby   RoomStatus = "lobby"
	StatusPlaying RoomStatus = "playing"
	StatusEnded   RoomStatus = "ended"
)

type Role string

const (
	RoleNone     Role = ""
	RoleMajority Role = "majority"
	RoleImposter Role = "imposter"
	RoleMrWhite  Role = "mrwhite"
)

type Phase string

const (
	PhaseDiscussion  Phase = "discussion"
	PhaseVoting      Phase = "voting"
	PhaseRevote      Phase = "revote"
	PhaseElimination Phase = "elimination"
	PhaseNextRound   Phase = "next_round"
	PhaseGameOver    Phase = "game_over"
)

type Winner string

const (
	WinnerMajority Winner = "majority"
	WinnerImposter Winner = "imposter"
)

// Settings are the host-configurable room options. Field names are part of
// the wire protocol and must not change.
type Settings struct {
	Categories        []string `json:"categories"`
	EnableMrWhite     bool     `json:"enable_mr_white"`
	ImposterAwareness bool     `json:"imposter_awareness"`
	CustomWordpackID  *string  `json:"custom_wordpack_id"`
}

func DefaultSettings() Settings {
	return Settings{
		Categories:        []string{"basic_words", "animal_kingdoms", "food"},
		EnableMrWhite:     false,
		ImposterAwareness: true,
	}
}

// GameState is the per-room game progress. It is nil while the room sits in
// the lobby. Eliminated and RevealedRoles are append-only for the lifetime of
// one game.
type GameState struct {
	Round               int               `json:"round"`
	Phase               Phase             `json:"phase"`
	MajorityWord        string            `json:"majority_word"`
	ImposterWord        string            `json:"imposter_word"`
	Category            string            `json:"category"`
	SpeakingOrder       []string          `json:"speaking_order"`
	CurrentSpeakerIndex int               `json:"current_speaker_index"`
	Votes               map[string]string `json:"votes"`
	Eliminated          []string          `json:"eliminated"`
	RevealedRoles       map[string]Role   `json:"revealed_roles"`
	RevoteCandidates    []string          `json:"revote_candidates,omitempty"`
	LastEliminated      string            `json:"last_eliminated,omitempty"`
	Winner              Winner            `json:"winner,omitempty"`
}

// Clone returns a deep copy so mutations can be staged and committed only
// after the durable write succeeds.
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	out := *gs
	out.SpeakingOrder = append([]string(nil), gs.SpeakingOrder...)
	out.Eliminated = append([]string(nil), gs.Eliminated...)
	out.RevoteCandidates = append([]string(nil), gs.RevoteCandidates...)
	out.Votes = make(map[string]string, len(gs.Votes))
	for k, v := range gs.Votes {
		out.Votes[k] = v
	}
	out.RevealedRoles = make(map[string]Role, len(gs.RevealedRoles))
	for k, v := range gs.RevealedRoles {
		out.RevealedRoles[k] = v
	}
	return &out
}

// CurrentSpeaker returns the player id whose turn it is, or "" once the
// speaker index has run past the speaking order.
func (gs *GameState) CurrentSpeaker() string {
	if gs == nil || gs.CurrentSpeakerIndex >= len(gs.SpeakingOrder) {
		return ""
	}
	return gs.SpeakingOrder[gs.CurrentSpeakerIndex]
}

type Player struct {
	ID       string    `json:"player_id"`
	Name     string    `json:"player_name"`
	IsHost   bool      `json:"is_host"`
	IsAlive  bool      `json:"is_alive"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"-"`
}

// RoomRecord is the durable row for a room, without its players.
type RoomRecord struct {
	ID        int64
	Code      string
	HostID    string
	Status    RoomStatus
	Settings  Settings
	GameState *GameState
	UpdatedAt int64
}

// RoomSnapshot is the full observable state of a room, shared by push events
// and poll responses. UpdatedAt is the unix-seconds timestamp poll clients
// compare against.
type RoomSnapshot struct {
	RoomCode  string     `json:"room_code"`
	HostID    string     `json:"host_id"`
	Status    RoomStatus `json:"status"`
	Settings  Settings   `json:"settings"`
	GameState *GameState `json:"game_state"`
	Players   []Player   `json:"players"`
	UpdatedAt int64      `json:"updated_at"`
}

type Category struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	NameMS string `json:"name_ms"`
}

// WordPair is one majority/imposter word pairing with its category label.
type WordPair struct {
	MajorityWord string `json:"majority_word"`
	ImposterWord string `json:"imposter_word"`
	Category     string `json:"category"`
}

// WordPackPair is one row of an uploaded custom wordpack. The column names
// are the upload format contract.
type WordPackPair struct {
	Majoriti string `json:"majoriti"`
	Imposter string `json:"imposter"`
}
