// Package types holds the JSON frames exchanged with the draft room server.
// Every frame is an object with a "type" discriminator.
package types

const (
	TypeCreate         = "create"
	TypeCreateResponse = "create_response"
	TypeJoin           = "join"
	TypeAction         = "action"
	TypeStatus         = "status"
	TypeUserJoined     = "user_joined"
	TypeError          = "error"
	TypeSuccess        = "success"
)

// ActionKind is the wire value of an action frame.
type ActionKind string

const (
	ActionReady       ActionKind = "ready"
	ActionChampSelect ActionKind = "champ_select" // hover, does not advance the phase
	ActionChampPick   ActionKind = "champ_pick"   // lock in, advances the phase
)

// Client -> Server

type CreateMessage struct {
	Type            string   `json:"type"`
	BlueTeamName    string   `json:"blue_team_name"`
	RedTeamName     string   `json:"red_team_name"`
	BlueTeamHasBans bool     `json:"blue_team_has_bans"`
	RedTeamHasBans  bool     `json:"red_team_has_bans"`
	TimePerPick     int      `json:"time_per_pick"`
	TimePerBan      int      `json:"time_per_ban"`
	FearlessBans    []string `json:"fearless_bans,omitempty"`
}

// JoinMessage without a key asks for the spectator role.
type JoinMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	Key    string `json:"key,omitempty"`
}

type ActionMessage struct {
	Type     string     `json:"type"`
	Action   ActionKind `json:"action"`
	Champion string     `json:"champion,omitempty"`
}

func NewCreate(m CreateMessage) CreateMessage {
	m.Type = TypeCreate
	return m
}

func NewJoin(roomID, key string) JoinMessage {
	return JoinMessage{Type: TypeJoin, RoomID: roomID, Key: key}
}

func NewAction(kind ActionKind, champion string) ActionMessage {
	return ActionMessage{Type: TypeAction, Action: kind, Champion: champion}
}
