package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedFrame = errors.New("malformed frame")
var ErrUnknownFrame = errors.New("unknown frame type")

// Server -> Client

type CreateResponseMessage struct {
	Type        string `json:"type"`
	RoomID      string `json:"room_id"`
	BlueTeamKey string `json:"blue_team_key"`
	RedTeamKey  string `json:"red_team_key"`
}

// TeamStatus slots hold champion keys as strings; "-1" (or "") is an empty slot.
type TeamStatus struct {
	Name  string   `json:"name"`
	Bans  []string `json:"bans"`
	Picks []string `json:"picks"`
}

type StatusMessage struct {
	Type          string     `json:"type"`
	CurrentPhase  string     `json:"current_phase"`
	TimePerPick   int        `json:"time_per_pick"`
	TimePerBan    int        `json:"time_per_ban"`
	TimeRemaining int        `json:"time_remaining"`
	TimerActive   bool       `json:"timer_active"`
	FearlessBans  []string   `json:"fearless_bans"`
	BlueTeam      TeamStatus `json:"blue_team"`
	RedTeam       TeamStatus `json:"red_team"`
}

// UserJoinedMessage.Team is "blue", "red" or empty for a spectator.
type UserJoinedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Team    string `json:"team,omitempty"`
}

// ResultMessage carries the server's "error" and "success" notices.
type ResultMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Decode parses one inbound frame into its concrete message type. The result
// is one of CreateResponseMessage, StatusMessage, UserJoinedMessage or
// ResultMessage.
func Decode(data []byte) (any, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	var (
		msg any
		err error
	)
	switch head.Type {
	case TypeCreateResponse:
		var m CreateResponseMessage
		err = json.Unmarshal(data, &m)
		if err == nil && m.RoomID == "" {
			err = errors.New("missing room_id")
		}
		msg = m
	case TypeStatus:
		var m StatusMessage
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeUserJoined:
		var m UserJoinedMessage
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeError, TypeSuccess:
		var m ResultMessage
		err = json.Unmarshal(data, &m)
		msg = m
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, head.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedFrame, head.Type, err)
	}
	return msg, nil
}
