package draft

import "slices"

type Side string

const (
	SideBlue Side = "blue"
	SideRed  Side = "red"
	SideNone Side = "" // spectator
)

func (s Side) Valid() bool { return s == SideBlue || s == SideRed }

func (s Side) Opponent() Side {
	switch s {
	case SideBlue:
		return SideRed
	case SideRed:
		return SideBlue
	default:
		return SideNone
	}
}

func ParseSide(s string) (Side, bool) {
	switch s {
	case "blue":
		return SideBlue, true
	case "red":
		return SideRed, true
	default:
		return SideNone, false
	}
}

type ActionKind string

const (
	ActionBan   ActionKind = "ban"
	ActionPick  ActionKind = "pick"
	ActionReady ActionKind = "ready"
)

const (
	BanSlots  = 5
	PickSlots = 3
)

type Phase string

const (
	NoReady   Phase = "NoReady"
	BlueReady Phase = "BlueReady"
	RedReady  Phase = "RedReady"
	BanBlue1  Phase = "BanBlue1"
	BanRed1   Phase = "BanRed1"
	BanBlue2  Phase = "BanBlue2"
	BanRed2   Phase = "BanRed2"
	BanBlue3  Phase = "BanBlue3"
	BanRed3   Phase = "BanRed3"
	PickBlue1 Phase = "PickBlue1"
	PickRed1  Phase = "PickRed1"
	PickRed2  Phase = "PickRed2"
	PickBlue2 Phase = "PickBlue2"
	BanRed4   Phase = "BanRed4"
	BanBlue4  Phase = "BanBlue4"
	BanRed5   Phase = "BanRed5"
	BanBlue5  Phase = "BanBlue5"
	PickBlue3 Phase = "PickBlue3"
	PickRed3  Phase = "PickRed3"
	Finished  Phase = "Finished"
)

// SlotRef names one ban or pick position of one side.
type SlotRef struct {
	Side  Side       `json:"side"`
	Kind  ActionKind `json:"kind"`
	Index int        `json:"index"`
}

func (r SlotRef) Valid() bool {
	if !r.Side.Valid() || r.Index < 0 {
		return false
	}
	switch r.Kind {
	case ActionBan:
		return r.Index < BanSlots
	case ActionPick:
		return r.Index < PickSlots
	default:
		return false
	}
}

type Turn struct {
	Phase Phase
	Slot  SlotRef
}

// Phases lists every phase in draft order.
func Phases() []Phase {
	out := slices.Clone(idlePhases)
	for _, t := range TurnOrder {
		out = append(out, t.Phase)
	}
	return append(out, Finished)
}

func (p Phase) Valid() bool {
	if p == Finished || slices.Contains(idlePhases, p) {
		return true
	}
	_, ok := turnByPhase[p]
	return ok
}

// NextActor is the side, action and slot expected to act in phase p. Idle,
// finished and unknown phases have no actor.
func NextActor(p Phase) (SlotRef, bool) {
	ref, ok := turnByPhase[p]
	return ref, ok
}

func IsTerminal(p Phase) bool { return p == Finished }

// IsAwaitingReady reports whether side still has to ready up in p.
func IsAwaitingReady(p Phase, side Side) bool {
	switch p {
	case NoReady:
		return side.Valid()
	case BlueReady:
		return side == SideRed
	case RedReady:
		return side == SideBlue
	default:
		return false
	}
}

func IsBanTurn(p Phase, side Side) bool {
	ref, ok := NextActor(p)
	return ok && ref.Side == side && ref.Kind == ActionBan
}

func IsPickTurn(p Phase, side Side) bool {
	ref, ok := NextActor(p)
	return ok && ref.Side == side && ref.Kind == ActionPick
}

// CanAct reports whether side has any legal action in p.
func CanAct(p Phase, side Side) bool {
	return IsAwaitingReady(p, side) || IsBanTurn(p, side) || IsPickTurn(p, side)
}

// IsBlocked drives the disabled state of a side's action control. A finished
// draft is not "blocked"; callers check IsTerminal for that.
func IsBlocked(p Phase, side Side) bool {
	if IsTerminal(p) {
		return false
	}
	return !CanAct(p, side)
}

// ExpectedAction is what side would submit in p, if anything.
func ExpectedAction(p Phase, side Side) (ActionKind, bool) {
	switch {
	case IsAwaitingReady(p, side):
		return ActionReady, true
	case IsBanTurn(p, side):
		return ActionBan, true
	case IsPickTurn(p, side):
		return ActionPick, true
	default:
		return "", false
	}
}
