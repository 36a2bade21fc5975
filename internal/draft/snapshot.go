package draft

import (
	"slices"

	"github.com/DoyleJ11/lol-draft-client/internal/champion"
)

type TeamState struct {
	Name  string         `json:"name"`
	Bans  []champion.Key `json:"bans"`
	Picks []champion.Key `json:"picks"`
}

func NewTeamState(name string) TeamState {
	t := TeamState{
		Name:  name,
		Bans:  make([]champion.Key, BanSlots),
		Picks: make([]champion.Key, PickSlots),
	}
	for i := range t.Bans {
		t.Bans[i] = champion.NoKey
	}
	for i := range t.Picks {
		t.Picks[i] = champion.NoKey
	}
	return t
}

func (t TeamState) clone() TeamState {
	t.Bans = slices.Clone(t.Bans)
	t.Picks = slices.Clone(t.Picks)
	return t
}

// Snapshot is the full server-authoritative draft state from one status
// frame. Every new status replaces the previous snapshot wholesale.
type Snapshot struct {
	Phase         Phase          `json:"current_phase"`
	TimePerPick   int            `json:"time_per_pick"`
	TimePerBan    int            `json:"time_per_ban"`
	TimeRemaining int            `json:"time_remaining"`
	TimerActive   bool           `json:"timer_active"`
	Blue          TeamState      `json:"blue_team"`
	Red           TeamState      `json:"red_team"`
	FearlessBans  []champion.Key `json:"fearless_bans"`
}

func NewEmptySnapshot() Snapshot {
	return Snapshot{
		Phase:        NoReady,
		Blue:         NewTeamState("Blue Team"),
		Red:          NewTeamState("Red Team"),
		FearlessBans: []champion.Key{},
	}
}

func (s Snapshot) Clone() Snapshot {
	s.Blue = s.Blue.clone()
	s.Red = s.Red.clone()
	s.FearlessBans = slices.Clone(s.FearlessBans)
	return s
}

func (s Snapshot) Team(side Side) (TeamState, bool) {
	switch side {
	case SideBlue:
		return s.Blue, true
	case SideRed:
		return s.Red, true
	default:
		return TeamState{}, false
	}
}

// Slot returns the occupant of ref, or NoKey when it is empty or out of range.
func (s Snapshot) Slot(ref SlotRef) champion.Key {
	team, ok := s.Team(ref.Side)
	if !ok || ref.Index < 0 {
		return champion.NoKey
	}
	var slots []champion.Key
	switch ref.Kind {
	case ActionBan:
		slots = team.Bans
	case ActionPick:
		slots = team.Picks
	}
	if ref.Index >= len(slots) {
		return champion.NoKey
	}
	return slots[ref.Index]
}

func hasKey(slots []champion.Key, k champion.Key, skip int) bool {
	for i, v := range slots {
		if i == skip || !v.Valid() {
			continue
		}
		if v == k {
			return true
		}
	}
	return false
}

func (s Snapshot) isTaken(k champion.Key, except *SlotRef) bool {
	skip := func(side Side, kind ActionKind) int {
		if except != nil && except.Side == side && except.Kind == kind {
			return except.Index
		}
		return -1
	}
	return hasKey(s.Blue.Bans, k, skip(SideBlue, ActionBan)) ||
		hasKey(s.Red.Bans, k, skip(SideRed, ActionBan)) ||
		hasKey(s.Blue.Picks, k, skip(SideBlue, ActionPick)) ||
		hasKey(s.Red.Picks, k, skip(SideRed, ActionPick))
}

// IsDisallowed reports whether k is already in either side's bans or picks.
// Empty slots never match.
func (s Snapshot) IsDisallowed(k champion.Key) bool {
	if !k.Valid() {
		return false
	}
	return s.isTaken(k, nil)
}

func (s Snapshot) IsFearlessBanned(k champion.Key) bool {
	return k.Valid() && slices.Contains(s.FearlessBans, k)
}

// CanSelect reports whether k is still in the pool: not banned, picked or
// fearless-banned.
func (s Snapshot) CanSelect(k champion.Key) bool {
	return k.Valid() && !s.IsDisallowed(k) && !s.IsFearlessBanned(k)
}

// CanHover reports whether side may hover k now. Unlike CanLock the active
// slot counts, so re-hovering the champion already shown there is refused.
func (s Snapshot) CanHover(side Side, k champion.Key) bool {
	ref, ok := NextActor(s.Phase)
	return ok && ref.Side == side && s.CanSelect(k)
}

// CanLock is the lock-in rule for side. The server writes a hovered champion
// into the active slot, so that slot is ignored when looking for duplicates.
func (s Snapshot) CanLock(side Side, k champion.Key) bool {
	if !k.Valid() || s.IsFearlessBanned(k) {
		return false
	}
	ref, ok := NextActor(s.Phase)
	if !ok || ref.Side != side {
		return false
	}
	return !s.isTaken(k, &ref)
}

// Disallowed returns every champion currently out of the pool.
func (s Snapshot) Disallowed() []champion.Key {
	var out []champion.Key
	add := func(slots []champion.Key) {
		for _, k := range slots {
			if k.Valid() && !slices.Contains(out, k) {
				out = append(out, k)
			}
		}
	}
	add(s.Blue.Bans)
	add(s.Red.Bans)
	add(s.Blue.Picks)
	add(s.Red.Picks)
	add(s.FearlessBans)
	return out
}

// Summary is the render-ready reading of a phase for one side.
type Summary struct {
	Phase           Phase    `json:"phase"`
	Side            Side     `json:"side"`
	NextActor       *SlotRef `json:"next_actor,omitempty"`
	AwaitingReady   bool     `json:"awaiting_ready"`
	BanTurn         bool     `json:"ban_turn"`
	PickTurn        bool     `json:"pick_turn"`
	Blocked         bool     `json:"blocked"`
	Terminal        bool     `json:"terminal"`
	ActionLabel     string   `json:"action_label"`
	TimerActive     bool     `json:"timer_active"`
	TimeRemaining   int      `json:"time_remaining"`
	ActionAvailable bool     `json:"action_available"`
}

func Summarize(s Snapshot, side Side) Summary {
	sum := Summary{
		Phase:         s.Phase,
		Side:          side,
		AwaitingReady: IsAwaitingReady(s.Phase, side),
		BanTurn:       IsBanTurn(s.Phase, side),
		PickTurn:      IsPickTurn(s.Phase, side),
		Blocked:       IsBlocked(s.Phase, side),
		Terminal:      IsTerminal(s.Phase),
		TimerActive:   s.TimerActive,
		TimeRemaining: s.TimeRemaining,
	}
	if ref, ok := NextActor(s.Phase); ok {
		sum.NextActor = &ref
	}
	sum.ActionAvailable = !sum.Terminal && !sum.Blocked && side.Valid()

	kind, _ := ExpectedAction(s.Phase, side)
	switch {
	case sum.Terminal:
		sum.ActionLabel = "Finished"
	case kind == ActionReady:
		sum.ActionLabel = "Ready"
	case kind == ActionBan:
		sum.ActionLabel = "Ban"
	case kind == ActionPick:
		sum.ActionLabel = "Pick"
	default:
		sum.ActionLabel = "Waiting"
	}
	return sum
}
