package session

import (
	"fmt"

	"github.com/DoyleJ11/lol-draft-client/internal/champion"
	"github.com/DoyleJ11/lol-draft-client/internal/draft"
	"github.com/DoyleJ11/lol-draft-client/pkg/types"
)

func snapshotFromStatus(m types.StatusMessage) (draft.Snapshot, error) {
	phase := draft.Phase(m.CurrentPhase)
	if !phase.Valid() {
		return draft.Snapshot{}, fmt.Errorf("%w: unknown phase %q", ErrBadStatus, m.CurrentPhase)
	}
	blue, err := teamFromStatus(m.BlueTeam)
	if err != nil {
		return draft.Snapshot{}, fmt.Errorf("%w: blue team: %w", ErrBadStatus, err)
	}
	red, err := teamFromStatus(m.RedTeam)
	if err != nil {
		return draft.Snapshot{}, fmt.Errorf("%w: red team: %w", ErrBadStatus, err)
	}
	fearless := make([]champion.Key, 0, len(m.FearlessBans))
	for _, raw := range m.FearlessBans {
		k, err := champion.ParseKey(raw)
		if err != nil {
			return draft.Snapshot{}, fmt.Errorf("%w: fearless bans: %w", ErrBadStatus, err)
		}
		if k.Valid() {
			fearless = append(fearless, k)
		}
	}

	return draft.Snapshot{
		Phase:         phase,
		TimePerPick:   m.TimePerPick,
		TimePerBan:    m.TimePerBan,
		TimeRemaining: m.TimeRemaining,
		TimerActive:   m.TimerActive,
		Blue:          blue,
		Red:           red,
		FearlessBans:  fearless,
	}, nil
}

func teamFromStatus(t types.TeamStatus) (draft.TeamState, error) {
	team := draft.NewTeamState(t.Name)
	if err := fillSlots(team.Bans, t.Bans); err != nil {
		return team, fmt.Errorf("bans: %w", err)
	}
	if err := fillSlots(team.Picks, t.Picks); err != nil {
		return team, fmt.Errorf("picks: %w", err)
	}
	return team, nil
}

// fillSlots copies raw into dst. Missing trailing slots stay empty.
func fillSlots(dst []champion.Key, raw []string) error {
	if len(raw) > len(dst) {
		return fmt.Errorf("%d slots, want at most %d", len(raw), len(dst))
	}
	for i, r := range raw {
		k, err := champion.ParseKey(r)
		if err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
		dst[i] = k
	}
	return nil
}
