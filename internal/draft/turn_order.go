package draft

// TurnOrder is the ban/pick sequence after both sides are ready. It must match
// the server's ordering exactly; the slot index counts that side's turns of
// that kind.
var TurnOrder = []Turn{
	// Ban Phase 1
	{Phase: BanBlue1, Slot: SlotRef{Side: SideBlue, Kind: ActionBan, Index: 0}},
	{Phase: BanRed1, Slot: SlotRef{Side: SideRed, Kind: ActionBan, Index: 0}},
	{Phase: BanBlue2, Slot: SlotRef{Side: SideBlue, Kind: ActionBan, Index: 1}},
	{Phase: BanRed2, Slot: SlotRef{Side: SideRed, Kind: ActionBan, Index: 1}},
	{Phase: BanBlue3, Slot: SlotRef{Side: SideBlue, Kind: ActionBan, Index: 2}},
	{Phase: BanRed3, Slot: SlotRef{Side: SideRed, Kind: ActionBan, Index: 2}},
	// Pick Phase 1
	{Phase: PickBlue1, Slot: SlotRef{Side: SideBlue, Kind: ActionPick, Index: 0}},
	{Phase: PickRed1, Slot: SlotRef{Side: SideRed, Kind: ActionPick, Index: 0}},
	{Phase: PickRed2, Slot: SlotRef{Side: SideRed, Kind: ActionPick, Index: 1}},
	{Phase: PickBlue2, Slot: SlotRef{Side: SideBlue, Kind: ActionPick, Index: 1}},
	// Ban Phase 2
	{Phase: BanRed4, Slot: SlotRef{Side: SideRed, Kind: ActionBan, Index: 3}},
	{Phase: BanBlue4, Slot: SlotRef{Side: SideBlue, Kind: ActionBan, Index: 3}},
	{Phase: BanRed5, Slot: SlotRef{Side: SideRed, Kind: ActionBan, Index: 4}},
	{Phase: BanBlue5, Slot: SlotRef{Side: SideBlue, Kind: ActionBan, Index: 4}},
	// Pick Phase 2
	{Phase: PickBlue3, Slot: SlotRef{Side: SideBlue, Kind: ActionPick, Index: 2}},
	{Phase: PickRed3, Slot: SlotRef{Side: SideRed, Kind: ActionPick, Index: 2}},
}

var turnByPhase = func() map[Phase]SlotRef {
	m := make(map[Phase]SlotRef, len(TurnOrder))
	for _, t := range TurnOrder {
		m[t.Phase] = t.Slot
	}
	return m
}()

// idle phases come before the turn table, Finished after it.
var idlePhases = []Phase{NoReady, BlueReady, RedReady}
