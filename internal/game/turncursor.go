package game

// Direction is the rotation sense of the turn ring.
type Direction string

const (
	DirCW  Direction = "CW"
	DirCCW Direction = "CCW"
)

// TurnCursor is a closed ring of seatIDs with a direction flag. Current is
// tracked by seatID rather than index so that Insert/Remove never need to
// renumber a pointer — the ring reshuffles, the current seat doesn't move
// unless the operation says so. It is owned exclusively by one Session and
// carries no locks (see spec §5).
type TurnCursor struct {
	seats   []string
	current string
	dir     Direction
}

// NewTurnCursor builds a cursor over seatIDs in seating order, starting CW
// with the first seat current.
func NewTurnCursor(seatIDs []string) *TurnCursor {
	seats := make([]string, len(seatIDs))
	copy(seats, seatIDs)
	t := &TurnCursor{seats: seats, dir: DirCW}
	if len(seats) > 0 {
		t.current = seats[0]
	}
	return t
}

func (t *TurnCursor) Len() int { return len(t.seats) }

func (t *TurnCursor) Direction() Direction { return t.dir }

// Current returns the seatID whose turn it currently is, or "" if the ring
// is empty.
func (t *TurnCursor) Current() string { return t.current }

func (t *TurnCursor) indexOf(seatID string) int {
	for i, s := range t.seats {
		if s == seatID {
			return i
		}
	}
	return -1
}

func (t *TurnCursor) step() int {
	if t.dir == DirCW {
		return 1
	}
	return -1
}

func (t *TurnCursor) neighborOf(seatID string, steps int) string {
	n := len(t.seats)
	if n == 0 {
		return ""
	}
	idx := t.indexOf(seatID)
	if idx < 0 {
		return ""
	}
	idx = ((idx+steps)%n + n) % n
	return t.seats[idx]
}

// PeekNext returns the seatID that would become current after one Advance,
// without mutating the cursor.
func (t *TurnCursor) PeekNext() string {
	return t.neighborOf(t.current, t.step())
}

// Advance moves one step in the current direction.
func (t *TurnCursor) Advance() {
	if nxt := t.neighborOf(t.current, t.step()); nxt != "" {
		t.current = nxt
	}
}

// Skip advances two steps (the seat in between is skipped). With exactly two
// seats this naturally lands back on the seat that just acted, which is the
// REVERSE-behaves-as-SKIP boundary case required by spec §8.
func (t *TurnCursor) Skip() {
	t.Advance()
	t.Advance()
}

// Reverse flips the direction without advancing.
func (t *TurnCursor) Reverse() {
	if t.dir == DirCW {
		t.dir = DirCCW
	} else {
		t.dir = DirCW
	}
}

// Insert places seatID into the ring. If afterCurrent is true it is placed
// immediately after the current seat; otherwise it is appended at the end.
func (t *TurnCursor) Insert(seatID string, afterCurrent bool) {
	if afterCurrent && len(t.seats) > 0 {
		idx := t.indexOf(t.current) + 1
		t.seats = append(t.seats, "")
		copy(t.seats[idx+1:], t.seats[idx:])
		t.seats[idx] = seatID
		if t.current == "" {
			t.current = seatID
		}
		return
	}
	t.seats = append(t.seats, seatID)
	if t.current == "" {
		t.current = seatID
	}
}

// IndexOf returns the ring index of seatID, or -1.
func (t *TurnCursor) IndexOf(seatID string) int { return t.indexOf(seatID) }

// ReplaceAt swaps the seatID at a ring index in place, preserving the
// current pointer (by value — if the replaced seat was current, the new
// seatID becomes current since it occupies the same ring slot). Used for
// human -> substitute-bot handoff where the position in the ring must not
// change.
func (t *TurnCursor) ReplaceAt(index int, seatID string) {
	if index < 0 || index >= len(t.seats) {
		return
	}
	old := t.seats[index]
	t.seats[index] = seatID
	if t.current == old {
		t.current = seatID
	}
}

// Remove takes seatID out of the ring. If the removed seat was current, the
// cursor advances first so Current() still names a live seat afterward.
func (t *TurnCursor) Remove(seatID string) {
	idx := t.indexOf(seatID)
	if idx < 0 {
		return
	}

	if t.current == seatID {
		t.Advance()
	}
	if t.current == seatID {
		// Only seat left in the ring.
		t.current = ""
	}

	t.seats = append(t.seats[:idx], t.seats[idx+1:]...)
}

// Seats returns a copy of the ring in seating order (for PUBLIC_STATE's
// turnOrder field).
func (t *TurnCursor) Seats() []string {
	out := make([]string, len(t.seats))
	copy(out, t.seats)
	return out
}
