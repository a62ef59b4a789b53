package game

import "math/rand"

// committedColor returns the color a card on top of the discard pile counts
// as for playability purposes: a wild's chosenColor once one has been set,
// otherwise the card's own color.
func committedColor(top Card) Color {
	if top.ChosenColor != nil {
		return *top.ChosenColor
	}
	return top.Color
}

// isPlayable implements spec §4.2's four-clause playability predicate plus
// the stacking gate. pendingDrawCount > 0 restricts the legal set to
// stackers regardless of color/kind/value match.
func isPlayable(c Card, top Card, pendingDrawCount int) bool {
	if pendingDrawCount > 0 {
		return c.IsStacker()
	}
	if c.IsWild() {
		return true
	}
	committed := committedColor(top)
	if c.Color == committed {
		return true
	}
	if c.Kind == top.Kind && c.Kind != KindNumber {
		return true
	}
	if c.Kind == KindNumber && top.Kind == KindNumber && c.Value == top.Value {
		return true
	}
	return false
}

// effectResult is what resolveEffect tells the Session to do after a legal
// play. resolveEffect moves the cursor itself; the Session performs the
// deck/state mutation, which keeps the rules engine itself free of
// Session-shaped dependencies.
type effectResult struct {
	// skipTurn and reversed report which cursor movement resolveEffect has
	// already applied; the caller must not advance again for them.
	skipTurn      bool
	reversed      bool
	drawForNext   int // cards the next seat must draw immediately (non-stacking mode)
	stackDelta    int // added to pendingDrawCount (stacking mode)
	lastPlayedKind Kind
}

// resolveEffect applies spec §4.3's per-kind effect table to the turn
// cursor and returns the draw/stack bookkeeping the Session must apply.
// played is the card as committed to the discard pile (chosenColor already
// set for wilds). stackingAllowed governs DRAW_TWO/WILD_DRAW_FOUR behavior.
func resolveEffect(cursor *TurnCursor, played Card, stackingAllowed bool) effectResult {
	var res effectResult
	switch played.Kind {
	case KindNumber:
		cursor.Advance()

	case KindSkip:
		cursor.Skip()
		res.skipTurn = true

	case KindReverse:
		cursor.Reverse()
		res.reversed = true
		if cursor.Len() == 2 {
			// With exactly two seats, reversing direction and advancing once
			// is a no-op (both directions name the same neighbor), so the
			// player would never actually lose their turn. Spec §4.3/§8
			// calls this out explicitly: treat it as SKIP instead, which
			// lands back on the player who played it.
			cursor.Skip()
		} else {
			cursor.Advance()
		}

	case KindDrawTwo:
		res.lastPlayedKind = KindDrawTwo
		res.stackDelta, res.drawForNext = penaltySplit(2, stackingAllowed)
		cursor.Advance()

	case KindWild:
		cursor.Advance()

	case KindWildDrawFour:
		res.lastPlayedKind = KindWildDrawFour
		res.stackDelta, res.drawForNext = penaltySplit(4, stackingAllowed)
		cursor.Advance()
	}
	return res
}

// penaltySplit routes a draw penalty to the right bookkeeping: stacking mode
// accumulates it as pendingDrawCount, non-stacking mode applies it to the
// seat now under the cursor immediately. In the non-stacking case the caller
// deals the cards to the current seat and then advances once more, so the
// victim's turn is forfeited (spec §4.3 "draws 2, advance twice").
func penaltySplit(n int, stackingAllowed bool) (stackDelta, drawForNext int) {
	if stackingAllowed {
		return n, 0
	}
	return 0, n
}

// hasStacker reports whether hand contains a card that can answer a pending
// draw penalty (any DRAW_TWO or WILD_DRAW_FOUR is eligible; spec §4.2 leaves
// color-matched stacking-onto-stacking as an implementer option and this
// engine takes the permissive branch — any stacker answers any pending
// penalty kind).
func hasStacker(hand []Card) bool {
	for _, c := range hand {
		if c.IsStacker() {
			return true
		}
	}
	return false
}

// pickBestColor chooses the color most represented in hand, breaking ties
// uniformly at random via rng (spec §4.7 rule 5).
func pickBestColor(hand []Card, rng *rand.Rand) Color {
	counts := map[Color]int{}
	for _, c := range hand {
		if !c.IsWild() {
			counts[c.Color]++
		}
	}
	best := -1
	var tied []Color
	for _, color := range playableColors {
		n := counts[color]
		if n > best {
			best = n
			tied = []Color{color}
		} else if n == best {
			tied = append(tied, color)
		}
	}
	if len(tied) == 0 {
		return playableColors[rng.Intn(len(playableColors))]
	}
	return tied[rng.Intn(len(tied))]
}
