package game

import "math/rand"

// botAction is the choice a BotStrategy hands back to the Session: either
// play a specific hand index (with a chosen color if the card is wild), or
// draw.
type botAction struct {
	draw        bool
	handIndex   int
	chosenColor Color
}

// chooseBotAction implements spec §4.7's deterministic-given-RNG policy. It
// is a pure function of (hand, top, pendingDrawCount, nextHandSize, rng) and
// never mutates anything.
func chooseBotAction(hand []Card, top Card, pendingDrawCount int, nextHandSize int, rng *rand.Rand) botAction {
	playable := playableIndexes(hand, top, pendingDrawCount)

	if pendingDrawCount > 0 {
		if idx, ok := bestStacker(hand, playable, top); ok {
			return botAction{handIndex: idx, chosenColor: wildColorFor(hand[idx], hand, rng)}
		}
		return botAction{draw: true}
	}

	if len(playable) == 0 {
		return botAction{draw: true}
	}

	if len(hand) == 2 {
		if idx, ok := firstOfKinds(hand, playable, KindSkip, KindReverse, KindDrawTwo); ok {
			return botAction{handIndex: idx, chosenColor: wildColorFor(hand[idx], hand, rng)}
		}
		if idx, ok := firstOfKinds(hand, playable, KindWild, KindWildDrawFour); ok {
			return botAction{handIndex: idx, chosenColor: wildColorFor(hand[idx], hand, rng)}
		}
	}

	if nextHandSize <= 2 {
		if idx, ok := firstOfKinds(hand, playable, KindDrawTwo); ok {
			return botAction{handIndex: idx, chosenColor: wildColorFor(hand[idx], hand, rng)}
		}
		if idx, ok := firstOfKinds(hand, playable, KindWildDrawFour); ok {
			return botAction{handIndex: idx, chosenColor: wildColorFor(hand[idx], hand, rng)}
		}
		if idx, ok := firstOfKinds(hand, playable, KindSkip); ok {
			return botAction{handIndex: idx, chosenColor: wildColorFor(hand[idx], hand, rng)}
		}
	}

	if idx, ok := firstOfKinds(hand, playable, KindSkip, KindReverse, KindDrawTwo); ok {
		return botAction{handIndex: idx, chosenColor: wildColorFor(hand[idx], hand, rng)}
	}
	if idx, ok := firstColorMatchNumber(hand, playable, top); ok {
		return botAction{handIndex: idx, chosenColor: wildColorFor(hand[idx], hand, rng)}
	}
	if idx, ok := firstOfKinds(hand, playable, KindNumber); ok {
		return botAction{handIndex: idx}
	}
	// Only wilds left playable; spend one rather than stall.
	idx := playable[0]
	return botAction{handIndex: idx, chosenColor: wildColorFor(hand[idx], hand, rng)}
}

// shouldCallOne implements spec §4.7 rule 6: call with probability 0.90 when
// handSize has just become 1.
func shouldCallOne(rng *rand.Rand) bool {
	return rng.Float64() < 0.90
}

func playableIndexes(hand []Card, top Card, pendingDrawCount int) []int {
	var out []int
	for i, c := range hand {
		if isPlayable(c, top, pendingDrawCount) {
			out = append(out, i)
		}
	}
	return out
}

// bestStacker prefers a stacker whose own color matches the committed
// color, falling back to any stacker.
func bestStacker(hand []Card, playable []int, top Card) (int, bool) {
	committed := committedColor(top)
	bestIdx, found := -1, false
	for _, i := range playable {
		if !hand[i].IsStacker() {
			continue
		}
		if !found {
			bestIdx, found = i, true
		}
		if hand[i].Color == committed {
			return i, true
		}
	}
	return bestIdx, found
}

func firstOfKinds(hand []Card, playable []int, kinds ...Kind) (int, bool) {
	for _, i := range playable {
		for _, k := range kinds {
			if hand[i].Kind == k {
				return i, true
			}
		}
	}
	return -1, false
}

func firstColorMatchNumber(hand []Card, playable []int, top Card) (int, bool) {
	committed := committedColor(top)
	for _, i := range playable {
		if hand[i].Kind == KindNumber && hand[i].Color == committed {
			return i, true
		}
	}
	return -1, false
}

func wildColorFor(c Card, hand []Card, rng *rand.Rand) Color {
	if !c.IsWild() {
		return ""
	}
	return pickBestColor(hand, rng)
}
