package game

import (
	"fmt"
	"math/rand"
)

// Color is one of the four playable colors, or WILD for cards that have not
// yet had a color chosen/committed.
type Color string

const (
	ColorRed    Color = "RED"
	ColorYellow Color = "YELLOW"
	ColorGreen  Color = "GREEN"
	ColorBlue   Color = "BLUE"
	ColorWild   Color = "WILD"
)

var playableColors = [4]Color{ColorRed, ColorYellow, ColorGreen, ColorBlue}

// Kind is the card's effect family.
type Kind string

const (
	KindNumber       Kind = "NUMBER"
	KindSkip         Kind = "SKIP"
	KindReverse      Kind = "REVERSE"
	KindDrawTwo      Kind = "DRAW_TWO"
	KindWild         Kind = "WILD"
	KindWildDrawFour Kind = "WILD_DRAW_FOUR"
)

// Card is an immutable value object. ChosenColor is nil except for a wild
// that has been played onto the discard pile (the engine never mutates a
// card in a hand; it sets the color on a copy when the wild is played).
type Card struct {
	ID          string
	Kind        Kind
	Color       Color
	Value       int
	ChosenColor *Color
}

// PointValue is the end-of-game scoring value of a card left in a hand.
func (c Card) PointValue() int {
	switch c.Kind {
	case KindNumber:
		return c.Value
	case KindSkip, KindReverse, KindDrawTwo:
		return 20
	case KindWild, KindWildDrawFour:
		return 50
	default:
		return 0
	}
}

func (c Card) IsWild() bool {
	return c.Kind == KindWild || c.Kind == KindWildDrawFour
}

func (c Card) IsStacker() bool {
	return c.Kind == KindDrawTwo || c.Kind == KindWildDrawFour
}

// WithChosenColor returns a copy of the card with chosenColor set (used when
// a wild is placed on top of the discard pile).
func (c Card) WithChosenColor(color Color) Card {
	c.ChosenColor = &color
	return c
}

// WithoutChosenColor returns a copy of the card with chosenColor cleared
// (used when a wild returns to the deck via reshuffle).
func (c Card) WithoutChosenColor() Card {
	c.ChosenColor = nil
	return c
}

// Deck is the 108-card catalog: a draw stack and a discard pile. It is owned
// exclusively by a single Session's writer goroutine and carries no locks of
// its own (see spec §5 — shared resources have exactly one owner).
type Deck struct {
	draw    []Card
	discard []Card
}

// NewDeck builds and shuffles a standard 108-card deck.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{draw: buildCards()}
	d.Shuffle(rng)
	return d
}

func buildCards() []Card {
	cards := make([]Card, 0, 108)
	seq := 0
	next := func() string {
		seq++
		return fmt.Sprintf("c%03d", seq)
	}

	for _, color := range playableColors {
		cards = append(cards, Card{ID: next(), Kind: KindNumber, Color: color, Value: 0})
		for v := 1; v <= 9; v++ {
			cards = append(cards, Card{ID: next(), Kind: KindNumber, Color: color, Value: v})
			cards = append(cards, Card{ID: next(), Kind: KindNumber, Color: color, Value: v})
		}
		for i := 0; i < 2; i++ {
			cards = append(cards, Card{ID: next(), Kind: KindSkip, Color: color})
			cards = append(cards, Card{ID: next(), Kind: KindReverse, Color: color})
			cards = append(cards, Card{ID: next(), Kind: KindDrawTwo, Color: color})
		}
	}
	for i := 0; i < 4; i++ {
		cards = append(cards, Card{ID: next(), Kind: KindWild, Color: ColorWild})
	}
	for i := 0; i < 4; i++ {
		cards = append(cards, Card{ID: next(), Kind: KindWildDrawFour, Color: ColorWild})
	}
	return cards
}

// Shuffle performs a uniform Fisher-Yates permutation of the draw stack.
// Pass a seeded *rand.Rand for deterministic tests.
func (d *Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.draw), func(i, j int) {
		d.draw[i], d.draw[j] = d.draw[j], d.draw[i]
	})
}

// Draw removes and returns the top of the draw stack. ok is false if the
// draw stack is empty (callers should attempt Reshuffle first).
func (d *Deck) Draw() (Card, bool) {
	if len(d.draw) == 0 {
		return Card{}, false
	}
	c := d.draw[len(d.draw)-1]
	d.draw = d.draw[:len(d.draw)-1]
	return c, true
}

// DrawN draws n cards, reshuffling from the discard pile as needed. It
// fails with DECK_EXHAUSTED only if the deck truly cannot supply n cards.
func (d *Deck) DrawN(n int, rng *rand.Rand) ([]Card, error) {
	out := make([]Card, 0, n)
	for len(out) < n {
		c, ok := d.Draw()
		if !ok {
			if err := d.Reshuffle(rng); err != nil {
				return out, err
			}
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// PlayToDiscard pushes a card onto the discard pile, becoming the new top.
func (d *Deck) PlayToDiscard(c Card) {
	d.discard = append(d.discard, c)
}

// TopDiscard returns the current top of the discard pile.
func (d *Deck) TopDiscard() (Card, bool) {
	if len(d.discard) == 0 {
		return Card{}, false
	}
	return d.discard[len(d.discard)-1], true
}

// Reshuffle takes every discard entry except the current top, strips any
// chosen color from returned wilds, and shuffles them back into the draw
// stack. DECK_EXHAUSTED if the draw stack is empty and the discard pile has
// one card or fewer to recycle.
func (d *Deck) Reshuffle(rng *rand.Rand) error {
	if len(d.draw) > 0 {
		return nil
	}
	if len(d.discard) <= 1 {
		return newErr(ErrDeckExhausted, "draw pile empty and nothing left to reshuffle")
	}

	top := d.discard[len(d.discard)-1]
	rest := d.discard[:len(d.discard)-1]
	recycled := make([]Card, len(rest))
	for i, c := range rest {
		recycled[i] = c.WithoutChosenColor()
	}

	d.draw = recycled
	d.discard = []Card{top}
	d.Shuffle(rng)
	return nil
}

// DrawCount and DiscardCount report pile sizes (used for PUBLIC_STATE and
// the card-conservation invariant).
func (d *Deck) DrawCount() int    { return len(d.draw) }
func (d *Deck) DiscardCount() int { return len(d.discard) }
