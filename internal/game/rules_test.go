package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPlayableColorMatch(t *testing.T) {
	top := Card{Kind: KindNumber, Color: ColorRed, Value: 5}
	c := Card{Kind: KindNumber, Color: ColorRed, Value: 2}
	assert.True(t, isPlayable(c, top, 0))
}

func TestIsPlayableValueMatchAcrossColors(t *testing.T) {
	top := Card{Kind: KindNumber, Color: ColorRed, Value: 5}
	c := Card{Kind: KindNumber, Color: ColorBlue, Value: 5}
	assert.True(t, isPlayable(c, top, 0))
}

func TestIsPlayableKindMatchAcrossColors(t *testing.T) {
	top := Card{Kind: KindSkip, Color: ColorRed}
	c := Card{Kind: KindSkip, Color: ColorGreen}
	assert.True(t, isPlayable(c, top, 0))
}

func TestIsPlayableWildAlwaysLegal(t *testing.T) {
	top := Card{Kind: KindNumber, Color: ColorRed, Value: 5}
	assert.True(t, isPlayable(Card{Kind: KindWild, Color: ColorWild}, top, 0))
	assert.True(t, isPlayable(Card{Kind: KindWildDrawFour, Color: ColorWild}, top, 0))
}

func TestIsPlayableRespectsChosenColorOnWildTop(t *testing.T) {
	chosen := ColorBlue
	top := Card{Kind: KindWild, Color: ColorWild, ChosenColor: &chosen}
	assert.True(t, isPlayable(Card{Kind: KindNumber, Color: ColorBlue, Value: 3}, top, 0))
	assert.False(t, isPlayable(Card{Kind: KindNumber, Color: ColorRed, Value: 3}, top, 0))
}

func TestIsPlayableMismatchIsIllegal(t *testing.T) {
	top := Card{Kind: KindNumber, Color: ColorRed, Value: 5}
	c := Card{Kind: KindNumber, Color: ColorBlue, Value: 2}
	assert.False(t, isPlayable(c, top, 0))
}

func TestIsPlayableUnderPendingDrawOnlyStackers(t *testing.T) {
	top := Card{Kind: KindDrawTwo, Color: ColorRed}
	stacker := Card{Kind: KindDrawTwo, Color: ColorBlue}
	nonStacker := Card{Kind: KindNumber, Color: ColorRed, Value: 5}
	assert.True(t, isPlayable(stacker, top, 2))
	assert.False(t, isPlayable(nonStacker, top, 2), "color/value match does not override the stacking gate")
}

func TestResolveEffectSkipAdvancesTwice(t *testing.T) {
	c := NewTurnCursor([]string{"a", "b", "c"})
	res := resolveEffect(c, Card{Kind: KindSkip, Color: ColorRed}, true)
	assert.True(t, res.skipTurn)
	assert.Equal(t, "c", c.Current())
}

func TestResolveEffectReverseFlipsAndAdvances(t *testing.T) {
	c := NewTurnCursor([]string{"a", "b", "c"})
	res := resolveEffect(c, Card{Kind: KindReverse, Color: ColorRed}, true)
	assert.True(t, res.reversed)
	assert.Equal(t, DirCCW, c.Direction())
	assert.Equal(t, "c", c.Current())
}

func TestResolveEffectReverseTwoSeatsActsAsSkip(t *testing.T) {
	c := NewTurnCursor([]string{"a", "b"})
	res := resolveEffect(c, Card{Kind: KindReverse, Color: ColorBlue}, true)
	assert.True(t, res.reversed)
	assert.Equal(t, DirCCW, c.Direction())
	assert.Equal(t, "a", c.Current(), "scenario A: reverse in a two-seat game lets the same player go again")
}

func TestResolveEffectDrawTwoStackingModeAccumulates(t *testing.T) {
	c := NewTurnCursor([]string{"a", "b", "c"})
	res := resolveEffect(c, Card{Kind: KindDrawTwo, Color: ColorRed}, true)
	assert.Equal(t, 2, res.stackDelta)
	assert.Equal(t, 0, res.drawForNext)
	assert.Equal(t, "b", c.Current(), "stacking mode just advances, it doesn't skip")
}

func TestResolveEffectDrawTwoNonStackingModeStopsOnVictim(t *testing.T) {
	c := NewTurnCursor([]string{"a", "b", "c"})
	res := resolveEffect(c, Card{Kind: KindDrawTwo, Color: ColorRed}, false)
	assert.Equal(t, 2, res.drawForNext)
	assert.Equal(t, 0, res.stackDelta)
	assert.Equal(t, "b", c.Current(), "cursor stops on the penalized seat; the session deals and advances past them")
}

func TestResolveEffectWildDrawFourMirrorsDrawTwo(t *testing.T) {
	c := NewTurnCursor([]string{"a", "b", "c"})
	res := resolveEffect(c, Card{Kind: KindWildDrawFour, Color: ColorWild}, true)
	assert.Equal(t, 4, res.stackDelta)
}

func TestPickBestColorPrefersMostRepresentedColor(t *testing.T) {
	hand := []Card{
		{Kind: KindNumber, Color: ColorRed, Value: 1},
		{Kind: KindNumber, Color: ColorRed, Value: 2},
		{Kind: KindNumber, Color: ColorBlue, Value: 3},
	}
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, ColorRed, pickBestColor(hand, rng))
}

func TestHasStackerDetectsDrawFourAndDrawTwo(t *testing.T) {
	assert.True(t, hasStacker([]Card{{Kind: KindWildDrawFour}}))
	assert.True(t, hasStacker([]Card{{Kind: KindDrawTwo}}))
	assert.False(t, hasStacker([]Card{{Kind: KindNumber}, {Kind: KindSkip}}))
}
