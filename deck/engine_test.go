/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package deck

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/gamechain/game"
)

const frame = time.Second / 60

func testDeck() []game.Card {
	cards := make([]game.Card, game.DeckSize)
	for i := range cards {
		cards[i] = game.Card{ID: fmt.Sprintf("c%d", i), Text: fmt.Sprintf("idea %d", i), Source: game.SourceParticipant}
	}
	return cards
}

func run(e *Engine, phase game.Phase, d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += frame {
		e.Step(frame, phase)
	}
}

func TestTargetGrid(t *testing.T) {
	tests := []struct {
		index int
		want  Vec3
	}{
		{0, Vec3{-3.3, 1.6, 0}},
		{3, Vec3{3.3, 1.6, 0}},
		{4, Vec3{-3.3, -1.6, 0}},
		{6, Vec3{1.1, -1.6, 0}},
	}

	for _, tt := range tests {
		for _, phase := range []game.Phase{game.PhasePreview, game.PhaseSelection} {
			got := Target(tt.index, phase, false, false, 0).Position
			assert.InDelta(t, tt.want.X, got.X, 1e-9, "index %d x in %s", tt.index, phase)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9, "index %d y in %s", tt.index, phase)
			assert.InDelta(t, tt.want.Z, got.Z, 1e-9, "index %d z in %s", tt.index, phase)
		}
	}
}

func TestTargetRotation(t *testing.T) {
	assert.Equal(t, faceUp, Target(0, game.PhasePreview, false, false, 0).Rotation)
	assert.Equal(t, faceDown, Target(0, game.PhaseSelection, false, false, 0).Rotation)
	assert.Equal(t, Vec3{X: 0.2, Y: 0.1}, Target(0, game.PhaseSelection, false, true, 0).Rotation)
	assert.Equal(t, faceUp, Target(0, game.PhaseSelection, true, false, 0).Rotation)
	assert.Equal(t, faceDown, Target(0, game.PhaseShuffling, false, false, 0).Rotation)
}

func TestTargetFlippedAndParked(t *testing.T) {
	assert.Equal(t, front, Target(5, game.PhaseSelection, true, false, 0).Position)
	assert.NotEqual(t, front, Target(5, game.PhasePreview, true, false, 0).Position)

	for _, phase := range []game.Phase{game.PhaseSetup, game.PhaseRoundInput, game.PhaseGenerating, game.PhaseReveal, game.PhaseSummary} {
		assert.Equal(t, parked, Target(2, phase, false, false, 1.5).Position, "phase %s", phase)
	}
}

func TestTargetShuffleOrbits(t *testing.T) {
	a := Target(1, game.PhaseShuffling, false, false, 0.3).Position
	b := Target(1, game.PhaseShuffling, false, false, 0.6).Position
	assert.NotEqual(t, a, b, "shuffle target must move over time")

	c := Target(2, game.PhaseShuffling, false, false, 0.3).Position
	assert.NotEqual(t, a, c, "cards orbit with different phase offsets")

	for i := range game.DeckSize {
		p := Target(i, game.PhaseShuffling, false, false, 1.7).Position
		assert.LessOrEqual(t, math.Hypot(p.X, p.Z+float64(i)*stackDepth), orbitRadius+1e-9)
		assert.LessOrEqual(t, math.Abs(p.Y), orbitLift+1e-9)
	}
}

func TestStepNeverTeleports(t *testing.T) {
	e := NewEngine()
	e.Load(testDeck())

	run(e, game.PhasePreview, 3*time.Second)

	prev := e.Poses()
	for range 180 {
		e.Step(frame, game.PhaseShuffling)
		cur := e.Poses()
		for i := range cur {
			moved := cur[i].Position.Sub(prev[i].Position).Len()
			assert.Less(t, moved, 0.6, "card %d jumped %.3f in one frame", i, moved)
		}
		prev = cur
	}
}

func TestPreviewSettlesOnGrid(t *testing.T) {
	e := NewEngine()
	e.Load(testDeck())
	run(e, game.PhasePreview, 5*time.Second)

	for i, p := range e.Poses() {
		want := Target(i, game.PhasePreview, false, false, 0)
		assert.Less(t, p.Position.Sub(want.Position).Len(), 0.01, "card %d", i)
		assert.Less(t, p.Rotation.Sub(want.Rotation).Len(), 0.01, "card %d", i)
	}
}

func TestFlipCompletesWithinFlipDuration(t *testing.T) {
	e := NewEngine()
	e.Load(testDeck())
	run(e, game.PhaseSelection, 5*time.Second)

	start := e.Poses()[0]
	travel := front.Sub(start.Position).Len()
	require.True(t, e.Click("c0", game.PhaseSelection))

	run(e, game.PhaseSelection, game.FlipDuration)

	got := e.Poses()[0]
	assert.True(t, got.Flipped)
	assert.Less(t, front.Sub(got.Position).Len(), 0.01*travel)
	assert.Less(t, faceUp.Sub(got.Rotation).Len(), 0.01*math.Pi)
}

func TestClickContract(t *testing.T) {
	e := NewEngine()
	e.Load(testDeck())

	for _, phase := range []game.Phase{game.PhasePreview, game.PhaseShuffling, game.PhaseReveal} {
		assert.False(t, e.Click("c1", phase), "click in %s", phase)
	}
	assert.False(t, e.Flipped())

	assert.False(t, e.Click("missing", game.PhaseSelection))
	assert.True(t, e.Click("c1", game.PhaseSelection))
	assert.False(t, e.Click("c1", game.PhaseSelection), "same card twice")
	assert.False(t, e.Click("c2", game.PhaseSelection), "second card in the same deck")

	flipped := 0
	for _, p := range e.Poses() {
		if p.Flipped {
			flipped++
		}
	}
	assert.Equal(t, 1, flipped)
}

func TestHover(t *testing.T) {
	e := NewEngine()
	e.Load(testDeck())

	e.Hover("c3", true, game.PhasePreview)
	assert.False(t, e.Poses()[3].Hovered)

	e.Hover("c3", true, game.PhaseSelection)
	assert.True(t, e.Poses()[3].Hovered)

	require.True(t, e.Click("c3", game.PhaseSelection))
	assert.False(t, e.Poses()[3].Hovered, "flipping clears hover")

	e.Hover("c3", true, game.PhaseSelection)
	assert.False(t, e.Poses()[3].Hovered)
}

func TestLoadResetsOnNewDeck(t *testing.T) {
	e := NewEngine()
	cards := testDeck()
	e.Load(cards)
	require.True(t, e.Click("c0", game.PhaseSelection))

	e.Load(cards)
	assert.True(t, e.Flipped(), "reloading the same deck keeps state")

	next := testDeck()
	for i := range next {
		next[i].ID = "n" + next[i].ID
	}
	e.Load(next)
	assert.False(t, e.Flipped())
	assert.Equal(t, game.DeckSize, e.Len())
	for _, p := range e.Poses() {
		assert.Equal(t, parked, p.Position)
	}

	e.Load(nil)
	assert.Zero(t, e.Len())
}
