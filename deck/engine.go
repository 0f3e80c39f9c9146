/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package deck

import (
	"time"

	"github.com/Seednode/gamechain/game"
)

// Interpolation rates, in 1/s. A flipped card moves faster so it reaches the
// front well inside game.FlipDuration.
const (
	positionRate        = 3.0
	rotationRate        = 5.0
	flippedPositionRate = 4.0
	flippedRotationRate = 6.0
)

type card struct {
	id      string
	flipped bool
	hovered bool
	pose    Pose
}

// CardPose is one card's state as sent to the renderer.
type CardPose struct {
	ID      string `json:"id"`
	Flipped bool   `json:"flipped"`
	Hovered bool   `json:"hovered"`
	Pose
}

// Engine animates the cards of one deck. Like game.Machine it is driven by
// a single goroutine.
type Engine struct {
	cards   []card
	elapsed float64
}

func NewEngine() *Engine {
	return &Engine{}
}

// Load syncs the engine with the machine's deck. Per-card state survives
// as long as the deck is the same; a new deck starts parked and unflipped.
func (e *Engine) Load(deck []game.Card) {
	if len(deck) == len(e.cards) {
		same := true
		for i := range deck {
			if deck[i].ID != e.cards[i].id {
				same = false
				break
			}
		}
		if same {
			return
		}
	}

	e.cards = make([]card, len(deck))
	for i, c := range deck {
		e.cards[i] = card{
			id:   c.ID,
			pose: Pose{Position: parked},
		}
	}
}

func (e *Engine) find(id string) int {
	for i := range e.cards {
		if e.cards[i].id == id {
			return i
		}
	}
	return -1
}

// Flipped reports whether any card of the deck has been picked.
func (e *Engine) Flipped() bool {
	for i := range e.cards {
		if e.cards[i].flipped {
			return true
		}
	}
	return false
}

// Click flips the card if the deck is open for selection and nothing has
// been flipped yet. The caller forwards accepted clicks to the machine,
// which reveals the card game.FlipDuration later.
func (e *Engine) Click(id string, phase game.Phase) bool {
	if phase != game.PhaseSelection || e.Flipped() {
		return false
	}

	i := e.find(id)
	if i < 0 {
		return false
	}

	e.cards[i].flipped = true
	e.cards[i].hovered = false

	return true
}

func (e *Engine) Hover(id string, on bool, phase game.Phase) {
	i := e.find(id)
	if i < 0 {
		return
	}
	if on && (phase != game.PhaseSelection || e.cards[i].flipped) {
		return
	}
	e.cards[i].hovered = on
}

// Step advances every card toward its target by dt.
func (e *Engine) Step(dt time.Duration, phase game.Phase) {
	secs := dt.Seconds()
	e.elapsed += secs

	for i := range e.cards {
		c := &e.cards[i]
		target := Target(i, phase, c.flipped, c.hovered && phase == game.PhaseSelection, e.elapsed)

		pr, rr := positionRate, rotationRate
		if c.flipped {
			pr, rr = flippedPositionRate, flippedRotationRate
		}

		c.pose.Position = c.pose.Position.Lerp(target.Position, smoothing(pr, secs))
		c.pose.Rotation = c.pose.Rotation.Lerp(target.Rotation, smoothing(rr, secs))
	}
}

func (e *Engine) Poses() []CardPose {
	out := make([]CardPose, len(e.cards))
	for i, c := range e.cards {
		out[i] = CardPose{
			ID:      c.id,
			Flipped: c.flipped,
			Hovered: c.hovered,
			Pose:    c.pose,
		}
	}
	return out
}

// Len reports how many cards are loaded.
func (e *Engine) Len() int {
	return len(e.cards)
}
