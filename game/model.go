/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "time"

// Phase is one step of a round, from setup through the final gallery.
type Phase string

const (
	PhaseSetup      Phase = "SETUP"       // Organizer configures rounds
	PhaseRoundInput Phase = "ROUND_INPUT" // Participants enter 4 ideas
	PhaseGenerating Phase = "GENERATING"  // Waiting on the 2 AI ideas
	PhasePreview    Phase = "PREVIEW"     // Cards shown face up
	PhaseShuffling  Phase = "SHUFFLING"   // Cards orbit face down
	PhaseSelection  Phase = "SELECTION"   // Player picks a card
	PhaseReveal     Phase = "REVEAL"      // Winner revealed
	PhaseSummary    Phase = "SUMMARY"     // Final gallery
)

func (p Phase) String() string {
	return string(p)
}

// Animated reports whether the deck is on screen during p.
func (p Phase) Animated() bool {
	switch p {
	case PhasePreview, PhaseShuffling, PhaseSelection, PhaseReveal:
		return true
	}
	return false
}

type CardSource string

const (
	SourceParticipant CardSource = "PARTICIPANT"
	SourceOrganizer   CardSource = "ORGANIZER"
	SourceAI          CardSource = "AI"
)

// Card is immutable once the deck is assembled.
type Card struct {
	ID     string     `json:"id"`
	Text   string     `json:"text"`
	Source CardSource `json:"source"`
}

// RoundRecord is the gallery entry for one finished round.
type RoundRecord struct {
	RoundNumber int        `json:"round_number"`
	Theme       string     `json:"theme"`
	Source      CardSource `json:"source"`
	ImageURL    string     `json:"image_url,omitempty"`
}

const (
	MinRounds = 1
	MaxRounds = 10

	// Ideas is the number of participant cards per round.
	Ideas = 4
	// DeckSize is Ideas + 2 organizer cards + 2 AI cards.
	DeckSize = Ideas + 2 + 2

	PreviewDuration = 6000 * time.Millisecond
	ShuffleDuration = 3000 * time.Millisecond
	FlipDuration    = 1200 * time.Millisecond
)

const (
	defaultPreviousTheme = "Start"
	defaultNextTheme     = "Next"
	defaultRoundTitle    = "Game Concept"
	defaultOrganizerA    = "Default A"
	defaultOrganizerB    = "Default B"
)

// State is a read-only snapshot of a Machine.
type State struct {
	Phase            Phase             `json:"phase"`
	CurrentRound     int               `json:"current_round"`
	TotalRounds      int               `json:"total_rounds"`
	RoundTitles      map[int]string    `json:"round_titles"`
	OrganizerCards   map[int][2]string `json:"organizer_cards"`
	ParticipantCards []string          `json:"participant_cards"`
	Deck             []Card            `json:"deck"`
	SelectedCard     *Card             `json:"selected_card,omitempty"`
	PreviousTheme    string            `json:"previous_theme"`
	History          []RoundRecord     `json:"history"`
	Image            string            `json:"image,omitempty"`
	Setup            SetupForm         `json:"setup"`
	Suggestions      [Ideas]string     `json:"suggestions"`
	Suggesting       [Ideas]bool       `json:"suggesting"`
	PendingCard      string            `json:"pending_card,omitempty"`
	Deadline         time.Time         `json:"deadline,omitzero"`
}
