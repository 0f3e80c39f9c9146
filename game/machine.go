/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPhase             = errors.New("command not allowed in current phase")
	ErrRoundCount        = errors.New("invalid round count")
	ErrBlankIdea         = errors.New("every idea must be filled in")
	ErrSlot              = errors.New("invalid idea slot")
	ErrSuggestionPending = errors.New("suggestion already pending for slot")
	ErrUnknownCard       = errors.New("card is not in the current deck")
	ErrAlreadyFlipped    = errors.New("a card has already been flipped")
)

// Ticket identifies the round an async request was issued for. A completion
// carrying a ticket that no longer matches is dropped.
type Ticket struct {
	Epoch uint64 `json:"epoch"`
	Round int    `json:"round"`
}

// Effect is async work requested by a transition. The owner performs it and
// feeds the result back through the matching Resolve method.
type Effect interface {
	effect()
}

type FetchIdeas struct {
	Ticket Ticket
	Title  string
}

type FetchSuggestion struct {
	Ticket Ticket
	Slot   int
	Title  string
}

type FetchImage struct {
	Ticket Ticket
	CardID string
	Theme  string
}

func (FetchIdeas) effect()      {}
func (FetchSuggestion) effect() {}
func (FetchImage) effect()      {}

type alarm struct {
	phase Phase
	at    time.Time
}

// Machine owns the game state. It is not safe for concurrent use; a single
// goroutine drives it with commands, completions and Tick.
type Machine struct {
	phase     Phase
	current   int
	total     int
	titles    map[int]string
	organizer map[int][2]string
	ideas     []string
	deck      []Card
	selected  *Card
	pending   string
	previous  string
	history   []RoundRecord
	image     string

	setup       SetupForm
	suggestions [Ideas]string
	suggesting  [Ideas]bool

	alarm *alarm
	epoch uint64
	newID func() string
}

type Option func(*Machine)

// WithIDs replaces the card id generator.
func WithIDs(f func() string) Option {
	return func(m *Machine) {
		m.newID = f
	}
}

func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		setup: NewSetupForm(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.reset()
	return m
}

func (m *Machine) reset() {
	m.phase = PhaseSetup
	m.current = 1
	m.total = m.setup.Rounds
	m.titles = make(map[int]string)
	m.organizer = make(map[int][2]string)
	m.ideas = nil
	m.deck = nil
	m.selected = nil
	m.pending = ""
	m.previous = defaultPreviousTheme
	m.history = nil
	m.image = ""
	m.suggestions = [Ideas]string{}
	m.suggesting = [Ideas]bool{}
	m.alarm = nil
}

func (m *Machine) Phase() Phase {
	return m.phase
}

func (m *Machine) ticket() Ticket {
	return Ticket{Epoch: m.epoch, Round: m.current}
}

func (m *Machine) matches(t Ticket) bool {
	return t == m.ticket()
}

// enter switches phase, dropping any alarm armed by the previous one and
// arming the new phase's timer if it has one.
func (m *Machine) enter(p Phase, now time.Time) {
	m.phase = p
	m.alarm = nil

	switch p {
	case PhasePreview:
		m.arm(PreviewDuration, now)
	case PhaseShuffling:
		m.arm(ShuffleDuration, now)
	}
}

func (m *Machine) arm(d time.Duration, now time.Time) {
	m.alarm = &alarm{phase: m.phase, at: now.Add(d)}
}

// Deadline reports when Tick next needs to run.
func (m *Machine) Deadline() (time.Time, bool) {
	if m.alarm == nil || m.alarm.phase != m.phase {
		return time.Time{}, false
	}
	return m.alarm.at, true
}

func (m *Machine) roundTitle() string {
	if t, ok := m.titles[m.current]; ok && t != "" {
		return t
	}
	return defaultRoundTitle
}

// SubmitSetup stores the configuration for rounds 1..rounds and starts the
// first round. Blank titles and organizer cards fall back to placeholders.
func (m *Machine) SubmitSetup(rounds int, titles []string, pairs [][2]string) error {
	if m.phase != PhaseSetup {
		return fmt.Errorf("submit setup in %s: %w", m.phase, ErrPhase)
	}

	form := SetupForm{
		Rounds:    rounds,
		Titles:    slices.Clone(titles),
		Organizer: slices.Clone(pairs),
	}
	if err := form.validate(); err != nil {
		return err
	}

	m.setup = form
	m.total = rounds
	m.current = 1
	m.titles = make(map[int]string, rounds)
	m.organizer = make(map[int][2]string, rounds)
	for i := 1; i <= rounds; i++ {
		m.titles[i] = form.Title(i)
		m.organizer[i] = form.Pair(i)
	}

	m.enter(PhaseRoundInput, time.Time{})

	return nil
}

// RequestSuggestion asks for one AI idea for an input slot. A blank title
// uses the current round's title.
func (m *Machine) RequestSuggestion(slot int, title string) ([]Effect, error) {
	if m.phase != PhaseRoundInput {
		return nil, fmt.Errorf("request suggestion in %s: %w", m.phase, ErrPhase)
	}
	if slot < 0 || slot >= Ideas {
		return nil, fmt.Errorf("%w: %d", ErrSlot, slot)
	}
	if m.suggesting[slot] {
		return nil, fmt.Errorf("%w %d", ErrSuggestionPending, slot)
	}
	if strings.TrimSpace(title) == "" {
		title = m.roundTitle()
	}

	m.suggesting[slot] = true

	return []Effect{FetchSuggestion{Ticket: m.ticket(), Slot: slot, Title: title}}, nil
}

// ResolveSuggestion applies a suggestion if its round is still taking input.
func (m *Machine) ResolveSuggestion(t Ticket, slot int, text string) bool {
	if m.phase != PhaseRoundInput || !m.matches(t) || slot < 0 || slot >= Ideas {
		return false
	}

	m.suggestions[slot] = text
	m.suggesting[slot] = false

	return true
}

// SubmitIdeas snapshots the participants' four ideas and requests the AI
// pair for the deck.
func (m *Machine) SubmitIdeas(ideas []string) ([]Effect, error) {
	if m.phase != PhaseRoundInput {
		return nil, fmt.Errorf("submit ideas in %s: %w", m.phase, ErrPhase)
	}
	if len(ideas) != Ideas {
		return nil, fmt.Errorf("%w: got %d ideas, want %d", ErrBlankIdea, len(ideas), Ideas)
	}
	for i, idea := range ideas {
		if strings.TrimSpace(idea) == "" {
			return nil, fmt.Errorf("%w: idea #%d is blank", ErrBlankIdea, i+1)
		}
	}

	m.ideas = slices.Clone(ideas)
	m.suggesting = [Ideas]bool{}
	m.enter(PhaseGenerating, time.Time{})

	return []Effect{FetchIdeas{Ticket: m.ticket(), Title: m.roundTitle()}}, nil
}

// ResolveIdeas assembles the round's deck once the AI pair is known,
// fallback or not, and starts the preview timer.
func (m *Machine) ResolveIdeas(t Ticket, pair [2]string, now time.Time) bool {
	if m.phase != PhaseGenerating || !m.matches(t) {
		return false
	}

	deck := make([]Card, 0, DeckSize)
	for _, text := range m.ideas {
		deck = append(deck, Card{ID: m.newID(), Text: text, Source: SourceParticipant})
	}
	for _, text := range m.organizer[m.current] {
		deck = append(deck, Card{ID: m.newID(), Text: text, Source: SourceOrganizer})
	}
	for _, text := range pair {
		deck = append(deck, Card{ID: m.newID(), Text: text, Source: SourceAI})
	}

	m.deck = deck
	m.enter(PhasePreview, now)

	return true
}

// SelectCard flips a card. The reveal follows FlipDuration later through
// Tick; further picks in the same deck are ignored.
func (m *Machine) SelectCard(id string, now time.Time) error {
	if m.phase != PhaseSelection {
		return fmt.Errorf("select card in %s: %w", m.phase, ErrPhase)
	}
	if m.pending != "" {
		return ErrAlreadyFlipped
	}
	if !slices.ContainsFunc(m.deck, func(c Card) bool { return c.ID == id }) {
		return fmt.Errorf("%w: %s", ErrUnknownCard, id)
	}

	m.pending = id
	m.arm(FlipDuration, now)

	return nil
}

// Tick fires the armed alarm if it is due.
func (m *Machine) Tick(now time.Time) []Effect {
	at, ok := m.Deadline()
	if !ok || now.Before(at) {
		return nil
	}

	switch m.phase {
	case PhasePreview:
		m.enter(PhaseShuffling, now)
	case PhaseShuffling:
		m.enter(PhaseSelection, now)
	case PhaseSelection:
		return m.reveal(now)
	default:
		m.alarm = nil
	}

	return nil
}

func (m *Machine) reveal(now time.Time) []Effect {
	i := slices.IndexFunc(m.deck, func(c Card) bool { return c.ID == m.pending })
	m.pending = ""
	if i < 0 {
		m.alarm = nil
		return nil
	}

	card := m.deck[i]
	m.selected = &card
	m.enter(PhaseReveal, now)

	return []Effect{FetchImage{Ticket: m.ticket(), CardID: card.ID, Theme: card.Text}}
}

// ResolveImage attaches the illustration for the revealed card, as long as
// the round has not been advanced yet.
func (m *Machine) ResolveImage(t Ticket, cardID, url string) bool {
	if m.phase != PhaseReveal || !m.matches(t) || m.selected == nil || m.selected.ID != cardID {
		return false
	}

	m.image = url

	return true
}

// Advance closes the round. The history record takes the image only if it
// has already arrived.
func (m *Machine) Advance() error {
	if m.phase != PhaseReveal || m.selected == nil {
		return fmt.Errorf("advance in %s: %w", m.phase, ErrPhase)
	}

	m.history = append(m.history, RoundRecord{
		RoundNumber: m.current,
		Theme:       m.selected.Text,
		Source:      m.selected.Source,
		ImageURL:    m.image,
	})

	m.previous = m.selected.Text
	if m.previous == "" {
		m.previous = defaultNextTheme
	}
	m.selected = nil
	m.deck = nil
	m.ideas = nil
	m.image = ""
	m.suggestions = [Ideas]string{}
	m.suggesting = [Ideas]bool{}

	if m.current >= m.total {
		m.enter(PhaseSummary, time.Time{})
		return nil
	}

	m.current++
	m.enter(PhaseRoundInput, time.Time{})

	return nil
}

// Restart returns to setup. The organizer's form is kept; everything the
// previous game produced is dropped and its in-flight requests go stale.
func (m *Machine) Restart() error {
	if m.phase != PhaseSummary {
		return fmt.Errorf("restart in %s: %w", m.phase, ErrPhase)
	}

	m.epoch++
	m.reset()

	return nil
}

func (m *Machine) Deck() []Card {
	return slices.Clone(m.deck)
}

func (m *Machine) Selected() (Card, bool) {
	if m.selected == nil {
		return Card{}, false
	}
	return *m.selected, true
}

func (m *Machine) History() []RoundRecord {
	return slices.Clone(m.history)
}

func (m *Machine) Snapshot() State {
	s := State{
		Phase:            m.phase,
		CurrentRound:     m.current,
		TotalRounds:      m.total,
		RoundTitles:      maps.Clone(m.titles),
		OrganizerCards:   maps.Clone(m.organizer),
		ParticipantCards: slices.Clone(m.ideas),
		Deck:             slices.Clone(m.deck),
		PreviousTheme:    m.previous,
		History:          slices.Clone(m.history),
		Image:            m.image,
		Setup:            m.setup.clone(),
		Suggestions:      m.suggestions,
		Suggesting:       m.suggesting,
		PendingCard:      m.pending,
	}
	if m.selected != nil {
		card := *m.selected
		s.SelectedCard = &card
	}
	if at, ok := m.Deadline(); ok {
		s.Deadline = at
	}
	return s
}
