/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("card-%d", n)
	}
}

func fakeIdeas() []string {
	ideas := make([]string, Ideas)
	for i := range ideas {
		ideas[i] = gofakeit.Noun()
	}
	return ideas
}

// toSelection drives a machine from ROUND_INPUT to SELECTION and returns the
// time at which SELECTION was entered.
func toSelection(t *testing.T, m *Machine, now time.Time) time.Time {
	t.Helper()

	effects, err := m.SubmitIdeas(fakeIdeas())
	require.NoError(t, err)
	require.Len(t, effects, 1)
	fetch, ok := effects[0].(FetchIdeas)
	require.True(t, ok)

	require.True(t, m.ResolveIdeas(fetch.Ticket, [2]string{"Space Mining", "Time Loop"}, now))
	require.Equal(t, PhasePreview, m.Phase())

	now = now.Add(PreviewDuration)
	m.Tick(now)
	require.Equal(t, PhaseShuffling, m.Phase())

	now = now.Add(ShuffleDuration)
	m.Tick(now)
	require.Equal(t, PhaseSelection, m.Phase())

	return now
}

func TestSubmitSetupPopulatesEveryRound(t *testing.T) {
	for n := MinRounds; n <= MaxRounds; n++ {
		t.Run(fmt.Sprintf("rounds=%d", n), func(t *testing.T) {
			m := NewMachine()
			require.NoError(t, m.SubmitSetup(n, nil, nil))

			s := m.Snapshot()
			assert.Equal(t, PhaseRoundInput, s.Phase)
			assert.Equal(t, n, s.TotalRounds)
			assert.Len(t, s.RoundTitles, n)
			assert.Len(t, s.OrganizerCards, n)
			for i := 1; i <= n; i++ {
				assert.Equal(t, fmt.Sprintf("Round %d", i), s.RoundTitles[i])
				assert.Equal(t, [2]string{"Default A", "Default B"}, s.OrganizerCards[i])
			}
		})
	}
}

func TestSubmitSetupRejectsRoundCount(t *testing.T) {
	for _, n := range []int{-1, 0, 11, 100} {
		m := NewMachine()
		err := m.SubmitSetup(n, nil, nil)
		require.ErrorIs(t, err, ErrRoundCount)
		assert.Equal(t, PhaseSetup, m.Phase())
	}
}

func TestSubmitSetupKeepsTypedValues(t *testing.T) {
	m := NewMachine()
	titles := []string{"Hero", "  ", "Twist"}
	pairs := [][2]string{{"Goblin", ""}, {"", "Castle"}}
	require.NoError(t, m.SubmitSetup(3, titles, pairs))

	s := m.Snapshot()
	want := map[int]string{1: "Hero", 2: "Round 2", 3: "Twist"}
	if diff := cmp.Diff(want, s.RoundTitles); diff != "" {
		t.Errorf("round titles mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, [2]string{"Goblin", "Default B"}, s.OrganizerCards[1])
	assert.Equal(t, [2]string{"Default A", "Castle"}, s.OrganizerCards[2])
	assert.Equal(t, [2]string{"Default A", "Default B"}, s.OrganizerCards[3])
}

func TestSubmitIdeasValidation(t *testing.T) {
	tests := []struct {
		name  string
		ideas []string
	}{
		{name: "too few", ideas: []string{"a", "b", "c"}},
		{name: "too many", ideas: []string{"a", "b", "c", "d", "e"}},
		{name: "blank", ideas: []string{"a", "", "c", "d"}},
		{name: "whitespace", ideas: []string{"a", "b", "   ", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			require.NoError(t, m.SubmitSetup(1, nil, nil))

			effects, err := m.SubmitIdeas(tt.ideas)
			require.ErrorIs(t, err, ErrBlankIdea)
			assert.Empty(t, effects)
			assert.Equal(t, PhaseRoundInput, m.Phase())
		})
	}
}

func TestDeckComposition(t *testing.T) {
	m := NewMachine(WithIDs(sequentialIDs()))
	require.NoError(t, m.SubmitSetup(2, []string{"Hero", "Place"}, [][2]string{{"Knight", "Witch"}, {"Cave", "Moon"}}))

	ideas := []string{"one", "two", "three", "four"}
	effects, err := m.SubmitIdeas(ideas)
	require.NoError(t, err)
	fetch := effects[0].(FetchIdeas)
	assert.Equal(t, "Hero", fetch.Title)
	assert.Equal(t, PhaseGenerating, m.Phase())

	require.True(t, m.ResolveIdeas(fetch.Ticket, [2]string{"AI one", "AI two"}, epoch))

	deck := m.Deck()
	require.Len(t, deck, DeckSize)

	want := []Card{
		{ID: "card-1", Text: "one", Source: SourceParticipant},
		{ID: "card-2", Text: "two", Source: SourceParticipant},
		{ID: "card-3", Text: "three", Source: SourceParticipant},
		{ID: "card-4", Text: "four", Source: SourceParticipant},
		{ID: "card-5", Text: "Knight", Source: SourceOrganizer},
		{ID: "card-6", Text: "Witch", Source: SourceOrganizer},
		{ID: "card-7", Text: "AI one", Source: SourceAI},
		{ID: "card-8", Text: "AI two", Source: SourceAI},
	}
	if diff := cmp.Diff(want, deck); diff != "" {
		t.Errorf("deck mismatch (-want +got):\n%s", diff)
	}
}

func TestCardIDsUniqueAcrossRounds(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.SubmitSetup(3, nil, nil))

	seen := make(map[string]bool)
	now := epoch
	for round := 1; round <= 3; round++ {
		now = toSelection(t, m, now)
		for _, c := range m.Deck() {
			assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
			seen[c.ID] = true
		}

		require.NoError(t, m.SelectCard(m.Deck()[0].ID, now))
		now = now.Add(FlipDuration)
		m.Tick(now)
		require.NoError(t, m.Advance())
	}
	assert.Len(t, seen, 3*DeckSize)
}

func TestFullSingleRoundGame(t *testing.T) {
	m := NewMachine()
	var phases []Phase
	record := func() { phases = append(phases, m.Phase()) }

	record()
	require.NoError(t, m.SubmitSetup(1, []string{"Hero"}, nil))
	record()

	effects, err := m.SubmitIdeas(fakeIdeas())
	require.NoError(t, err)
	record()

	fetch := effects[0].(FetchIdeas)
	require.True(t, m.ResolveIdeas(fetch.Ticket, [2]string{"a", "b"}, epoch))
	record()

	m.Tick(epoch.Add(PreviewDuration - time.Millisecond))
	require.Equal(t, PhasePreview, m.Phase(), "preview must last the full duration")

	now := epoch.Add(PreviewDuration)
	m.Tick(now)
	record()

	m.Tick(now.Add(ShuffleDuration - time.Millisecond))
	require.Equal(t, PhaseShuffling, m.Phase())

	now = now.Add(ShuffleDuration)
	m.Tick(now)
	record()

	picked := m.Deck()[6]
	require.NoError(t, m.SelectCard(picked.ID, now))
	assert.Equal(t, PhaseSelection, m.Phase())
	_, ok := m.Selected()
	assert.False(t, ok, "selected card must stay empty until reveal")

	assert.Empty(t, m.Tick(now.Add(FlipDuration-time.Millisecond)))
	now = now.Add(FlipDuration)
	effects = m.Tick(now)
	record()

	require.Len(t, effects, 1)
	img := effects[0].(FetchImage)
	assert.Equal(t, picked.ID, img.CardID)
	assert.Equal(t, picked.Text, img.Theme)

	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, picked, sel)

	require.NoError(t, m.Advance())
	record()

	assert.Equal(t, []Phase{
		PhaseSetup, PhaseRoundInput, PhaseGenerating, PhasePreview,
		PhaseShuffling, PhaseSelection, PhaseReveal, PhaseSummary,
	}, phases)

	history := m.History()
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].RoundNumber)
	assert.Equal(t, picked.Text, history[0].Theme)
	assert.Equal(t, SourceAI, history[0].Source)
	assert.Empty(t, history[0].ImageURL)

	s := m.Snapshot()
	assert.Empty(t, s.Deck)
	assert.Nil(t, s.SelectedCard)
	assert.Equal(t, picked.Text, s.PreviousTheme)
}

func TestImageAttachedOnlyBeforeAdvance(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.SubmitSetup(2, nil, nil))

	now := toSelection(t, m, epoch)
	first := m.Deck()[0]
	require.NoError(t, m.SelectCard(first.ID, now))
	img := m.Tick(now.Add(FlipDuration))[0].(FetchImage)

	assert.False(t, m.ResolveImage(img.Ticket, "someone-else", "data:image/png;base64,AA=="))
	assert.True(t, m.ResolveImage(img.Ticket, img.CardID, "data:image/png;base64,AA=="))
	assert.Equal(t, "data:image/png;base64,AA==", m.Snapshot().Image)
	require.NoError(t, m.Advance())

	now = toSelection(t, m, now.Add(time.Minute))
	second := m.Deck()[1]
	require.NoError(t, m.SelectCard(second.ID, now))
	late := m.Tick(now.Add(FlipDuration))[0].(FetchImage)
	require.NoError(t, m.Advance())

	assert.False(t, m.ResolveImage(late.Ticket, late.CardID, "data:image/png;base64,BB=="))

	history := m.History()
	require.Len(t, history, 2)
	assert.Equal(t, "data:image/png;base64,AA==", history[0].ImageURL)
	assert.Empty(t, history[1].ImageURL, "late images are never attached")
	assert.Equal(t, []int{1, 2}, []int{history[0].RoundNumber, history[1].RoundNumber})
}

func TestSelectCardIsIdempotent(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.SubmitSetup(1, nil, nil))

	deckErr := m.SelectCard("nope", epoch)
	require.ErrorIs(t, deckErr, ErrPhase, "clicks before selection are ignored")

	now := toSelection(t, m, epoch)
	deck := m.Deck()

	require.ErrorIs(t, m.SelectCard("missing", now), ErrUnknownCard)
	require.NoError(t, m.SelectCard(deck[2].ID, now))
	require.ErrorIs(t, m.SelectCard(deck[2].ID, now.Add(100*time.Millisecond)), ErrAlreadyFlipped)
	require.ErrorIs(t, m.SelectCard(deck[3].ID, now.Add(200*time.Millisecond)), ErrAlreadyFlipped)

	m.Tick(now.Add(FlipDuration))
	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, deck[2].ID, sel.ID)

	require.ErrorIs(t, m.SelectCard(deck[4].ID, now.Add(2*FlipDuration)), ErrPhase)
	sel, _ = m.Selected()
	assert.Equal(t, deck[2].ID, sel.ID)
}

func TestStaleIdeasAreDropped(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.SubmitSetup(1, nil, nil))

	effects, err := m.SubmitIdeas(fakeIdeas())
	require.NoError(t, err)
	ticket := effects[0].(FetchIdeas).Ticket

	stale := ticket
	stale.Round++
	assert.False(t, m.ResolveIdeas(stale, [2]string{"x", "y"}, epoch))
	assert.Equal(t, PhaseGenerating, m.Phase())

	assert.True(t, m.ResolveIdeas(ticket, [2]string{"x", "y"}, epoch))
	assert.False(t, m.ResolveIdeas(ticket, [2]string{"x", "y"}, epoch), "second resolution is ignored")
	assert.Len(t, m.Deck(), DeckSize)
}

func TestTimersRearmEachRound(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.SubmitSetup(2, nil, nil))

	now := toSelection(t, m, epoch)
	require.NoError(t, m.SelectCard(m.Deck()[0].ID, now))
	m.Tick(now.Add(FlipDuration))
	require.NoError(t, m.Advance())

	_, armed := m.Deadline()
	assert.False(t, armed, "no timer outside timed phases")

	effects, err := m.SubmitIdeas(fakeIdeas())
	require.NoError(t, err)
	second := epoch.Add(time.Hour)
	require.True(t, m.ResolveIdeas(effects[0].(FetchIdeas).Ticket, [2]string{"a", "b"}, second))

	at, armed := m.Deadline()
	require.True(t, armed)
	assert.Equal(t, second.Add(PreviewDuration), at)
}

func TestSuggestions(t *testing.T) {
	m := NewMachine()

	_, err := m.RequestSuggestion(0, "")
	require.ErrorIs(t, err, ErrPhase)

	require.NoError(t, m.SubmitSetup(1, []string{"Villain"}, nil))

	_, err = m.RequestSuggestion(Ideas, "")
	require.ErrorIs(t, err, ErrSlot)

	effects, err := m.RequestSuggestion(2, "")
	require.NoError(t, err)
	fetch := effects[0].(FetchSuggestion)
	assert.Equal(t, "Villain", fetch.Title)
	assert.Equal(t, 2, fetch.Slot)
	assert.True(t, m.Snapshot().Suggesting[2])

	_, err = m.RequestSuggestion(2, "")
	require.ErrorIs(t, err, ErrSuggestionPending)

	require.True(t, m.ResolveSuggestion(fetch.Ticket, 2, "Ugly Goblin"))
	s := m.Snapshot()
	assert.Equal(t, "Ugly Goblin", s.Suggestions[2])
	assert.False(t, s.Suggesting[2])

	effects, err = m.RequestSuggestion(1, "Custom")
	require.NoError(t, err)
	assert.Equal(t, "Custom", effects[0].(FetchSuggestion).Title)

	_, err = m.SubmitIdeas(fakeIdeas())
	require.NoError(t, err)
	assert.False(t, m.ResolveSuggestion(effects[0].(FetchSuggestion).Ticket, 1, "too late"))
}

func TestRestartKeepsSetupForm(t *testing.T) {
	m := NewMachine()
	titles := []string{"Hero", "Place"}
	pairs := [][2]string{{"Knight", "Witch"}, {"Cave", ""}}
	require.NoError(t, m.SubmitSetup(2, titles, pairs))

	now := epoch
	var lastImage FetchImage
	for round := 1; round <= 2; round++ {
		now = toSelection(t, m, now)
		require.NoError(t, m.SelectCard(m.Deck()[5].ID, now))
		lastImage = m.Tick(now.Add(FlipDuration))[0].(FetchImage)
		require.NoError(t, m.Advance())
	}
	require.Equal(t, PhaseSummary, m.Phase())
	require.Len(t, m.History(), 2)

	require.ErrorIs(t, m.Advance(), ErrPhase)
	require.NoError(t, m.Restart())

	s := m.Snapshot()
	assert.Equal(t, PhaseSetup, s.Phase)
	assert.Empty(t, s.History)
	assert.Empty(t, s.Image)
	assert.Empty(t, s.ParticipantCards)
	assert.Equal(t, 1, s.CurrentRound)
	assert.Equal(t, "Start", s.PreviousTheme)

	want := SetupForm{Rounds: 2, Titles: titles, Organizer: pairs}
	if diff := cmp.Diff(want, s.Setup); diff != "" {
		t.Errorf("setup form mismatch (-want +got):\n%s", diff)
	}

	// A completion from the previous game must not leak into the new one.
	require.NoError(t, m.SubmitSetup(2, titles, pairs))
	assert.False(t, m.ResolveImage(lastImage.Ticket, lastImage.CardID, "data:image/png;base64,AA=="))
}

func TestSnapshotIsACopy(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.SubmitSetup(1, nil, nil))
	toSelection(t, m, epoch)

	s := m.Snapshot()
	s.Deck[0].Text = "mutated"
	s.RoundTitles[1] = "mutated"

	assert.NotEqual(t, "mutated", m.Deck()[0].Text)
	assert.NotEqual(t, "mutated", m.Snapshot().RoundTitles[1])
}

func TestSetupFormOutOfRangeRounds(t *testing.T) {
	f := SetupForm{Rounds: 1, Titles: []string{"Hero"}, Organizer: [][2]string{{"Knight", "Witch"}}}

	for _, n := range []int{-1, 0, 2} {
		assert.NotPanics(t, func() {
			assert.Equal(t, fmt.Sprintf("Round %d", n), f.Title(n))
			assert.Equal(t, [2]string{defaultOrganizerA, defaultOrganizerB}, f.Pair(n))
		})
	}

	assert.Equal(t, "Hero", f.Title(1))
	assert.Equal(t, [2]string{"Knight", "Witch"}, f.Pair(1))
}
