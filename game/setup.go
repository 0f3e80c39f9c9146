/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"fmt"
	"strings"
)

// SetupForm is what the organizer last typed on the setup screen. It is
// kept across restarts so the next game can reuse it.
type SetupForm struct {
	Rounds    int         `json:"rounds"`
	Titles    []string    `json:"titles"`
	Organizer [][2]string `json:"organizer"`
}

// NewSetupForm returns the form shown on first launch.
func NewSetupForm() SetupForm {
	return SetupForm{
		Rounds:    3,
		Titles:    []string{"角色", "地點", "事件", "氣氛"},
		Organizer: make([][2]string, 3),
	}
}

func (f SetupForm) clone() SetupForm {
	out := SetupForm{Rounds: f.Rounds}
	out.Titles = append([]string(nil), f.Titles...)
	out.Organizer = append([][2]string(nil), f.Organizer...)
	return out
}

// Title returns the configured title for round n (1-based), or the
// generated "Round n" label when blank.
func (f SetupForm) Title(n int) string {
	if n >= 1 && n-1 < len(f.Titles) {
		if t := strings.TrimSpace(f.Titles[n-1]); t != "" {
			return f.Titles[n-1]
		}
	}
	return fmt.Sprintf("Round %d", n)
}

// Pair returns the organizer cards for round n with blanks replaced by
// their placeholder labels.
func (f SetupForm) Pair(n int) [2]string {
	var pair [2]string
	if n >= 1 && n-1 < len(f.Organizer) {
		pair = f.Organizer[n-1]
	}
	if strings.TrimSpace(pair[0]) == "" {
		pair[0] = defaultOrganizerA
	}
	if strings.TrimSpace(pair[1]) == "" {
		pair[1] = defaultOrganizerB
	}
	return pair
}

func (f SetupForm) validate() error {
	if f.Rounds < MinRounds || f.Rounds > MaxRounds {
		return fmt.Errorf("%w: got %d, want %d-%d", ErrRoundCount, f.Rounds, MinRounds, MaxRounds)
	}
	return nil
}
