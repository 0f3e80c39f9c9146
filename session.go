/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Seednode/gamechain/deck"
	"github.com/Seednode/gamechain/game"
	"github.com/Seednode/gamechain/particles"
)

const (
	suggestBurst = 4
	writeWait    = 10 * time.Second
)

// Oracle is the AI side of a session. *gemini.Gateway satisfies it.
type Oracle interface {
	ProposeThemePair(ctx context.Context, title string) [2]string
	ProposeSingleTheme(ctx context.Context, title string) string
	GenerateIllustration(ctx context.Context, theme string) (string, bool)
}

// Messages coming from clients
type ClientMessage struct {
	Type      string      `json:"type"`                // "setup", "suggest", "submit", "select", "hover", "advance", "restart"
	Rounds    int         `json:"rounds,omitempty"`    // setup
	Titles    []string    `json:"titles,omitempty"`    // setup
	Organizer [][2]string `json:"organizer,omitempty"` // setup
	Slot      int         `json:"slot,omitempty"`      // suggest
	Title     string      `json:"title,omitempty"`     // suggest
	Ideas     []string    `json:"ideas,omitempty"`     // submit
	CardID    string      `json:"card_id,omitempty"`   // select / hover
	Hover     bool        `json:"hover,omitempty"`     // hover
}

type StateMessage struct {
	Type  string     `json:"type"` // "state"
	State game.State `json:"state"`
}

type FrameMessage struct {
	Type      string          `json:"type"` // "frame"
	Cards     []deck.CardPose `json:"cards"`
	Text      string          `json:"text,omitempty"`      // particle formation
	Particles string          `json:"particles,omitempty"` // base64 little-endian float32 xyz
}

type RejectedMessage struct {
	Type    string `json:"type"` // "rejected"
	Command string `json:"command"`
	Message string `json:"message"`
}

type Client struct {
	conn *websocket.Conn
	send chan any
}

type command struct {
	client *Client
	msg    ClientMessage
}

// Session is one game. Its run goroutine is the only one that touches the
// machine, the deck engine or the particle field; everything else reaches
// them by posting into its channels.
type Session struct {
	id      string
	cfg     *Config
	oracle  Oracle
	raster  *particles.Rasterizer
	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc

	clients  map[*Client]bool
	register chan *Client
	unreg    chan *Client
	commands chan command
	results  chan func(now time.Time)

	mu         sync.RWMutex
	createdAt  time.Time
	lastActive time.Time

	machine   *game.Machine
	deck      *deck.Engine
	field     *particles.Field
	rng       *rand.Rand
	suggest   *rate.Limiter
	phase     game.Phase
	dirty     bool
	frames    int
	lastFrame time.Time
	fieldT    float64
}

func newSession(cfg *Config, id string, oracle Oracle, raster *particles.Rasterizer, metrics *Metrics) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()

	s := &Session{
		id:         id,
		cfg:        cfg,
		oracle:     oracle,
		raster:     raster,
		metrics:    metrics,
		ctx:        ctx,
		cancel:     cancel,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan command),
		results:    make(chan func(time.Time)),
		createdAt:  now,
		lastActive: now,
		machine:    game.NewMachine(),
		deck:       deck.NewEngine(),
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		suggest:    rate.NewLimiter(rate.Limit(cfg.suggestRate), suggestBurst),
	}
	s.phase = s.machine.Phase()

	return s
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastActive
}

// stop ends the session. In-flight AI calls are canceled and every client
// is disconnected.
func (s *Session) stop() {
	s.cancel()
}

// post hands a completion to the run goroutine, unless the session is gone.
func (s *Session) post(f func(now time.Time)) {
	select {
	case s.results <- f:
	case <-s.ctx.Done():
	}
}

func (s *Session) join(c *Client) bool {
	select {
	case s.register <- c:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Session) leave(c *Client) {
	select {
	case s.unreg <- c:
	case <-s.ctx.Done():
	}
}

func (s *Session) submit(c *Client, msg ClientMessage) bool {
	select {
	case s.commands <- command{client: c, msg: msg}:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Session) run() {
	alarm := time.NewTimer(time.Hour)
	alarm.Stop()

	var ticker *time.Ticker
	var frames <-chan time.Time

	defer func() {
		alarm.Stop()
		if ticker != nil {
			ticker.Stop()
		}
		s.closeAll()
	}()

	for {
		select {
		case <-s.ctx.Done():
			return

		case c := <-s.register:
			s.touch()
			s.clients[c] = true
			s.metrics.clients.Inc()
			s.sendState(c)

		case c := <-s.unreg:
			s.touch()
			s.drop(c)

		case cmd := <-s.commands:
			s.touch()
			s.handle(cmd, time.Now())

		case apply := <-s.results:
			apply(time.Now())

		case now := <-alarm.C:
			s.dispatch(s.machine.Tick(now))
			s.dirty = true

		case now := <-frames:
			s.frame(now)
			continue
		}

		now := time.Now()
		s.settle()

		if at, ok := s.machine.Deadline(); ok {
			alarm.Reset(max(0, at.Sub(now)))
		} else {
			alarm.Stop()
		}

		animated := s.machine.Phase().Animated()
		switch {
		case animated && ticker == nil:
			ticker = time.NewTicker(time.Second / time.Duration(s.cfg.fps))
			frames = ticker.C
			s.lastFrame = now
		case !animated && ticker != nil:
			ticker.Stop()
			ticker, frames = nil, nil
		}
	}
}

// settle brings the deck engine and particle field in line with the
// machine and pushes a fresh snapshot if anything changed.
func (s *Session) settle() {
	if p := s.machine.Phase(); p != s.phase {
		logf(s.cfg, "GAMES: [%s] %s -> %s", s.id, s.phase, p)
		s.metrics.observePhase(p)
		s.phase = p
		s.dirty = true
	}

	if !s.dirty {
		return
	}
	s.dirty = false

	s.deck.Load(s.machine.Deck())

	state := s.machine.Snapshot()
	switch {
	case state.Phase != game.PhaseReveal || state.SelectedCard == nil || state.Image != "":
		s.field = nil
	case s.field == nil && s.raster != nil && s.cfg.particles > 0:
		if !s.raster.Covers(state.SelectedCard.Text) {
			logf(s.cfg, "GAMES: [%s] Font stack is missing glyphs for %q", s.id, state.SelectedCard.Text)
		}
		s.field = particles.NewField(s.raster, state.SelectedCard.Text, s.cfg.particles, s.rng)
		s.fieldT = 0
	}

	s.broadcast(StateMessage{Type: "state", State: state})
}

func (s *Session) handle(cmd command, now time.Time) {
	var (
		effects []game.Effect
		err     error
	)

	msg := cmd.msg

	switch msg.Type {
	case "setup":
		err = s.machine.SubmitSetup(msg.Rounds, msg.Titles, msg.Organizer)
	case "suggest":
		res := s.suggest.ReserveN(now, 1)
		if !res.OK() || res.DelayFrom(now) > 0 {
			res.CancelAt(now)
			s.reject(cmd.client, msg.Type, "Too many suggestions, please wait a moment.")
			return
		}
		effects, err = s.machine.RequestSuggestion(msg.Slot, msg.Title)
		if err != nil || len(effects) == 0 {
			// Only suggestions that reach the AI count against the budget.
			res.CancelAt(now)
		}
	case "submit":
		effects, err = s.machine.SubmitIdeas(msg.Ideas)
	case "select":
		err = s.machine.SelectCard(msg.CardID, now)
		if err == nil {
			s.deck.Click(msg.CardID, s.machine.Phase())
		}
	case "hover":
		s.deck.Hover(msg.CardID, msg.Hover, s.machine.Phase())
		return
	case "advance":
		err = s.machine.Advance()
	case "restart":
		err = s.machine.Restart()
	default:
		return
	}

	if err != nil {
		s.refuse(cmd.client, msg.Type, err)
		return
	}

	s.dirty = true
	s.dispatch(effects)
}

// refuse reports input problems back to the sender. Commands that arrive in
// the wrong phase or repeat a flip are dropped quietly.
func (s *Session) refuse(c *Client, kind string, err error) {
	s.metrics.observeRejection(kind)

	switch {
	case errors.Is(err, game.ErrRoundCount),
		errors.Is(err, game.ErrBlankIdea),
		errors.Is(err, game.ErrSlot):
		s.reject(c, kind, err.Error())
	default:
		logf(s.cfg, "GAMES: [%s] Ignored %s: %v", s.id, kind, err)
	}
}

func (s *Session) reject(c *Client, kind, message string) {
	if !s.clients[c] {
		return
	}

	select {
	case c.send <- RejectedMessage{Type: "rejected", Command: kind, Message: message}:
	default:
	}
}

// dispatch runs each effect off the hub goroutine and posts the result
// back. The session context bounds every call.
func (s *Session) dispatch(effects []game.Effect) {
	for _, e := range effects {
		switch e := e.(type) {
		case game.FetchIdeas:
			go func() {
				pair := s.oracle.ProposeThemePair(s.ctx, e.Title)
				s.post(func(now time.Time) {
					if !s.machine.ResolveIdeas(e.Ticket, pair, now) {
						logf(s.cfg, "GAMES: [%s] Dropped stale ideas for round %d", s.id, e.Ticket.Round)
						return
					}
					s.dirty = true
				})
			}()

		case game.FetchSuggestion:
			go func() {
				text := s.oracle.ProposeSingleTheme(s.ctx, e.Title)
				s.post(func(time.Time) {
					if !s.machine.ResolveSuggestion(e.Ticket, e.Slot, text) {
						logf(s.cfg, "GAMES: [%s] Dropped stale suggestion for slot %d", s.id, e.Slot)
						return
					}
					s.dirty = true
				})
			}()

		case game.FetchImage:
			go func() {
				url, ok := s.oracle.GenerateIllustration(s.ctx, e.Theme)
				if !ok {
					logf(s.cfg, "GAMES: [%s] No illustration for %q", s.id, e.Theme)
					return
				}
				s.post(func(time.Time) {
					if !s.machine.ResolveImage(e.Ticket, e.CardID, url) {
						logf(s.cfg, "GAMES: [%s] Dropped stale illustration for round %d", s.id, e.Ticket.Round)
						return
					}
					s.dirty = true
				})
			}()
		}
	}
}

func (s *Session) frame(now time.Time) {
	dt := now.Sub(s.lastFrame)
	s.lastFrame = now

	s.deck.Step(dt, s.machine.Phase())

	msg := FrameMessage{Type: "frame", Cards: s.deck.Poses()}

	if s.field != nil {
		s.fieldT += dt.Seconds()
		s.field.Step(s.fieldT)

		s.frames++
		if s.frames%s.cfg.particleEvery() == 0 {
			msg.Text = s.field.Text()
			msg.Particles = s.field.Encode()
		}
	}

	// Frames are disposable. Half of each buffer stays free for state
	// messages, so a client that is behind just misses some frames.
	for c := range s.clients {
		if len(c.send) >= cap(c.send)/2 {
			continue
		}
		c.send <- msg
	}
}

func (s *Session) sendState(c *Client) {
	select {
	case c.send <- StateMessage{Type: "state", State: s.machine.Snapshot()}:
	default:
		s.drop(c)
	}
}

func (s *Session) broadcast(msg any) {
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			s.drop(c)
		}
	}
}

func (s *Session) drop(c *Client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.send)
	s.metrics.clients.Dec()

	// Unblocks both pumps; readPump's leave is then a no-op.
	_ = c.conn.Close()
}

func (s *Session) closeAll() {
	for c := range s.clients {
		s.drop(c)
	}
}

func (c *Client) readPump(s *Session) {
	defer func() {
		s.leave(c)
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		if !s.submit(c, msg) {
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
