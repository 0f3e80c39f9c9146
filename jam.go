/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Game Jam Chain
//
// An organizer sets up a number of themed rounds. Each round, participants
// type four ideas, the AI adds two more, and together with the organizer's
// two cards they form a deck of eight. The deck is shown, shuffled, and one
// card is picked; the pick is revealed with particle text and an AI-drawn
// illustration. After the last round a gallery shows every winner.
//
// Features:
// - One isolated session per game ID: /jam/:gameid and /jam/:gameid/ws
// - Game logic, card animation and particles all run server-side; the
//   browser only renders state and frame messages
// - Sessions auto-reaped after a configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"crypto/rand"
	_ "embed"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"golang.org/x/time/rate"

	"github.com/Seednode/gamechain/particles"
)

const (
	gameIDLength = 8
	qrSize       = 320

	newGameRate  = rate.Limit(1)
	newGameBurst = 5
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameManager holds a set of sessions keyed by game ID, so each
// $path/$gameid is its own isolated game.
type GameManager struct {
	cfg     *Config
	oracle  Oracle
	raster  *particles.Rasterizer
	metrics *Metrics

	mu          sync.Mutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	done        chan struct{}
}

func newGameManager(cfg *Config, oracle Oracle, raster *particles.Rasterizer, metrics *Metrics) *GameManager {
	gm := &GameManager{
		cfg:         cfg,
		oracle:      oracle,
		raster:      raster,
		metrics:     metrics,
		sessions:    make(map[string]*Session),
		idleTimeout: cfg.sessionTimeout,
		done:        make(chan struct{}),
	}
	if gm.idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getSession(gameID string) *Session {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if s, ok := gm.sessions[gameID]; ok {
		return s
	}

	s := newSession(gm.cfg, gameID, gm.oracle, gm.raster, gm.metrics)
	gm.sessions[gameID] = s
	gm.metrics.sessions.Inc()
	go s.run()

	logf(gm.cfg, "GAMES: Started session %s", gameID)

	return s
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, gameIDLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, gameIDLength)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.sessions[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reap ends every session idle since before cutoff.
func (gm *GameManager) reap(cutoff time.Time) int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	n := 0
	for id, s := range gm.sessions {
		if s.idleSince().Before(cutoff) {
			delete(gm.sessions, id)
			gm.metrics.sessions.Dec()
			s.stop()
			n++

			logf(gm.cfg, "GAMES: Reaped idle session %s", id)
		}
	}
	return n
}

func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-gm.done:
			return
		case now := <-ticker.C:
			gm.reap(now.Add(-gm.idleTimeout))
		}
	}
}

// close stops the reaper and every live session.
func (gm *GameManager) close() {
	close(gm.done)

	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, s := range gm.sessions {
		delete(gm.sessions, id)
		gm.metrics.sessions.Dec()
		s.stop()
	}
}

// WebSocket handler that picks the session based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "SERVE: Websocket upgrade for %s failed: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 16),
		}

		s := gm.getSession(gameID)
		if !s.join(client) {
			_ = conn.Close()
			return
		}

		logf(cfg, "SERVE: Client %s joined session %s", realIP(r), gameID)

		go client.writePump()
		client.readPump(s)
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		// We are at /.../:gameid/qr; the game itself lives one level up.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		png, err := qrcode.Encode(scheme+"://"+r.Host+path, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

//go:embed assets/jam/index.html
var indexHTML []byte

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(indexHTML)
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerJamGame sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerJamGame(cfg *Config, path string, mux *httprouter.Router, gm *GameManager, errs chan<- error) {
	limiter := newIPRateLimiter(newGameRate, newGameBurst)

	mux.GET(cfg.prefix+path, limitByIP(cfg, limiter, redirectNewGame(cfg, path, gm)))

	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg))

	mux.GET(cfg.prefix+"/assets/*asset", serveAssets(cfg, errs))

	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler(cfg))
}
