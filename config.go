/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/gamechain/gemini"
	"github.com/Seednode/gamechain/particles"
)

type Config struct {
	apiKey         string
	bind           string
	envFile        string
	font           string
	fps            int
	aiTimeout      time.Duration
	imageModel     string
	imageTimeout   time.Duration
	metrics        bool
	particleFPS    int
	particles      int
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	suggestRate    float64
	textModel      string
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.fps < 1 || c.fps > 120 {
		return fmt.Errorf("invalid fps (must be between 1-120 inclusive): %d", c.fps)
	}
	if c.particleFPS < 1 || c.particleFPS > c.fps {
		return fmt.Errorf("invalid particle fps (must be between 1-%d inclusive): %d", c.fps, c.particleFPS)
	}
	if c.particles < 0 || c.particles > 50000 {
		return fmt.Errorf("invalid particle count (must be between 0-50000 inclusive): %d", c.particles)
	}
	if c.suggestRate <= 0 {
		return fmt.Errorf("invalid suggestion rate (must be positive): %v", c.suggestRate)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// particleEvery is how many frames pass between particle updates.
func (c *Config) particleEvery() int {
	return max(1, c.fps/c.particleFPS)
}

// fonts splits the --font list, dropping blank entries.
func (c *Config) fonts() []string {
	var out []string
	for _, path := range strings.Split(c.font, ",") {
		if path = strings.TrimSpace(path); path != "" {
			out = append(out, path)
		}
	}
	return out
}

// loadEnvFile reads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GAMECHAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "gamechain",
		Short:         "A themed-round idea party game with AI-drawn cards, served as a single webapp.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.apiKey, "api-key", "", "gemini api key; without one every ai call uses its fallback (env: GAMECHAIN_API_KEY)")
	fs.DurationVar(&cfg.aiTimeout, "ai-timeout", 30*time.Second, "timeout for ai text requests (env: GAMECHAIN_AI_TIMEOUT)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: GAMECHAIN_BIND)")
	fs.StringVar(&cfg.envFile, "env-file", ".env", "file to load environment variables from, if present (env: GAMECHAIN_ENV_FILE)")
	fs.StringVar(&cfg.font, "font", "", "comma-separated ttf/otf/ttc fonts used to shape the reveal particles, tried in order (env: GAMECHAIN_FONT)")
	fs.IntVar(&cfg.fps, "fps", 30, "animation frames per second sent to clients (env: GAMECHAIN_FPS)")
	fs.StringVar(&cfg.imageModel, "image-model", gemini.DefaultImageModel, "model used for reveal illustrations (env: GAMECHAIN_IMAGE_MODEL)")
	fs.DurationVar(&cfg.imageTimeout, "image-timeout", 60*time.Second, "timeout for ai image requests (env: GAMECHAIN_IMAGE_TIMEOUT)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "expose prometheus metrics at /metrics (env: GAMECHAIN_METRICS)")
	fs.IntVar(&cfg.particleFPS, "particle-fps", 15, "particle updates per second sent to clients (env: GAMECHAIN_PARTICLE_FPS)")
	fs.IntVar(&cfg.particles, "particles", particles.DefaultCount, "number of particles in the reveal effect (env: GAMECHAIN_PARTICLES)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: GAMECHAIN_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: GAMECHAIN_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: GAMECHAIN_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: GAMECHAIN_SESSION_TIMEOUT)")
	fs.Float64Var(&cfg.suggestRate, "suggest-rate", 1, "ai idea suggestions allowed per second, per session (env: GAMECHAIN_SUGGEST_RATE)")
	fs.StringVar(&cfg.textModel, "text-model", gemini.DefaultTextModel, "model used for idea cards (env: GAMECHAIN_TEXT_MODEL)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: GAMECHAIN_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: GAMECHAIN_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: GAMECHAIN_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: GAMECHAIN_VERSION)")

	bind := func() {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = v.BindPFlag(f.Name, f)
			_ = v.BindEnv(f.Name)
			if !f.Changed && v.IsSet(f.Name) {
				_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
			}
		})
	}

	// Bind once to find the env file, then again for what it defines.
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		bind()
		if err := loadEnvFile(cfg.envFile); err != nil {
			return err
		}
		bind()

		return nil
	}

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("gamechain v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
