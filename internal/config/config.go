package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration
type Config struct {
	Addr      string
	ClientDir string
	PublicURL string

	GridSize        int
	Skins           []string
	BotSkin         string
	HazardInterval  time.Duration
	SpreadChance    float64
	BotInterval     time.Duration
	FlagWindow      time.Duration
	BotRespawnDelay time.Duration
	ResultsDelay    time.Duration
	LobbyBots       int
	ArenaBots       int
	LobbyHazard     bool
	Seed            int64
	Strict          bool

	LogFile  string
	LogLevel string

	DBType      string
	DBPath      string
	DatabaseURL string

	TicketSecret      string
	TicketTTL         time.Duration
	AdminPasswordHash string
}

const envPrefix = "PUSHME_"

// Load parses args, falling back to PUSHME_* environment variables for
// flags not given on the command line
func Load(args []string, getenv func(string) string) (*Config, error) {
	c := &Config{}
	var skins string

	fs := flag.NewFlagSet("pushme", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&c.Addr, "addr", ":8080", "HTTP listen address")
	fs.StringVar(&c.ClientDir, "client", "", "Path to static client directory")
	fs.StringVar(&c.PublicURL, "public-url", "http://localhost:8080", "URL encoded by /qr")
	fs.IntVar(&c.GridSize, "grid", 25, "Grid side length")
	fs.StringVar(&skins, "skins", "😭,😫,😳,😨", "Comma separated human skin pool")
	fs.StringVar(&c.BotSkin, "bot-skin", "🤖", "Bot skin")
	fs.DurationVar(&c.HazardInterval, "hazard-interval", 3*time.Second, "Hazard spread period")
	fs.Float64Var(&c.SpreadChance, "spread-chance", 0.5, "Chance a hazard cell spreads to each neighbour")
	fs.DurationVar(&c.BotInterval, "bot-interval", 250*time.Millisecond, "Bot decision period")
	fs.DurationVar(&c.FlagWindow, "flag-window", 100*time.Millisecond, "Punch and knockback flag duration")
	fs.DurationVar(&c.BotRespawnDelay, "bot-respawn", 2*time.Second, "Lobby bot respawn delay")
	fs.DurationVar(&c.ResultsDelay, "results-delay", 2*time.Second, "How long arena results show before hand-off")
	fs.IntVar(&c.LobbyBots, "lobby-bots", 1, "Bots in the lobby while humans are present")
	fs.IntVar(&c.ArenaBots, "arena-bots", 0, "Bots per arena round")
	fs.BoolVar(&c.LobbyHazard, "lobby-hazard", true, "Place the static hazard block in the lobby")
	fs.Int64Var(&c.Seed, "seed", 0, "Random seed, 0 for time based")
	fs.BoolVar(&c.Strict, "strict", false, "Panic on world invariant violations")
	fs.StringVar(&c.LogFile, "log-file", "", "Rotated log file, empty for stderr")
	fs.StringVar(&c.LogLevel, "log-level", "info", "Log level")
	fs.StringVar(&c.DBType, "db", "", "Round history backend: memory, sqlite or postgres")
	fs.StringVar(&c.DBPath, "db-path", "pushme.db", "SQLite database path")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection string")
	fs.StringVar(&c.TicketSecret, "ticket-secret", "", "HMAC key for identity tickets, random if empty")
	fs.DurationVar(&c.TicketTTL, "ticket-ttl", 24*time.Hour, "Identity ticket lifetime")
	fs.StringVar(&c.AdminPasswordHash, "admin-hash", "", "bcrypt hash guarding /admin, disabled if empty")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	var envErr error
	fs.VisitAll(func(f *flag.Flag) {
		if set[f.Name] || envErr != nil {
			return
		}
		if v := getenv(EnvName(f.Name)); v != "" {
			if err := fs.Set(f.Name, v); err != nil {
				envErr = fmt.Errorf("%s: %w", EnvName(f.Name), err)
			}
		}
	})
	if envErr != nil {
		return nil, envErr
	}

	c.Skins = splitList(skins)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// EnvName maps a flag name to its environment variable
func EnvName(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects configurations the game cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.GridSize < 5 {
		errs = append(errs, fmt.Errorf("grid size %d is below 5", c.GridSize))
	}
	if len(c.Skins) == 0 {
		errs = append(errs, errors.New("skin pool is empty"))
	}
	if c.SpreadChance < 0 || c.SpreadChance > 1 {
		errs = append(errs, fmt.Errorf("spread chance %s outside [0,1]", strconv.FormatFloat(c.SpreadChance, 'g', -1, 64)))
	}
	for name, d := range map[string]time.Duration{
		"hazard interval": c.HazardInterval,
		"bot interval":    c.BotInterval,
		"flag window":     c.FlagWindow,
		"bot respawn":     c.BotRespawnDelay,
		"ticket ttl":      c.TicketTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.ResultsDelay < 0 {
		errs = append(errs, errors.New("results delay is negative"))
	}
	if c.LobbyBots < 0 || c.ArenaBots < 0 {
		errs = append(errs, errors.New("bot counts must not be negative"))
	}
	switch c.DBType {
	case "", "memory", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown db type %q", c.DBType))
	}
	if c.DBType == "postgres" && c.DatabaseURL == "" {
		errs = append(errs, errors.New("postgres needs a database url"))
	}
	return errors.Join(errs...)
}
