package config

import (
	"strings"
	"testing"
	"time"
)

func noEnv(string) string { return "" }

func TestDefaults(t *testing.T) {
	c, err := Load(nil, noEnv)
	if err != nil {
		t.Fatal(err)
	}
	if c.Addr != ":8080" || c.GridSize != 25 || c.SpreadChance != 0.5 {
		t.Errorf("unexpected defaults %+v", c)
	}
	if len(c.Skins) != 4 || c.Skins[0] != "😭" {
		t.Errorf("skins = %v", c.Skins)
	}
	if c.HazardInterval != 3*time.Second || c.BotInterval != 250*time.Millisecond {
		t.Errorf("intervals = %v %v", c.HazardInterval, c.BotInterval)
	}
	if !c.LobbyHazard || c.LobbyBots != 1 || c.ArenaBots != 0 {
		t.Errorf("lobby defaults = %v %d %d", c.LobbyHazard, c.LobbyBots, c.ArenaBots)
	}
}

func TestEnvFallback(t *testing.T) {
	env := map[string]string{
		"PUSHME_GRID":         "15",
		"PUSHME_DB":           "sqlite",
		"PUSHME_LOBBY_HAZARD": "false",
		"PUSHME_ADDR":         ":9999",
	}
	c, err := Load([]string{"-addr", ":7000"}, func(k string) string { return env[k] })
	if err != nil {
		t.Fatal(err)
	}
	if c.GridSize != 15 || c.DBType != "sqlite" || c.LobbyHazard {
		t.Errorf("env not applied: %+v", c)
	}
	if c.Addr != ":7000" {
		t.Errorf("flag should win over env, addr = %q", c.Addr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"small grid", []string{"-grid", "4"}, "grid size"},
		{"empty skins", []string{"-skins", " , "}, "skin pool"},
		{"chance", []string{"-spread-chance", "1.5"}, "spread chance"},
		{"interval", []string{"-hazard-interval", "0s"}, "hazard interval"},
		{"db", []string{"-db", "mongo"}, "unknown db"},
		{"postgres url", []string{"-db", "postgres"}, "database url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args, noEnv)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestBadEnvValue(t *testing.T) {
	_, err := Load(nil, func(k string) string {
		if k == "PUSHME_GRID" {
			return "big"
		}
		return ""
	})
	if err == nil || !strings.Contains(err.Error(), "PUSHME_GRID") {
		t.Errorf("expected env error, got %v", err)
	}
}

func TestEnvName(t *testing.T) {
	if got := EnvName("ticket-secret"); got != "PUSHME_TICKET_SECRET" {
		t.Errorf("EnvName = %q", got)
	}
}
