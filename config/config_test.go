package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	t.Parallel()
	valid := Config{
		Chunking: ChunkingConfig{ChunkSize: 800, ChunkOverlap: 100},
		LLM:      LLMConfig{MaxToolRounds: 2},
		Session:  SessionConfig{MaxHistory: 2},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	overlap := valid
	overlap.Chunking.ChunkOverlap = 800
	if err := overlap.Validate(); err == nil {
		t.Error("expected error when overlap >= chunk size")
	}

	rounds := valid
	rounds.LLM.MaxToolRounds = 0
	if err := rounds.Validate(); err == nil {
		t.Error("expected error when max_tool_rounds < 1")
	}

	history := valid
	history.Session.MaxHistory = 0
	if err := history.Validate(); err == nil {
		t.Error("expected error when max_history < 1")
	}
}

func TestPostgresDSN(t *testing.T) {
	t.Parallel()
	p := PostgresConfig{URL: "postgres://u:p@h:5432/db"}
	dsn, err := p.DSN()
	if err != nil || dsn != "postgres://u:p@h:5432/db" {
		t.Fatalf("dsn = %q, %v", dsn, err)
	}

	p = PostgresConfig{Host: "localhost", User: "tutor", Password: "secret", DBName: "tutor"}
	dsn, err = p.DSN()
	if err != nil {
		t.Fatalf("DSN: %v", err)
	}
	for _, want := range []string{"localhost:5432", "sslmode=disable", "/tutor"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}

	if _, err := (PostgresConfig{}).DSN(); err == nil {
		t.Error("expected error for unconfigured postgres")
	}
}
