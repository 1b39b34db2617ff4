package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-tts/internal/espeak"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.TTS.Mode != "espeak" {
		t.Fatalf("expected espeak mode by default, got %q", cfg.TTS.Mode)
	}
	if len(cfg.TTS.Parameters.Values()) != 0 {
		t.Fatalf("expected no parameter overrides, got %v", cfg.TTS.Parameters.Values())
	}
}

func TestDataDirDefaultsFromEnvironment(t *testing.T) {
	t.Setenv(espeak.DataDirEnv, "/opt/espeak-ng-data")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TTS.DataDir != "/opt/espeak-ng-data" {
		t.Fatalf("expected data dir from env, got %q", cfg.TTS.DataDir)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loqa.yaml")
	body := `runtime_name: speaker
tts:
  mode: espeak
  data_dir: /srv/espeak-ng-data
  voice: German
  parameters:
    pitch: 40
    speed: 80
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RuntimeName != "speaker" || cfg.TTS.Voice != "German" {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	values := cfg.TTS.Parameters.Values()
	if values[espeak.Pitch] != 40 || values[espeak.Speed] != 80 || len(values) != 2 {
		t.Fatalf("unexpected parameters: %v", values)
	}
	if cfg.TTS.ChunkDurationMS != 400 {
		t.Fatalf("expected default chunk duration to survive, got %d", cfg.TTS.ChunkDurationMS)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOQA_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("LOQA_BUS_USERNAME", "alice")
	t.Setenv("LOQA_BUS_PASSWORD", "secret")
	t.Setenv("LOQA_BUS_TLS_INSECURE", "true")
	t.Setenv("LOQA_BUS_CONNECT_TIMEOUT_MS", "5000")
	t.Setenv("LOQA_EVENT_STORE_PATH", "./tmp.db")
	t.Setenv("LOQA_EVENT_STORE_RETENTION_MODE", "persistent")
	t.Setenv("LOQA_EVENT_STORE_RETENTION_DAYS", "7")
	t.Setenv("LOQA_EVENT_STORE_MAX_RECORDS", "123")
	t.Setenv("LOQA_EVENT_STORE_VACUUM_ON_START", "true")
	t.Setenv("LOQA_TTS_MODE", "mock")
	t.Setenv("LOQA_TTS_VOICE", "English (Great Britain)")
	t.Setenv("LOQA_TTS_PITCH", "60")
	t.Setenv("LOQA_TTS_WORD_GAP", "5")
	t.Setenv("LOQA_NODE_ID", "kitchen-tts")
	t.Setenv("LOQA_NODE_HEARTBEAT_INTERVAL_MS", "250")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if !cfg.Bus.TLSInsecure {
		t.Fatal("expected tls insecure override true")
	}
	if cfg.Bus.ConnectTimeout != 5000 {
		t.Fatalf("expected timeout 5000, got %d", cfg.Bus.ConnectTimeout)
	}
	if cfg.EventStore.Path != "./tmp.db" {
		t.Fatalf("expected event store path override")
	}
	if cfg.EventStore.RetentionMode != "persistent" {
		t.Fatalf("expected event store retention mode override")
	}
	if cfg.EventStore.RetentionDays != 7 {
		t.Fatalf("expected event store retention days override")
	}
	if cfg.EventStore.MaxRecords != 123 {
		t.Fatalf("expected event store max records override")
	}
	if !cfg.EventStore.VacuumOnStart {
		t.Fatalf("expected event store vacuum flag override")
	}
	if cfg.TTS.Mode != "mock" || cfg.TTS.Voice != "English (Great Britain)" {
		t.Fatalf("expected tts overrides, got %+v", cfg.TTS)
	}
	if v := cfg.TTS.Parameters.Values(); v[espeak.Pitch] != 60 || v[espeak.WordGap] != 5 {
		t.Fatalf("expected parameter overrides, got %v", v)
	}
	if cfg.Node.ID != "kitchen-tts" || cfg.Node.HeartbeatIntervalMS != 250 || cfg.Node.Role != "tts" {
		t.Fatalf("expected node overrides, got %+v", cfg.Node)
	}
}

func TestValidateRejectsOutOfRangeParameter(t *testing.T) {
	t.Setenv("LOQA_TTS_SPEED", "20")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "invalid value for 'Speed': 20") {
		t.Fatalf("expected speed validation error, got %v", err)
	}
}

func TestValidateExecNeedsCommand(t *testing.T) {
	t.Setenv("LOQA_TTS_MODE", "exec")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for exec mode without command")
	}
}

func TestValidateRejectsNonPositiveHeartbeat(t *testing.T) {
	t.Setenv("LOQA_NODE_HEARTBEAT_INTERVAL_MS", "-1")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-positive heartbeat interval")
	}
}
