package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadProfileMissingFileUsesDefaults(t *testing.T) {
	p, err := LoadProfile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p != DefaultProfile() {
		t.Fatalf("profile = %+v, want defaults", p)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	want := Profile{DBPath: "/tmp/ff.db", User: "alice", JWTSecret: "0123456789abcdef", TokenTTL: "2h"}
	if err := SaveProfile(path, want); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	got, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if got != want {
		t.Fatalf("profile = %+v, want %+v", got, want)
	}
	if ttl, _ := got.TTL(); ttl != 2*time.Hour {
		t.Fatalf("TTL = %v", ttl)
	}
}

func TestLoadProfileKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("user = \"bob\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.User != "bob" || p.DBPath != DefaultProfile().DBPath {
		t.Fatalf("profile = %+v", p)
	}
}

func TestLoadProfileErrors(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"syntax": "user = ",
		"ttl":    "token_ttl = \"forever\"\n",
	} {
		path := filepath.Join(dir, name+".toml")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadProfile(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestProfileDirHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := ProfilePath(); !strings.HasPrefix(got, filepath.Join("/xdg", "financeflow")) {
		t.Fatalf("ProfilePath = %q", got)
	}
}
