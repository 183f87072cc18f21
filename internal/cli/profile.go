package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Profile holds financectl defaults read from config.toml. Flags override
// every field.
type Profile struct {
	DBPath    string `toml:"db_path"`
	User      string `toml:"user"`
	JWTSecret string `toml:"jwt_secret,omitempty"`
	TokenTTL  string `toml:"token_ttl,omitempty"`
}

func DefaultProfile() Profile {
	return Profile{
		DBPath:   "./data/financeflow.db",
		TokenTTL: "168h",
	}
}

// ProfileDir returns the XDG-compliant config directory.
func ProfileDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "financeflow")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "financeflow")
}

func ProfilePath() string {
	return filepath.Join(ProfileDir(), "config.toml")
}

// LoadProfile reads path, returning defaults if it doesn't exist.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, fmt.Errorf("reading config: %w", err)
	}
	if _, err := toml.Decode(string(data), &p); err != nil {
		return p, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if _, err := p.TTL(); err != nil {
		return p, err
	}
	return p, nil
}

// SaveProfile writes p to path, creating the directory.
func SaveProfile(path string, p Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(p)
}

// TTL parses TokenTTL; empty means 7 days.
func (p Profile) TTL() (time.Duration, error) {
	if p.TokenTTL == "" {
		return 7 * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(p.TokenTTL)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid token_ttl %q", p.TokenTTL)
	}
	return d, nil
}
