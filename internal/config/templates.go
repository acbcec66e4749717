package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "client":
		return clientTemplate, nil
	case "leaderboard":
		return leaderboardTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// Validate loads path as kind and reports the first problem.
func Validate(path, kind string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "client":
		_, err := LoadClientProfile(path)
		return err
	case "leaderboard":
		_, err := LoadLeaderboardConfig(path)
		return err
	default:
		return fmt.Errorf("unknown config kind: %s", kind)
	}
}

const clientTemplate = `addr = "localhost:7379"
# client_id = "dicectl"
connect_timeout = "5s"
handshake_timeout = "5s"
handshake_attempts = 3
max_attempts = 3
retry_delay = "5s"
read_timeout = "15s"
write_timeout = "15s"
watch_read_timeout = "0s"

[tls]
enabled = false
mutual = false
ca_file = ""
cert_file = ""
key_file = ""
`

const leaderboardTemplate = `name = "leaderboard"
addr = ":8080"
dice_addr = "localhost:7379"
# profile = "client.toml"
key = "match:leaderboard"
top_n = 5
players = ["ada", "bob", "cam", "dee", "eve"]
max_score = 100
update_interval = "1s"
cors_origins = ["http://localhost:3000"]
`
