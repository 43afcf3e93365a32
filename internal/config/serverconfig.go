package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strings"
)

// Fallback backend address used when serverconfig.json is missing or unusable
const (
	DefaultServerIP   = "127.0.0.1"
	DefaultServerPort = "3000"
)

// SubmitTarget is the backend that receives finished games, as read from
// serverconfig.json.
type SubmitTarget struct {
	ServerIP   string `json:"serverIP"`
	ServerPort string `json:"serverPort"`
}

// UnmarshalJSON accepts the port as a string or a number
func (t *SubmitTarget) UnmarshalJSON(data []byte) error {
	var raw struct {
		ServerIP   string          `json:"serverIP"`
		ServerPort json.RawMessage `json:"serverPort"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.ServerIP = raw.ServerIP
	t.ServerPort = ""
	if len(raw.ServerPort) == 0 || string(raw.ServerPort) == "null" {
		return nil
	}

	var port string
	if err := json.Unmarshal(raw.ServerPort, &port); err == nil {
		t.ServerPort = port
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(raw.ServerPort, &num); err != nil {
		return errors.New("serverPort must be a string or a number")
	}
	t.ServerPort = num.String()
	return nil
}

// DefaultSubmitTarget returns the fallback target
func DefaultSubmitTarget() SubmitTarget {
	return SubmitTarget{ServerIP: DefaultServerIP, ServerPort: DefaultServerPort}
}

// BaseURL returns http://ip:port
func (t SubmitTarget) BaseURL() string {
	return "http://" + net.JoinHostPort(t.ServerIP, t.ServerPort)
}

// LoadSubmitTarget reads serverconfig.json. Any problem is logged and the
// default target is used; a kiosk must still be playable without a backend.
func LoadSubmitTarget(path string, logger *slog.Logger) SubmitTarget {
	target := DefaultSubmitTarget()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("server config not found, using default", "path", path, "target", target.BaseURL())
		return target
	}
	if err != nil {
		logger.Warn("failed to read server config, using default", "path", path, "error", err)
		return target
	}

	var loaded SubmitTarget
	if err := json.Unmarshal(data, &loaded); err != nil {
		logger.Warn("failed to parse server config, using default", "path", path, "error", err)
		return target
	}
	if strings.TrimSpace(loaded.ServerIP) == "" {
		logger.Warn("server config has no serverIP, using default", "path", path)
		return target
	}

	target.ServerIP = strings.TrimSpace(loaded.ServerIP)
	if p := strings.TrimSpace(loaded.ServerPort); p != "" {
		target.ServerPort = p
	}
	logger.Info("server config loaded", "target", target.BaseURL())
	return target
}
