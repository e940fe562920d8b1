// Package config loads the JSON configuration, rule files, and
// tunables file described in spec.md §6. Grounded on the teacher's
// internal/config.Config shape (path + sync.RWMutex + Load/
// UpdateFromJSON), with the teacher's HTTP-driven hot-reload
// (changedCh, api.go) dropped: spec.md's configuration file is read
// once at startup and there is no live-reload surface in the original
// (original_source/src/config/config.cc's config::parse_config runs
// exactly once, at firewall::init).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// InterfaceInfo is one entry of the top-level interface_info array.
type InterfaceInfo struct {
	Interface string `json:"interface"`
	RuleFile  string `json:"rule_file"`
	LogPcaps  bool   `json:"log_pcaps"`
}

// DebugConfig is the top-level debugging object.
type DebugConfig struct {
	LogToConsole bool   `json:"log_to_console"`
	LogToFile    bool   `json:"log_to_file"`
	LogFilePath  string `json:"log_file_path"`
	LogToSyslog  bool   `json:"log_to_syslog"`
}

// MQTTUploadConfig is events.mqtt_config.
type MQTTUploadConfig struct {
	IP        string `json:"ip"`
	Port      uint16 `json:"port"`
	TopicName string `json:"topic_name"`
}

// UDPUploadConfig is events.udp_config.
type UDPUploadConfig struct {
	IP   string `json:"ip"`
	Port uint16 `json:"port"`
}

// LocalUnixUploadConfig is events.local_unix_config.
type LocalUnixUploadConfig struct {
	Path string `json:"path"`
}

// EventsConfig is the top-level events object (spec.md §6).
type EventsConfig struct {
	EventFilePath      string `json:"event_file_path"`
	EventFileSizeBytes uint32 `json:"event_file_size_bytes"`
	EventFileFormat    string `json:"event_file_format"` // json | binary
	LogToSyslog        bool   `json:"log_to_syslog"`
	LogToFile          bool   `json:"log_to_file"`
	LogToConsole       bool   `json:"log_to_console"`

	EncryptLogFile      bool   `json:"encrypt_log_file"`
	EncryptionKeyPath   string `json:"encryption_key"`
	EncryptionAlgorithm string `json:"encryption_algorithm"` // aes_gcm_128_with_sha256 | aes_gcm_128 | aes_ctr_128
	HashAlgorithm       string `json:"hash_algorithm"`       // SHA256

	EventUploadMethod string                `json:"event_upload_method"` // mqtt | udp | local_unix
	MQTT              MQTTUploadConfig      `json:"mqtt_config"`
	UDP               UDPUploadConfig       `json:"udp_config"`
	LocalUnix         LocalUnixUploadConfig `json:"local_unix_config"`
}

// Config is the top-level configuration file (spec.md §6). It is
// read once at startup; after Load returns, every field is read-only
// and the Config's own sync.RWMutex is retained purely to make that
// contract explicit to concurrent readers rather than to support
// mutation.
type Config struct {
	InterfaceInfo  []InterfaceInfo `json:"interface_info"`
	TunablesConfig string          `json:"tunables_config"`
	Debugging      DebugConfig     `json:"debugging"`
	Events         EventsConfig    `json:"events"`

	mu sync.RWMutex
}

// Load reads and parses path into a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// Interfaces returns a copy of the configured interface list.
func (c *Config) Interfaces() []InterfaceInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]InterfaceInfo, len(c.InterfaceInfo))
	copy(out, c.InterfaceInfo)
	return out
}
