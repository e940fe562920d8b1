package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesConfigFile(t *testing.T) {
	path := writeTempFile(t, "config.json", `{
		"interface_info": [
			{"interface": "eth0", "rule_file": "eth0.rules.json", "log_pcaps": true}
		],
		"tunables_config": "tunables.json",
		"debugging": {"log_to_console": true, "log_to_file": false, "log_file_path": "", "log_to_syslog": false},
		"events": {
			"event_file_path": "/var/log/nidsd/events",
			"event_file_size_bytes": 1048576,
			"event_file_format": "binary",
			"encrypt_log_file": true,
			"encryption_algorithm": "aes_ctr_128",
			"hash_algorithm": "SHA256",
			"event_upload_method": "mqtt",
			"mqtt_config": {"ip": "10.0.0.5", "port": 1883, "topic_name": "nids/events"}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Interfaces(), 1)
	require.Equal(t, "eth0", cfg.Interfaces()[0].Interface)
	require.True(t, cfg.Interfaces()[0].LogPcaps)
	require.Equal(t, "aes_ctr_128", cfg.Events.EncryptionAlgorithm)
	require.Equal(t, "mqtt", cfg.Events.EventUploadMethod)
	require.Equal(t, "nids/events", cfg.Events.MQTT.TopicName)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.Error(t, err)
}

func TestLoadTunablesFallsBackToDefaults(t *testing.T) {
	path := writeTempFile(t, "tunables.json", `{"icmp": {"max_pkt_len_bytes": 2048}}`)

	tun, err := LoadTunables(path)
	require.NoError(t, err)
	require.EqualValues(t, 2048, tun.ICMP.MaxPktLenBytes)
	require.EqualValues(t, DefaultTunables().IPv4.IPBlacklistIntervalMs, tun.IPv4.IPBlacklistIntervalMs)
}

func TestLoadTunablesEmptyPathReturnsDefaults(t *testing.T) {
	tun, err := LoadTunables("")
	require.NoError(t, err)
	require.Equal(t, DefaultTunables(), tun)
}
