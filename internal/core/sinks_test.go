package core

import (
	"bytes"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/nidsd/nidsd/internal/config"
)

func TestBuildSinksConsoleAndFile(t *testing.T) {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	clock := clockwork.NewFakeClockAt(time.Unix(1000, 0))

	cfg := &config.Config{
		Events: config.EventsConfig{
			LogToConsole:        true,
			LogToFile:           true,
			EventFilePath:       t.TempDir(),
			EventFileSizeBytes:  4096,
			HashAlgorithm:       "SHA256",
			EncryptionAlgorithm: "aes_ctr_128",
		},
	}

	sinks, files, err := buildSinks(log, cfg, clock)
	require.NoError(t, err)
	require.Len(t, sinks, 2)
	require.Empty(t, files)
}

func TestBuildSinksRejectsUnknownHashAlgorithm(t *testing.T) {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	clock := clockwork.NewFakeClockAt(time.Unix(1000, 0))

	cfg := &config.Config{
		Events: config.EventsConfig{HashAlgorithm: "MD5"},
	}

	_, _, err := buildSinks(log, cfg, clock)
	require.Error(t, err)
}

func TestBuildSinksRequiresEncryptionKeyPath(t *testing.T) {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	clock := clockwork.NewFakeClockAt(time.Unix(1000, 0))

	cfg := &config.Config{
		Events: config.EventsConfig{EncryptLogFile: true},
	}

	_, _, err := buildSinks(log, cfg, clock)
	require.Error(t, err)
}

func TestBuildSinksUDPPublish(t *testing.T) {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	clock := clockwork.NewFakeClockAt(time.Unix(1000, 0))

	cfg := &config.Config{
		Events: config.EventsConfig{
			EventUploadMethod: "udp",
			UDP:               config.UDPUploadConfig{IP: "127.0.0.1", Port: 9999},
		},
	}

	sinks, _, err := buildSinks(log, cfg, clock)
	require.NoError(t, err)
	require.Len(t, sinks, 1)
}

func TestBuildSinksRejectsUnknownUploadMethod(t *testing.T) {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	clock := clockwork.NewFakeClockAt(time.Unix(1000, 0))

	cfg := &config.Config{
		Events: config.EventsConfig{EventUploadMethod: "carrier_pigeon"},
	}

	_, _, err := buildSinks(log, cfg, clock)
	require.Error(t, err)
}

func TestBuildSinksFileUsesConfiguredDirectory(t *testing.T) {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	clock := clockwork.NewFakeClockAt(time.Unix(1000, 0))

	dir := t.TempDir()
	cfg := &config.Config{
		Events: config.EventsConfig{
			LogToFile:     true,
			EventFilePath: dir,
		},
	}

	sinks, _, err := buildSinks(log, cfg, clock)
	require.NoError(t, err)
	require.Len(t, sinks, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
