package core

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/nidsd/nidsd/internal/config"
	"github.com/nidsd/nidsd/internal/eventmgr"
)

// parseHashAlgorithm mirrors config.cc's hash_algorithm string switch.
func parseHashAlgorithm(s string) (eventmgr.HashAlgorithm, error) {
	switch s {
	case "", "NONE":
		return eventmgr.HashNone, nil
	case "SHA256":
		return eventmgr.HashSHA256, nil
	default:
		return 0, fmt.Errorf("core: unrecognized hash_algorithm %q", s)
	}
}

// parseEncryptionAlgorithm mirrors config.cc's encryption_algorithm
// string switch. aes_gcm_128_with_sha256 and aes_gcm_128 are accepted
// here and mapped to AES-CTR-128 (see eventmgr's EncryptionAlgorithm
// doc comment; the original codec never implements GCM either).
func parseEncryptionAlgorithm(s string) (eventmgr.EncryptionAlgorithm, error) {
	switch s {
	case "", "NONE":
		return eventmgr.EncNone, nil
	case "aes_ctr_128", "aes_gcm_128_with_sha256", "aes_gcm_128":
		return eventmgr.EncAESCTR128, nil
	default:
		return 0, fmt.Errorf("core: unrecognized encryption_algorithm %q", s)
	}
}

// buildSinks constructs every eventmgr.Sink named by cfg.Events. The
// second result is a list of *os.File for the caller to close on
// shutdown alongside pcap files; no sink adds to it (the file sink
// opens and closes its own files), so it is always empty.
func buildSinks(log *slog.Logger, cfg *config.Config, clock clockwork.Clock) ([]eventmgr.Sink, []*os.File, error) {
	ev := cfg.Events

	hashAlg, err := parseHashAlgorithm(ev.HashAlgorithm)
	if err != nil {
		return nil, nil, err
	}
	encAlg, err := parseEncryptionAlgorithm(ev.EncryptionAlgorithm)
	if err != nil {
		return nil, nil, err
	}

	var key []byte
	if ev.EncryptLogFile {
		if ev.EncryptionKeyPath == "" {
			return nil, nil, fmt.Errorf("core: encrypt_log_file set but no encryption_key path configured")
		}
		key, err = os.ReadFile(ev.EncryptionKeyPath)
		if err != nil {
			return nil, nil, fmt.Errorf("core: reading encryption key: %w", err)
		}
	}

	var sinks []eventmgr.Sink
	var files []*os.File

	if ev.LogToConsole {
		sinks = append(sinks, eventmgr.NewConsoleSink(log))
	}

	if ev.LogToSyslog {
		s, err := eventmgr.NewSyslogSink("nidsd")
		if err != nil {
			return nil, nil, fmt.Errorf("core: opening syslog sink: %w", err)
		}
		sinks = append(sinks, s)
	}

	if ev.LogToFile {
		path := ev.EventFilePath
		if path == "" {
			path = "."
		}
		maxBytes := ev.EventFileSizeBytes
		if maxBytes == 0 {
			maxBytes = 10 * 1024 * 1024
		}
		fs, err := eventmgr.NewFileSink(path, maxBytes, hashAlg, encAlg, key, clock)
		if err != nil {
			return nil, nil, fmt.Errorf("core: opening event file sink: %w", err)
		}
		sinks = append(sinks, fs)
	}

	switch ev.EventUploadMethod {
	case "":
		// No publish sink configured.
	case "mqtt":
		addr := fmt.Sprintf("%s:%d", ev.MQTT.IP, ev.MQTT.Port)
		sinks = append(sinks, eventmgr.NewMQTTPublishSink(addr, ev.MQTT.TopicName, hashAlg, encAlg, key))
	case "udp":
		addr := fmt.Sprintf("%s:%d", ev.UDP.IP, ev.UDP.Port)
		sinks = append(sinks, eventmgr.NewUDPPublishSink(addr, hashAlg, encAlg, key))
	case "local_unix":
		sinks = append(sinks, eventmgr.NewLocalUnixPublishSink(ev.LocalUnix.Path, hashAlg, encAlg, key))
	default:
		return nil, nil, fmt.Errorf("core: unrecognized event_upload_method %q", ev.EventUploadMethod)
	}

	return sinks, files, nil
}
