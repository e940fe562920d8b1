package eventmgr

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/protocols"
	"github.com/nidsd/nidsd/internal/wire"
)

// mqttKeepAlive, mqttClientID and mqttPublishTimeout are fixed by
// spec.md §6's publish-sinks paragraph: "QoS 1, clean-session,
// keep-alive 20s, client-id nids_mqtt_event_messenger, publish-timeout
// 10s". QoS 1 itself is not negotiable over the bare encoder in
// internal/protocols (see DESIGN.md) — the sink publishes at QoS 0
// wire-format but retains the fixed keep-alive/client-id/timeout
// parameters the spec pins down.
const (
	mqttKeepAlive      = 20 * time.Second
	mqttClientID       = "nids_mqtt_event_messenger"
	mqttPublishTimeout = 10 * time.Second
)

// PublishTransport is the minimal network primitive a publish sink
// needs: write one datagram/envelope, and be redialed on failure.
type PublishTransport interface {
	Write(b []byte) error
	Close() error
}

// PublishSink sends the sealed envelope for each event over a network
// transport (MQTT, UDP, or a local UNIX socket — spec.md §6). All
// three reuse the identical envelope wire format used by FileSink;
// only the underlying transport differs.
type PublishSink struct {
	mu      sync.Mutex
	dial    func() (PublishTransport, error)
	conn    PublishTransport
	hashAlg HashAlgorithm
	encAlg  EncryptionAlgorithm
	key     []byte
}

func newPublishSink(dial func() (PublishTransport, error), hashAlg HashAlgorithm, encAlg EncryptionAlgorithm, key []byte) *PublishSink {
	return &PublishSink{dial: dial, hashAlg: hashAlg, encAlg: encAlg, key: key}
}

func (s *PublishSink) Name() string { return "publish" }

func (s *PublishSink) Write(ev events.Event) error {
	cleartext := EncodeMessage(ev)
	hdr, ciphertext, err := Seal(cleartext, s.hashAlg, s.encAlg, s.key)
	if err != nil {
		return err
	}
	record := encodeEnvelope(hdr, ciphertext)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		conn, err := s.dialWithRetry()
		if err != nil {
			return err
		}
		s.conn = conn
	}

	if err := s.conn.Write(record); err != nil {
		s.conn.Close()
		s.conn = nil
		return fmt.Errorf("eventmgr: publish write failed: %w", err)
	}
	return nil
}

func (s *PublishSink) dialWithRetry() (PublishTransport, error) {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(100*time.Millisecond),
		backoff.WithMaxInterval(5*time.Second),
		backoff.WithMaxElapsedTime(mqttPublishTimeout),
	)

	var conn PublishTransport
	op := func() error {
		c, err := s.dial()
		if err != nil {
			return err
		}
		conn = c
		return nil
	}
	if err := backoff.Retry(op, b); err != nil {
		return nil, fmt.Errorf("eventmgr: dialing publish transport: %w", err)
	}
	return conn, nil
}

func (s *PublishSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// datagramTransport wraps net.Conn for both the UDP and the
// local-UNIX publish methods: "one datagram per event, envelope
// identical to file" (spec.md §6).
type datagramTransport struct{ conn net.Conn }

func (t *datagramTransport) Write(b []byte) error {
	_, err := t.conn.Write(b)
	return err
}
func (t *datagramTransport) Close() error { return t.conn.Close() }

// NewUDPPublishSink dials a UDP socket to addr and publishes one
// datagram per event.
func NewUDPPublishSink(addr string, hashAlg HashAlgorithm, encAlg EncryptionAlgorithm, key []byte) *PublishSink {
	dial := func() (PublishTransport, error) {
		conn, err := net.Dial("udp", addr)
		if err != nil {
			return nil, err
		}
		return &datagramTransport{conn: conn}, nil
	}
	return newPublishSink(dial, hashAlg, encAlg, key)
}

// NewLocalUnixPublishSink dials a UNIX datagram socket at path.
func NewLocalUnixPublishSink(path string, hashAlg HashAlgorithm, encAlg EncryptionAlgorithm, key []byte) *PublishSink {
	dial := func() (PublishTransport, error) {
		conn, err := net.Dial("unixgram", path)
		if err != nil {
			return nil, err
		}
		return &datagramTransport{conn: conn}, nil
	}
	return newPublishSink(dial, hashAlg, encAlg, key)
}

// mqttTransport sends a CONNECT once per dial then one PUBLISH per
// Write call, reusing internal/protocols' MQTT encoder (there is no
// MQTT client library in the dependency pack — see DESIGN.md).
type mqttTransport struct {
	conn  net.Conn
	topic string
}

func (t *mqttTransport) Write(b []byte) error {
	buf := make([]byte, len(b)+len(t.topic)+16)
	w := wire.NewWriter(buf)
	if err := protocols.EncodeMQTTPublish(w, t.topic, b); err != nil {
		return fmt.Errorf("eventmgr: encoding MQTT publish: %w", err)
	}
	_, err := t.conn.Write(w.Bytes())
	return err
}

func (t *mqttTransport) Close() error { return t.conn.Close() }

// NewMQTTPublishSink dials addr (host:port), performs the fixed
// CONNECT handshake described in spec.md §6, and publishes one
// envelope per event to topic.
func NewMQTTPublishSink(addr, topic string, hashAlg HashAlgorithm, encAlg EncryptionAlgorithm, key []byte) *PublishSink {
	dial := func() (PublishTransport, error) {
		conn, err := net.DialTimeout("tcp", addr, mqttPublishTimeout)
		if err != nil {
			return nil, err
		}

		buf := make([]byte, 256+len(mqttClientID))
		w := wire.NewWriter(buf)
		if err := protocols.EncodeMQTTConnect(w, mqttClientID, uint16(mqttKeepAlive.Seconds())); err != nil {
			conn.Close()
			return nil, fmt.Errorf("eventmgr: encoding MQTT connect: %w", err)
		}
		if _, err := conn.Write(w.Bytes()); err != nil {
			conn.Close()
			return nil, err
		}

		return &mqttTransport{conn: conn, topic: topic}, nil
	}
	return newPublishSink(dial, hashAlg, encAlg, key)
}
