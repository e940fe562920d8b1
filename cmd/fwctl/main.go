// fwctl is a reference client for the sensor's control-plane socket
// (spec.md §4.7): it sends a GET_STATS request and prints the decoded
// per-interface counters. Grounded on the simple UDP-client texture of
// telemetry/sflow-proxy/cmd/packet-sender/main.go, adapted to a
// unixgram request/reply exchange.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/nidsd/nidsd/internal/controlplane"
)

const (
	ifnameLen = 20
	statsLen  = ifnameLen + 8*5
)

func main() {
	sockPath := flag.String("sock-file", controlplane.DefaultSockPath, "path to the sensor's control-plane socket")
	timeout := flag.Duration("timeout", 2*time.Second, "reply timeout")
	flag.Parse()

	serverAddr, err := net.ResolveUnixAddr("unixgram", *sockPath)
	if err != nil {
		log.Fatalf("resolving socket path: %v", err)
	}

	clientAddr, err := net.ResolveUnixAddr("unixgram", fmt.Sprintf("%s.%d", *sockPath, os.Getpid()))
	if err != nil {
		log.Fatalf("resolving client address: %v", err)
	}
	conn, err := net.ListenUnixgram("unixgram", clientAddr)
	if err != nil {
		log.Fatalf("binding client socket: %v", err)
	}
	defer conn.Close()
	defer os.Remove(clientAddr.Name)

	if _, err := conn.WriteToUnix([]byte{controlplane.MsgGetStats}, serverAddr); err != nil {
		log.Fatalf("sending GET_STATS request: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(*timeout))
	buf := make([]byte, 1+64*statsLen)
	n, err := conn.Read(buf)
	if err != nil {
		log.Fatalf("reading GET_STATS reply: %v", err)
	}
	if n < 1 || buf[0] != controlplane.MsgGetStats {
		log.Fatalf("unexpected reply type %v", buf[:n])
	}

	body := buf[1:n]
	fmt.Printf("%-20s %-25s %10s %10s %10s\n", "INTERFACE", "STARTUP", "N_RX", "N_ALLOW", "N_DENY")
	for off := 0; off+statsLen <= len(body); off += statsLen {
		rec := body[off : off+statsLen]
		name := strings.TrimRight(string(rec[0:ifnameLen]), "\x00")
		p := ifnameLen
		tsSec := binary.LittleEndian.Uint64(rec[p:])
		p += 8
		p += 8 // ts_nsec, unused for display
		nRx := binary.LittleEndian.Uint64(rec[p:])
		p += 8
		nAllowed := binary.LittleEndian.Uint64(rec[p:])
		p += 8
		nDeny := binary.LittleEndian.Uint64(rec[p:])

		startup := time.Unix(int64(tsSec), 0).Format(time.RFC3339)
		fmt.Printf("%-20s %-25s %10d %10d %10d\n", name, startup, nRx, nAllowed, nDeny)
	}
}

