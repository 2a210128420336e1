package net

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"armada/server/internal/metrics"
	"armada/server/internal/proto"
	"armada/server/internal/telemetry"
	"armada/server/logging"
	networklog "armada/server/logging/network"
)

// Discovery answers LAN broadcast probes over UDP so clients can find the
// server without configuration. A probe is "ARMADA_DISCOVER_V1 <port>";
// the reply, unicast to the sender, is
// "ARMADA_SERVER_V1 <port> <playerCount> <maxPlayers>".
type Discovery struct {
	port   int
	counts func() (current, max int)
	logger telemetry.Logger
	pub    logging.Publisher

	running atomic.Bool
	conn    *net.UDPConn
	wg      sync.WaitGroup
}

// NewDiscovery builds a responder on the given UDP port. counts is polled
// per probe; the engine's PlayerCounts fits directly.
func NewDiscovery(port int, counts func() (current, max int), logger telemetry.Logger, pub logging.Publisher) *Discovery {
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Discovery{port: port, counts: counts, logger: logger, pub: pub}
}

// Start binds the UDP socket and begins answering probes.
func (d *Discovery) Start() error {
	if !d.running.CompareAndSwap(false, true) {
		return fmt.Errorf("discovery: already running")
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: d.port})
	if err != nil {
		d.running.Store(false)
		return fmt.Errorf("discovery: listen udp %d: %w", d.port, err)
	}
	d.conn = conn
	d.wg.Add(1)
	go d.respondLoop()
	return nil
}

// Addr reports the bound UDP address, or empty before Start.
func (d *Discovery) Addr() string {
	if d.conn == nil {
		return ""
	}
	return d.conn.LocalAddr().String()
}

// Stop closes the socket and joins the responder goroutine.
func (d *Discovery) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	d.conn.Close()
	d.wg.Wait()
}

func (d *Discovery) respondLoop() {
	defer d.wg.Done()
	buf := make([]byte, 256)
	for {
		n, sender, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			if !d.running.Load() {
				return
			}
			if d.logger != nil {
				d.logger.Printf("discovery read failed: %v", err)
			}
			continue
		}

		fields := strings.Fields(string(buf[:n]))
		if len(fields) < 1 || fields[0] != proto.DiscoveryRequest {
			continue
		}

		current, max := d.counts()
		reply := fmt.Sprintf("%s %d %d %d", proto.DiscoveryResponse, d.port, current, max)
		if _, err := d.conn.WriteToUDP([]byte(reply), sender); err != nil {
			if d.logger != nil {
				d.logger.Printf("discovery reply to %s failed: %v", sender, err)
			}
			continue
		}

		metrics.DiscoveryProbes.Inc()
		networklog.DiscoveryProbe(context.Background(), d.pub, networklog.DiscoveryProbePayload{
			Remote: sender.String(),
		})
	}
}
