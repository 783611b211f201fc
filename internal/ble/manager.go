// Package ble finds the embedded LED controller and delivers command frames to it.
package ble

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/remoteled/platform/internal/command"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	ErrPeerUnreachable = errors.New("ble peer unreachable")
	ErrConnectTimeout  = errors.New("ble connect timeout")
	ErrWriteFailure    = errors.New("ble write failure")
	ErrSessionLost     = errors.New("ble session lost during hold")
	ErrDisabled        = errors.New("ble disabled")
)

// Address identifies a peer as reported by the platform stack.
type Address string

// Advertisement is one peer seen during a scan.
type Advertisement struct {
	Address           Address
	LocalName         string
	AdvertisesService bool
}

// Scanner reports peers seen for up to timeout.
type Scanner interface {
	Scan(ctx context.Context, timeout time.Duration) ([]Advertisement, error)
}

// Dialer opens a connection to the command characteristic of a peer.
type Dialer interface {
	Dial(ctx context.Context, addr Address, timeout time.Duration) (Conn, error)
}

// Conn is an open link to a peer.
type Conn interface {
	// HasService reports whether the peer exposes the controller service.
	HasService(ctx context.Context) (bool, error)
	Write(ctx context.Context, frame []byte) error
	// Disconnected is closed when the link drops.
	Disconnected() <-chan struct{}
	Close() error
}

type Transport interface {
	Scanner
	Dialer
}

type Config struct {
	Key            string
	ScanTimeout    time.Duration
	ConnectTimeout time.Duration
	ProbeTimeout   time.Duration
	ProbeLimit     int
}

func (c Config) withDefaults() Config {
	if c.ScanTimeout <= 0 {
		c.ScanTimeout = 10 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 5 * time.Second
	}
	if c.ProbeLimit <= 0 {
		c.ProbeLimit = 4
	}
	return c
}

// Manager owns the cached peer address and every session to the peer.
type Manager struct {
	transport Transport
	cfg       Config
	logger    *log.Logger

	mu     sync.Mutex
	cached Address
	gen    uint64
	scans  singleflight.Group
}

// cachedPeer is an address together with the cache generation that stored it.
type cachedPeer struct {
	addr Address
	gen  uint64
}

func NewManager(transport Transport, cfg Config, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{transport: transport, cfg: cfg.withDefaults(), logger: logger}
}

// FindPeer returns the cached address, or scans for one when forced or empty.
// Concurrent scans share a single result.
func (m *Manager) FindPeer(ctx context.Context, forceRescan bool) (Address, error) {
	p, err := m.peer(ctx, forceRescan)
	return p.addr, err
}

func (m *Manager) peer(ctx context.Context, forceRescan bool) (cachedPeer, error) {
	if !forceRescan {
		if p := m.current(); p.addr != "" {
			return p, nil
		}
	}
	v, err, _ := m.scans.Do("scan", func() (any, error) {
		return m.scan(ctx)
	})
	if err != nil {
		return cachedPeer{}, err
	}
	return v.(cachedPeer), nil
}

func (m *Manager) current() cachedPeer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cachedPeer{addr: m.cached, gen: m.gen}
}

func (m *Manager) cachedAddress() Address {
	return m.current().addr
}

// invalidate clears the cache only while it still holds the entry of
// generation gen. A caller whose dial failed against an older entry leaves a
// freshly rescanned address alone.
func (m *Manager) invalidate(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen == gen {
		m.cached = ""
	}
}

func (m *Manager) scan(ctx context.Context) (cachedPeer, error) {
	ads, err := m.transport.Scan(ctx, m.cfg.ScanTimeout)
	if err != nil {
		return cachedPeer{}, fmt.Errorf("%w: scan: %v", ErrPeerUnreachable, err)
	}

	var unnamed []Address
	for _, ad := range ads {
		if ad.AdvertisesService {
			m.logger.Printf("ble peer found addr=%s via=advertisement", ad.Address)
			return m.store(ad.Address), nil
		}
		if strings.TrimSpace(ad.LocalName) == "" {
			unnamed = append(unnamed, ad.Address)
		}
	}

	addr := m.probe(ctx, unnamed)
	if addr == "" {
		return cachedPeer{}, ErrPeerUnreachable
	}
	m.logger.Printf("ble peer found addr=%s via=probe", addr)
	return m.store(addr), nil
}

// probe connects to each candidate and returns the earliest one in scan order
// exposing the controller service.
func (m *Manager) probe(ctx context.Context, candidates []Address) Address {
	if len(candidates) == 0 {
		return ""
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu   sync.Mutex
		best = -1
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.ProbeLimit)
	for i, addr := range candidates {
		g.Go(func() error {
			conn, err := m.transport.Dial(gctx, addr, m.cfg.ProbeTimeout)
			if err != nil {
				return nil
			}
			defer conn.Close()
			ok, err := conn.HasService(gctx)
			if err != nil || !ok {
				return nil
			}
			mu.Lock()
			if best == -1 || i < best {
				best = i
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if best == -1 {
		return ""
	}
	return candidates[best]
}

func (m *Manager) store(addr Address) cachedPeer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.cached = addr
	return cachedPeer{addr: addr, gen: m.gen}
}

// connect dials the known peer. A failed dial invalidates the cache and
// triggers exactly one rescan and retry.
func (m *Manager) connect(ctx context.Context) (Conn, error) {
	p, err := m.peer(ctx, false)
	if err != nil {
		return nil, err
	}
	conn, err := m.transport.Dial(ctx, p.addr, m.cfg.ConnectTimeout)
	if err == nil {
		return conn, nil
	}
	m.logger.Printf("WARN: ble connect addr=%s err=%v, rescanning", p.addr, err)
	m.invalidate(p.gen)

	p, err = m.peer(ctx, false)
	if err != nil {
		return nil, err
	}
	conn, err = m.transport.Dial(ctx, p.addr, m.cfg.ConnectTimeout)
	if err != nil {
		m.invalidate(p.gen)
		return nil, dialError(p.addr, err)
	}
	return conn, nil
}

func dialError(addr Address, err error) error {
	if errors.Is(err, ErrConnectTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrConnectTimeout, addr)
	}
	return fmt.Errorf("%w: connect %s: %v", ErrPeerUnreachable, addr, err)
}

// Send delivers one command on a short-lived connection.
func (m *Manager) Send(ctx context.Context, cmd command.Command) error {
	frame, err := command.Encode(cmd, m.cfg.Key)
	if err != nil {
		return err
	}
	conn, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Write(ctx, frame); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailure, cmd.Kind(), err)
	}
	return nil
}

// Activate lights color on one connection and keeps that connection open for d
// before turning it off. It returns once the ON frame is written; the channel
// yields the outcome of the hold and is then closed.
func (m *Manager) Activate(ctx context.Context, color command.Color, d time.Duration) (<-chan error, error) {
	start, end := command.Activate{Color: color, Duration: d}.Frames()
	on, err := command.Encode(start, m.cfg.Key)
	if err != nil {
		return nil, err
	}
	off, err := command.Encode(end, m.cfg.Key)
	if err != nil {
		return nil, err
	}

	conn, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.Write(ctx, on); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: ON: %v", ErrWriteFailure, err)
	}

	result := make(chan error, 1)
	go func() {
		err := m.hold(ctx, conn, d, off)
		_ = conn.Close()
		result <- err
		close(result)
	}()
	return result, nil
}

func (m *Manager) hold(ctx context.Context, conn Conn, d time.Duration, off []byte) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
	case <-conn.Disconnected():
		return fmt.Errorf("%w: peer disconnected", ErrSessionLost)
	case <-ctx.Done():
		offCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ConnectTimeout)
		defer cancel()
		_ = conn.Write(offCtx, off)
		return ctx.Err()
	}

	if err := conn.Write(ctx, off); err != nil {
		return fmt.Errorf("%w: OFF: %v", ErrSessionLost, err)
	}
	return nil
}

// Unavailable is the transport used when the host has no usable radio.
type Unavailable struct{}

func (Unavailable) Scan(context.Context, time.Duration) ([]Advertisement, error) {
	return nil, ErrDisabled
}

func (Unavailable) Dial(context.Context, Address, time.Duration) (Conn, error) {
	return nil, ErrDisabled
}
