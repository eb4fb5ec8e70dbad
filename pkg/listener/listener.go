// Package listener implements the Listener component from §4.1: owning one
// listening address, binding it (optionally with SO_REUSEPORT), handing off
// the bound fd across a fork, and registering/unregistering its accept
// callback with a worker's event loop.
package listener

import (
	"fmt"
	"net"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"sockboss/pkg/codec"
	"sockboss/pkg/eventloop"
)

// Transport is the socket transport a Listener binds.
type Transport string

const (
	TransportTCP  Transport = "tcp"
	TransportUDP  Transport = "udp"
	TransportSSL  Transport = "ssl"
	TransportUnix Transport = "unix"
)

// Protocol is an opaque tag forwarded to the application callback; the
// Listener never decodes bytes itself.
type Protocol string

const (
	ProtocolFrame     Protocol = "frame"
	ProtocolText      Protocol = "text"
	ProtocolHTTP      Protocol = "http"
	ProtocolWebSocket Protocol = "websocket"
	ProtocolRaw       Protocol = "raw"
)

// defaultBacklog is the backlog depth applied unless a context option
// overrides it.
const defaultBacklog = 102400

// Context is the opaque bag of socket-layer options build() applies; kept
// narrow (just backlog today) since TLS/cert wiring is out of this spec's
// hard core.
type Context struct {
	Backlog int
}

// Listener is immutable after construction except for its runtime fd handle
// and accepting flag, which build()/teardown()/pause/resume mutate under a
// mutex — multiple workers may call DropCompetingState concurrently against
// the same *Listener value shared from the parent's fork.
type Listener struct {
	Transport   Transport
	Address     string
	Context     Context
	ProtoTag    Protocol
	WorkerCount int
	Name        string
	ReusePort   bool

	mu        sync.Mutex
	fd        *os.File
	netListen net.Listener
	accepting bool
	built     bool
}

func New(transport Transport, address string, proto Protocol, name string, workerCount int, reusePort bool) *Listener {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Listener{
		Transport:   transport,
		Address:     address,
		ProtoTag:    proto,
		Name:        name,
		WorkerCount: workerCount,
		ReusePort:   reusePort,
		Context:     Context{Backlog: defaultBacklog},
	}
}

// Build binds the listening socket in the master (the default path — not
// used when ReusePort is set, since then each worker binds independently).
// Idempotent per process.
func (l *Listener) Build() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.built {
		return nil
	}
	if l.ReusePort {
		return nil
	}
	nl, fd, err := bind(l.Transport, l.Address, l.Context.Backlog, false)
	if err != nil {
		return &codec.BindError{Address: l.Address, Err: err}
	}
	l.netListen = nl
	l.fd = fd
	l.built = true
	return nil
}

// BuildInWorker is called by each worker when ReusePort is true: same as
// Build but with SO_REUSEPORT set, so the kernel load-balances accept()
// across every worker bound to the same address.
func (l *Listener) BuildInWorker() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.built {
		return nil
	}
	if !l.ReusePort {
		return fmt.Errorf("listener %s: BuildInWorker called without reuse_port", l.Name)
	}
	nl, fd, err := bind(l.Transport, l.Address, l.Context.Backlog, true)
	if err != nil {
		return &codec.BindError{Address: l.Address, Err: err}
	}
	l.netListen = nl
	l.fd = fd
	l.built = true
	return nil
}

// FromInheritedFD reconstructs the net.Listener from a file descriptor
// inherited across fork (the master-prebinds path). f is consumed; the
// returned net.Listener owns a dup of its fd per net.FileListener's
// contract, so f itself is closed once wrapped.
func (l *Listener) FromInheritedFD(f *os.File) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.built {
		return nil
	}
	defer f.Close()

	if l.Transport == TransportUDP {
		pc, err := net.FilePacketConn(f)
		if err != nil {
			return &codec.BindError{Address: l.Address, Err: err}
		}
		l.netListen = &packetListener{pc}
	} else {
		nl, err := net.FileListener(f)
		if err != nil {
			return &codec.BindError{Address: l.Address, Err: err}
		}
		l.netListen = nl
	}
	l.built = true
	return nil
}

// File returns a dup'd *os.File for the bound listener, suitable for
// placement in exec.Cmd.ExtraFiles ahead of a fork-replace.
func (l *Listener) File() (*os.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.built {
		return nil, fmt.Errorf("listener %s: not built", l.Name)
	}
	switch v := l.netListen.(type) {
	case *net.TCPListener:
		return v.File()
	case *net.UnixListener:
		return v.File()
	case *packetListener:
		if uc, ok := v.PacketConn.(*net.UDPConn); ok {
			return uc.File()
		}
	}
	return nil, fmt.Errorf("listener %s: transport does not support fd export", l.Name)
}

// DropCompetingState releases this listener's inherited fd in a worker that
// was not assigned to it — called post-fork so only the owning worker ever
// accepts on a given fd.
func (l *Listener) DropCompetingState() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.netListen == nil {
		return nil
	}
	err := l.netListen.Close()
	l.netListen = nil
	l.built = false
	return err
}

// ResumeAccept registers this listener's accept callback with the worker's
// event loop.
func (l *Listener) ResumeAccept(loop eventloop.EventLoop, onAccept func(eventloop.AcceptedConnection)) error {
	l.mu.Lock()
	nl := l.netListen
	l.accepting = true
	l.mu.Unlock()
	if nl == nil {
		return fmt.Errorf("listener %s: not built", l.Name)
	}
	return loop.RegisterAccept(l.Name, nl, onAccept)
}

// PauseAccept unregisters the accept callback without closing the fd.
func (l *Listener) PauseAccept(loop eventloop.EventLoop) {
	l.mu.Lock()
	l.accepting = false
	l.mu.Unlock()
	loop.UnregisterAccept(l.Name)
}

func (l *Listener) Accepting() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accepting
}

// Teardown closes the fd. Idempotent.
func (l *Listener) Teardown() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.netListen == nil {
		return nil
	}
	err := l.netListen.Close()
	l.netListen = nil
	l.built = false
	l.accepting = false
	return err
}

// DisplayAddress renders the "listen" column for status rows: the bound
// address, with an OS-assigned port resolved if the configured address used
// port 0.
func (l *Listener) DisplayAddress() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.netListen != nil {
		if addr := l.netListen.Addr(); addr != nil {
			return addr.String()
		}
	}
	return l.Address
}

// packetListener adapts a net.PacketConn (UDP) to the net.Listener-shaped
// subset the rest of this package needs (Close/Addr); UDP has no Accept.
type packetListener struct {
	net.PacketConn
}

func (p *packetListener) Accept() (net.Conn, error) {
	return nil, fmt.Errorf("udp listener does not support Accept")
}
func (p *packetListener) Addr() net.Addr { return p.LocalAddr() }

// bind performs the raw socket setup shared by Build and BuildInWorker:
// socket/setsockopt(SO_REUSEADDR[,SO_REUSEPORT])/bind/listen, then wraps the
// resulting fd as a net.Listener via os.NewFile + net.FileListener so the
// rest of the system works with stdlib types.
func bind(transport Transport, address string, backlog int, reusePort bool) (net.Listener, *os.File, error) {
	switch transport {
	case TransportUnix:
		addr, err := net.ResolveUnixAddr("unix", address)
		if err != nil {
			return nil, nil, err
		}
		_ = os.Remove(addr.Name)
		nl, err := net.ListenUnix("unix", addr)
		if err != nil {
			return nil, nil, err
		}
		f, err := nl.File()
		if err != nil {
			return nl, nil, err
		}
		return nl, f, nil
	case TransportUDP:
		nl, f, err := bindSocket(unix.AF_INET, unix.SOCK_DGRAM, address, backlog, reusePort, false)
		return nl, f, err
	default: // TCP, SSL (TLS is layered above the raw TCP accept loop)
		nl, f, err := bindSocket(unix.AF_INET, unix.SOCK_STREAM, address, backlog, reusePort, true)
		return nl, f, err
	}
}

func bindSocket(domain, typ int, address string, backlog int, reusePort, listen bool) (net.Listener, *os.File, error) {
	host, port, err := splitHostPort(address)
	if err != nil {
		return nil, nil, err
	}

	fd, err := unix.Socket(domain, typ, 0)
	if err != nil {
		return nil, nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, nil, err
	}
	if reusePort {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			_ = unix.Close(fd)
			return nil, nil, err
		}
	}

	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], host[:])
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, nil, err
	}
	if listen {
		if err := unix.Listen(fd, backlog); err != nil {
			_ = unix.Close(fd)
			return nil, nil, err
		}
	}

	f := os.NewFile(uintptr(fd), address)
	if typ == unix.SOCK_DGRAM {
		pc, err := net.FilePacketConn(f)
		if err != nil {
			return nil, nil, err
		}
		return &packetListener{pc}, f, nil
	}
	nl, err := net.FileListener(f)
	if err != nil {
		return nil, nil, err
	}
	return nl, f, nil
}

func splitHostPort(address string) ([4]byte, int, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return [4]byte{}, 0, err
	}
	var ip [4]byte
	if host == "" || host == "0.0.0.0" {
		ip = [4]byte{0, 0, 0, 0}
	} else {
		parsed := net.ParseIP(host)
		if parsed == nil {
			addrs, err := net.LookupIP(host)
			if err != nil || len(addrs) == 0 {
				return ip, 0, fmt.Errorf("cannot resolve host %q", host)
			}
			parsed = addrs[0]
		}
		v4 := parsed.To4()
		if v4 == nil {
			return ip, 0, fmt.Errorf("only IPv4 addresses are supported, got %q", host)
		}
		copy(ip[:], v4)
	}
	var port int
	_, err = fmt.Sscanf(portStr, "%d", &port)
	if err != nil {
		return ip, 0, fmt.Errorf("invalid port %q", portStr)
	}
	return ip, port, nil
}
