package ql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ByLCY/qlabel/logging"
)

// Outcome is what is known about a job after it was sent.
type Outcome struct {
	Printed      bool
	ReadyForNext bool
	// Confirmed is false when the printer never answered and the outcome
	// was assumed from a successful write.
	Confirmed bool
}

// Conn talks to one printer. Each call opens and closes the underlying
// connection.
type Conn interface {
	Send(ctx context.Context, data []byte) (Outcome, error)
	Status(ctx context.Context) (*Status, error)
}

// DefaultPort is the raw printing port of networked QL printers.
const DefaultPort = "9100"

// Timeouts used when the context carries no deadline.
var (
	DialTimeout  = 5 * time.Second
	ReplyTimeout = 10 * time.Second
)

// Open parses a device specifier: tcp://host[:port], file:///path or a bare
// path.
func Open(device string) (Conn, error) {
	device = strings.TrimSpace(device)
	switch {
	case device == "":
		return nil, errors.New("ql: no printer device configured")
	case strings.HasPrefix(device, "tcp://"):
		addr := strings.TrimPrefix(device, "tcp://")
		addr = strings.TrimSuffix(addr, "/")
		if _, _, err := net.SplitHostPort(addr); err != nil {
			addr = net.JoinHostPort(addr, DefaultPort)
		}
		return &tcpConn{addr: addr}, nil
	case strings.HasPrefix(device, "file://"):
		return &fileConn{path: strings.TrimPrefix(device, "file://")}, nil
	case strings.Contains(device, "://"):
		return nil, fmt.Errorf("ql: unsupported device %q", device)
	default:
		return &fileConn{path: device}, nil
	}
}

type tcpConn struct {
	addr string
}

func (c *tcpConn) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("ql: connect %s: %w", c.addr, err)
	}
	return conn, nil
}

func (c *tcpConn) Send(ctx context.Context, data []byte) (Outcome, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return Outcome{}, err
	}
	defer conn.Close()
	return send(ctx, conn, data, c.addr)
}

func (c *tcpConn) Status(ctx context.Context) (*Status, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return status(ctx, conn)
}

type fileConn struct {
	path string
}

func (c *fileConn) open(flag int) (*os.File, error) {
	f, err := os.OpenFile(c.path, os.O_RDWR|flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ql: open %s: %w", c.path, err)
	}
	return f, nil
}

func (c *fileConn) Send(ctx context.Context, data []byte) (Outcome, error) {
	f, err := c.open(os.O_CREATE | os.O_TRUNC)
	if err != nil {
		return Outcome{}, err
	}
	defer f.Close()
	return send(ctx, f, data, c.path)
}

func (c *fileConn) Status(ctx context.Context) (*Status, error) {
	f, err := c.open(0)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return status(ctx, f)
}

// port is the part of net.Conn and *os.File the protocol needs.
type port interface {
	io.ReadWriter
	SetDeadline(t time.Time) error
}

func deadline(ctx context.Context, d time.Duration) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		return dl
	}
	return time.Now().Add(d)
}

func send(ctx context.Context, p port, data []byte, name string) (Outcome, error) {
	// files without poll support reject deadlines; plain writes still work
	canWait := p.SetDeadline(deadline(ctx, ReplyTimeout)) == nil
	if _, err := p.Write(data); err != nil {
		return Outcome{}, fmt.Errorf("ql: write %s: %w", name, err)
	}
	logging.Logger().Debug("raster job written", "device", name, "bytes", len(data))
	if !canWait {
		return Outcome{Printed: true, ReadyForNext: true}, nil
	}

	var out Outcome
	buf := make([]byte, StatusSize)
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		_, err := io.ReadFull(p, buf)
		if err != nil {
			if out.Confirmed {
				return out, nil
			}
			// no reply at all: the job went out and nothing complained
			logging.Logger().Debug("printer sent no status", "device", name, "err", err)
			return Outcome{Printed: true, ReadyForNext: true}, nil
		}
		s, err := ParseStatus(buf)
		if err != nil {
			return out, err
		}
		out.Confirmed = true
		if len(s.Errors) > 0 {
			return Outcome{Confirmed: true}, fmt.Errorf("ql: printer reported: %s", strings.Join(s.Errors, ", "))
		}
		if s.Done() {
			out.Printed = true
		}
		if out.Printed && s.Waiting() {
			out.ReadyForNext = true
			return out, nil
		}
	}
}

func status(ctx context.Context, p port) (*Status, error) {
	if err := p.SetDeadline(deadline(ctx, ReplyTimeout)); err != nil {
		return nil, fmt.Errorf("ql: device cannot report status: %w", err)
	}
	if _, err := p.Write(StatusRequest()); err != nil {
		return nil, fmt.Errorf("ql: status request: %w", err)
	}
	buf := make([]byte, StatusSize)
	if _, err := io.ReadFull(p, buf); err != nil {
		return nil, fmt.Errorf("ql: status reply: %w", err)
	}
	return ParseStatus(buf)
}
