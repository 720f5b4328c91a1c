package udp

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/h2labs/hevsup/internal/domain"
	"github.com/h2labs/hevsup/internal/ports"
)

type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...ports.Field) {}
func (noopLogger) Info(msg string, fields ...ports.Field)  {}
func (noopLogger) Warn(msg string, fields ...ports.Field)  {}
func (noopLogger) Error(msg string, fields ...ports.Field) {}

func TestOpen_Validation(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		wantCfgErr bool
	}{
		{"missing listen", Config{Peer: "127.0.0.1:9300"}, true},
		{"missing peer", Config{Listen: "127.0.0.1:0"}, true},
		{"listen without port", Config{Listen: "127.0.0.1", Peer: "127.0.0.1:9300"}, false},
		{"peer without port", Config{Listen: "127.0.0.1:0", Peer: "127.0.0.1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.cfg, noopLogger{})
			if err == nil {
				t.Fatal("Open() succeeded, want error")
			}
			if tt.wantCfgErr && !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("Open() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

// openLoopback binds a fake controller socket on an ephemeral port and a
// transport pointed at it.
func openLoopback(t *testing.T) (*Transport, *net.UDPConn) {
	t.Helper()

	ctrl, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("bind controller socket: %v", err)
	}
	t.Cleanup(func() { ctrl.Close() })

	tr, err := Open(Config{
		Listen: "127.0.0.1:0",
		Peer:   ctrl.LocalAddr().String(),
	}, noopLogger{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr, ctrl
}

// probe sends one datagram through the transport and returns the transport's
// address as the controller saw it. The transport binds an ephemeral port, so
// this is the only way the controller learns where to reply.
func probe(t *testing.T, tr *Transport, ctrl *net.UDPConn) *net.UDPAddr {
	t.Helper()

	if err := tr.Send([]byte{0xA5}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	ctrl.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	_, from, err := ctrl.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("controller read: %v", err)
	}
	return from
}

// awaitBytes polls TryReceive until bytes arrive. Each poll is bounded by the
// transport's read deadline, so this spins rather than sleeps.
func awaitBytes(t *testing.T, tr *Transport, max int) []byte {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		out, err := tr.TryReceive(max)
		if err != nil {
			t.Fatalf("TryReceive() error = %v", err)
		}
		if len(out) > 0 {
			return out
		}
		if time.Now().After(deadline) {
			t.Fatal("no datagram arrived within the deadline")
		}
	}
}

func TestTransport_SendReceiveLoopback(t *testing.T) {
	tr, ctrl := openLoopback(t)

	sent := []byte{0xA5, 0x10, 0x01, 0x00, 0x42}
	if err := tr.Send(sent); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	ctrl.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, from, err := ctrl.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("controller read: %v", err)
	}
	if !bytes.Equal(buf[:n], sent) {
		t.Errorf("controller received %x, want %x", buf[:n], sent)
	}

	reply := []byte{0xA5, 0x20, 0x02, 0x00}
	if _, err := ctrl.WriteToUDP(reply, from); err != nil {
		t.Fatalf("controller write: %v", err)
	}
	got := awaitBytes(t, tr, 4096)
	if !bytes.Equal(got, reply) {
		t.Errorf("TryReceive() = %x, want %x", got, reply)
	}
}

func TestTransport_DropsStrangerDatagrams(t *testing.T) {
	tr, ctrl := openLoopback(t)
	supAddr := probe(t, tr, ctrl)

	stranger, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("bind stranger socket: %v", err)
	}
	defer stranger.Close()

	if _, err := stranger.WriteToUDP([]byte("not the controller"), supAddr); err != nil {
		t.Fatalf("stranger write: %v", err)
	}
	legit := []byte{0xA5, 0x33}
	if _, err := ctrl.WriteToUDP(legit, supAddr); err != nil {
		t.Fatalf("controller write: %v", err)
	}

	got := awaitBytes(t, tr, 4096)
	if !bytes.Equal(got, legit) {
		t.Errorf("TryReceive() = %x, want only the controller's %x", got, legit)
	}
}

func TestTransport_ReceiveBudgetCutsOversizedTail(t *testing.T) {
	tr, ctrl := openLoopback(t)
	supAddr := probe(t, tr, ctrl)

	if _, err := ctrl.WriteToUDP(bytes.Repeat([]byte{0x55}, 64), supAddr); err != nil {
		t.Fatalf("controller write: %v", err)
	}
	got := awaitBytes(t, tr, 10)
	if len(got) != 10 {
		t.Errorf("TryReceive(10) returned %d bytes, want 10", len(got))
	}
}

func TestTransport_Close(t *testing.T) {
	tr, _ := openLoopback(t)

	if err := tr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := tr.Send([]byte{0x01}); !errors.Is(err, domain.ErrTransportClosed) {
		t.Errorf("Send() after close = %v, want ErrTransportClosed", err)
	}
	if _, err := tr.TryReceive(64); !errors.Is(err, domain.ErrTransportClosed) {
		t.Errorf("TryReceive() after close = %v, want ErrTransportClosed", err)
	}
	if err := tr.Close(); !errors.Is(err, domain.ErrTransportClosed) {
		t.Errorf("second Close() = %v, want ErrTransportClosed", err)
	}
}
