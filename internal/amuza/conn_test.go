package amuza_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"amuza/internal/amuza"
	"amuza/internal/device"
	"amuza/internal/wellplate"
)

func newTestConnection(t *testing.T) (*amuza.Connection, *amuza.MockTransport) {
	t.Helper()
	transport := amuza.NewMockTransport()
	conn, err := amuza.Connect(transport, amuza.Options{
		AckTimeout:    200 * time.Millisecond,
		QueryInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, transport
}

func TestEjectSendsCommandAndAcks(t *testing.T) {
	conn, transport := newTestConnection(t)

	if err := conn.Eject(context.Background()); err != nil {
		t.Fatalf("Eject failed: %v", err)
	}

	var sawEject bool
	for _, cmd := range transport.Sent() {
		if cmd == "@Y\n" {
			sawEject = true
		}
	}
	if !sawEject {
		t.Fatalf("eject command not sent: %v", transport.Sent())
	}
}

func TestCommandTimesOutWithoutAck(t *testing.T) {
	conn, transport := newTestConnection(t)
	transport.SetResponding(false)

	err := conn.Insert(context.Background())
	if err == nil {
		t.Fatal("expected acknowledgment timeout")
	}
	if !errors.Is(err, device.ErrDevice) {
		t.Fatalf("expected ErrDevice, got %v", err)
	}
}

func TestPositionEncodesWellAndDwell(t *testing.T) {
	conn, transport := newTestConnection(t)

	well, _ := wellplate.Parse("A7")
	if err := conn.Position(context.Background(), well, 90*time.Second); err != nil {
		t.Fatalf("Position failed: %v", err)
	}

	var move string
	for _, cmd := range transport.Sent() {
		if strings.HasPrefix(cmd, "@P,") {
			move = cmd
		}
	}
	// A7 is device well 49.
	if move != "@P,M1,0090,49,\n\n" {
		t.Fatalf("move command = %q", move)
	}
}

func TestStatusTracksFrames(t *testing.T) {
	conn, transport := newTestConnection(t)

	transport.InjectLine("@q,10,1,0049,0042")
	deadline := time.After(time.Second)
	for {
		status := conn.Status()
		if status.InProgress && status.Well == 49 && status.Remaining == 42 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("status never updated: %+v", conn.Status())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	conn, _ := newTestConnection(t)
	if err := conn.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
