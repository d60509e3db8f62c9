package amuza

import (
	"bufio"
	"sync"

	"go.bug.st/serial"

	"amuza/internal/device"
)

type serialTransport struct {
	port  serial.Port
	lines chan string

	closeOnce sync.Once
	closeErr  error
}

// OpenSerial opens the collector's serial port and starts the reader that
// feeds Lines.
func OpenSerial(portName string, baudRate int) (Transport, error) {
	mode := &serial.Mode{BaudRate: baudRate}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, device.Wrap(device.ErrConnection, "amuza", "open", portName, err)
	}

	t := &serialTransport{
		port:  port,
		lines: make(chan string, 16),
	}
	go t.readLoop()
	return t, nil
}

func (t *serialTransport) Send(command string) error {
	if _, err := t.port.Write([]byte(command)); err != nil {
		return device.Wrap(device.ErrConnection, "amuza", "send", "", err)
	}
	return nil
}

func (t *serialTransport) Lines() <-chan string {
	return t.lines
}

func (t *serialTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.port.Close()
	})
	return t.closeErr
}

func (t *serialTransport) readLoop() {
	defer close(t.lines)
	scanner := bufio.NewScanner(t.port)
	for scanner.Scan() {
		t.lines <- scanner.Text()
	}
}
