package transport

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

func pipeChannels() (client, server *CommandChannel) {
	c, s := net.Pipe()
	return NewCommandChannel(c), NewCommandChannel(s)
}

func TestCommandChannelRoundtrip(t *testing.T) {
	client, server := pipeChannels()
	defer client.Close()
	defer server.Close()

	payload := []byte("subscribe request payload")
	go func() {
		_ = wire.WriteCommandFrame(rawConn(t, client), 0x02, payload)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cmd, got, err := server.ReadCommand(ctx)
	if err != nil {
		t.Fatalf("ReadCommand: %v", err)
	}
	if cmd != 0x02 {
		t.Fatalf("command = %#x, want 0x02", cmd)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload = %q, want %q", got, payload)
	}
}

func rawConn(t *testing.T, c *CommandChannel) net.Conn {
	t.Helper()
	return c.conn
}

func TestCommandChannelReadCancelledByContext(t *testing.T) {
	client, server := pipeChannels()
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := server.ReadCommand(ctx)
	if err == nil {
		t.Fatalf("expected timeout error, got nil")
	}
}

func TestCommandChannelWriteResponse(t *testing.T) {
	client, server := pipeChannels()
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		ctx := context.Background()
		done <- server.WriteResponse(ctx, 0x80, 0x02, []byte("ack"))
	}()

	respCode, cmdCode, payload, err := wire.ReadResponseFrame(rawConn(t, client))
	if err != nil {
		t.Fatalf("ReadResponseFrame: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}
	if respCode != 0x80 || cmdCode != 0x02 {
		t.Fatalf("got response=%#x command=%#x", respCode, cmdCode)
	}
	if string(payload) != "ack" {
		t.Fatalf("payload = %q", payload)
	}
}

func TestCommandChannelWriteCommandReadResponseRoundtrip(t *testing.T) {
	client, server := pipeChannels()
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		ctx := context.Background()
		done <- client.WriteCommand(ctx, 0x06, []byte("modes"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cmd, payload, err := server.ReadCommand(ctx)
	if err != nil {
		t.Fatalf("ReadCommand: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("WriteCommand: %v", err)
	}
	if cmd != 0x06 || string(payload) != "modes" {
		t.Fatalf("got command=%#x payload=%q", cmd, payload)
	}

	done = make(chan error, 1)
	go func() {
		done <- server.WriteResponse(context.Background(), 0x80, 0x06, []byte("ok"))
	}()

	respCode, cmdCode, respPayload, err := client.ReadResponse(ctx)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}
	if respCode != 0x80 || cmdCode != 0x06 || string(respPayload) != "ok" {
		t.Fatalf("got response=%#x command=%#x payload=%q", respCode, cmdCode, respPayload)
	}
}

func TestListenAndAccept(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan *CommandChannel, 1)
	go func() {
		ctx := context.Background()
		ch, err := ln.Accept(ctx)
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		accepted <- ch
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	select {
	case ch := <-accepted:
		defer ch.Close()
	case <-time.After(time.Second):
		t.Fatalf("Accept did not return")
	}
}

func TestAcceptCancelledByContext(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = ln.Accept(ctx)
	if err == nil {
		t.Fatalf("expected context deadline error")
	}
}

func TestDataChannelRoundtrip(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer serverConn.Close()

	dc, err := DialDataChannel(serverConn.LocalAddr().String())
	if err != nil {
		t.Fatalf("DialDataChannel: %v", err)
	}
	defer dc.Close()

	payload := []byte{0x01, 0x00, 0x00, 0x00, 0x02, 0xAA, 0xBB}
	if err := dc.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	buf := make([]byte, 1500)
	serverConn.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err := serverConn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP: %v", err)
	}
	if !bytes.Equal(buf[:n], payload) {
		t.Fatalf("got %v, want %v", buf[:n], payload)
	}
}

func TestDataChannelOversizedPayloadRejected(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer serverConn.Close()

	dc, err := DialDataChannel(serverConn.LocalAddr().String())
	if err != nil {
		t.Fatalf("DialDataChannel: %v", err)
	}
	defer dc.Close()

	if err := dc.Write(make([]byte, maxDataDatagram+1)); err == nil {
		t.Fatalf("expected error for oversized payload")
	}
}
