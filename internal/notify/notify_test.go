package notify

import (
	"net"
	"testing"
)

func TestParseRegisterMessage(t *testing.T) {
	msg, err := parseRegisterMessage([]byte(`{"type":"register","user_id":"u1"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Type != RegisterMessageType || msg.UserID != "u1" {
		t.Errorf("msg = %+v", msg)
	}

	if _, err := parseRegisterMessage([]byte(`not json`)); err == nil {
		t.Error("garbage accepted")
	}
	if _, err := parseRegisterMessage([]byte(`{"type":"register"}`)); err == nil {
		t.Error("missing user_id accepted")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}

	r.Register("u1", addr)
	r.Register("", addr)  // ignored
	r.Register("u2", nil) // ignored

	clients := r.Snapshot()
	if len(clients) != 1 || clients[0].UserID != "u1" {
		t.Fatalf("clients = %+v", clients)
	}

	r.Remove("u1")
	if len(r.Snapshot()) != 0 {
		t.Error("client not removed")
	}
}
