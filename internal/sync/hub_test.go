package sync

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHubBroadcastsToTCPClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	server, client := net.Pipe()
	hub.Add(server)
	defer hub.Remove(server)

	ev := WatchlistEvent{
		Type:    "watchlist.update",
		UserID:  "u1",
		AnimeID: "a1",
		Status:  "WATCHING",
		At:      time.Now().UTC(),
	}
	go hub.BroadcastJSON(ev)

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	sc := bufio.NewScanner(client)
	if !sc.Scan() {
		t.Fatalf("no line received: %v", sc.Err())
	}

	var got WatchlistEvent
	if err := json.Unmarshal(sc.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "watchlist.update" || got.AnimeID != "a1" {
		t.Errorf("event = %+v", got)
	}
}

func TestHubDropsDeadClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	server, client := net.Pipe()
	hub.Add(server)
	_ = client.Close()
	_ = server.Close()

	hub.BroadcastJSON(WatchlistEvent{Type: "watchlist.remove"})
	if n := hub.Count(); n != 0 {
		t.Errorf("clients after broadcast to closed conn = %d, want 0", n)
	}
}

func TestStats(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	server, client := net.Pipe()
	defer client.Close()
	hub.Add(server)

	s := hub.Stats()
	if s.TCPClients != 1 || s.WSClients != 0 {
		t.Errorf("stats = %+v", s)
	}
}
