package notify

import (
	"encoding/json"
	"errors"
	"net"
	"sync"

	"github.com/rs/zerolog"
)

const (
	RegisterMessageType      = "register"
	CatalogUpdateMessageType = "catalog.update"
)

type RegisterMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// CatalogUpdateMessage is pushed to registered UDP clients whenever an
// anime is created or changed in the catalog.
type CatalogUpdateMessage struct {
	Type         string `json:"type"`
	AnimeID      string `json:"anime_id"`
	NameEn       string `json:"name_en"`
	AiringStatus string `json:"airing_status"`
}

type Client struct {
	UserID string
	Addr   *net.UDPAddr
}

type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(userID string, addr *net.UDPAddr) {
	if userID == "" || addr == nil {
		return
	}
	r.mu.Lock()
	r.clients[userID] = Client{UserID: userID, Addr: addr}
	r.mu.Unlock()
}

func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	delete(r.clients, userID)
	r.mu.Unlock()
}

func (r *Registry) Snapshot() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}

type Server struct {
	addr     string
	registry *Registry
	log      zerolog.Logger
	conn     *net.UDPConn
}

func NewServer(addr string, registry *Registry, log zerolog.Logger) *Server {
	return &Server{addr: addr, registry: registry, log: log}
}

func (s *Server) Run() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.conn = conn
	defer conn.Close()

	s.log.Info().Str("addr", s.addr).Msg("udp notify listening")

	buffer := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			return err
		}
		msg, err := parseRegisterMessage(buffer[:n])
		if err != nil {
			s.log.Warn().Stringer("remote", addr).Err(err).Msg("invalid udp message")
			continue
		}
		if msg.Type != RegisterMessageType {
			continue
		}
		s.registry.Register(msg.UserID, addr)
		s.log.Debug().Str("user_id", msg.UserID).Stringer("remote", addr).Msg("registered udp client")
	}
}

func (s *Server) BroadcastCatalogUpdate(animeID, nameEn, airingStatus string) {
	if s.conn == nil {
		return
	}
	payload, err := json.Marshal(CatalogUpdateMessage{
		Type:         CatalogUpdateMessageType,
		AnimeID:      animeID,
		NameEn:       nameEn,
		AiringStatus: airingStatus,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("marshal broadcast")
		return
	}

	clients := s.registry.Snapshot()
	for _, client := range clients {
		s.sendWithRetry(client, payload)
	}
}

func (s *Server) sendWithRetry(client Client, payload []byte) {
	if err := s.sendOnce(client, payload); err == nil {
		return
	}
	if err := s.sendOnce(client, payload); err != nil {
		s.log.Warn().Str("user_id", client.UserID).Err(err).Msg("drop unreachable udp client")
		s.registry.Remove(client.UserID)
	}
}

func (s *Server) sendOnce(client Client, payload []byte) error {
	if client.Addr == nil {
		return errors.New("missing client address")
	}
	_, err := s.conn.WriteToUDP(payload, client.Addr)
	return err
}

func (s *Server) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func parseRegisterMessage(data []byte) (RegisterMessage, error) {
	var msg RegisterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	if msg.UserID == "" || msg.Type == "" {
		return msg, errors.New("missing required fields")
	}
	return msg, nil
}
