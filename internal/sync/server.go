package sync

import (
	"bufio"
	"net"

	"github.com/rs/zerolog"
)

type Server struct {
	Addr string
	Hub  *Hub
	Log  zerolog.Logger

	ln net.Listener
}

func NewServer(addr string, hub *Hub, log zerolog.Logger) *Server {
	return &Server{Addr: addr, Hub: hub, Log: log}
}

func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.Log.Info().Str("addr", s.Addr).Msg("tcp sync listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}

		s.Hub.Add(conn)
		s.Hub.Welcome(conn)
		s.Log.Debug().Stringer("remote", conn.RemoteAddr()).Msg("tcp sync client connected")

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				s.Log.Debug().Stringer("remote", c.RemoteAddr()).Msg("tcp sync client disconnected")
			}()

			// keep the connection alive; consume anything the client sends
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}

func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
