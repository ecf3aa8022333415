// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package relay carries command and response APDUs over WebSocket binary
// messages. Server exposes an emulated tag; Link and Dialer read one.
package relay

import (
	"net/http"
	"time"

	"github.com/ZaparooProject/go-tapcard"
	"github.com/ZaparooProject/go-tapcard/internal/syncutil"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Path is the default HTTP path of the relay endpoint.
const Path = "/apdu"

const (
	idleTimeout  = 30 * time.Second
	writeTimeout = 5 * time.Second
	maxMessage   = 4096
)

// Server is an http.Handler that emulates a Type 4 tag on each WebSocket
// connection. Every connection gets its own Emulator, so SELECT state and
// the record snapshot are per reader.
type Server struct {
	provider tapcard.ActiveRecordProvider
	conns    map[string]*websocket.Conn
	log      zerolog.Logger
	upgrader websocket.Upgrader
	mu       syncutil.Mutex
}

// NewServer creates a relay server answering from provider.
func NewServer(provider tapcard.ActiveRecordProvider, log zerolog.Logger) *Server {
	return &Server{
		provider: provider,
		conns:    make(map[string]*websocket.Conn),
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and answers APDUs until the peer leaves.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessage)

	id := uuid.New().String()
	log := s.log.With().Str("session", id).Str("remote", r.RemoteAddr).Logger()

	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
	}()

	em := tapcard.NewEmulator(s.provider)
	defer em.Deactivate()
	log.Debug().Msg("reader connected")

	for {
		_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("relay read error")
			}
			break
		}
		if mt != websocket.BinaryMessage {
			log.Debug().Int("type", mt).Msg("ignoring non-binary message")
			continue
		}

		res := em.Process(msg)
		log.Debug().Hex("cmd", msg).Hex("res", res).Msg("apdu")

		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.BinaryMessage, res); err != nil {
			log.Debug().Err(err).Msg("relay write error")
			break
		}
	}
	log.Debug().Msg("reader disconnected")
}

// Connections returns the number of open reader connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close drops every open connection.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, conn := range s.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
		delete(s.conns, id)
	}
	return nil
}
