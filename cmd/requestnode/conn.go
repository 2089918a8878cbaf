// Command requestnode is the reference node binary: it wires the core
// packages (codec, dispatch, registry, notify, spatialcache) to a real
// TCP listener and a gorilla/websocket "/ws" upgrade route, the way
// cc-backend's cmd/cc-backend wires its packages to a gorilla/mux router
// in main.go/server.go. Everything in this file and main.go is transport
// plumbing outside the hard core spec §1 describes — the core never
// imports it.
package main

import (
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/arkeindustries/requestcore/internal/dispatch"
	"github.com/arkeindustries/requestcore/internal/notify"
	"github.com/arkeindustries/requestcore/pkg/log"
	"github.com/gorilla/websocket"
)

// readFrame reads one u32-big-endian-length-prefixed frame body from r,
// matching dispatch.ParseRequestFrame's expectations and the length
// framing spec §6 "Wire format" describes for both directions.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	body := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// tcpConn adapts a net.Conn to notify.Conn, serializing writes so a
// notification delivered concurrently with a request's own response
// cannot interleave on the wire.
type tcpConn struct {
	mu sync.Mutex
	nc net.Conn
}

func (c *tcpConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.nc.Write(frame)
	return err
}

// serveTCP accepts connections on ln, running one read loop per
// connection that submits every framed request to pool and writes back
// whatever response frame dispatch produces (spec §4.6's per-connection
// "requests on it execute strictly in the order received").
func serveTCP(ln net.Listener, pool *dispatch.Pool, fanOut *notify.FanOut) {
	for {
		nc, err := ln.Accept()
		if err != nil {
			log.Errorf("requestnode: tcp accept: %v", err)
			return
		}
		go handleTCPConn(nc, pool, fanOut)
	}
}

func handleTCPConn(nc net.Conn, pool *dispatch.Pool, fanOut *notify.FanOut) {
	conn := &tcpConn{nc: nc}
	session := &dispatch.Session{Conn: conn}

	defer func() {
		nc.Close()
		if session.AuthenticatedID != 0 {
			fanOut.Logout(session.AuthenticatedID, conn)
		}
	}()

	for {
		body, err := readFrame(nc)
		if err != nil {
			return
		}
		req, err := dispatch.ParseRequestFrame(body)
		if err != nil {
			log.Warnf("requestnode: tcp %s: malformed frame: %v", nc.RemoteAddr(), err)
			return
		}
		resp := pool.Submit(session, req)
		if resp == nil {
			continue
		}
		if err := conn.Send(resp); err != nil {
			return
		}
	}
}

// wsConn adapts a gorilla/websocket connection to notify.Conn, sending
// every frame as one binary message.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.BinaryMessage, frame)
}

func handleWSConn(ws *websocket.Conn, pool *dispatch.Pool, fanOut *notify.FanOut) {
	conn := &wsConn{ws: ws}
	session := &dispatch.Session{Conn: conn}

	defer func() {
		ws.Close()
		if session.AuthenticatedID != 0 {
			fanOut.Logout(session.AuthenticatedID, conn)
		}
	}()

	for {
		kind, body, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		req, err := dispatch.ParseRequestFrame(body)
		if err != nil {
			log.Warnf("requestnode: ws: malformed frame: %v", err)
			return
		}
		resp := pool.Submit(session, req)
		if resp == nil {
			continue
		}
		if err := conn.Send(resp); err != nil {
			return
		}
	}
}
