package network

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"log"
	"net"

	"rangeann/pkg/core"
	"rangeann/pkg/protocol"
)

type TCPServer struct {
	index        core.VectorIndex
	defaultAlpha float64
}

func NewTCPServer(index core.VectorIndex, defaultAlpha float64) *TCPServer {
	if defaultAlpha <= 0 || defaultAlpha >= 1 {
		defaultAlpha = 0.01
	}
	return &TCPServer{index: index, defaultAlpha: defaultAlpha}
}

func (s *TCPServer) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Printf("[TCP] Listening on %s (Binary Protocol)", addr)
	return s.Serve(listener)
}

func (s *TCPServer) Serve(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *TCPServer) handleConn(conn net.Conn) {
	defer conn.Close()

	for {
		req, err := protocol.Decode(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("[TCP] Decode error: %v", err)
			}
			return
		}

		switch req.Op {
		case protocol.OpInsert:
			vec, tag, err := protocol.DecodeInsert(req.Payload)
			if err != nil {
				protocol.Encode(conn, protocol.RespErr, []byte(err.Error()))
				continue
			}
			id, err := s.index.Insert(vec, tag)
			if err != nil {
				protocol.Encode(conn, protocol.RespErr, []byte(err.Error()))
				continue
			}
			idBuf := make([]byte, 8)
			binary.BigEndian.PutUint64(idBuf, uint64(id))
			protocol.Encode(conn, protocol.RespVal, idBuf)

		case protocol.OpQuery:
			vec, k, smin, smax, alpha, err := protocol.DecodeQuery(req.Payload)
			if err != nil {
				protocol.Encode(conn, protocol.RespErr, []byte(err.Error()))
				continue
			}
			if alpha <= 0 {
				alpha = s.defaultAlpha
			}
			ids, err := s.index.Query(vec, k, smin, smax, alpha)
			if err != nil {
				protocol.Encode(conn, protocol.RespErr, []byte(err.Error()))
				continue
			}
			protocol.Encode(conn, protocol.RespVal, protocol.EncodeIDs(ids))

		case protocol.OpStats:
			data, err := json.Marshal(s.index.Stats())
			if err != nil {
				protocol.Encode(conn, protocol.RespErr, []byte(err.Error()))
				continue
			}
			protocol.Encode(conn, protocol.RespVal, data)

		default:
			protocol.Encode(conn, protocol.RespErr, []byte("unknown op"))
		}
	}
}
