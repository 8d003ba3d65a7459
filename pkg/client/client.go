package client

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"net"
	"time"

	"rangeann/pkg/protocol"
)

type Client struct {
	conn net.Conn
	addr string
}

func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
		addr: addr,
	}, nil
}

// Insert registers a (vector, tag) pair and returns the assigned record id.
// Inserts are not idempotent, so a lost response is returned as an error
// instead of being retried; the caller decides whether re-issuing a
// possibly-applied insert is acceptable.
func (c *Client) Insert(vec []float32, tag float32) (int, error) {
	payload := protocol.EncodeInsert(vec, tag)

	resp, err := c.roundTrip(protocol.OpInsert, payload, false)
	if err != nil {
		return 0, err
	}
	if len(resp) < 8 {
		return 0, errors.New("malformed insert response")
	}
	return int(binary.BigEndian.Uint64(resp)), nil
}

// Query returns up to k record ids, nearest first, whose tag lies in
// [smin, smax]. An alpha of 0 lets the server apply its configured default.
func (c *Client) Query(vec []float32, k int, smin, smax float32, alpha float64) ([]int, error) {
	payload := protocol.EncodeQuery(vec, k, smin, smax, alpha)

	resp, err := c.roundTrip(protocol.OpQuery, payload, true)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeIDs(resp)
}

func (c *Client) Stats() (map[string]interface{}, error) {
	resp, err := c.roundTrip(protocol.OpStats, nil, true)
	if err != nil {
		return nil, err
	}
	var stats map[string]interface{}
	if err := json.Unmarshal(resp, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// roundTrip sends one request and reads one response. A send failure means
// the server never saw a complete frame, so any op may reconnect and retry.
// After a successful send only idempotent ops retry a lost response: the
// server may already have applied the request, and re-sending an applied
// insert would mint a duplicate record.
func (c *Client) roundTrip(op byte, payload []byte, idempotent bool) ([]byte, error) {
	if err := protocol.Encode(c.conn, op, payload); err != nil {
		return c.reconnectAndRetry(op, payload)
	}

	pkg, err := protocol.Decode(c.conn)
	if err != nil {
		if !idempotent {
			return nil, err
		}
		return c.reconnectAndRetry(op, payload)
	}
	return unwrap(pkg)
}

func (c *Client) reconnectAndRetry(op byte, payload []byte) ([]byte, error) {
	c.conn.Close()
	conn, err := net.DialTimeout("tcp", c.addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	c.conn = conn

	if err := protocol.Encode(c.conn, op, payload); err != nil {
		return nil, err
	}
	pkg, err := protocol.Decode(c.conn)
	if err != nil {
		return nil, err
	}
	return unwrap(pkg)
}

func unwrap(pkg *protocol.Packet) ([]byte, error) {
	switch pkg.Op {
	case protocol.RespVal, protocol.RespOK:
		return pkg.Payload, nil
	case protocol.RespErr:
		return nil, errors.New(string(pkg.Payload))
	default:
		return nil, errors.New("unknown response")
	}
}
