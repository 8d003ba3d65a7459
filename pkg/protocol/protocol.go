package protocol

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const (
	MagicNumber = 0x52

	OpInsert = 0x01
	OpQuery  = 0x02
	OpStats  = 0x03

	RespOK  = 0x00
	RespVal = 0x01
	RespErr = 0xFF
)

// [Magic 1B] [Op 1B] [PayloadLen 4B] [Payload NB]
const headerSize = 6

var (
	errInvalidMagic   = errors.New("invalid magic number")
	errShortPayload   = errors.New("payload too short")
	errPayloadTooLong = errors.New("payload exceeds limit")
)

// MaxPayloadSize bounds a single frame; a payload larger than this is a
// protocol violation, not a legitimate request.
const MaxPayloadSize = 64 << 20

type Packet struct {
	Op      byte
	Payload []byte
}

func Encode(w io.Writer, op byte, payload []byte) error {
	header := make([]byte, headerSize)
	header[0] = MagicNumber
	header[1] = op
	binary.BigEndian.PutUint32(header[2:6], uint32(len(payload)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

func Decode(r io.Reader) (*Packet, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	if header[0] != MagicNumber {
		return nil, errInvalidMagic
	}

	op := header[1]
	pLen := binary.BigEndian.Uint32(header[2:6])
	if pLen > MaxPayloadSize {
		return nil, errPayloadTooLong
	}

	payload := make([]byte, pLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	return &Packet{Op: op, Payload: payload}, nil
}

// EncodeInsert packs an insert request:
// [Dim 4B] [Vec Dim*4B] [Tag 4B]
func EncodeInsert(vec []float32, tag float32) []byte {
	buf := make([]byte, 4+4*len(vec)+4)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(vec)))
	off := 4
	for _, v := range vec {
		binary.BigEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	binary.BigEndian.PutUint32(buf[off:], math.Float32bits(tag))
	return buf
}

func DecodeInsert(payload []byte) (vec []float32, tag float32, err error) {
	if len(payload) < 4 {
		return nil, 0, errShortPayload
	}
	dim := int(binary.BigEndian.Uint32(payload[0:4]))
	if len(payload) != 4+4*dim+4 {
		return nil, 0, errShortPayload
	}
	vec = make([]float32, dim)
	off := 4
	for i := range vec {
		vec[i] = math.Float32frombits(binary.BigEndian.Uint32(payload[off:]))
		off += 4
	}
	tag = math.Float32frombits(binary.BigEndian.Uint32(payload[off:]))
	return vec, tag, nil
}

// EncodeQuery packs a query request:
// [Dim 4B] [Vec Dim*4B] [K 4B] [Smin 4B] [Smax 4B] [Alpha 8B]
func EncodeQuery(vec []float32, k int, smin, smax float32, alpha float64) []byte {
	buf := make([]byte, 4+4*len(vec)+4+4+4+8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(vec)))
	off := 4
	for _, v := range vec {
		binary.BigEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	binary.BigEndian.PutUint32(buf[off:], uint32(k))
	off += 4
	binary.BigEndian.PutUint32(buf[off:], math.Float32bits(smin))
	off += 4
	binary.BigEndian.PutUint32(buf[off:], math.Float32bits(smax))
	off += 4
	binary.BigEndian.PutUint64(buf[off:], math.Float64bits(alpha))
	return buf
}

func DecodeQuery(payload []byte) (vec []float32, k int, smin, smax float32, alpha float64, err error) {
	if len(payload) < 4 {
		return nil, 0, 0, 0, 0, errShortPayload
	}
	dim := int(binary.BigEndian.Uint32(payload[0:4]))
	if len(payload) != 4+4*dim+4+4+4+8 {
		return nil, 0, 0, 0, 0, errShortPayload
	}
	vec = make([]float32, dim)
	off := 4
	for i := range vec {
		vec[i] = math.Float32frombits(binary.BigEndian.Uint32(payload[off:]))
		off += 4
	}
	k = int(binary.BigEndian.Uint32(payload[off:]))
	off += 4
	smin = math.Float32frombits(binary.BigEndian.Uint32(payload[off:]))
	off += 4
	smax = math.Float32frombits(binary.BigEndian.Uint32(payload[off:]))
	off += 4
	alpha = math.Float64frombits(binary.BigEndian.Uint64(payload[off:]))
	return vec, k, smin, smax, alpha, nil
}

// EncodeIDs packs a result id list:
// [Count 4B] [ID 8B] * Count
func EncodeIDs(ids []int) []byte {
	buf := make([]byte, 4+8*len(ids))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(ids)))
	off := 4
	for _, id := range ids {
		binary.BigEndian.PutUint64(buf[off:], uint64(id))
		off += 8
	}
	return buf
}

func DecodeIDs(payload []byte) ([]int, error) {
	if len(payload) < 4 {
		return nil, errShortPayload
	}
	count := int(binary.BigEndian.Uint32(payload[0:4]))
	if len(payload) != 4+8*count {
		return nil, errShortPayload
	}
	ids := make([]int, count)
	off := 4
	for i := range ids {
		ids[i] = int(binary.BigEndian.Uint64(payload[off:]))
		off += 8
	}
	return ids, nil
}
