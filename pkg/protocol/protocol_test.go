package protocol

import (
	"bytes"
	"io"
	"math"
	"slices"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	buf := new(bytes.Buffer)
	payload := []byte("hello")

	if err := Encode(buf, OpStats, payload); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	pkg, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if pkg.Op != OpStats {
		t.Errorf("got op %v, want %v", pkg.Op, OpStats)
	}
	if !bytes.Equal(pkg.Payload, payload) {
		t.Errorf("payload mismatch: got %q", string(pkg.Payload))
	}
}

func TestDecodeInvalidMagic(t *testing.T) {
	buf := bytes.NewReader([]byte{0x00, OpInsert, 0, 0, 0, 5, 'h', 'e', 'l', 'l', 'o'})
	_, err := Decode(buf)
	if err == nil || err.Error() != "invalid magic number" {
		t.Errorf("expected invalid magic error, got %v", err)
	}
}

func TestEncodeDecodeEmptyPayload(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := Encode(buf, OpStats, nil); err != nil {
		t.Fatalf("Encode empty failed: %v", err)
	}
	pkg, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if pkg.Op != OpStats || len(pkg.Payload) != 0 {
		t.Errorf("unexpected result: %+v", pkg)
	}
}

func TestRoundtripAllOps(t *testing.T) {
	ops := []byte{OpInsert, OpQuery, OpStats, RespOK, RespVal, RespErr}
	payload := []byte("test-payload")

	for _, op := range ops {
		buf := new(bytes.Buffer)
		if err := Encode(buf, op, payload); err != nil {
			t.Errorf("Encode op %v failed: %v", op, err)
			continue
		}
		pkg, err := Decode(buf)
		if err != nil {
			t.Errorf("Decode op %v failed: %v", op, err)
			continue
		}
		if pkg.Op != op {
			t.Errorf("op %v: got %v", op, pkg.Op)
		}
	}
}

func TestDecodeIncompleteHeader(t *testing.T) {
	r := bytes.NewReader([]byte{MagicNumber, OpInsert}) // only 2 bytes
	_, err := Decode(r)
	if err != io.ErrUnexpectedEOF && err == nil {
		t.Errorf("expected error for incomplete header, got %v", err)
	}
}

func TestDecodeOversizedPayload(t *testing.T) {
	header := []byte{MagicNumber, OpInsert, 0xFF, 0xFF, 0xFF, 0xFF}
	_, err := Decode(bytes.NewReader(header))
	if err == nil || err.Error() != "payload exceeds limit" {
		t.Errorf("expected payload limit error, got %v", err)
	}
}

func TestInsertCodec(t *testing.T) {
	vec := []float32{1.5, -2.25, 0, float32(math.Pi)}
	payload := EncodeInsert(vec, 42.5)

	got, tag, err := DecodeInsert(payload)
	if err != nil {
		t.Fatalf("DecodeInsert: %v", err)
	}
	if !slices.Equal(got, vec) {
		t.Errorf("vector mismatch: got %v, want %v", got, vec)
	}
	if tag != 42.5 {
		t.Errorf("tag mismatch: got %g", tag)
	}

	if _, _, err := DecodeInsert(payload[:len(payload)-1]); err == nil {
		t.Errorf("truncated insert payload decoded without error")
	}
	if _, _, err := DecodeInsert([]byte{0, 0}); err == nil {
		t.Errorf("short insert payload decoded without error")
	}
}

func TestQueryCodec(t *testing.T) {
	vec := []float32{0.5, 1.5, 2.5}
	payload := EncodeQuery(vec, 10, -1.5, 99.5, 0.015)

	gotVec, k, smin, smax, alpha, err := DecodeQuery(payload)
	if err != nil {
		t.Fatalf("DecodeQuery: %v", err)
	}
	if !slices.Equal(gotVec, vec) {
		t.Errorf("vector mismatch: got %v", gotVec)
	}
	if k != 10 || smin != -1.5 || smax != 99.5 || alpha != 0.015 {
		t.Errorf("fields mismatch: k=%d smin=%g smax=%g alpha=%g", k, smin, smax, alpha)
	}

	if _, _, _, _, _, err := DecodeQuery(payload[:len(payload)-3]); err == nil {
		t.Errorf("truncated query payload decoded without error")
	}
}

func TestIDsCodec(t *testing.T) {
	ids := []int{0, 1, 42, 1 << 40}
	got, err := DecodeIDs(EncodeIDs(ids))
	if err != nil {
		t.Fatalf("DecodeIDs: %v", err)
	}
	if !slices.Equal(got, ids) {
		t.Errorf("ids mismatch: got %v, want %v", got, ids)
	}

	got, err = DecodeIDs(EncodeIDs(nil))
	if err != nil || len(got) != 0 {
		t.Errorf("empty id list: got %v, %v", got, err)
	}

	if _, err := DecodeIDs([]byte{0, 0, 0, 2, 0}); err == nil {
		t.Errorf("truncated id list decoded without error")
	}
}
