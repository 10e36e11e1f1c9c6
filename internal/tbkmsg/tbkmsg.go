// Package tbkmsg encodes the TestMsg demo message in the protobuf wire
// format and runs the encode/decode self-check done at boot.
//
// Schema:
//
//	message TestMsg {
//	    int32  id  = 1;
//	    string str = 2;  // max 40 bytes
//	}
package tbkmsg

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/muurk/tbk/internal/logging"
)

const (
	fieldID  protowire.Number = 1
	fieldStr protowire.Number = 2

	// MaxStrLen bounds TestMsg.Str in bytes.
	MaxStrLen = 40
	// BufferSize is the fixed encode buffer of the self-check.
	BufferSize = 128
)

var (
	// ErrStrTooLong is returned for a Str longer than MaxStrLen.
	ErrStrTooLong = errors.New("tbkmsg: str exceeds max length")
	// ErrBufferFull is returned when an encoding does not fit the buffer.
	ErrBufferFull = errors.New("tbkmsg: buffer full")
)

// TestMsg is the demo message.
type TestMsg struct {
	ID  int32
	Str string
}

// Append appends the wire encoding of m to b. Zero-valued fields are
// omitted, as proto3 does.
func (m *TestMsg) Append(b []byte) ([]byte, error) {
	if len(m.Str) > MaxStrLen {
		return b, fmt.Errorf("%w: %d bytes", ErrStrTooLong, len(m.Str))
	}
	if m.ID != 0 {
		b = protowire.AppendTag(b, fieldID, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(m.ID)))
	}
	if m.Str != "" {
		b = protowire.AppendTag(b, fieldStr, protowire.BytesType)
		b = protowire.AppendString(b, m.Str)
	}
	return b, nil
}

// EncodeInto encodes m into buf and returns the number of bytes written.
func (m *TestMsg) EncodeInto(buf []byte) (int, error) {
	out, err := m.Append(buf[:0:len(buf)])
	if err != nil {
		return 0, err
	}
	// Append only reallocates when buf is too small
	if len(out) > len(buf) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferFull, len(out), len(buf))
	}
	return len(out), nil
}

// Decode parses b into m. Unknown fields are skipped.
func (m *TestMsg) Decode(b []byte) error {
	*m = TestMsg{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("tbkmsg: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("tbkmsg: bad id: %w", protowire.ParseError(n))
			}
			m.ID = int32(v)
			b = b[n:]

		case num == fieldStr && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("tbkmsg: bad str: %w", protowire.ParseError(n))
			}
			if len(v) > MaxStrLen {
				return fmt.Errorf("%w: %d bytes", ErrStrTooLong, len(v))
			}
			m.Str = v
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("tbkmsg: bad field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}

// SelfCheck encodes a fixed message into a BufferSize buffer, decodes it
// back and compares.
func SelfCheck() error {
	log := logging.Named("tbkmsg")
	log.Info("Running codec self-check")

	in := TestMsg{ID: 12321, Str: "Hello, TBK!"}
	var buf [BufferSize]byte
	n, err := in.EncodeInto(buf[:])
	if err != nil {
		log.Error("Encoding failed", zap.Error(err))
		return fmt.Errorf("encoding failed: %w", err)
	}
	logging.LogRawBytes(log, "Encoded TestMsg", buf[:n])

	var out TestMsg
	if err := out.Decode(buf[:n]); err != nil {
		log.Error("Decoding failed", zap.Error(err))
		return fmt.Errorf("decoding failed: %w", err)
	}
	log.Info("Decoded", zap.Int32("id", out.ID), zap.String("str", out.Str))

	if out != in {
		return fmt.Errorf("self-check mismatch: sent %+v, decoded %+v", in, out)
	}
	return nil
}
