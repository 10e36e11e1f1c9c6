package tbkmsg

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestSelfCheck(t *testing.T) {
	if err := SelfCheck(); err != nil {
		t.Fatalf("SelfCheck() error = %v", err)
	}
}

func TestTestMsg_WireFormat(t *testing.T) {
	msg := TestMsg{ID: 12321, Str: "Hello, TBK!"}
	got, err := msg.Append(nil)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// 0x08 = field 1 varint, 12321 = 0xA1 0x60; 0x12 = field 2 bytes, len 11
	want := append([]byte{0x08, 0xa1, 0x60, 0x12, 0x0b}, "Hello, TBK!"...)
	if !bytes.Equal(got, want) {
		t.Errorf("Append() = % x, want % x", got, want)
	}
}

func TestTestMsg_NegativeID(t *testing.T) {
	in := TestMsg{ID: -5, Str: "neg"}
	b, err := in.Append(nil)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	var out TestMsg
	if err := out.Decode(b); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out != in {
		t.Errorf("Decode() = %+v, want %+v", out, in)
	}
}

func TestTestMsg_DecodeSkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendString(b, "extension")
	b = protowire.AppendTag(b, fieldID, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)

	var out TestMsg
	if err := out.Decode(b); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out.ID != 7 || out.Str != "" {
		t.Errorf("Decode() = %+v, want {ID:7}", out)
	}
}

func TestTestMsg_Errors(t *testing.T) {
	long := strings.Repeat("x", MaxStrLen+1)

	if _, err := (&TestMsg{Str: long}).Append(nil); !errors.Is(err, ErrStrTooLong) {
		t.Errorf("Append() with long str error = %v, want ErrStrTooLong", err)
	}

	var small [4]byte
	if _, err := (&TestMsg{ID: 1, Str: "does not fit"}).EncodeInto(small[:]); !errors.Is(err, ErrBufferFull) {
		t.Errorf("EncodeInto() small buffer error = %v, want ErrBufferFull", err)
	}

	var oversized []byte
	oversized = protowire.AppendTag(oversized, fieldStr, protowire.BytesType)
	oversized = protowire.AppendString(oversized, long)
	if err := new(TestMsg).Decode(oversized); !errors.Is(err, ErrStrTooLong) {
		t.Errorf("Decode() long str error = %v, want ErrStrTooLong", err)
	}

	valid, _ := (&TestMsg{ID: 1, Str: "truncated"}).Append(nil)
	if err := new(TestMsg).Decode(valid[:len(valid)-3]); err == nil {
		t.Error("Decode() of truncated input should fail")
	}
}
