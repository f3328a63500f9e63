// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type sampleFrame struct {
	Sequence uint64        `cbor:"sequence"`
	At       time.Time     `cbor:"at"`
	Period   time.Duration `cbor:"period_ns"`
	Note     string        `cbor:"note,omitempty"`
}

func TestTimePreservesNanoseconds(t *testing.T) {
	at := time.Date(2026, 3, 14, 15, 9, 26, 535897932, time.UTC)
	data, err := Marshal(sampleFrame{Sequence: 7, At: at, Period: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleFrame
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.At.Equal(at) {
		t.Errorf("At = %v, want %v", decoded.At, at)
	}
	if decoded.Period != 50*time.Millisecond {
		t.Errorf("Period = %v, want 50ms", decoded.Period)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{"zeta": 1, "alpha": 2, "mid": []int{3, 4}}
	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("Marshal is not deterministic for map keys")
		}
	}
}

func TestStreamFraming(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for i := range 3 {
		if err := encoder.Encode(sampleFrame{Sequence: uint64(i + 1)}); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i := range 3 {
		var frame sampleFrame
		if err := decoder.Decode(&frame); err != nil {
			t.Fatalf("Decode frame %d: %v", i, err)
		}
		if frame.Sequence != uint64(i+1) {
			t.Errorf("frame %d Sequence = %d", i, frame.Sequence)
		}
	}
	var extra sampleFrame
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		t.Fatalf("Decode past end = %v, want io.EOF", err)
	}
}

func TestAnyMapsUseStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"action": "status"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	request, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded %T, want map[string]any", decoded)
	}
	if request["action"] != "status" {
		t.Errorf("action = %v", request["action"])
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	var frame sampleFrame
	if err := Unmarshal([]byte{0xff, 0x00}, &frame); err == nil {
		t.Fatal("expected error for malformed CBOR")
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(sampleFrame{Sequence: 3, Note: "hi"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	text, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(text, `"sequence": 3`) || !strings.Contains(text, `"note": "hi"`) {
		t.Errorf("Diagnose = %s", text)
	}
}
