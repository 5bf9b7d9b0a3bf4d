package meta

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewTrimsAndDropsEmpty(t *testing.T) {
	details := New(map[string]string{"bank_name": "  HDFC ", "branch": "   "})
	if v, ok := details.Get("bank_name"); !ok || v != "HDFC" {
		t.Fatalf("bank_name = %q, %v", v, ok)
	}
	if _, ok := details.Get("branch"); ok {
		t.Fatalf("blank branch should be dropped")
	}
}

func TestMergeOverlaysAndDeletes(t *testing.T) {
	details := New(map[string]string{"state": "KA", "phone": "123"})
	details.Merge(map[string]string{"state": "MH", "phone": ""})
	if details["state"] != "MH" {
		t.Fatalf("merge did not overwrite: %+v", details)
	}
	if _, ok := details["phone"]; ok {
		t.Fatalf("empty value should delete: %+v", details)
	}
	clone := details.Clone()
	clone["state"] = "TN"
	if details["state"] != "MH" {
		t.Fatalf("clone shares storage")
	}
}

func TestValidationLimits(t *testing.T) {
	tests := []struct {
		name    string
		details Metadata
		want    error
	}{
		{name: "ok", details: Metadata{"gstin": "29ABCDE1234F1Z5"}},
		{name: "too many pairs", details: func() Metadata {
			m := Metadata{}
			for i := 0; i < MaxPairs+1; i++ {
				m[strings.Repeat("k", i+1)] = "v"
			}
			return m
		}(), want: ErrTooManyPairs},
		{name: "key too long", details: Metadata{strings.Repeat("k", MaxKeyLen+1): "v"}, want: ErrKey},
		{name: "value too long", details: Metadata{"k": strings.Repeat("v", MaxValLen+1)}, want: ErrValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.details.Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStableJSONAndRoundtrip(t *testing.T) {
	details := New(map[string]string{"state": "KA", "mailing_name": "Acme"})
	b, err := json.Marshal(details)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"mailing_name":"Acme","state":"KA"}` {
		t.Fatalf("unexpected stable json: %s", b)
	}
	var back Metadata
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["state"] != "KA" || len(back) != 2 {
		t.Fatalf("roundtrip mismatch: %+v", back)
	}
	var empty Metadata
	if err := json.Unmarshal([]byte("null"), &empty); err != nil || empty == nil {
		t.Fatalf("null should decode to empty map: %v %v", empty, err)
	}
}
