// Package meta holds the small string maps attached to ledger accounts
// (bank details, GSTIN, mailing name, ...).
package meta

import (
    "bytes"
    "encoding/json"
    "errors"
    "sort"
    "strings"
)

// Metadata is a string map with size limits and a stable JSON encoding.
type Metadata map[string]string

const (
    MaxPairs     = 20
    MaxKeyLen    = 64
    MaxValLen    = 256
    MaxTotalJSON = 4096
)

var (
    ErrTooManyPairs = errors.New("details: too many fields")
    ErrKey          = errors.New("details: key empty or too long")
    ErrValue        = errors.New("details: value too long")
    ErrTooLarge     = errors.New("details: encoded size exceeds limit")
)

// New copies m, trimming surrounding whitespace from values and dropping
// fields that end up empty.
func New(m map[string]string) Metadata {
    out := make(Metadata, len(m))
    for k, v := range m {
        if v = strings.TrimSpace(v); v != "" {
            out[strings.TrimSpace(k)] = v
        }
    }
    return out
}

func (m Metadata) Clone() Metadata {
    out := make(Metadata, len(m))
    for k, v := range m {
        out[k] = v
    }
    return out
}

func (m Metadata) Get(k string) (string, bool) { v, ok := m[k]; return v, ok }

// Keys returns the field names in sorted order.
func (m Metadata) Keys() []string {
    keys := make([]string, 0, len(m))
    for k := range m {
        keys = append(keys, k)
    }
    sort.Strings(keys)
    return keys
}

// Merge overlays other onto m. An empty value removes the field.
func (m Metadata) Merge(other map[string]string) {
    for k, v := range other {
        v = strings.TrimSpace(v)
        if v == "" {
            delete(m, k)
            continue
        }
        m[k] = v
    }
}

func (m Metadata) Validate() error {
    if len(m) > MaxPairs {
        return ErrTooManyPairs
    }
    for k, v := range m {
        if k == "" || len(k) > MaxKeyLen {
            return ErrKey
        }
        if len(v) > MaxValLen {
            return ErrValue
        }
    }
    b, err := m.MarshalStableJSON()
    if err != nil {
        return err
    }
    if len(b) > MaxTotalJSON {
        return ErrTooLarge
    }
    return nil
}

// MarshalStableJSON encodes m with keys sorted so equal maps give equal bytes.
func (m Metadata) MarshalStableJSON() ([]byte, error) {
    buf := &bytes.Buffer{}
    buf.WriteByte('{')
    for i, k := range m.Keys() {
        if i > 0 {
            buf.WriteByte(',')
        }
        kb, err := json.Marshal(k)
        if err != nil {
            return nil, err
        }
        vb, err := json.Marshal(m[k])
        if err != nil {
            return nil, err
        }
        buf.Write(kb)
        buf.WriteByte(':')
        buf.Write(vb)
    }
    buf.WriteByte('}')
    return buf.Bytes(), nil
}

func (m Metadata) MarshalJSON() ([]byte, error) { return m.MarshalStableJSON() }

func (m *Metadata) UnmarshalJSON(b []byte) error {
    if len(b) == 0 || bytes.Equal(b, []byte("null")) {
        *m = Metadata{}
        return nil
    }
    var tmp map[string]string
    if err := json.Unmarshal(b, &tmp); err != nil {
        return err
    }
    *m = New(tmp)
    return nil
}
