package lock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf16"
	"unicode/utf8"
)

// Artifact pins a single build.
type Artifact struct {
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
}

// Builds maps build ids to artifacts, keeping insertion order.
type Builds struct {
	keys  []string
	items map[string]Artifact
}

func (b *Builds) Set(build string, a Artifact) {
	if b.items == nil {
		b.items = map[string]Artifact{}
	}
	if _, ok := b.items[build]; !ok {
		b.keys = append(b.keys, build)
	}
	b.items[build] = a
}

func (b *Builds) Get(build string) (Artifact, bool) {
	a, ok := b.items[build]
	return a, ok
}

func (b *Builds) Keys() []string {
	return append([]string(nil), b.keys...)
}

func (b *Builds) Len() int {
	return len(b.keys)
}

func (b *Builds) MarshalJSON() ([]byte, error) {
	return marshalOrdered(b.keys, func(k string) interface{} { return b.items[k] })
}

func (b *Builds) UnmarshalJSON(data []byte) error {
	return unmarshalOrdered(data, func(k string, raw json.RawMessage) error {
		var a Artifact
		if err := json.Unmarshal(raw, &a); err != nil {
			return err
		}
		b.Set(k, a)
		return nil
	})
}

// Lock maps versions to their builds, keeping insertion order.
type Lock struct {
	keys  []string
	items map[string]*Builds
}

func New() *Lock {
	return &Lock{
		items: map[string]*Builds{},
	}
}

// AddVersion registers version and returns its builds. Adding a version twice
// returns the existing entry.
func (l *Lock) AddVersion(version string) *Builds {
	if l.items == nil {
		l.items = map[string]*Builds{}
	}
	if b, ok := l.items[version]; ok {
		return b
	}

	b := &Builds{}
	l.keys = append(l.keys, version)
	l.items[version] = b
	return b
}

func (l *Lock) Version(version string) (*Builds, bool) {
	b, ok := l.items[version]
	return b, ok
}

func (l *Lock) Versions() []string {
	return append([]string(nil), l.keys...)
}

// Len returns the number of pinned builds across all versions.
func (l *Lock) Len() int {
	n := 0
	for _, b := range l.items {
		n += b.Len()
	}
	return n
}

func (l *Lock) MarshalJSON() ([]byte, error) {
	return marshalOrdered(l.keys, func(k string) interface{} { return l.items[k] })
}

func (l *Lock) UnmarshalJSON(data []byte) error {
	return unmarshalOrdered(data, func(k string, raw json.RawMessage) error {
		b := l.AddVersion(k)
		return json.Unmarshal(raw, b)
	})
}

// Encode renders the lock with two space indentation and a trailing newline.
// The output is pure ASCII: other characters are written as \uXXXX escapes.
func (l *Lock) Encode() ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return nil, err
	}

	return escapeNonASCII(buf.Bytes()), nil
}

// escapeNonASCII rewrites every non-ASCII rune of encoded JSON as a \u escape,
// using a surrogate pair above the basic multilingual plane. Such runes can
// only appear inside strings, so the document stays valid.
func escapeNonASCII(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for len(b) > 0 {
		if b[0] < utf8.RuneSelf {
			out = append(out, b[0])
			b = b[1:]
			continue
		}

		r, size := utf8.DecodeRune(b)
		b = b[size:]
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			out = appendEscape(out, r1)
			out = appendEscape(out, r2)
			continue
		}
		out = appendEscape(out, r)
	}
	return out
}

func appendEscape(out []byte, r rune) []byte {
	return append(out, fmt.Sprintf("\\u%04x", r)...)
}

func Read(path string) (*Lock, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lock file: %w", err)
	}

	l := New()
	if err := json.Unmarshal(b, l); err != nil {
		return nil, fmt.Errorf("failed to decode lock file: %w", err)
	}

	return l, nil
}

func marshalOrdered(keys []string, value func(string) interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeNoEscape(buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeNoEscape(buf, value(k)); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeNoEscape(buf *bytes.Buffer, v interface{}) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encoder terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

func unmarshalOrdered(data []byte, set func(string, json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		k, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := set(k, raw); err != nil {
			return err
		}
	}

	_, err = dec.Token()
	return err
}
