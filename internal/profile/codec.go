// Package profile loads and saves autostart profiles.
//
// A profile is a UTF-8 JSON array of flat records. Each record carries a
// "Type" discriminator and only the fields relevant to that kind; zero values
// are omitted on write so files stay compatible with existing editors.
package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/rbright/autostart/internal/action"
)

// Extension is the file suffix that marks a profile.
const Extension = ".autostart"

var (
	// ErrMalformed wraps any failure that prevents reading the profile as a whole.
	ErrMalformed = errors.New("malformed profile")
	// ErrUnknownKind marks a record whose Type is not recognized.
	ErrUnknownKind = errors.New("unknown action type")
)

// HasExtension reports whether path names a profile file.
func HasExtension(path string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimSpace(path)), Extension)
}

// Codec carries the serializer settings for one load or save call.
type Codec struct {
	// Indent is used per nesting level on write; empty writes compact JSON.
	Indent string
	// Strict rejects records with unknown fields instead of ignoring them.
	Strict bool
}

// DefaultCodec returns the settings used by the CLI.
func DefaultCodec() Codec {
	return Codec{Indent: "  "}
}

// Issue describes one record that was skipped while decoding.
type Issue struct {
	Index int
	Err   error
}

func (i Issue) Error() string {
	return fmt.Sprintf("record %d: %v", i.Index, i.Err)
}

// Document is a decoded profile plus the records that could not be used.
type Document struct {
	Actions []action.Action
	Issues  []Issue
}

// Load reads and decodes the profile at path.
func (c Codec) Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read profile %q: %w", path, err)
	}
	doc, err := c.Decode(data)
	if err != nil {
		return Document{}, fmt.Errorf("profile %q: %w", path, err)
	}
	return doc, nil
}

// Decode parses profile content. Malformed top-level JSON fails the whole
// document; a malformed or unknown record is skipped and reported as an Issue.
func (c Codec) Decode(data []byte) (Document, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrMalformed, locate(data, err))
	}

	doc := Document{Actions: make([]action.Action, 0, len(raw))}
	for i, item := range raw {
		if isNull(item) {
			continue
		}
		act, err := c.decodeRecord(item)
		if err != nil {
			doc.Issues = append(doc.Issues, Issue{Index: i, Err: err})
			continue
		}
		doc.Actions = append(doc.Actions, act)
	}
	return doc, nil
}

// Save encodes actions and replaces the file at path.
func (c Codec) Save(path string, actions []action.Action) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("profile path is required")
	}
	data, err := c.Encode(actions)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".profile-*")
	if err != nil {
		return fmt.Errorf("create temp profile: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close profile: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace profile %q: %w", path, err)
	}
	return nil
}

// Encode renders actions as a profile document.
func (c Codec) Encode(actions []action.Action) ([]byte, error) {
	records := make([]record, 0, len(actions))
	for i, act := range actions {
		if act == nil {
			continue
		}
		rec, err := encodeRecord(act)
		if err != nil {
			return nil, fmt.Errorf("encode action %d: %w", i, err)
		}
		records = append(records, rec)
	}

	var (
		data []byte
		err  error
	)
	if c.Indent != "" {
		data, err = json.MarshalIndent(records, "", c.Indent)
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return data, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// locate prefixes JSON syntax errors with a line/column position.
func locate(data []byte, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := lineCol(data, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := lineCol(data, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}
	return err
}

func lineCol(data []byte, offset int64) (int, int) {
	limit := min(max(int(offset), 1), len(data))
	line, col := 1, 1
	for i := 0; i < limit-1; i++ {
		if data[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

func parsePlanID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("PowerPlanId %q: %w", raw, err)
	}
	return id, nil
}
