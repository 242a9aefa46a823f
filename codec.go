package macromem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// DeclarationPrefix precedes the object literal in the store unit.
	DeclarationPrefix = "var memory = "
	// InfoKey is the reserved global entry documenting the store.
	InfoKey = "./_$Info"
	// GuideURL is referenced from the seeded info record.
	GuideURL = "https://github.com/Bobby-McGonigle/Cisco-RoomDevice-Macro-Projects-Examples/tree/master/Macro%20Memory%20Storage"
)

// Document is the decoded store: global entries and scope maps share one
// object.
type Document map[string]any

// NewStoreDocument returns the skeleton written on first run.
func NewStoreDocument() Document {
	return Document{
		InfoKey: map[string]any{
			"Warning": "Do NOT modify this document, as other Scripts/Macros may rely on this information",
			"AvailableFunctions": map[string]any{
				"local": []any{
					"mem.read('key')",
					"mem.write('key', 'value')",
					"mem.remove('key')",
					"mem.print()",
				},
				"global": []any{
					"mem.read.global('key')",
					"mem.write.global('key', 'value')",
					"mem.remove.global('key')",
					"mem.print.global()",
				},
			},
			"Guide": GuideURL,
		},
		"ExampleKey": "Example Value",
	}
}

// Decode parses store unit text. The literal starts at the first '{'; a
// trailing ';' is tolerated. Anything else that fails to parse is
// ErrStoreCorrupt.
func Decode(text string) (Document, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, fmt.Errorf("%w: no object literal found", ErrStoreCorrupt)
	}
	body := strings.TrimSpace(text[start:])
	body = strings.TrimSpace(strings.TrimSuffix(body, ";"))

	var doc Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	return doc, nil
}

// Encode renders doc as store unit text with sorted keys and four-space
// indentation. Keys and string values must be valid UTF-8; JSON would
// otherwise replace bad bytes and the value would not read back unchanged.
func Encode(doc Document) (string, error) {
	if doc == nil {
		doc = Document{}
	}
	if err := checkUTF8(map[string]any(doc), ""); err != nil {
		return "", fmt.Errorf("macromem: encode store: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(DeclarationPrefix)
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("macromem: encode store: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// checkUTF8 walks JSON-domain values. Other types are left to encoding/json.
func checkUTF8(value any, path string) error {
	switch v := value.(type) {
	case Document:
		return checkUTF8(map[string]any(v), path)
	case string:
		if !utf8.ValidString(v) {
			return fmt.Errorf("%w in value at %s", ErrInvalidUTF8, displayPath(path))
		}
	case map[string]any:
		for key, item := range v {
			next := path + "/" + key
			if !utf8.ValidString(key) {
				return fmt.Errorf("%w in key at %s", ErrInvalidUTF8, strconv.Quote(next))
			}
			if err := checkUTF8(item, next); err != nil {
				return err
			}
		}
	case []any:
		for i, item := range v {
			if err := checkUTF8(item, path+"/"+strconv.Itoa(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func displayPath(path string) string {
	if path == "" {
		return "/"
	}
	return strconv.Quote(path)
}
