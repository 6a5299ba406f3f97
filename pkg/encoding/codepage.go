// Package encoding provides text encoding utilities for the name strings
// stored in LightWave objects.
package encoding

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// Codepage decodes raw name bytes into UTF-8.
type Codepage struct {
	name    string
	decoder encoding.Encoding
}

// UTF8 passes bytes through unchanged.
var UTF8 = Codepage{name: "utf-8"}

// Lookup returns the codepage for a configuration name. The empty name
// selects UTF-8.
func Lookup(name string) (Codepage, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return UTF8, nil
	case "windows-1252", "cp1252":
		return Codepage{name: "windows-1252", decoder: charmap.Windows1252}, nil
	case "iso-8859-1", "latin1":
		return Codepage{name: "iso-8859-1", decoder: charmap.ISO8859_1}, nil
	case "euc-kr":
		return Codepage{name: "euc-kr", decoder: korean.EUCKR}, nil
	default:
		return Codepage{}, errors.Errorf("unknown string encoding %q", name)
	}
}

// Name returns the canonical codepage name.
func (c Codepage) Name() string {
	if c.name == "" {
		return UTF8.name
	}
	return c.name
}

// Decode converts data to a UTF-8 string.
// Returns the bytes as-is if conversion fails.
func (c Codepage) Decode(data []byte) string {
	if c.decoder == nil {
		return string(data)
	}
	// Plain ASCII is identical in every supported codepage.
	if isASCII(data) {
		return string(data)
	}
	result, _, err := transform.Bytes(c.decoder.NewDecoder(), data)
	if err != nil || !utf8.Valid(result) {
		return string(data)
	}
	return string(result)
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// NormalizePath converts a stored image path to forward slashes. Drive
// prefixes written as "Images:foo" by old tools become "Images:/foo".
func NormalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	if i := strings.IndexByte(path, ':'); i > 0 && i+1 < len(path) && path[i+1] != '/' {
		path = path[:i+1] + "/" + path[i+1:]
	}
	return path
}
