// Package drugtable loads the static anti-tuberculosis dosing table, either from the
// copy embedded in the binary or from an operator-supplied TSV file.
package drugtable

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/giygas/tbdose-api/logging"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const utf8BOM = "\ufeff"

// Supported values for the table file encoding
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows874  = "windows-874"
	EncodingISO8859_1   = "iso-8859-1"
	EncodingWindows1252 = "windows-1252"
)

// SupportedEncodings lists the accepted DRUG_TABLE_ENCODING values
var SupportedEncodings = []string{EncodingUTF8, EncodingWindows874, EncodingISO8859_1, EncodingWindows1252}

func legacyCharmap(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case EncodingWindows874, "tis-620":
		return charmap.Windows874, nil
	case EncodingISO8859_1, "latin1":
		return charmap.ISO8859_1, nil
	case EncodingWindows1252:
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported table encoding: %s", name)
	}
}

// decodeTable returns the table bytes as UTF-8.
// Thai hospital exports are frequently in windows-874, so valid UTF-8 is used
// as-is and anything else goes through the configured legacy charmap.
func decodeTable(raw []byte, encodingName string) ([]byte, error) {
	if utf8.Valid(raw) {
		return bytes.TrimPrefix(raw, []byte(utf8BOM)), nil
	}

	if encodingName == "" || strings.EqualFold(encodingName, EncodingUTF8) {
		return nil, fmt.Errorf("table is not valid UTF-8 and no legacy encoding is configured")
	}

	enc, err := legacyCharmap(encodingName)
	if err != nil {
		return nil, err
	}

	decoded, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode table from %s: %w", encodingName, err)
	}

	logging.Debug("Drug table decoded from legacy encoding", "encoding", encodingName, "bytes", len(decoded))
	return decoded, nil
}
