package drugtable

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/giygas/tbdose-api/drugtable/entities"
	"github.com/giygas/tbdose-api/interfaces"
	"github.com/giygas/tbdose-api/logging"
	"github.com/giygas/tbdose-api/validation"
)

// EmbeddedSource is the source name of the table compiled into the binary
const EmbeddedSource = "embedded:ddc_table_5_1.tsv"

//go:embed ddc_table_5_1.tsv
var embeddedTable []byte

// Compile-time check to ensure Loader implements TableLoader interface
var _ interfaces.TableLoader = (*Loader)(nil)

// Loader reads the drug table from the embedded copy or from a file
type Loader struct {
	path     string
	encoding string
}

// NewLoader creates a loader. An empty path selects the embedded table.
func NewLoader(path, encoding string) *Loader {
	return &Loader{
		path:     path,
		encoding: encoding,
	}
}

// NewEmbeddedLoader creates a loader for the table compiled into the binary
func NewEmbeddedLoader() *Loader {
	return NewLoader("", EncodingUTF8)
}

// Source implements the TableLoader interface
func (l *Loader) Source() string {
	if l.path == "" {
		return EmbeddedSource
	}
	return l.path
}

// Load implements the TableLoader interface
func (l *Loader) Load() (entities.Table, error) {
	raw, err := l.readSource()
	if err != nil {
		return entities.Table{}, err
	}

	text, err := decodeTable(raw, l.encoding)
	if err != nil {
		return entities.Table{}, fmt.Errorf("failed to decode %s: %w", l.Source(), err)
	}

	drugs, stats, err := ParseTable(bytes.NewReader(text))
	if err != nil {
		return entities.Table{}, fmt.Errorf("failed to parse %s: %w", l.Source(), err)
	}

	if err := validation.ValidateTable(drugs); err != nil {
		return entities.Table{}, fmt.Errorf("invalid drug table %s: %w", l.Source(), err)
	}

	sum := sha256.Sum256(text)

	logging.Debug("Drug table loaded", "source", l.Source(), "drug_count", stats.RecordsParsed)

	return entities.Table{
		Drugs:    drugs,
		Source:   l.Source(),
		Checksum: hex.EncodeToString(sum[:]),
		LoadedAt: time.Now(),
	}, nil
}

func (l *Loader) readSource() ([]byte, error) {
	if l.path == "" {
		return embeddedTable, nil
	}

	cleanPath := filepath.Clean(l.path)
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read drug table %s: %w", cleanPath, err)
	}
	return raw, nil
}
