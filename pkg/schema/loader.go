// loader.go — Decode and validate schema documents.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CurrentVersion is the document version this package writes and the default
// for documents that omit schemaVersion.
const CurrentVersion = "1.0.0"

// SupportedVersions is the semver constraint documents must satisfy.
const SupportedVersions = "^1.0.0"

var (
	// ErrMalformed reports a payload that is not a structurally valid document.
	ErrMalformed = errors.New("malformed schema document")
	// ErrIncompatibleVersion reports a schemaVersion outside SupportedVersions.
	ErrIncompatibleVersion = errors.New("incompatible schema version")
	// ErrInvalidDocument reports a document whose tables contradict each other.
	ErrInvalidDocument = errors.New("invalid schema document")
)

//go:embed document.schema.json
var documentSchema string

const documentSchemaURL = "https://storefront.schemas.local/document.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func documentValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(documentSchemaURL, bytes.NewReader([]byte(documentSchema))); err != nil {
			compileErr = fmt.Errorf("load document schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(documentSchemaURL)
	})
	return compiled, compileErr
}

// Decode parses and validates a document. Fatal problems are returned as
// errors wrapping ErrMalformed, ErrIncompatibleVersion or ErrInvalidDocument;
// recoverable oddities are returned as warnings.
func Decode(data []byte) (*Document, []string, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	validator, err := documentValidator()
	if err != nil {
		return nil, nil, err
	}
	if err := validator.Validate(generic); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	doc := Document{Rules: DefaultRules()}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := checkVersion(doc.SchemaVersion); err != nil {
		return nil, nil, err
	}
	if doc.SchemaVersion == "" {
		doc.SchemaVersion = CurrentVersion
	}

	warnings := applyDefaults(&doc)

	if err := Validate(&doc); err != nil {
		return nil, warnings, err
	}
	return &doc, append(warnings, LayoutWarnings(&doc)...), nil
}

// DecodeReader reads r fully and decodes it.
func DecodeReader(r io.Reader) (*Document, []string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read document: %w", err)
	}
	return Decode(data)
}

// LoadFile reads and decodes a document from disk.
func LoadFile(path string) (*Document, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(data)
}

// checkVersion rejects documents outside SupportedVersions.
func checkVersion(v string) error {
	if v == "" {
		return nil
	}
	version, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrIncompatibleVersion, v, err)
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(version) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrIncompatibleVersion, v, SupportedVersions)
	}
	return nil
}

// applyDefaults fills presentational fallbacks and normalizes positions.
func applyDefaults(doc *Document) []string {
	var warnings []string

	if doc.Product.Currency == "" {
		doc.Product.Currency = "USD"
	}
	for i := range doc.Attributes {
		a := &doc.Attributes[i]
		if a.Label == "" {
			a.Label = a.Key
		}
		for j := range a.Values {
			if a.Values[j].Label == "" {
				a.Values[j].Label = a.Values[j].Value
			}
		}
	}

	normalize := func(blocks []LayoutBlock) {
		for i := range blocks {
			b := &blocks[i]
			switch b.Position {
			case "":
				b.Position = PositionMain
			case PositionMain, PositionSidebar, PositionBottom:
			default:
				warnings = append(warnings, fmt.Sprintf("block %q has unknown position %q, rendered in main", b.Block, b.Position))
				b.Position = PositionMain
			}
		}
	}
	normalize(doc.Layout)
	for _, blocks := range doc.Layouts {
		normalize(blocks)
	}

	return warnings
}
