// Package scenario runs scripted insert and delete sequences against an
// ordered map and checks the tree after each step.
package scenario

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

// ErrInvalidDocument is returned when a scenario does not match the schema.
var ErrInvalidDocument = errors.New("invalid scenario document")

// Op is the kind of a scenario step.
type Op string

// Scenario operations.
const (
	OpInsert Op = "insert"
	OpDelete Op = "delete"
	OpExpect Op = "expect"
	OpVerify Op = "verify"
	OpDump   Op = "dump"
	OpDrain  Op = "drain"
	OpEmpty  Op = "empty"
)

// Step is one instruction of a scenario.
type Step struct {
	Op   Op     `yaml:"op"`
	Keys []int  `yaml:"keys,omitempty"`
	Note string `yaml:"note,omitempty"`
}

// Document is a named list of steps.
type Document struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
	Steps       []Step `yaml:"steps"`
}

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// Parse decodes a YAML scenario and validates it against the embedded schema.
func Parse(data []byte) (*Document, error) {
	var raw any

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	var doc Document

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}

	return &doc, nil
}

// ParseFile reads and parses the scenario stored at path.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return doc, nil
}

func validate(raw any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		messages = append(messages, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(messages, "; "))
}

// Marshal encodes the document as YAML.
func (doc *Document) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode scenario: %w", err)
	}

	return data, nil
}
