package program

import (
	"bytes"
	"fmt"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"xtc/common"
)

// ManifestName is looked up in program directories and archives.
const ManifestName = "program.yaml"

type (
	// Manifest describes program: its classes, fragments and what should be
	// assembled.
	Manifest struct {
		Name string `yaml:"name" validate:"required"`
		// "Class" or "Class:member"
		Entry   []string    `yaml:"entry,omitempty" validate:"dive,required"`
		Classes []ClassDecl `yaml:"classes" validate:"dive"`
		Proxies []ProxyDecl `yaml:"proxies,omitempty" validate:"dive"`
	}

	ClassDecl struct {
		Name         string       `yaml:"name" validate:"required"`
		Interface    bool         `yaml:"interface,omitempty"`
		Fields       []string     `yaml:"fields,omitempty" validate:"dive,required"`
		StaticFields []string     `yaml:"static_fields,omitempty" validate:"dive,required"`
		Methods      []MethodDecl `yaml:"methods,omitempty" validate:"dive"`
		Files        []FileDecl   `yaml:"files,omitempty" validate:"dive"`
	}

	MethodDecl struct {
		Name   string `yaml:"name" validate:"required"`
		Static bool   `yaml:"static,omitempty"`
		Native bool   `yaml:"native,omitempty"`
		// generic body, absent for native methods; method without body and
		// overrides for every backend cannot be assembled anywhere else
		Body      *string           `yaml:"body,omitempty"`
		Overrides map[string]string `yaml:"overrides,omitempty"`
	}

	// FileDecl is a fragment. Payload is either resource (path relative to
	// the manifest) or inline text. Second payload is only allowed for
	// prependAppend mode, without it the first one is used at both ends.
	FileDecl struct {
		Target      string           `yaml:"target" validate:"required"`
		Priority    int              `yaml:"priority,omitempty"`
		Process     bool             `yaml:"process,omitempty"`
		Mode        common.MergeMode `yaml:"mode"`
		Resource    string           `yaml:"resource,omitempty" validate:"required_without=Text,excluded_with=Text"`
		Text        string           `yaml:"text,omitempty"`
		EndResource string           `yaml:"end_resource,omitempty" validate:"excluded_with=EndText"`
		EndText     string           `yaml:"end_text,omitempty"`
	}

	ProxyDecl struct {
		Interfaces []string `yaml:"interfaces" validate:"dive,required"`
		Handler    string   `yaml:"handler" validate:"required"`
	}
)

// checkManifest reports what tags cannot express.
func checkManifest(sl validator.StructLevel) {
	m, ok := sl.Current().Interface().(Manifest)
	if !ok {
		return
	}
	for i, c := range m.Classes {
		for j, md := range c.Methods {
			if md.Native && md.Body != nil {
				sl.ReportError(*md.Body, fmt.Sprintf("Classes[%d].Methods[%d].Body", i, j), "Body", "native", "")
			}
		}
		for j, f := range c.Files {
			if !f.Mode.IsValid() {
				sl.ReportError(f.Mode, fmt.Sprintf("Classes[%d].Files[%d].Mode", i, j), "Mode", "mode", "")
			}
			if f.Mode != common.MergeModePrependAppend && (len(f.EndResource) > 0 || len(f.EndText) > 0) {
				sl.ReportError(f.Mode, fmt.Sprintf("Classes[%d].Files[%d].Mode", i, j), "Mode", "end_payload", "")
			}
		}
	}
}

// ParseManifest decodes and validates manifest. Unknown fields are errors.
func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("failed to decode program manifest: %w", err)
	}
	if err := gencfg.Validate(m, gencfg.WithAdditionalChecks(checkManifest)); err != nil {
		return nil, fmt.Errorf("invalid program manifest: %w", err)
	}
	return m, nil
}
