package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	validator "github.com/go-playground/validator/v10"
	sprig "github.com/go-task/slim-sprig/v3"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"xtc/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	// BackendConfig declares single output target. Mirrors what original
	// build configuration used to declare subtargets.
	BackendConfig struct {
		Name              string   `yaml:"name" validate:"required"`
		Aliases           []string `yaml:"aliases,omitempty" validate:"dive,required"`
		Switch            string   `yaml:"switch"`
		SingleFile        bool     `yaml:"single_file"`
		Interpreter       string   `yaml:"interpreter,omitempty"`
		Extension         string   `yaml:"extension" validate:"required"`
		InterpreterSuffix string   `yaml:"interpreter_suffix,omitempty"`
		// Allows single file backend to share extension with another one.
		SharedOutput   bool             `yaml:"shared_output,omitempty"`
		SymbolTemplate string           `yaml:"symbol_template,omitempty"`
		UnitTemplate   string           `yaml:"unit_template,omitempty"`
		LinkMode       *common.LinkMode `yaml:"link_mode,omitempty"`
	}

	AssemblyConfig struct {
		LinkMode             common.LinkMode `yaml:"link_mode"`
		FollowReferences     bool            `yaml:"follow_references"`
		TolerateBadFragments bool            `yaml:"tolerate_bad_fragments"`
		Parallel             int             `yaml:"parallel" validate:"gte=0"`
		ResolverCacheSize    int             `yaml:"resolver_cache_size" validate:"min=16"`
	}

	OutputConfig struct {
		OutputNameTemplate    string `yaml:"output_name_template"`
		FileNameTransliterate bool   `yaml:"file_name_transliterate"`
		PackMultiFile         bool   `yaml:"pack_multi_file"`
	}

	Config struct {
		Version   int             `yaml:"version" validate:"eq=1"`
		Backends  []BackendConfig `yaml:"backends" validate:"required,min=1,dive"`
		Assembly  AssemblyConfig  `yaml:"assembly"`
		Output    OutputConfig    `yaml:"output"`
		Logging   LoggingConfig   `yaml:"logging"`
		Reporting ReporterConfig  `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	SymbolTemplateFieldName     TemplateFieldName = "symbol_template"
	UnitTemplateFieldName       TemplateFieldName = "unit_template"
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(SymbolTemplateFieldName)),
	gencfg.WithDoNotExpandField(string(UnitTemplateFieldName)),
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

// checkTemplates makes sure all user supplied templates could be parsed, so
// we do not discover broken templates in the middle of assembly.
func checkTemplates(sl validator.StructLevel) {
	cfg, ok := sl.Current().Interface().(Config)
	if !ok {
		return
	}
	parse := func(name TemplateFieldName, field string) bool {
		if field == "" {
			return true
		}
		_, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
		return err == nil
	}
	for i, b := range cfg.Backends {
		if !parse(SymbolTemplateFieldName, b.SymbolTemplate) {
			sl.ReportError(cfg.Backends[i].SymbolTemplate, fmt.Sprintf("Backends[%d].SymbolTemplate", i), "SymbolTemplate", "template", "")
		}
		if !parse(UnitTemplateFieldName, b.UnitTemplate) {
			sl.ReportError(cfg.Backends[i].UnitTemplate, fmt.Sprintf("Backends[%d].UnitTemplate", i), "UnitTemplate", "template", "")
		}
	}
	if !parse(OutputNameTemplateFieldName, cfg.Output.OutputNameTemplate) {
		sl.ReportError(cfg.Output.OutputNameTemplate, "Output.OutputNameTemplate", "OutputNameTemplate", "template", "")
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(checkTemplates)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
//
// NOTE: yaml sequences replace defaults as a whole, so user file which has
// "backends" section must list all backends it needs.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}

// EffectiveLinkMode returns link mode for the backend, falling back to
// assembly wide setting.
func (c *Config) EffectiveLinkMode(b *BackendConfig) common.LinkMode {
	if b != nil && b.LinkMode != nil {
		return *b.LinkMode
	}
	return c.Assembly.LinkMode
}
