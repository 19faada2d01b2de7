package build

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"xtc/config"
	"xtc/program"
	"xtc/state"
	"xtc/target"
)

func setupTestEnvForOutputPath(t *testing.T, transliterate, pack bool, template string) *state.LocalEnv {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Output.FileNameTransliterate = transliterate
	cfg.Output.PackMultiFile = pack
	cfg.Output.OutputNameTemplate = template

	return &state.LocalEnv{
		Log: logger,
		Cfg: cfg,
	}
}

func testProgram() *program.Program {
	return &program.Program{Name: "hello", Entry: []string{"demo.Main:main", "demo.Util"}}
}

var (
	jsBackend  = &target.Backend{Name: "js", Switch: "-js", SingleFile: true, Extension: ".js"}
	phpBackend = &target.Backend{Name: "php", Switch: "-php", Extension: ".php", InterpreterSuffix: "/index.php"}
)

func TestBuildOutputPath(t *testing.T) {
	tests := []struct {
		name          string
		backend       *target.Backend
		transliterate bool
		pack          bool
		template      string
		expected      string
	}{
		{"single file", jsBackend, false, false, "", filepath.Join("/output", "js", "hello.js")},
		{"multi file", phpBackend, false, false, "", filepath.Join("/output", "php", "hello")},
		{"multi file packed", phpBackend, false, true, "", filepath.Join("/output", "php", "hello.zip")},
		{"packing ignored for single file", jsBackend, false, true, "", filepath.Join("/output", "js", "hello.js")},
		{"template", jsBackend, false, false, "{{ .Switch | trimPrefix \"-\" }}/{{ .Program | upper }}", filepath.Join("/output", "js", "js", "HELLO.js")},
		{"template with entry", phpBackend, false, false, "{{ index .Entry 0 | replace \":\" \"-\" }}", filepath.Join("/output", "php", "demo.Main-main")},
		{"template failure falls back", jsBackend, false, false, "{{ index .Entry 5 }}", filepath.Join("/output", "js", "hello.js")},
		{"transliterate", jsBackend, true, false, "Привет/{{ .Program }}", filepath.Join("/output", "js", "privet", "hello.js")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, tt.transliterate, tt.pack, tt.template)

			result := buildOutputPath(testProgram(), tt.backend, "/output", env)
			if result != tt.expected {
				t.Errorf("buildOutputPath() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestSplitAndCleanPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected []string
	}{
		{"simple path", "backend/program", []string{"backend", "program"}},
		{"single segment", "program", []string{"program"}},
		{"with trailing slash", "backend/program/", []string{"backend", "program"}},
		{"three levels", "a/b/c", []string{"a", "b", "c"}},
		{"empty path", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitAndCleanPath(filepath.FromSlash(tt.path))
			if len(result) != len(tt.expected) {
				t.Errorf("splitAndCleanPath() = %v, want %v", result, tt.expected)
				return
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("splitAndCleanPath()[%d] = %q, want %q", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestCleanPathSegment(t *testing.T) {
	tests := []struct {
		name          string
		segment       string
		transliterate bool
		expected      string
	}{
		{"simple segment", "hello", false, "hello"},
		{"with spaces", "My Program", false, "My Program"},
		{"transliterate cyrillic", "Программа", true, "programma"},
		{"special chars", "a/b", false, "ab"},
		{"parent", "..", false, "_bad_file_name_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, tt.transliterate, false, "")

			result := cleanPathSegment(tt.segment, env)
			if result != tt.expected {
				t.Errorf("cleanPathSegment() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestAssemblePathWithSubdirs(t *testing.T) {
	env := setupTestEnvForOutputPath(t, false, false, "")

	if got, want := assemblePathWithSubdirs("/output", filepath.FromSlash("a/b"), ".js", env), filepath.Join("/output", "a", "b.js"); got != want {
		t.Errorf("assemblePathWithSubdirs() = %q, want %q", got, want)
	}
	if got := assemblePathWithSubdirs("/output", "", ".js", env); got != "/output" {
		t.Errorf("assemblePathWithSubdirs() with empty path = %q, want /output", got)
	}
}

func TestExpandTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		expected string
		wantErr  bool
	}{
		{"simple text", "output", "output", false},
		{"program", "{{ .Program }}", "hello", false},
		{"backend", "{{ .Backend }}{{ .Ext }}", "php.php", false},
		{"switch", "{{ .Switch }}", "-php", false},
		{"entries", "{{ join \",\" .Entry }}", "demo.Main:main,demo.Util", false},
		{"context", "{{ .Context }}", string(config.OutputNameTemplateFieldName), false},
		{"sprig", "{{ .Program | upper | replace \"L\" \"_\" }}", "HE__O", false},
		{"invalid template", "{{ .Program", "", true},
		{"invalid field", "{{ .Nope }}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := expandTemplate(testProgram(), phpBackend, config.OutputNameTemplateFieldName, tt.template)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expandTemplate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if result != tt.expected {
				t.Errorf("expandTemplate() = %q, want %q", result, tt.expected)
			}
		})
	}
}
