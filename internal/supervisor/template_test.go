package supervisor

import (
	"errors"
	"reflect"
	"testing"
)

func TestTemplateRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		params   map[string]string
		want     []string
	}{
		{
			name:     "single field",
			template: "{cmd}",
			params:   map[string]string{"cmd": "sleep 100"},
			want:     []string{"sleep", "100"},
		},
		{
			name:     "docking command",
			template: "python dock.py --receptor_file {REC_FILE} --input_dir {INPUT_DIR}",
			params:   map[string]string{"REC_FILE": "rec.pdbqt", "INPUT_DIR": "in/1", "OUTPUT_DIR": "unused"},
			want:     []string{"python", "dock.py", "--receptor_file", "rec.pdbqt", "--input_dir", "in/1"},
		},
		{
			name:     "escaped braces",
			template: "echo {{literal}} {x}",
			params:   map[string]string{"x": "1"},
			want:     []string{"echo", "{literal}", "1"},
		},
		{
			name:     "glued placeholder",
			template: "out/{name}.pdbqt",
			params:   map[string]string{"name": "lig7"},
			want:     []string{"out/lig7.pdbqt"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseTemplate(tt.template)
			if err != nil {
				t.Fatalf("ParseTemplate returned error: %v", err)
			}
			got, err := tmpl.Render(tt.params)
			if err != nil {
				t.Fatalf("Render returned error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Render = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTemplateRenderUnknownPlaceholder(t *testing.T) {
	tmpl, err := ParseTemplate("run {missing}")
	if err != nil {
		t.Fatalf("ParseTemplate returned error: %v", err)
	}
	if _, err := tmpl.Render(map[string]string{"cmd": "x"}); !errors.Is(err, ErrUnknownPlaceholder) {
		t.Fatalf("expected ErrUnknownPlaceholder, got %v", err)
	}
}

func TestTemplateRenderEmptyCommand(t *testing.T) {
	tmpl, err := ParseTemplate("{cmd}")
	if err != nil {
		t.Fatalf("ParseTemplate returned error: %v", err)
	}
	if _, err := tmpl.Render(map[string]string{"cmd": "   "}); err == nil {
		t.Fatal("expected error for blank command")
	}
}

func TestParseTemplateRejectsBadSyntax(t *testing.T) {
	for _, raw := range []string{"", "run {cmd", "run {}", "run cmd}", "run {a b}"} {
		if _, err := ParseTemplate(raw); err == nil {
			t.Fatalf("expected parse error for %q", raw)
		}
	}
}

func TestTemplatePlaceholdersAndProgram(t *testing.T) {
	tmpl, err := ParseTemplate("python src/dock.py {A} {B} {A}")
	if err != nil {
		t.Fatalf("ParseTemplate returned error: %v", err)
	}
	if got := tmpl.Placeholders(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("Placeholders = %v", got)
	}
	if program, ok := tmpl.Program(); !ok || program != "python" {
		t.Fatalf("Program = %q, %v", program, ok)
	}

	for _, raw := range []string{"{cmd}", "bin/{tool} --x"} {
		tmpl, err := ParseTemplate(raw)
		if err != nil {
			t.Fatalf("ParseTemplate(%q) returned error: %v", raw, err)
		}
		if _, ok := tmpl.Program(); ok {
			t.Fatalf("expected no literal program for %q", raw)
		}
	}
}
