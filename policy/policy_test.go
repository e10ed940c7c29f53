package policy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tsawler/pagemerge/model"
)

// ============================================================================
// Default plan
// ============================================================================

func TestDefaultPlan(t *testing.T) {
	pl := DefaultPlan()
	if err := pl.Validate(); err != nil {
		t.Fatalf("default plan invalid: %v", err)
	}

	if pl.Margin != 10 {
		t.Errorf("Margin = %v, want 10", pl.Margin)
	}

	targets := pl.Targets()
	if len(targets) != 2 || targets[0] != model.ClassTable || targets[1] != model.ClassFigure {
		t.Fatalf("Targets() = %v, want [Table Figure]", targets)
	}

	table := pl.Passes[0]
	if !table.TableMerge || !table.BearsHeader() {
		t.Errorf("table pass: TableMerge=%v BearsHeader=%v", table.TableMerge, table.BearsHeader())
	}
	for _, c := range []model.Class{model.ClassFigure, model.ClassSectionHeader, model.ClassPageFooter, model.ClassPageHeader} {
		if !table.PassesThrough(c) {
			t.Errorf("table pass should pass through %s", c)
		}
	}
	if table.PassesThrough(model.ClassBodyText) {
		t.Error("table pass should not pass through Body Text")
	}

	figure := pl.Passes[1]
	if figure.TableMerge || figure.BearsHeader() || len(figure.PassThrough) != 0 {
		t.Errorf("figure pass = %+v", figure)
	}
}

// ============================================================================
// Validation
// ============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr string
	}{
		{
			name: "valid single pass",
			plan: Plan{Passes: []Policy{{Target: model.ClassEquation, HeaderBearing: Bool(false)}}},
		},
		{
			name:    "no passes",
			plan:    Plan{Margin: 10},
			wantErr: "no passes",
		},
		{
			name:    "negative margin",
			plan:    Plan{Margin: -1, Passes: []Policy{{Target: model.ClassTable, HeaderBearing: Bool(true)}}},
			wantErr: "negative margin",
		},
		{
			name:    "missing target",
			plan:    Plan{Passes: []Policy{{HeaderBearing: Bool(true)}}},
			wantErr: "no target class",
		},
		{
			name:    "undeclared header bearing",
			plan:    Plan{Passes: []Policy{{Target: model.ClassTable}}},
			wantErr: "header_bearing",
		},
		{
			name: "duplicate target",
			plan: Plan{Passes: []Policy{
				{Target: model.ClassTable, HeaderBearing: Bool(true)},
				{Target: model.ClassTable, HeaderBearing: Bool(true)},
			}},
			wantErr: "more than one pass",
		},
		{
			name: "self pass-through",
			plan: Plan{Passes: []Policy{
				{Target: model.ClassTable, PassThrough: []model.Class{model.ClassTable}, HeaderBearing: Bool(true)},
			}},
			wantErr: "passes through itself",
		},
		{
			name: "two-class cycle",
			plan: Plan{Passes: []Policy{
				{Target: model.ClassTable, PassThrough: []model.Class{model.ClassFigure}, HeaderBearing: Bool(true)},
				{Target: model.ClassFigure, PassThrough: []model.Class{model.ClassTable}, HeaderBearing: Bool(false)},
			}},
			wantErr: "circular pass-through",
		},
		{
			name: "three-class cycle",
			plan: Plan{Passes: []Policy{
				{Target: model.ClassTable, PassThrough: []model.Class{model.ClassFigure}, HeaderBearing: Bool(true)},
				{Target: model.ClassFigure, PassThrough: []model.Class{model.ClassEquation}, HeaderBearing: Bool(false)},
				{Target: model.ClassEquation, PassThrough: []model.Class{model.ClassTable}, HeaderBearing: Bool(false)},
			}},
			wantErr: "circular pass-through",
		},
		{
			name: "chain without cycle",
			plan: Plan{Passes: []Policy{
				{Target: model.ClassTable, PassThrough: []model.Class{model.ClassFigure}, HeaderBearing: Bool(true)},
				{Target: model.ClassFigure, PassThrough: []model.Class{model.ClassEquation}, HeaderBearing: Bool(false)},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidPlan) {
				t.Errorf("error %v does not wrap ErrInvalidPlan", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

// ============================================================================
// YAML
// ============================================================================

func TestParse(t *testing.T) {
	data := []byte(`
passes:
  - target: table
    pass_through: [figure, section_header, Page-Footer, PAGE HEADER]
    table_merge: true
    header_bearing: true
  - target: Figure
    header_bearing: false
`)
	pl, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if pl.Margin != 10 {
		t.Errorf("Margin = %v, want default 10", pl.Margin)
	}

	want := DefaultPlan()
	if len(pl.Passes) != len(want.Passes) {
		t.Fatalf("got %d passes, want %d", len(pl.Passes), len(want.Passes))
	}
	for i := range want.Passes {
		got, exp := pl.Passes[i], want.Passes[i]
		if got.Target != exp.Target || got.TableMerge != exp.TableMerge || got.BearsHeader() != exp.BearsHeader() {
			t.Errorf("pass %d = %+v, want %+v", i, got, exp)
		}
		if len(got.PassThrough) != len(exp.PassThrough) {
			t.Errorf("pass %d pass-through = %v, want %v", i, got.PassThrough, exp.PassThrough)
			continue
		}
		for j := range exp.PassThrough {
			if got.PassThrough[j] != exp.PassThrough[j] {
				t.Errorf("pass %d pass-through[%d] = %s, want %s", i, j, got.PassThrough[j], exp.PassThrough[j])
			}
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		invalid bool
	}{
		{"unknown class", "passes:\n  - target: Chart\n    header_bearing: true\n", false},
		{"unknown pass-through", "passes:\n  - target: Table\n    pass_through: [Sidebar]\n    header_bearing: true\n", false},
		{"missing target", "passes:\n  - header_bearing: true\n", true},
		{"malformed yaml", "passes: [", false},
		{"explicit negative margin", "margin: -1\npasses:\n  - target: Table\n    header_bearing: true\n", true},
		{"missing header bearing", "passes:\n  - target: Table\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("Parse() = nil error")
			}
			if errors.Is(err, ErrInvalidPlan) != tt.invalid {
				t.Errorf("errors.Is(ErrInvalidPlan) = %v, want %v (%v)", !tt.invalid, tt.invalid, err)
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := DefaultPlan().Marshal()
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if !strings.Contains(string(data), "Section Header") {
		t.Errorf("marshaled plan should use class labels:\n%s", data)
	}

	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	pl, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(pl.Passes) != 2 || pl.Passes[0].Target != model.ClassTable {
		t.Errorf("Load() = %+v", pl)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file should fail")
	}
}
