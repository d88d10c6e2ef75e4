package formats

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const knightDescriptor = `models/knight.md2
models/knight.pcx
IDLE 1 0 40
RUN 1 40 6
ATTACK 0 46 8
DEAD 0 178 20
`

func TestParseActionSet(t *testing.T) {
	s, err := ParseActionSet(strings.NewReader(knightDescriptor))
	if err != nil {
		t.Fatalf("ParseActionSet: %v", err)
	}
	if s.ModelPath != "models/knight.md2" || s.SkinPath != "models/knight.pcx" {
		t.Errorf("paths = %q, %q", s.ModelPath, s.SkinPath)
	}

	want := []ActionType{ActionIdle, ActionRun, ActionAttack, ActionDead}
	if got := s.Types(); !reflect.DeepEqual(got, want) {
		t.Errorf("Types() = %v, want %v", got, want)
	}

	tests := []struct {
		action ActionType
		want   ActionInfo
		found  bool
	}{
		{ActionIdle, ActionInfo{ActionIdle, true, 0, 40}, true},
		{ActionRun, ActionInfo{ActionRun, true, 40, 6}, true},
		{ActionAttack, ActionInfo{ActionAttack, false, 46, 8}, true},
		{ActionDead, ActionInfo{ActionDead, false, 178, 20}, true},
		{ActionWave, ActionInfo{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			got, ok := s.Action(tt.action)
			if ok != tt.found {
				t.Fatalf("found = %v, want %v", ok, tt.found)
			}
			if got != tt.want {
				t.Errorf("Action() = %+v, want %+v", got, tt.want)
			}
		})
	}

	if dead, _ := s.Action(ActionDead); dead.LastFrame() != 197 {
		t.Errorf("LastFrame() = %d, want 197", dead.LastFrame())
	}
}

func TestParseActionSet_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", "", ErrMissingModelPath},
		{"blank model path", "\nskin.pcx\n", ErrMissingModelPath},
		{"unknown action", "m.md2\ns.pcx\nSWIM 1 0 4\n", ErrInvalidAction},
		{"invalid keyword", "m.md2\ns.pcx\nINVALID 1 0 4\n", ErrInvalidAction},
		{"negative offset", "m.md2\ns.pcx\nIDLE 1 -1 4\n", ErrInvalidFrameRange},
		{"zero count", "m.md2\ns.pcx\nIDLE 1 0 0\n", ErrInvalidFrameRange},
		{"bad loop flag", "m.md2\ns.pcx\nIDLE maybe 0 4\n", ErrMalformedRecord},
		{"word loop flag", "m.md2\ns.pcx\nIDLE true 0 4\n", ErrMalformedRecord},
		{"letter loop flag", "m.md2\ns.pcx\nIDLE t 0 4\n", ErrMalformedRecord},
		{"two digit loop flag", "m.md2\ns.pcx\nIDLE 10 0 4\n", ErrMalformedRecord},
		{"bad count", "m.md2\ns.pcx\nIDLE 1 0 four\n", ErrMalformedRecord},
		{"truncated record", "m.md2\ns.pcx\nIDLE 1 0 4\nRUN 1\n", ErrMalformedRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseActionSet(strings.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if s != nil {
				t.Error("expected no action set on error")
			}
		})
	}
}

func TestParseActionSet_StopsAtFirstBadRecord(t *testing.T) {
	input := "m.md2\ns.pcx\nIDLE 1 0 4\nRUN 1 4 0\nDEAD 0 8 2\n"
	_, err := ParseActionSet(strings.NewReader(input))
	if err == nil || !strings.Contains(err.Error(), "record 2") {
		t.Errorf("error = %v, want it to name record 2", err)
	}
}

func TestParseActionSet_DuplicateLastWins(t *testing.T) {
	input := "m.md2\ns.pcx\nIDLE 1 0 4\nIDLE 0 10 2\n"
	s, err := ParseActionSet(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseActionSet: %v", err)
	}
	got, _ := s.Action(ActionIdle)
	if want := (ActionInfo{ActionIdle, false, 10, 2}); got != want {
		t.Errorf("IDLE = %+v, want %+v", got, want)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestParseActionSet_NoTrailingNewline(t *testing.T) {
	s, err := ParseActionSet(strings.NewReader("m.md2\r\ns.pcx\r\nWAVE 1 0 3"))
	if err != nil {
		t.Fatalf("ParseActionSet: %v", err)
	}
	if s.SkinPath != "s.pcx" {
		t.Errorf("SkinPath = %q", s.SkinPath)
	}
	if _, ok := s.Action(ActionWave); !ok {
		t.Error("WAVE not parsed")
	}
}

func TestActionType_Names(t *testing.T) {
	for a := ActionInvalid; a <= ActionDead; a++ {
		if got := ParseActionType(a.String()); got != a {
			t.Errorf("ParseActionType(%q) = %v, want %v", a.String(), got, a)
		}
	}
	if got := ParseActionType("idle"); got != ActionInvalid {
		t.Errorf("names are case sensitive, got %v", got)
	}
	if got := ActionType(42).String(); got != "Unknown(42)" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseActionSetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knight.act")
	if err := os.WriteFile(path, []byte(knightDescriptor), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := ParseActionSetFile(path)
	if err != nil {
		t.Fatalf("ParseActionSetFile: %v", err)
	}
	if s.Len() != 4 {
		t.Errorf("Len() = %d, want 4", s.Len())
	}
	if _, err := ParseActionSetFile(path + ".missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}
}
