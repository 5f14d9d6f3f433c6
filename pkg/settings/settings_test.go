package settings

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/threedaro/ptdetail/pkg/errors"
)

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Errorf("Defaults().Validate() error = %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"empty tendon family", func(s *Settings) { s.TendonFamily = "" }},
		{"traversal in family", func(s *Settings) { s.TagFamily = "../tag.rfa" }},
		{"negative snap tolerance", func(s *Settings) { s.AutoSnapTolerance = -1 }},
		{"negative spacing tolerance", func(s *Settings) { s.GroupSpacingTol = -10 }},
		{"angle tolerance over 90", func(s *Settings) { s.GroupAngleTol = 120 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(s)
			err := s.Validate()
			if err == nil {
				t.Fatal("Validate() succeeded, want error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidSettings) && !errors.Is(err, errors.ErrCodeInvalidFamily) {
				t.Errorf("error code = %v, want settings or family code", errors.GetCode(err))
			}
		})
	}
}

func TestGroupTolerances(t *testing.T) {
	s := Defaults()
	tol := s.GroupTolerances()
	if tol.Angle != s.GroupAngleTol || tol.Spacing != s.GroupSpacingTol ||
		tol.Shift != s.GroupShiftTol || tol.Length != s.GroupLengthTol ||
		tol.DrapeDistance != s.GroupDrapeDistanceTol || tol.DrapeHeight != s.GroupDrapeHeightTol {
		t.Errorf("GroupTolerances() = %+v does not mirror settings", tol)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	s := Defaults()
	s.GroupSpacingTol = 2000
	s.CreateDetailGroup = false
	s.TendonFamily = "Custom_Tendon.rfa"
	if err := fs.Save("project.doc", s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := fs.Load("project.doc")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("settings round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestFileStoreMissingFileReturnsDefaults(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	got, err := fs.Load("never-saved.doc")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(Defaults(), got); diff != "" {
		t.Errorf("unsaved document settings differ from defaults:\n%s", diff)
	}
}

func TestFileStoreIsolatesDocuments(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	a := Defaults()
	a.GroupShiftTol = 900
	if err := fs.Save("a.doc", a); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	b, err := fs.Load("b.doc")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if b.GroupShiftTol != Defaults().GroupShiftTol {
		t.Errorf("document b picked up document a's settings")
	}
}

func TestFileStoreRejectsInvalidKey(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if _, err := fs.Load(""); err == nil {
		t.Error("Load(\"\") succeeded, want error")
	}
	if err := fs.Save("", Defaults()); err == nil {
		t.Error("Save(\"\") succeeded, want error")
	}
}
