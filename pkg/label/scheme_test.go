package label

import (
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/labeltower/pkg/errors"
)

const testScheme = `
[[component]]
name = "Core"
global = { doc = "@CoreDocs" }

[[component]]
name = "Python"

[[buildconfig]]
name = "Core/standard"
requires = ["@Glibc"]

[[buildconfig]]
name = "Python/standard"
requires = ["Core/standard", "@Core"]

[[autoflavor]]
name = "python"
disposition = "maybe_merge"
requires = ["@Python"]
preferred = ["@Core+python"]

[[purpose]]
name = "devel"
suffixes = ["-devel"]

[[purpose]]
name = "doc"
disposition = "component_wide"
suffixes = ["-doc"]

[[label]]
name = "@Glibc"
buildconfig = "Core/standard"
purposes = ["devel"]

[[label]]
name = "@Core"
requires = ["@Glibc"]
buildconfig = "Core/standard"
flavors = ["python"]
purposes = ["devel"]
api = "@CoreAPI"

[[label]]
name = "@CoreAPI"
requires = ["@Core"]
buildconfig = "Core/standard"

[[label]]
name = "@CoreDocs"
buildconfig = "Core/standard"

[[label]]
name = "@Python"
requires = ["@Core"]
buildconfig = "Python/standard"
feature = true
`

func loadTestScheme(t *testing.T) *Scheme {
	t.Helper()
	s, err := LoadTOML(strings.NewReader(testScheme))
	if err != nil {
		t.Fatalf("LoadTOML() error = %v", err)
	}
	return s
}

func TestLoadTOML(t *testing.T) {
	s := loadTestScheme(t)

	for _, name := range []string{"@Core+python", "@Core-devel", "@Core+python-devel", "@Glibc-devel", "Core/standard"} {
		if s.Label(name) == nil {
			t.Errorf("Label(%q) = nil", name)
		}
	}

	flavor := s.Label("@Core+python")
	if flavor.Parent != s.Label("@Core") || flavor.FlavorName != "python" {
		t.Errorf("flavor derivation = %v/%q", flavor.Parent, flavor.FlavorName)
	}
	if flavor.ComponentName() != "Core" {
		t.Errorf("ComponentName() = %q, want Core", flavor.ComponentName())
	}
	if !slices.Contains(flavor.RuntimeRequires, s.Label("@Python")) {
		t.Errorf("@Core+python requires %v, want the flavor requirement @Python", flavor.RuntimeRequires)
	}

	pd := s.Label("@Core+python-devel")
	if pd.BaseLabel() != s.Label("@Core") {
		t.Errorf("BaseLabel() = %v, want @Core", pd.BaseLabel())
	}
	if !pd.IsPurpose() || pd.PurposeName != "devel" {
		t.Errorf("purpose of %v = %q", pd, pd.PurposeName)
	}
	if !slices.Contains(pd.RuntimeRequires, s.Label("@Core-devel")) {
		t.Errorf("@Core+python-devel must require @Core-devel, got %v", pd.RuntimeRequires)
	}
	if !slices.Contains(s.Label("@Core-devel").RuntimeRequires, s.Label("@Glibc-devel")) {
		t.Error("@Core-devel must require @Glibc-devel")
	}

	auto := s.Label("python")
	if auto.Kind != KindAutoFlavor || auto.Disposition != DispositionMaybeMerge {
		t.Errorf("python = %v/%v", auto.Kind, auto.Disposition)
	}
	if len(auto.PreferredLabels) != 1 || auto.PreferredLabels[0] != flavor {
		t.Errorf("PreferredLabels = %v", auto.PreferredLabels)
	}

	if got := s.APIUsers(s.Label("@CoreAPI")); len(got) != 1 || got[0] != s.Label("@Core") {
		t.Errorf("APIUsers(@CoreAPI) = %v", got)
	}
	if !s.IsComponentWide(s.Label("@CoreDocs")) {
		t.Error("IsComponentWide(@CoreDocs) = false")
	}

	// Python/standard pulls in the binary requirements of Core/standard.
	cfg := s.Label("Python/standard")
	if got := names(cfg.BuildRequires); got != "@Core,@Glibc" {
		t.Errorf("Python/standard build requires = %s", got)
	}
	if got := names(s.Label("@Python").BuildRequires); got != "@Core,@Glibc" {
		t.Errorf("@Python build requires = %s", got)
	}
}

func TestLoadTOMLErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		code errors.Code
	}{
		{"unknown key", "[[label]]\nname = \"@A\"\ncolour = \"red\"\n", errors.ErrCodeInvalidFormat},
		{"bad syntax", "[[label]\n", errors.ErrCodeInvalidFormat},
		{"unknown requirement", "[[label]]\nname = \"@A\"\nrequires = [\"@B\"]\n", errors.ErrCodeLabelNotFound},
		{"unknown flavor", "[[label]]\nname = \"@A\"\nflavors = [\"rust\"]\n", errors.ErrCodeLabelNotFound},
		{"bad disposition", "[[purpose]]\nname = \"doc\"\ndisposition = \"sometimes\"\n", errors.ErrCodeInvalidLabel},
		{"unknown component", "[[buildconfig]]\nname = \"X/standard\"\n", errors.ErrCodeLabelNotFound},
		{"cyclic labels", "[[label]]\nname = \"@A\"\nrequires = [\"@B\"]\n[[label]]\nname = \"@B\"\nrequires = [\"@A\"]\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := LoadTOML(strings.NewReader(tt.toml))
			if err == nil && tt.code == "" {
				// cycles surface when ordering
				_, err = s.Order(KindBinary)
				if !errors.Is(err, errors.ErrCodeCycle) {
					t.Errorf("Order() error = %v, want CYCLE", err)
				}
				return
			}
			if err == nil {
				t.Fatal("LoadTOML() error = nil")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("LoadTOML() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestOrder(t *testing.T) {
	s := loadTestScheme(t)
	order, err := s.Order(KindBinary)
	if err != nil {
		t.Fatalf("Order() error = %v", err)
	}

	if !order.IsBelow(s.Label("@Glibc"), s.Label("@Core+python-devel")) {
		t.Error("@Glibc should be below @Core+python-devel")
	}
	if order.Contains(s.Label("python")) {
		t.Error("auto labels must not be part of the binary order")
	}
	if _, err := s.Order(KindSource); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("Order(source) error = %v", err)
	}
}

func TestFindSibling(t *testing.T) {
	s := loadTestScheme(t)
	dev := s.Label("@Core-devel")

	tests := []struct {
		flavor, purpose string
		want            string
	}{
		{"", "", "@Core"},
		{"python", "", "@Core+python"},
		{"python", "devel", "@Core+python-devel"},
		{"", "devel", "@Core-devel"},
	}
	for _, tt := range tests {
		got := dev.FindSibling(tt.flavor, tt.purpose)
		if got == nil || got.Name != tt.want {
			t.Errorf("FindSibling(%q, %q) = %v, want %s", tt.flavor, tt.purpose, got, tt.want)
		}
	}
	if got := dev.FindSibling("rust", ""); got != nil {
		t.Errorf("FindSibling(rust) = %v, want nil", got)
	}
}

func TestCreateLabelKindConflict(t *testing.T) {
	s := NewScheme()
	if _, err := s.CreateLabel("Core", KindSource); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateLabel("Core", KindPurpose); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("CreateLabel() error = %v, want CONFIGURATION", err)
	}
}

func TestParseBinaryName(t *testing.T) {
	tests := []struct {
		in                     string
		base, flavor, purpose string
	}{
		{"@Core", "@Core", "", ""},
		{"@Core+python", "@Core", "python", ""},
		{"@Core-devel", "@Core", "", "devel"},
		{"@Core+python-devel", "@Core", "python", "devel"},
	}
	for _, tt := range tests {
		b, f, p := ParseBinaryName(tt.in)
		if b != tt.base || f != tt.flavor || p != tt.purpose {
			t.Errorf("ParseBinaryName(%q) = %q, %q, %q", tt.in, b, f, p)
		}
	}
}

func TestFingerprintStable(t *testing.T) {
	a := loadTestScheme(t).Fingerprint()
	b := loadTestScheme(t).Fingerprint()
	if a != b {
		t.Errorf("Fingerprint() differs between identical schemes: %s vs %s", a, b)
	}
	other, err := LoadTOML(strings.NewReader("[[label]]\nname = \"@A\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if other.Fingerprint() == a {
		t.Error("Fingerprint() equal for different schemes")
	}
}

func TestFingerprintCoversSolverInputs(t *testing.T) {
	base := loadTestScheme(t).Fingerprint()

	tests := []struct {
		name string
		old  string
		new  string
	}{
		{"purpose suffixes", `suffixes = ["-devel"]`, `suffixes = ["-headers"]`},
		{"api link", "flavors = [\"python\"]\npurposes = [\"devel\"]\napi = \"@CoreAPI\"", "flavors = [\"python\"]\npurposes = [\"devel\"]"},
		{"preferred labels", `preferred = ["@Core+python"]`, `preferred = ["@Core+python", "@Core"]`},
		{"template", `preferred = ["@Core+python"]`, "preferred = [\"@Core+python\"]\ntemplate = \"@Core\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(testScheme, tt.old) {
				t.Fatalf("test scheme does not contain %q", tt.old)
			}
			s, err := LoadTOML(strings.NewReader(strings.Replace(testScheme, tt.old, tt.new, 1)))
			if err != nil {
				t.Fatalf("LoadTOML() error = %v", err)
			}
			if got := s.Fingerprint(); got == base {
				t.Errorf("Fingerprint() unchanged after editing %s", tt.name)
			}
		})
	}
}

func TestHasSuffix(t *testing.T) {
	s := loadTestScheme(t)
	devel := s.Label("devel")
	if stem, ok := devel.HasSuffix("libfoo-devel"); !ok || stem != "libfoo" {
		t.Errorf("HasSuffix(libfoo-devel) = %q, %v", stem, ok)
	}
	if _, ok := devel.HasSuffix("-devel"); ok {
		t.Error("HasSuffix(-devel) matched an empty stem")
	}
}
