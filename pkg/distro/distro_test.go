package distro

import "testing"

func TestMultibuildBase(t *testing.T) {
	tests := []struct {
		name         string
		base, flavor string
		ok           bool
	}{
		{"python-foo", "python-foo", "", false},
		{"python-foo:python311", "python-foo", "python311", true},
		{":x", ":x", "", false},
		{"foo:", "foo:", "", false},
	}
	for _, tt := range tests {
		b := &Build{Name: tt.name}
		base, flavor, ok := b.MultibuildBase()
		if base != tt.base || flavor != tt.flavor || ok != tt.ok {
			t.Errorf("MultibuildBase(%q) = %q, %q, %v, want %q, %q, %v", tt.name, base, flavor, ok, tt.base, tt.flavor, tt.ok)
		}
	}
}

func TestBuildPackages(t *testing.T) {
	b := &Build{Name: "foo"}
	bin := &Package{Name: "foo", Arch: "x86_64"}
	src := &Package{Name: "foo", Arch: "src"}
	b.AddBinary(bin)
	b.AddSource(src)

	if bin.Build != b || src.Build != b || !src.IsSource {
		t.Error("packages not linked to build")
	}
	if got := b.Packages(); len(got) != 2 || got[0] != bin || got[1] != src {
		t.Errorf("Packages() = %v", got)
	}
	if bin.ID() != "foo.x86_64" {
		t.Errorf("ID() = %q", bin.ID())
	}
	if (&Package{Name: "noarch"}).ID() != "noarch" {
		t.Error("ID() without arch should be the name")
	}
}
