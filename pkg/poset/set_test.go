package poset

import (
	"slices"
	"testing"
)

func TestSetOperations(t *testing.T) {
	d := NewDomain[string]("test")
	a := d.NewSet("x", "y")
	b := d.NewSet("y", "z")

	tests := []struct {
		name string
		got  *Set[string]
		want []string
	}{
		{"union", a.Union(b), []string{"x", "y", "z"}},
		{"intersect", a.Intersect(b), []string{"y"}},
		{"difference", a.Difference(b), []string{"x"}},
		{"filter", a.Union(b).Filter(func(k string) bool { return k != "y" }), []string{"x", "z"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.got.Names(); !slices.Equal(got, tt.want) {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if got := a.Names(); !slices.Equal(got, []string{"x", "y"}) {
		t.Errorf("combinators modified receiver: %v", got)
	}
}

func TestSetInPlace(t *testing.T) {
	d := NewDomain[string]("test")
	s := d.NewSet("a", "b", "c")
	s.IntersectWith(d.NewSet("b", "c", "d"))
	s.DifferenceWith(d.NewSet("c"))
	s.UnionWith(d.NewSet("e"))
	if got := s.String(); got != "{b e}" {
		t.Errorf("String() = %q, want {b e}", got)
	}
	s.Remove("b")
	s.Remove("never-registered")
	if s.Contains("b") || !s.Contains("e") || s.Len() != 1 {
		t.Errorf("after Remove: %v", s)
	}
}

func TestSetEqualAcrossGrowth(t *testing.T) {
	d := NewDomain[int]("ints")
	early := d.NewSet(1)
	for i := 2; i < 500; i++ {
		d.Register(i)
	}
	late := d.NewSet(1)
	if !early.Equal(late) || !late.Equal(early) {
		t.Error("Equal() = false for sets created at different domain sizes")
	}
	late.Add(499)
	if early.Equal(late) {
		t.Error("Equal() = true for different sets")
	}
	if !early.IsSubsetOf(late) || late.IsSubsetOf(early) {
		t.Error("IsSubsetOf gives wrong answer")
	}
}

func TestConstrain(t *testing.T) {
	d := NewDomain[string]("test")
	a := d.NewSet("x", "y")

	if got := Constrain[string](nil, nil); got != nil {
		t.Errorf("Constrain(nil, nil) = %v, want nil", got)
	}
	got := Constrain(nil, a)
	if !got.Equal(a) {
		t.Errorf("Constrain(nil, a) = %v, want %v", got, a)
	}
	got.Add("z")
	if a.Contains("z") {
		t.Error("Constrain result aliases its input")
	}
	if got := Constrain(a, d.NewSet("y", "z")).Names(); !slices.Equal(got, []string{"y"}) {
		t.Errorf("Constrain(a, b) = %v", got)
	}
}

func TestSetDomainMismatchPanics(t *testing.T) {
	a := NewDomain[string]("one").NewSet("x")
	b := NewDomain[string]("two").NewSet("x")
	defer func() {
		if recover() == nil {
			t.Error("cross-domain union did not panic")
		}
	}()
	a.Union(b)
}
