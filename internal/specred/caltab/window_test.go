package caltab

import "testing"

func TestWindowTableFlattenUnflattenRoundTrips(t *testing.T) {
	w := NewWindowTable()
	w.AddSlit(WindowSlit{
		SlitNumber: 1, IFUSlit: 0, IFUFibre: 0, FibreTransmission: 1.0,
		SpecStart: 10, SpecEnd: 50, SpecLong: false,
		Objects: []WindowObject{
			{ObjStart: 5, ObjEnd: 15, ID: 1, Position: 20, Width: 4},
			{ObjStart: 25, ObjEnd: 35, ID: 2, Position: 30, Width: 6},
		},
	})
	w.AddSlit(WindowSlit{
		SlitNumber: 2, IFUSlit: 1, IFUFibre: 3, FibreTransmission: 0.9,
		SpecStart: 60, SpecEnd: 100, SpecLong: true,
		Objects: []WindowObject{
			{ObjStart: 2, ObjEnd: 8, ID: 1, Position: 70, Width: 3},
		},
	})

	if err := w.Flatten(); err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	out := NewWindowTable()
	out.Columns = w.Columns
	if err := out.Unflatten(); err != nil {
		t.Fatalf("Unflatten: %v", err)
	}

	if out.NSlits() != 2 {
		t.Fatalf("NSlits = %d, want 2", out.NSlits())
	}
	s0, err := out.Slit(0)
	if err != nil {
		t.Fatalf("Slit(0): %v", err)
	}
	if s0.SlitNumber != 1 || s0.SpecStart != 10 || s0.SpecEnd != 50 || len(s0.Objects) != 2 {
		t.Fatalf("unexpected slit 0: %+v", s0)
	}
	if s0.Objects[1].Position != 30 || s0.Objects[1].Width != 6 {
		t.Fatalf("unexpected slit 0 object 1: %+v", s0.Objects[1])
	}
	s1, err := out.Slit(1)
	if err != nil {
		t.Fatalf("Slit(1): %v", err)
	}
	if !s1.SpecLong || s1.IFUFibre != 3 || len(s1.Objects) != 1 {
		t.Fatalf("unexpected slit 1: %+v", s1)
	}
}
