package dataset

import (
	"errors"
	"testing"
)

func TestFromSlice(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	m, err := FromSlice(data, 3)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	if m.Rows() != 2 || m.Width() != 3 {
		t.Errorf("shape = (%d, %d), want (2, 3)", m.Rows(), m.Width())
	}
}

func TestFromSlice_Invalid(t *testing.T) {
	if _, err := FromSlice([]float64{1, 2, 3}, 0); !errors.Is(err, ErrBadWidth) {
		t.Errorf("width 0: got %v, want ErrBadWidth", err)
	}
	if _, err := FromSlice([]float64{1, 2, 3}, 2); !errors.Is(err, ErrBadShape) {
		t.Errorf("ragged data: got %v, want ErrBadShape", err)
	}
}

func TestRow_IsView(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	m, err := FromSlice(data, 2)
	if err != nil {
		t.Fatal(err)
	}

	row := m.Row(1)
	if row[0] != 3 || row[1] != 4 {
		t.Errorf("Row(1) = %v, want [3 4]", row)
	}

	// Views alias the caller's buffer, no copy.
	data[2] = 99
	if m.Row(1)[0] != 99 {
		t.Error("Row must be a view into the backing slice")
	}
}

func TestSlice_Flat(t *testing.T) {
	m, err := FromSlice([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 2)
	if err != nil {
		t.Fatal(err)
	}

	got := m.Slice(1, 3)
	want := []float64{2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("Slice(1,3) len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Slice(1,3)[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEmpty(t *testing.T) {
	m := Empty()
	if m.Rows() != 0 {
		t.Errorf("Empty().Rows() = %d, want 0", m.Rows())
	}
}

func TestUniform_Reproducible(t *testing.T) {
	a, err := Uniform(16, 3, 42)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Uniform(16, 3, 42)
	if err != nil {
		t.Fatal(err)
	}

	for i := range a.Data() {
		if a.Data()[i] != b.Data()[i] {
			t.Fatalf("same seed diverged at %d", i)
		}
		if a.Data()[i] < 0 || a.Data()[i] >= 1 {
			t.Fatalf("uniform sample %v outside [0, 1)", a.Data()[i])
		}
	}

	c, err := Uniform(16, 3, 43)
	if err != nil {
		t.Fatal(err)
	}
	same := true
	for i := range a.Data() {
		if a.Data()[i] != c.Data()[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical data")
	}
}

func TestNormal_Shape(t *testing.T) {
	m, err := Normal(100, 4, 7)
	if err != nil {
		t.Fatal(err)
	}
	if m.Rows() != 100 || m.Width() != 4 {
		t.Errorf("shape = (%d, %d), want (100, 4)", m.Rows(), m.Width())
	}
}
