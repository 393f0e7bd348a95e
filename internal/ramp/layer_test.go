package ramp

import "testing"

func TestParseLayer(t *testing.T) {
	for _, l := range Layers() {
		got, err := ParseLayer(l.String())
		if err != nil {
			t.Errorf("ParseLayer(%q): %v", l.String(), err)
			continue
		}
		if got != l {
			t.Errorf("ParseLayer(%q) = %v, want %v", l.String(), got, l)
		}
	}

	// Case and whitespace are forgiven, unknown names are not.
	if got, err := ParseLayer(" PM25 "); err != nil || got != PM25 {
		t.Errorf("ParseLayer(\" PM25 \") = %v, %v", got, err)
	}
	if _, err := ParseLayer("ozone"); err == nil {
		t.Error("ParseLayer accepted unknown layer")
	}
	if _, err := ParseLayer(""); err == nil {
		t.Error("ParseLayer accepted empty name")
	}
}

func TestLayerDynamic(t *testing.T) {
	want := map[Layer]bool{
		PM25:          true,
		Precipitation: true,
		UV:            false,
		Humidity:      false,
		Temperature:   false,
	}
	for l, dyn := range want {
		if l.Dynamic() != dyn {
			t.Errorf("%s.Dynamic() = %v, want %v", l, l.Dynamic(), dyn)
		}
	}
}

func TestLayerUnits(t *testing.T) {
	for _, l := range Layers() {
		if l.Units() == "" {
			t.Errorf("%s has no units", l)
		}
	}
	if got := Temperature.Units(); got != "°C" {
		t.Errorf("Temperature.Units() = %q, want °C", got)
	}
}

func TestDefaultRamps_Complete(t *testing.T) {
	for _, l := range Layers() {
		r := l.DefaultRamp()
		if r == nil {
			t.Fatalf("%s has no default ramp", l)
		}
		if r.Classes() != 5 {
			t.Errorf("%s ramp has %d classes, want 5", l, r.Classes())
		}
		if b := r.Breakpoints(); b[0] != 0 {
			t.Errorf("%s ramp starts at %v, want 0", l, b[0])
		}
	}
}
