package platform

import "testing"

func TestFromMachine(t *testing.T) {
	tests := []struct {
		machine string
		name    string
		emul32  bool
	}{
		{"x86_64", "x86_64", true},
		{"i686", "x86", false},
		{"i386", "x86", false},
		{"aarch64", "aarch64", false},
		{"arm64", "aarch64", false},
		{"riscv64", "riscv64", false},
		{"loongarch64", "loongarch64", false},
	}

	for _, tt := range tests {
		p := fromMachine(tt.machine)
		if p.Name != tt.name {
			t.Errorf("fromMachine(%q).Name = %q, want %q", tt.machine, p.Name, tt.name)
		}
		if p.Emul32 != tt.emul32 {
			t.Errorf("fromMachine(%q).Emul32 = %v, want %v", tt.machine, p.Emul32, tt.emul32)
		}
	}
}

func TestEmul32Name(t *testing.T) {
	p := Platform{Name: "x86_64", Emul32: true}
	if got, want := p.Emul32Name(), "emul32/x86_64"; got != want {
		t.Fatalf("Emul32Name() = %q, want %q", got, want)
	}
}

func TestGoArchMachine(t *testing.T) {
	tests := []struct {
		goarch string
		want   string
	}{
		{"amd64", "x86_64"},
		{"386", "i686"},
		{"arm64", "aarch64"},
		{"riscv64", "riscv64"},
	}

	for _, tt := range tests {
		if got := goArchMachine(tt.goarch); got != tt.want {
			t.Errorf("goArchMachine(%q) = %q, want %q", tt.goarch, got, tt.want)
		}
	}
}

func TestDetect(t *testing.T) {
	p := Detect()
	if p.Name == "" {
		t.Fatal("Detect() returned an empty platform name")
	}
}
