package pathutil

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"backslashes", `Addons\Weapons\Rifle.hpp`, "addons/weapons/rifle.hpp"},
		{"dot-prefix", "./addons/rifle.hpp", "addons/rifle.hpp"},
		{"leading-slash", "/addons/rifle.hpp", "addons/rifle.hpp"},
		{"mixed-case", "Addons/Rifle.HPP", "addons/rifle.hpp"},
		{"empty", "", ""},
		{"dotdot", "addons/../weapons/rifle.hpp", "weapons/rifle.hpp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToRelative(t *testing.T) {
	got := ToRelative("/home/user/project/src/main.hpp", "/home/user/project")
	if got != "src/main.hpp" {
		t.Errorf("got %q", got)
	}
	got = ToRelative("/other/main.hpp", "/home/user/project")
	if got != "other/main.hpp" {
		t.Errorf("outside-root fallback: got %q", got)
	}
}

func TestExtensionSetReorderIsStable(t *testing.T) {
	a := ExtensionSet([]string{"hpp", "CPP", ".sqf"})
	b := ExtensionSet([]string{"sqf", "hpp", "cpp", "cpp"})
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("order/content differ at %d: %v vs %v", i, a, b)
		}
	}
}
