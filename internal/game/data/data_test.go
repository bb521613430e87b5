package data

import "testing"

func TestLoad(t *testing.T) {
	today, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if today.Mortal["name"] == "" || today.Mortal["name"] == nil {
		t.Fatalf("mortal has no name: %#v", today.Mortal)
	}
	if len(today.Matches) != 3 {
		t.Fatalf("match count: want=3 got=%d", len(today.Matches))
	}
	// Matches load in filename order.
	if today.Matches[0].ID != "ada_lockhart" {
		t.Fatalf("first match id: got=%q", today.Matches[0].ID)
	}

	for _, m := range today.Matches {
		compat, ok := today.Compatibility[m.ID]
		if !ok {
			t.Fatalf("no compatibility entry for match %q", m.ID)
		}
		overall, ok := compat["overall_compatibility"]
		if !ok {
			t.Fatalf("compatibility for %q has no overall_compatibility: %#v", m.ID, compat)
		}
		if _, isInt := overall.(int); !isInt {
			if _, isFloat := overall.(float64); !isFloat {
				t.Fatalf("overall_compatibility for %q is %T", m.ID, overall)
			}
		}
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Seraphina Cole", "seraphina_cole"},
		{"ethan_murphy", "ethan_murphy"},
		{"  Ada Lockhart ", "ada_lockhart"},
	}
	for _, tt := range tests {
		if got := normalizeID(tt.in); got != tt.want {
			t.Fatalf("normalizeID(%q): want=%q got=%q", tt.in, tt.want, got)
		}
	}
}

func TestYAMLString(t *testing.T) {
	out := YAMLString(map[string]any{"name": "Seraphina Cole"})
	if out == "" {
		t.Fatalf("YAMLString returned empty output")
	}
	if want := "name: Seraphina Cole\n"; out != want {
		t.Fatalf("YAMLString: want=%q got=%q", want, out)
	}
}
