package promptkey

import (
	"fmt"
	"testing"
)

func TestDeriveDeterministic(t *testing.T) {
	cases := []struct {
		name string
		a    string
		b    string
		same bool
	}{
		{name: "identical", a: "A ball moving left to right", b: "A ball moving left to right", same: true},
		{name: "surrounding_whitespace", a: "  A ball moving left to right ", b: "A ball moving left to right", same: true},
		{name: "distinct", a: "A ball moving left to right", b: "A ball moving right to left", same: false},
		{name: "case_sensitive", a: "a ball", b: "A ball", same: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ka, kb := Derive(tc.a), Derive(tc.b)
			if len(ka) != Length {
				t.Fatalf("Derive(%q) length = %d, want %d", tc.a, len(ka), Length)
			}
			if (ka == kb) != tc.same {
				t.Fatalf("Derive(%q)=%s, Derive(%q)=%s, same=%v, want %v", tc.a, ka, tc.b, kb, ka == kb, tc.same)
			}
		})
	}
}

func TestDeriveNoCollisions(t *testing.T) {
	seen := make(map[string]string, 10000)
	for i := 0; i < 10000; i++ {
		prompt := fmt.Sprintf("prompt variant %d with some trailing detail", i)
		k := Derive(prompt)
		if prev, ok := seen[k]; ok {
			t.Fatalf("collision: %q and %q both derive %s", prev, prompt, k)
		}
		seen[k] = prompt
	}
}
