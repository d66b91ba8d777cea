//go:build go1.18

package graphstore

import (
	"testing"
)

// FuzzNormalizeName checks that normalization is stable and never panics.
func FuzzNormalizeName(f *testing.F) {
	f.Add("Machine  Learning")
	f.Add("")
	f.Add("\t Python\n")
	f.Fuzz(func(t *testing.T, s string) {
		once := NormalizeName(s)
		if twice := NormalizeName(once); twice != once {
			t.Fatalf("normalization not idempotent: %q -> %q -> %q", s, once, twice)
		}
	})
}
