package yaml

import (
	"testing"
)

// FuzzRegistryParser tests the allow-list parser against random/malformed inputs
// to detect crashes, panics, or unexpected behavior.
//
// Run with: go test -fuzz=FuzzRegistryParser -fuzztime=30s
func FuzzRegistryParser(f *testing.F) {
	f.Add([]byte(`{"Sample.Lib": {"listed": true, "version": "[1.0.0,)"}}`))
	f.Add([]byte(`{"Old.Thing": {"ignore": true}}`))
	f.Add([]byte("Sample.Lib:\n  version: \"(,2.0]\"\n  defineConstraints: [A, B]\n"))
	f.Add([]byte(`[1, 2, 3]`))
	f.Add([]byte(""))

	f.Fuzz(func(t *testing.T, data []byte) {
		entries, err := NewRegistryParser().Parse(data)
		if err != nil {
			return
		}
		for _, e := range entries {
			if e.ID == "" {
				t.Errorf("parsed entry without id from %q", data)
			}
			if !e.Ignored && e.Version == "" {
				t.Errorf("parsed non ignored entry %s without version", e.ID)
			}
		}
	})
}
