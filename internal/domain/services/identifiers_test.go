package services

import (
	"testing"

	"github.com/google/uuid"
)

func TestStableGUID(t *testing.T) {
	first := StableGUID("Sample.Lib", "Sample.Lib.dll")
	second := StableGUID("Sample.Lib", "Sample.Lib.dll")
	if first != second {
		t.Errorf("StableGUID() is not deterministic: %s != %s", first, second)
	}

	if first == StableGUID("Sample.Lib", "Other.dll") {
		t.Error("different files should get different identifiers")
	}
	if first == StableGUID("Other.Lib", "Sample.Lib.dll") {
		t.Error("different packages should get different identifiers")
	}

	if first.Version() != 5 {
		t.Errorf("Version() = %d, want 5", first.Version())
	}
	if first.Variant() != uuid.RFC4122 {
		t.Errorf("Variant() = %v, want RFC4122", first.Variant())
	}
}

func TestAssetGUID(t *testing.T) {
	g := StableGUID("Sample.Lib", "package.json")
	s := AssetGUID(g)
	if len(s) != 32 {
		t.Fatalf("AssetGUID() length = %d, want 32", len(s))
	}
	if s[12] != '5' {
		t.Errorf("AssetGUID() = %s, version nibble should be 5", s)
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Fatalf("AssetGUID() = %s contains non hex character %q", s, c)
		}
	}
}

func TestUnityPackageName(t *testing.T) {
	if got := UnityPackageName("org.nuget", "Sample.Lib"); got != "org.nuget.sample.lib" {
		t.Errorf("UnityPackageName() = %q", got)
	}
	if got := ArtifactBaseName("org.nuget", "Sample.Lib", "1.0.0"); got != "org.nuget.sample.lib-1.0.0" {
		t.Errorf("ArtifactBaseName() = %q", got)
	}
}
