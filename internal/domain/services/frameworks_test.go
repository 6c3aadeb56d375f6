package services

import (
	"testing"

	"github.com/ochairo/unitynuget/internal/domain/entities"
)

func TestParseFramework(t *testing.T) {
	tests := []struct {
		input   string
		family  string
		version string
		short   string
		wantErr bool
	}{
		{"netstandard2.0", FamilyNetStandard, "2.0", "netstandard2.0", false},
		{"netstandard2.1", FamilyNetStandard, "2.1", "netstandard2.1", false},
		{".NETStandard2.0", FamilyNetStandard, "2.0", "netstandard2.0", false},
		{".NETStandard,Version=v1.3", FamilyNetStandard, "1.3", "netstandard1.3", false},
		{"net48", FamilyNetFramework, "4.8", "net48", false},
		{"net472", FamilyNetFramework, "4.7.2", "net472", false},
		{"net6.0", FamilyNetCoreApp, "6.0", "net6.0", false},
		{"netcoreapp3.1", FamilyNetCoreApp, "3.1", "netcoreapp3.1", false},
		{".NETFramework,Version=v4.6.1", FamilyNetFramework, "4.6.1", "net461", false},
		{"any", entities.AnyFamily, "0.0", "any", false},
		{"", entities.AnyFamily, "0.0", "any", false},
		{"net6.0-windows", "", "", "", true},
		{"netstandard", "", "", "", true},
		{"foo1.0", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			fw, err := ParseFramework(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFramework(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if fw.Family != tt.family {
				t.Errorf("Family = %q, want %q", fw.Family, tt.family)
			}
			if fw.Version.String() != tt.version {
				t.Errorf("Version = %q, want %q", fw.Version.String(), tt.version)
			}
			if fw.String() != tt.short {
				t.Errorf("String() = %q, want %q", fw.String(), tt.short)
			}
		})
	}
}

func libGroup(tfm string, items ...string) entities.FrameworkGroup {
	return entities.FrameworkGroup{TargetFramework: MustParseFramework(tfm), Items: items}
}

func target(name string, constraints ...string) entities.TargetFramework {
	return entities.TargetFramework{Name: name, DefineConstraints: constraints, Framework: MustParseFramework(name)}
}

func TestClosestFrameworkGroups(t *testing.T) {
	groups := []entities.FrameworkGroup{
		libGroup("netstandard1.3", "lib/netstandard1.3/A.dll"),
		libGroup("netstandard1.6", "lib/netstandard1.6/A.dll"),
		libGroup("netstandard2.0", "lib/netstandard2.0/A.dll"),
		libGroup("netstandard2.1", "lib/netstandard2.1/A.dll"),
	}

	t.Run("exact version", func(t *testing.T) {
		got := ClosestFrameworkGroups(groups, []entities.TargetFramework{target("netstandard2.0")})
		if len(got) != 1 {
			t.Fatalf("got %d matches, want 1", len(got))
		}
		if got[0].Group.TargetFramework.String() != "netstandard2.0" {
			t.Errorf("selected %s, want netstandard2.0", got[0].Group.TargetFramework)
		}
	})

	t.Run("never above target", func(t *testing.T) {
		got := ClosestFrameworkGroups(groups[:2], []entities.TargetFramework{target("netstandard2.0"), target("netstandard2.1")})
		if len(got) != 2 {
			t.Fatalf("got %d matches, want 2", len(got))
		}
		for _, m := range got {
			if m.Group.TargetFramework.Version.Compare(m.Target.Framework.Version) > 0 {
				t.Errorf("group %s exceeds target %s", m.Group.TargetFramework, m.Target.Name)
			}
			if m.Group.TargetFramework.String() != "netstandard1.6" {
				t.Errorf("selected %s, want netstandard1.6", m.Group.TargetFramework)
			}
		}
	})

	t.Run("no compatible group omits target", func(t *testing.T) {
		got := ClosestFrameworkGroups([]entities.FrameworkGroup{libGroup("net48")}, []entities.TargetFramework{target("netstandard2.0")})
		if len(got) != 0 {
			t.Errorf("got %d matches, want 0", len(got))
		}
	})

	t.Run("per target selection", func(t *testing.T) {
		got := ClosestFrameworkGroups(groups, []entities.TargetFramework{target("netstandard2.1"), target("netstandard2.0")})
		if len(got) != 2 {
			t.Fatalf("got %d matches, want 2", len(got))
		}
		if got[0].Group.TargetFramework.String() != "netstandard2.1" || got[1].Group.TargetFramework.String() != "netstandard2.0" {
			t.Errorf("selected %s and %s", got[0].Group.TargetFramework, got[1].Group.TargetFramework)
		}
	})
}

func TestCompatibleDependencyGroups(t *testing.T) {
	anyGroup := entities.DependencyGroup{TargetFramework: entities.AnyFramework}
	ns20 := entities.DependencyGroup{TargetFramework: MustParseFramework("netstandard2.0")}
	net48 := entities.DependencyGroup{TargetFramework: MustParseFramework("net48")}

	tests := []struct {
		name       string
		groups     []entities.DependencyGroup
		targets    []entities.TargetFramework
		includeAny bool
		want       int
	}{
		{"any group without targets", []entities.DependencyGroup{anyGroup}, nil, true, 1},
		{"any group with targets", []entities.DependencyGroup{anyGroup}, []entities.TargetFramework{target("netstandard2.1")}, true, 1},
		{"any group excluded", []entities.DependencyGroup{anyGroup}, []entities.TargetFramework{target("netstandard2.1")}, false, 0},
		{"exact match only", []entities.DependencyGroup{ns20, net48}, []entities.TargetFramework{target("netstandard2.0")}, true, 1},
		{"lower version not exact", []entities.DependencyGroup{ns20}, []entities.TargetFramework{target("netstandard2.1")}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompatibleDependencyGroups(tt.groups, tt.targets, tt.includeAny)
			if len(got) != tt.want {
				t.Errorf("got %d groups, want %d", len(got), tt.want)
			}
		})
	}
}

func TestClosestDependencyGroup(t *testing.T) {
	groups := []entities.DependencyGroup{
		{TargetFramework: entities.AnyFramework, Dependencies: []entities.Dependency{{ID: "Any.Dep", Range: "1.0"}}},
		{TargetFramework: MustParseFramework("netstandard1.3"), Dependencies: []entities.Dependency{{ID: "Old.Dep", Range: "1.0"}}},
	}

	got, ok := ClosestDependencyGroup(groups, MustParseFramework("netstandard2.0"))
	if !ok || got.Dependencies[0].ID != "Old.Dep" {
		t.Errorf("ClosestDependencyGroup(netstandard2.0) = %+v, want netstandard1.3 group", got)
	}

	got, ok = ClosestDependencyGroup(groups, MustParseFramework("net48"))
	if !ok || got.Dependencies[0].ID != "Any.Dep" {
		t.Errorf("ClosestDependencyGroup(net48) = %+v, want any group", got)
	}

	if _, ok := ClosestDependencyGroup(groups[1:], MustParseFramework("net48")); ok {
		t.Error("ClosestDependencyGroup(net48) without any group should not match")
	}
}

func TestMinimumCompatibleIdentity(t *testing.T) {
	metas := []*entities.PackageMetadata{
		{
			Identity:         entities.PackageIdentity{ID: "Dep", Version: "1.0.0"},
			DependencyGroups: []entities.DependencyGroup{{TargetFramework: MustParseFramework("net45")}},
		},
		{
			Identity:         entities.PackageIdentity{ID: "Dep", Version: "1.1.0"},
			DependencyGroups: []entities.DependencyGroup{{TargetFramework: MustParseFramework("netstandard2.0")}},
		},
		{
			Identity: entities.PackageIdentity{ID: "Dep", Version: "1.2.0"},
		},
	}
	targets := []entities.TargetFramework{target("netstandard2.1"), target("netstandard2.0")}

	got, ok := MinimumCompatibleIdentity(metas, targets, true)
	if !ok || got.Version != "1.1.0" {
		t.Errorf("MinimumCompatibleIdentity() = %v, %v, want 1.1.0", got, ok)
	}

	got, ok = MinimumCompatibleIdentity(metas[2:], targets, true)
	if !ok || got.Version != "1.2.0" {
		t.Errorf("MinimumCompatibleIdentity() without groups = %v, %v, want 1.2.0", got, ok)
	}

	if _, ok := MinimumCompatibleIdentity(metas[:1], targets, true); ok {
		t.Error("MinimumCompatibleIdentity() should not find a net45 only package")
	}
}

func TestLowestTargetFramework(t *testing.T) {
	got, ok := LowestTargetFramework([]entities.TargetFramework{target("netstandard2.1"), target("netstandard2.0")})
	if !ok || got.Name != "netstandard2.0" {
		t.Errorf("LowestTargetFramework() = %v, want netstandard2.0", got.Name)
	}
	if _, ok := LowestTargetFramework(nil); ok {
		t.Error("LowestTargetFramework(nil) should report false")
	}
}
