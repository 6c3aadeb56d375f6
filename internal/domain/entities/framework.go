package entities

import "fmt"

// AnyFamily is the framework family of dependency groups that apply to every framework.
const AnyFamily = "Any"

// FrameworkVersion represents a framework version number.
type FrameworkVersion struct {
	Major    int
	Minor    int
	Build    int
	Revision int
}

// Compare returns -1 if v < other, 0 if equal, 1 if v > other.
func (v FrameworkVersion) Compare(other FrameworkVersion) int {
	a := [4]int{v.Major, v.Minor, v.Build, v.Revision}
	b := [4]int{other.Major, other.Minor, other.Build, other.Revision}
	for i := range a {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

// String trims trailing zero components: 2.0.0.0 -> "2.0", 4.7.2.0 -> "4.7.2".
func (v FrameworkVersion) String() string {
	if v.Revision > 0 {
		return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
	}
	if v.Build > 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Framework is a parsed target framework moniker.
type Framework struct {
	// Family is the framework identifier (".NETStandard", ".NETCoreApp", ".NETFramework" or AnyFamily)
	Family  string
	Version FrameworkVersion
}

// AnyFramework matches every target framework.
var AnyFramework = Framework{Family: AnyFamily}

// IsAny reports whether f is the universal framework marker.
func (f Framework) IsAny() bool {
	return f.Family == AnyFamily
}

// Equal reports whether both frameworks have the same family and version.
func (f Framework) Equal(other Framework) bool {
	return f.Family == other.Family && f.Version.Compare(other.Version) == 0
}

// String returns the short folder name (netstandard2.0, net48, net6.0, any).
func (f Framework) String() string {
	switch f.Family {
	case AnyFamily:
		return "any"
	case ".NETStandard":
		return "netstandard" + f.Version.String()
	case ".NETCoreApp":
		if f.Version.Major >= 5 {
			return "net" + f.Version.String()
		}
		return "netcoreapp" + f.Version.String()
	case ".NETFramework":
		s := fmt.Sprintf("net%d%d", f.Version.Major, f.Version.Minor)
		if f.Version.Build > 0 {
			s += fmt.Sprintf("%d", f.Version.Build)
		}
		return s
	default:
		return f.Family + f.Version.String()
	}
}

// TargetFramework is one runtime compatibility configuration the output declares support for.
type TargetFramework struct {
	Name              string
	DefineConstraints []string
	Framework         Framework
}
