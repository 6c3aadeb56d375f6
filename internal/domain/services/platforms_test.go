package services

import (
	"testing"
)

func TestPlatformTreeFind(t *testing.T) {
	tree := NewPlatformTree()

	tests := []struct {
		name  string
		os    PlatformOS
		cpu   PlatformCPU
		found bool
		depth int
	}{
		{"root", OSAny, CPUAny, true, 0},
		{"windows generic", OSWindows, CPUAny, true, 1},
		{"windows x64", OSWindows, CPUX86_64, true, 2},
		{"osx arm64", OSX, CPUARM64, true, 2},
		{"android armv7", OSAndroid, CPUARMv7, true, 2},
		{"android x86_64 absent", OSAndroid, CPUX86_64, false, 0},
		{"ios arm64 absent", OSiOS, CPUARM64, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, ok := tree.Find(tt.os, tt.cpu)
			if ok != tt.found {
				t.Fatalf("Find(%s, %s) found = %v, want %v", tt.os, tt.cpu, ok, tt.found)
			}
			if !ok {
				return
			}
			if node.OS != tt.os || node.CPU != tt.cpu {
				t.Errorf("Find(%s, %s) = %s", tt.os, tt.cpu, node)
			}
			if node.Depth() != tt.depth {
				t.Errorf("Depth() = %d, want %d", node.Depth(), tt.depth)
			}
			again, _ := tree.Find(tt.os, tt.cpu)
			if again != node {
				t.Error("Find() is not deterministic")
			}
		})
	}
}

func TestPlatformTreeFindOS(t *testing.T) {
	tree := NewPlatformTree()

	node, ok := tree.FindOS(OSAndroid)
	if !ok {
		t.Fatal("FindOS(Android) not found")
	}
	if node.CPU != CPUAny || node.Depth() != 1 {
		t.Errorf("FindOS(Android) = %s at depth %d, want the generic node", node, node.Depth())
	}

	if _, ok := tree.FindOS(PlatformOS("Solaris")); ok {
		t.Error("FindOS(Solaris) should not be found")
	}
}

func TestPlatformTreeFindEditorCapable(t *testing.T) {
	tree := NewPlatformTree()
	node, ok := tree.FindEditorCapable()
	if !ok || node != tree.Root() {
		t.Errorf("FindEditorCapable() = %v, want root", node)
	}

	x86, _ := tree.Find(OSWindows, CPUX86)
	if x86.EditorCapable {
		t.Error("Windows/x86 must not be editor capable")
	}
	webgl, _ := tree.FindOS(OSWebGL)
	if webgl.EditorCapable {
		t.Error("WebGL must not be editor capable")
	}
}

func TestPlatformNodeFilePath(t *testing.T) {
	tree := NewPlatformTree()
	winX64, _ := tree.Find(OSWindows, CPUX86_64)
	linux, _ := tree.FindOS(OSLinux)

	tests := []struct {
		node *PlatformNode
		want string
	}{
		{tree.Root(), "lib/Sample.dll"},
		{linux, "lib/Linux/Sample.dll"},
		{winX64, "lib/Windows/x86_64/Sample.dll"},
	}
	for _, tt := range tests {
		if got := tt.node.FilePath("lib", "Sample.dll"); got != tt.want {
			t.Errorf("FilePath(%s) = %q, want %q", tt.node, got, tt.want)
		}
	}
}

func TestRemainingPlatforms(t *testing.T) {
	tree := NewPlatformTree()
	winX64, _ := tree.Find(OSWindows, CPUX86_64)
	linuxX64, _ := tree.Find(OSLinux, CPUX86_64)
	osxArm, _ := tree.Find(OSX, CPUARM64)
	android, _ := tree.FindOS(OSAndroid)

	tests := []struct {
		name    string
		visited []*PlatformNode
		want    []string
	}{
		{
			name:    "nothing visited",
			visited: nil,
			want:    []string{"AnyOS/AnyCPU"},
		},
		{
			name:    "root visited",
			visited: []*PlatformNode{tree.Root()},
			want:    nil,
		},
		{
			name:    "windows x64",
			visited: []*PlatformNode{winX64},
			want: []string{
				"Windows/x86", "Linux/AnyCPU", "OSX/AnyCPU", "Android/AnyCPU", "WebGL/AnyCPU", "iOS/AnyCPU",
			},
		},
		{
			name:    "desktop runtimes",
			visited: []*PlatformNode{winX64, linuxX64, osxArm, android},
			want: []string{
				"Windows/x86", "OSX/x86_64", "WebGL/AnyCPU", "iOS/AnyCPU",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			visited := make(map[*PlatformNode]bool)
			for _, v := range tt.visited {
				visited[v] = true
			}
			got := tree.RemainingPlatforms(visited)
			if len(got) != len(tt.want) {
				t.Fatalf("RemainingPlatforms() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i].String() != tt.want[i] {
					t.Errorf("RemainingPlatforms()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
			assertExactCover(t, tree, visited, got)
		})
	}
}

func TestRemainingPlatformsCoverAllSubsets(t *testing.T) {
	tree := NewPlatformTree()
	nodes := tree.Root().Descendants()

	// every subset of up to two visited nodes
	for i := -1; i < len(nodes); i++ {
		for j := i; j < len(nodes); j++ {
			visited := make(map[*PlatformNode]bool)
			if i >= 0 {
				visited[nodes[i]] = true
			}
			if j >= 0 {
				visited[nodes[j]] = true
			}
			assertExactCover(t, tree, visited, tree.RemainingPlatforms(visited))
		}
	}
}

// assertExactCover checks that remaining descendants are pairwise disjoint and cover every node
// that is neither visited, below a visited node, nor an ancestor of a visited node.
func assertExactCover(t *testing.T, tree *PlatformTree, visited map[*PlatformNode]bool, remaining []*PlatformNode) {
	t.Helper()

	covered := make(map[*PlatformNode]int)
	for _, r := range remaining {
		for _, d := range r.Descendants() {
			covered[d]++
		}
	}

	for _, n := range tree.Root().Descendants() {
		excluded := false
		for v := range visited {
			if n.SharesPath(v) {
				excluded = true
				break
			}
		}
		switch {
		case excluded && covered[n] > 0:
			t.Errorf("node %s covered but excluded by visited set", n)
		case !excluded && covered[n] != 1:
			t.Errorf("node %s covered %d times, want 1", n, covered[n])
		}
	}
}
