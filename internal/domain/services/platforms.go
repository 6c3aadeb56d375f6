package services

import (
	"path"
)

// PlatformOS is the operating system half of a platform node.
type PlatformOS string

// PlatformCPU is the architecture half of a platform node.
type PlatformCPU string

// Supported operating systems
const (
	OSAny     PlatformOS = "AnyOS"
	OSWindows PlatformOS = "Windows"
	OSLinux   PlatformOS = "Linux"
	OSX       PlatformOS = "OSX"
	OSAndroid PlatformOS = "Android"
	OSWebGL   PlatformOS = "WebGL"
	OSiOS     PlatformOS = "iOS"
)

// Supported architectures
const (
	CPUAny    PlatformCPU = "AnyCPU"
	CPUX86    PlatformCPU = "x86"
	CPUX86_64 PlatformCPU = "x86_64" //nolint:revive // matches the Unity CPU name
	CPUARMv7  PlatformCPU = "ARMv7"
	CPUARM64  PlatformCPU = "ARM64"
)

// PlatformNode is one (OS, CPU) configuration of the platform tree.
// Children are ordered and owned by their parent; the parent link is set once at construction.
type PlatformNode struct {
	OS            PlatformOS
	CPU           PlatformCPU
	EditorCapable bool

	parent   *PlatformNode
	children []*PlatformNode
	depth    int
}

// Parent returns the parent node, nil for the root
func (n *PlatformNode) Parent() *PlatformNode { return n.parent }

// Children returns the ordered child nodes
func (n *PlatformNode) Children() []*PlatformNode { return n.children }

// Depth returns the distance from the root (0 = root)
func (n *PlatformNode) Depth() int { return n.depth }

func (n *PlatformNode) String() string {
	return string(n.OS) + "/" + string(n.CPU)
}

// IsAncestorOf reports whether n is other or one of its ancestors.
func (n *PlatformNode) IsAncestorOf(other *PlatformNode) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// SharesPath reports whether n and other lie on one path from the root.
func (n *PlatformNode) SharesPath(other *PlatformNode) bool {
	return n.IsAncestorOf(other) || other.IsAncestorOf(n)
}

// Descendants returns n and every node below it, depth first.
func (n *PlatformNode) Descendants() []*PlatformNode {
	out := []*PlatformNode{n}
	for _, c := range n.children {
		out = append(out, c.Descendants()...)
	}
	return out
}

// FilePath returns the destination of a file bound to this node:
// base/(os if depth>0)/(cpu if depth>1)/fileName.
func (n *PlatformNode) FilePath(base, fileName string) string {
	parts := []string{base}
	if n.depth > 0 {
		parts = append(parts, string(n.OS))
	}
	if n.depth > 1 {
		parts = append(parts, string(n.CPU))
	}
	parts = append(parts, fileName)
	return path.Join(parts...)
}

func (n *PlatformNode) add(os PlatformOS, cpu PlatformCPU, editor bool, children ...*PlatformNode) *PlatformNode {
	child := &PlatformNode{OS: os, CPU: cpu, EditorCapable: editor}
	child.attach(n)
	for _, c := range children {
		c.attach(child)
	}
	return child
}

func (n *PlatformNode) attach(parent *PlatformNode) {
	n.parent = parent
	parent.children = append(parent.children, n)
	n.setDepth(parent.depth + 1)
}

func (n *PlatformNode) setDepth(d int) {
	n.depth = d
	for _, c := range n.children {
		c.setDepth(d + 1)
	}
}

func leaf(os PlatformOS, cpu PlatformCPU, editor bool) *PlatformNode {
	return &PlatformNode{OS: os, CPU: cpu, EditorCapable: editor}
}

// PlatformTree is the fixed hierarchy of supported platforms. It is read-only after construction.
type PlatformTree struct {
	root *PlatformNode
}

// NewPlatformTree creates the platform tree
func NewPlatformTree() *PlatformTree {
	root := &PlatformNode{OS: OSAny, CPU: CPUAny, EditorCapable: true}
	root.add(OSWindows, CPUAny, true,
		leaf(OSWindows, CPUX86, false),
		leaf(OSWindows, CPUX86_64, true))
	root.add(OSLinux, CPUAny, true,
		leaf(OSLinux, CPUX86_64, true))
	root.add(OSX, CPUAny, true,
		leaf(OSX, CPUX86_64, true),
		leaf(OSX, CPUARM64, true))
	root.add(OSAndroid, CPUAny, false,
		leaf(OSAndroid, CPUARMv7, false),
		leaf(OSAndroid, CPUARM64, false),
		leaf(OSAndroid, CPUX86, false))
	root.add(OSWebGL, CPUAny, false)
	root.add(OSiOS, CPUAny, false)
	return &PlatformTree{root: root}
}

// Root returns the (AnyOS, AnyCPU) node
func (t *PlatformTree) Root() *PlatformNode { return t.root }

// FindOS returns the first node for os in root-first order, which is the most general one.
func (t *PlatformTree) FindOS(os PlatformOS) (*PlatformNode, bool) {
	for _, n := range t.root.Descendants() {
		if n.OS == os {
			return n, true
		}
	}
	return nil, false
}

// Find returns the node matching os and cpu exactly.
func (t *PlatformTree) Find(os PlatformOS, cpu PlatformCPU) (*PlatformNode, bool) {
	for _, n := range t.root.Descendants() {
		if n.OS == os && n.CPU == cpu {
			return n, true
		}
	}
	return nil, false
}

// FindEditorCapable returns the first editor capable node in root-first order.
func (t *PlatformTree) FindEditorCapable() (*PlatformNode, bool) {
	for _, n := range t.root.Descendants() {
		if n.EditorCapable {
			return n, true
		}
	}
	return nil, false
}

// RemainingPlatforms returns the minimal set of nodes covering every configuration that is
// neither in visited nor an ancestor of a visited node. Nodes are returned in tree order.
func (t *PlatformTree) RemainingPlatforms(visited map[*PlatformNode]bool) []*PlatformNode {
	var out []*PlatformNode
	var walk func(n *PlatformNode)
	walk = func(n *PlatformNode) {
		if visited[n] {
			return
		}
		for _, d := range n.Descendants() {
			if visited[d] {
				for _, c := range n.children {
					walk(c)
				}
				return
			}
		}
		out = append(out, n)
	}
	walk(t.root)
	return out
}
