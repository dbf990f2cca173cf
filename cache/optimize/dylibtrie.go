package optimize

import "sort"

// DylibTrie maps every install-name, every aliased path, and (on macOS)
// every intermediate Current->A alias to a dense dylib index. It is a
// distinct structure from pkg/trie's export-trie decoder (which reads an
// existing on-disk export trie keyed by symbol name); this one is built
// fresh from whatever paths the registry and alias table contribute, and
// is only ever written, never read back by this builder.
type DylibTrie struct {
	paths map[string]int32
	order []string
}

// NewDylibTrie returns an empty trie.
func NewDylibTrie() *DylibTrie {
	return &DylibTrie{paths: map[string]int32{}}
}

// Add registers path as resolving to dylibIndex. Re-adding the same path
// with a different index overwrites the earlier mapping (callers are
// expected to only do this for genuine aliases of the same dylib).
func (t *DylibTrie) Add(path string, dylibIndex int32) {
	if _, ok := t.paths[path]; !ok {
		t.order = append(t.order, path)
	}
	t.paths[path] = dylibIndex
}

// Lookup reports the dylib index path was registered under, if any.
func (t *DylibTrie) Lookup(path string) (int32, bool) {
	v, ok := t.paths[path]
	return v, ok
}

// Len reports how many distinct paths are registered.
func (t *DylibTrie) Len() int { return len(t.order) }

// radixNode is one node of the intermediate radix tree built from the
// sorted path set before serialization; edges are kept sorted so two
// builds over the same path set always produce byte-identical output.
type radixNode struct {
	terminal bool
	index    int32
	edges    []radixEdge
	offset   uint32
}

type radixEdge struct {
	label string
	child *radixNode
}

// Bytes serializes the trie to its on-disk form: for each node, a
// uleb128 terminal-payload size (0 for a non-terminal node, else the
// byte length of the uleb128-encoded dylib index that follows), then a
// uint8 child count, then for each child (lexicographically sorted) the
// NUL-terminated edge string followed by a uleb128 absolute offset to
// the child node. The whole buffer is padded with zero bytes to an
// 8-byte boundary.
func (t *DylibTrie) Bytes() []byte {
	paths := append([]string(nil), t.order...)
	sort.Strings(paths)

	root := &radixNode{}
	for _, p := range paths {
		insert(root, p, t.paths[p])
	}

	nodes := flatten(root)
	// Fixed-point offset assignment: node byte sizes depend on the
	// uleb128 encoding of downstream offsets, which in turn depend on
	// sizes, so iterate until offsets stop moving (standard radix-trie
	// serialization technique).
	for {
		offset := uint32(0)
		changed := false
		for _, n := range nodes {
			if n.offset != offset {
				changed = true
			}
			n.offset = offset
			offset += nodeSize(n)
		}
		if !changed {
			break
		}
	}

	buf := make([]byte, 0, nodeSize(root)*uint32(len(nodes)))
	for _, n := range nodes {
		buf = appendNode(buf, n)
	}
	for len(buf)%8 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

func insert(n *radixNode, path string, index int32) {
	for _, e := range n.edges {
		cp := commonPrefixLen(e.label, path)
		if cp == 0 {
			continue
		}
		if cp == len(e.label) {
			if cp == len(path) {
				e.child.terminal = true
				e.child.index = index
				return
			}
			insert(e.child, path[cp:], index)
			return
		}
		// Split the existing edge at the common prefix.
		mid := &radixNode{edges: []radixEdge{{label: e.label[cp:], child: e.child}}}
		e.label = e.label[:cp]
		e.child = mid
		if cp == len(path) {
			mid.terminal = true
			mid.index = index
		} else {
			insert(mid, path[cp:], index)
		}
		return
	}
	n.edges = append(n.edges, radixEdge{label: path, child: &radixNode{terminal: true, index: index}})
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// flatten returns every node reachable from root in a deterministic
// pre-order (root first, then each edge's subtree in sorted label order)
// so offset assignment is stable across builds.
func flatten(root *radixNode) []*radixNode {
	sort.Slice(root.edges, func(i, j int) bool { return root.edges[i].label < root.edges[j].label })
	out := []*radixNode{root}
	for _, e := range root.edges {
		out = append(out, flatten(e.child)...)
	}
	return out
}

func nodeSize(n *radixNode) uint32 {
	size := uint32(0)
	if n.terminal {
		payload := uleb128(uint64(n.index))
		size += uleb128Size(uint64(len(payload)))
		size += uint32(len(payload))
	} else {
		size += uleb128Size(0)
	}
	size++ // child count byte
	for _, e := range n.edges {
		size += uint32(len(e.label)) + 1 // edge string + NUL
		size += uleb128Size(uint64(e.child.offset))
	}
	return size
}

func appendNode(buf []byte, n *radixNode) []byte {
	if n.terminal {
		payload := uleb128(uint64(n.index))
		buf = append(buf, uleb128(uint64(len(payload)))...)
		buf = append(buf, payload...)
	} else {
		buf = append(buf, uleb128(0)...)
	}
	buf = append(buf, uint8(len(n.edges)))
	for _, e := range n.edges {
		buf = append(buf, []byte(e.label)...)
		buf = append(buf, 0)
		buf = append(buf, uleb128(uint64(e.child.offset))...)
	}
	return buf
}

// uleb128 encodes v as an unsigned LEB128 byte sequence.
func uleb128(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

// uleb128Size reports the encoded length of v without allocating.
func uleb128Size(v uint64) uint32 {
	n := uint32(1)
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}
