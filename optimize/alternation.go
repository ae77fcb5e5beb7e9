package optimize

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/coregx/regexvm/bytecode"
	"github.com/coregx/regexvm/internal/conv"
)

// AppendAlternation compiles a list of alternative programs into target
// as a single alternation, choosing between two layouts:
//
// A sequential fork chain tries each alternative in order:
//
//	ForkJump A0
//	ForkJump A1
//	...
//	A(n-1) Jump END
//	...
//	A1 Jump END
//	A0 Jump END
//	END:
//
// A prefix trie merges alternatives sharing a common instruction
// prefix, so the shared prefix is matched once. The trie costs two
// extra words per unshared node, so it is only chosen when enough
// prefix is shared to pay for that, and only when collapsing prefixes
// cannot reorder alternatives whose matches overlap.
//
// Alternatives are consumed: their string tables are merged into target
// and their bytecode is mutated during compilation.
func AppendAlternation(target *bytecode.Program, alternatives ...*bytecode.Program) {
	if len(alternatives) == 0 {
		return
	}
	if len(alternatives) == 1 {
		target.AppendProgram(alternatives[0])
		return
	}

	allEmpty := true
	for _, alt := range alternatives {
		target.MergeStringsFrom(alt)
		if alt.Len() > 0 {
			allEmpty = false
		}
	}
	if allEmpty {
		return
	}

	c := newAlternationCompiler(target, alternatives)
	c.buildTrie()

	// Each unshared trie node pays two words of fork overhead; the
	// chain pays one trailing jump per alternative.
	treeCost := (c.totalNodes - c.commonHits) * 2
	chainCost := c.totalTreeWords + len(alternatives)*2

	if !c.trieKeepsDeclaredOrder() {
		treeCost = math.MaxInt
	}

	if c.commonHits == 0 || treeCost > chainCost {
		c.emitChain()
	} else {
		c.emitTrie()
	}
}

type qualifiedIP struct {
	alt int
	ip  int
}

// trieMeta records one (alternative, address) pair merged into a trie
// node, along with the statically interpreted first compare reachable
// from that address. The compare sets drive the declared-order check.
type trieMeta struct {
	ip           qualifiedIP
	firstCompare *interpretedCompares
}

type trieNode struct {
	// insn holds the node's instruction words; empty only for the root.
	insn     []bytecode.Word
	children []int
	byKey    map[string]int
	meta     []trieMeta
}

type alternationCompiler struct {
	target       *bytecode.Program
	alternatives []*bytecode.Program

	// incomingEdges[i] maps an address in alternative i to the raw
	// words of every jump instruction targeting it. Jump sources
	// distinguish otherwise identical instructions in the trie key.
	incomingEdges []map[int][][]bytecode.Word

	hasBackwardsJump bool

	nodes          []trieNode
	totalNodes     int
	commonHits     int
	totalTreeWords int
}

func newAlternationCompiler(target *bytecode.Program, alternatives []*bytecode.Program) *alternationCompiler {
	c := &alternationCompiler{
		target:        target,
		alternatives:  alternatives,
		incomingEdges: make([]map[int][][]bytecode.Word, len(alternatives)),
	}

	for i, alt := range alternatives {
		// The implicit fall-off-the-end of each alternative becomes an
		// explicit jump so the trie can merge and patch it like any
		// other instruction.
		alt.AppendJump(bytecode.OpJump, 0)

		edges := make(map[int][][]bytecode.Word)
		c.incomingEdges[i] = edges
		for ip := 0; ip < alt.Len(); {
			in := alt.InstAt(ip)
			if in.Op.HasJump() {
				words := alt.Words()[ip : ip+in.Size]
				edges[alt.JumpTarget(in)] = append(edges[alt.JumpTarget(in)], words)
				if in.Op.JumpIsBackward() || alt.Offset(in) < 0 {
					c.hasBackwardsJump = true
				}
			}
			ip += in.Size
		}
	}
	return c
}

// buildTrie inserts every instruction of every alternative, keyed on
// the instruction words plus the words of all jumps targeting it. Two
// instructions only share a node when both the instruction and its
// incoming jump edges are identical.
func (c *alternationCompiler) buildTrie() {
	c.nodes = []trieNode{{byKey: make(map[string]int)}}

	for i, alt := range c.alternatives {
		node := 0
		for ip := 0; ip < alt.Len(); {
			c.totalNodes++
			in := alt.InstAt(ip)
			insn := alt.Words()[ip : ip+in.Size]

			key := encodeKey(insn, c.incomingEdges[i][ip])
			child, ok := c.nodes[node].byKey[key]
			if !ok {
				child = len(c.nodes)
				c.nodes = append(c.nodes, trieNode{
					insn:  insn,
					byKey: make(map[string]int),
				})
				c.nodes[node].byKey[key] = child
				c.nodes[node].children = append(c.nodes[node].children, child)
			}

			if len(c.nodes[child].meta) == 0 {
				c.totalTreeWords += in.Size
			} else {
				c.commonHits++
			}
			c.nodes[child].meta = append(c.nodes[child].meta, trieMeta{
				ip:           qualifiedIP{alt: i, ip: ip},
				firstCompare: c.firstCompareFrom(alt, ip),
			})

			node = child
			ip += in.Size
		}
	}
}

// encodeKey packs an instruction and the jump instructions targeting it
// into one trie key. Including the incoming edges keeps instructions
// reached from different places in separate nodes.
func encodeKey(insn []bytecode.Word, edges [][]bytecode.Word) string {
	size := len(insn)
	for _, edge := range edges {
		size += len(edge)
	}
	buf := make([]byte, 0, size*8)
	for _, w := range insn {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(w))
	}
	for _, edge := range edges {
		for _, w := range edge {
			buf = binary.LittleEndian.AppendUint64(buf, uint64(w))
		}
	}
	return string(buf)
}

// firstCompareFrom interprets the first compare reachable from ip,
// looking through bookkeeping instructions. The result is empty when
// the next effectful instruction is not a compare or cannot be
// interpreted.
func (c *alternationCompiler) firstCompareFrom(alt *bytecode.Program, ip int) *interpretedCompares {
	compares := newInterpretedCompares()
	for ip < alt.Len() {
		in := alt.InstAt(ip)
		switch in.Op {
		case bytecode.OpCheckpoint, bytecode.OpSave,
			bytecode.OpSaveLeftCaptureGroup, bytecode.OpSaveRightCaptureGroup,
			bytecode.OpSaveRightNamedCaptureGroup:
			ip += in.Size
			continue
		case bytecode.OpCompare:
			interpretCompares(alt, alt.FlatPairs(in), compares, false)
		}
		break
	}
	return compares
}

// trieKeepsDeclaredOrder checks that walking the trie cannot try a
// later alternative before an earlier one, which would change which
// alternative wins. Children whose first compares cannot overlap are
// exempt, as their order is unobservable.
func (c *alternationCompiler) trieKeepsDeclaredOrder() bool {
	queue := []int{0}
	for len(queue) > 0 {
		node := &c.nodes[queue[0]]
		queue = queue[1:]
		queue = append(queue, node.children...)

		if len(node.children) <= 1 {
			continue
		}

		maxIndex := 0
		var withMaxIndex *trieMeta
		for _, childID := range node.children {
			child := &c.nodes[childID]
			for j := range child.meta {
				entry := &child.meta[j]
				if maxIndex > entry.ip.alt {
					if !hasOverlapSets(withMaxIndex.firstCompare, entry.firstCompare) {
						continue
					}
					return false
				}
				maxIndex = entry.ip.alt
				withMaxIndex = entry
			}
		}
	}
	return true
}

// emitChain lays the alternatives out sequentially. The fork chain at
// the head tries A0 first; each alternative ends with a jump to the
// shared end label. An alternative that begins with CheckBegin gets a
// conditional fork so positions not at a line start skip it without
// spawning a thread.
func (c *alternationCompiler) emitChain() {
	target := c.target
	n := len(c.alternatives)

	forkConditions := make([]bytecode.ForkIfCondition, n)
	for i, alt := range c.alternatives {
		forkConditions[i] = bytecode.ForkIfInvalid
		if alt.Len() > 0 && alt.InstAt(0).Op == bytecode.OpCheckBegin {
			forkConditions[i] = bytecode.ForkIfAtStartOfLine
		}
	}

	forkAt := make([]int, n-1)
	forkSize := make([]int, n-1)
	for i := 1; i < n; i++ {
		forkAt[i-1] = target.Len()
		if forkConditions[i-1] != bytecode.ForkIfInvalid {
			forkSize[i-1] = 4
			target.Append(
				bytecode.Word(bytecode.OpForkIf), 0,
				bytecode.Word(bytecode.OpForkJump),
				bytecode.Word(forkConditions[i-1]))
		} else {
			forkSize[i-1] = 2
			target.Append(bytecode.Word(bytecode.OpForkJump), 0)
		}
	}

	seenOneEmpty := false
	jumpToEnd := make([]int, n)
	for i := range jumpToEnd {
		jumpToEnd[i] = -1
	}

	for i := n - 1; i >= 0; i-- {
		chunk := c.alternatives[i]
		if chunk.Len() == 0 {
			if seenOneEmpty {
				continue
			}
			seenOneEmpty = true
		}

		if i < n-1 {
			start := target.Len()
			target.SetWord(forkAt[i]+1, bytecode.Word(conv.OffsetToWord(start-forkAt[i]-forkSize[i])))
		}

		target.Append(chunk.Words()...)
		target.Append(bytecode.Word(bytecode.OpJump), 0)
		jumpToEnd[i] = target.Len() - 1
	}

	end := target.Len()
	for _, at := range jumpToEnd {
		if at >= 0 {
			target.SetWord(at, bytecode.Word(conv.OffsetToWord(end-at-1)))
		}
	}
}

// emitTrie lays out the trie depth-first. Each node emits its
// instruction followed by one ForkJump per child; nodes with several
// merged addresses re-expand their jump into per-alternative forks so
// every original jump still reaches its own target. Forward jumps
// become patch entries resolved when the target node is emitted;
// backward jumps resolve immediately through the per-alternative
// address maps.
func (c *alternationCompiler) emitTrie() {
	target := c.target

	type patch struct {
		source    qualifiedIP
		at        int
		sizeDelta int
		done      bool
	}
	var patches []patch

	var addressMaps []map[int]int
	if c.hasBackwardsJump {
		addressMaps = make([]map[int]int, len(c.alternatives))
		for i := range addressMaps {
			addressMaps[i] = make(map[int]int)
		}
	}

	nodeIs := func(node *trieNode, ip qualifiedIP) bool {
		for _, entry := range node.meta {
			if entry.ip == ip {
				return true
			}
		}
		return false
	}

	stack := []int{0}
	for len(stack) > 0 {
		node := &c.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		for i := range patches {
			p := &patches[i]
			if !p.done && nodeIs(node, p.source) {
				value := target.Len() - p.at - 1 - p.sizeDelta
				if value == 0 {
					// A fork to the very next instruction spawns a
					// useless thread; degrade it to a plain jump.
					target.SetWord(p.at-1, bytecode.Word(bytecode.OpJump))
				}
				target.SetWord(p.at, bytecode.Word(conv.OffsetToWord(value)))
				p.done = true
			}
		}

		if len(node.insn) > 0 {
			insnStart := target.Len()
			target.Append(node.insn...)

			if c.hasBackwardsJump {
				for _, entry := range node.meta {
					addressMaps[entry.ip.alt][entry.ip.ip] = insnStart
				}
			}

			in := target.InstAt(insnStart)
			if in.Op.HasJump() {
				var jumpOffset int
				shouldNegate := false
				if in.Op.JumpIsBackward() {
					jumpOffset = -target.Offset(in) - in.Size
					shouldNegate = true
				} else {
					jumpOffset = target.Offset(in)
				}

				patchAt := insnStart + 1
				sizeDelta := in.Size - 2
				patchSize := in.Size - 1
				onlyOne := len(node.meta) == 1
				if !onlyOne {
					// Merged jumps fan out below; the original
					// instruction falls through.
					target.SetWord(patchAt, 0)
				}

				for _, entry := range node.meta {
					if !onlyOne {
						target.Append(bytecode.Word(bytecode.OpForkJump))
						patchAt = target.Len()
						shouldNegate = false
						patchSize = 1
						target.Append(0)
					}

					intended := entry.ip.ip + jumpOffset + in.Size
					if jumpOffset < 0 {
						newTarget, ok := addressMaps[entry.ip.alt][intended]
						if !ok {
							panic(fmt.Sprintf(
								"optimize: alternation trie: unresolved backward jump %d@%d -> %d\n%s",
								entry.ip.ip, entry.ip.alt, intended,
								bytecode.Dump(c.alternatives[entry.ip.alt])))
						}
						value := newTarget - patchAt - patchSize
						if shouldNegate {
							value = -value - in.Size
						}
						target.SetWord(patchAt, bytecode.Word(conv.OffsetToWord(value)))
					} else {
						patches = append(patches, patch{
							source:    qualifiedIP{alt: entry.ip.alt, ip: intended},
							at:        patchAt,
							sizeDelta: sizeDelta,
						})
					}
				}
			}
		}

		for _, childID := range node.children {
			child := &c.nodes[childID]
			target.Append(bytecode.Word(bytecode.OpForkJump))
			if len(child.meta) > 0 {
				patches = append(patches, patch{source: child.meta[0].ip, at: target.Len()})
			}
			target.Append(0)
			stack = append(stack, childID)
		}
	}

	for _, p := range patches {
		if p.done {
			continue
		}
		if p.source.ip >= c.alternatives[p.source.alt].Len() {
			// A jump past the end of its alternative means "jump to
			// the end of the alternation".
			target.SetWord(p.at, bytecode.Word(conv.OffsetToWord(target.Len()-p.at-1)))
			continue
		}
		panic(fmt.Sprintf("optimize: alternation trie: unpatched jump %d@%d\n%s",
			p.source.ip, p.source.alt, bytecode.Dump(target)))
	}
}
