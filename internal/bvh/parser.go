package bvh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/mocapd/internal/skeleton"
)

// Parse reads a complete BVH document: the HIERARCHY section into a joint
// tree, then the MOTION section into per-channel sample curves. The whole
// input is consumed in one pass; the first malformed line aborts the parse
// and no partial document is ever returned.
func Parse(r io.Reader) (*skeleton.Document, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	p := &parser{lines: lines}

	root, err := p.parseHierarchy()
	if err != nil {
		return nil, err
	}
	doc := &skeleton.Document{Root: root}
	if err := p.parseMotion(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

type sourceLine struct {
	no   int // 1-based position in the input
	text string
}

type parser struct {
	lines []sourceLine
	pos   int
}

// readLines loads the whole input, dropping blank and whitespace-only lines.
// BVH exporters indent freely and pad with empty lines; the grammar only
// cares about token content.
func readLines(r io.Reader) ([]sourceLine, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var lines []sourceLine
	no := 0
	for scanner.Scan() {
		no++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		lines = append(lines, sourceLine{no: no, text: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// next consumes and returns the next line. ok is false at end of input.
func (p *parser) next() (sourceLine, bool) {
	if p.pos >= len(p.lines) {
		return sourceLine{}, false
	}
	ln := p.lines[p.pos]
	p.pos++
	return ln, true
}

// peek returns the next line without consuming it.
func (p *parser) peek() (sourceLine, bool) {
	if p.pos >= len(p.lines) {
		return sourceLine{}, false
	}
	return p.lines[p.pos], true
}

func (p *parser) errf(kind Kind, ln sourceLine, depth int, format string, args ...any) *ParseError {
	return &ParseError{
		Kind:   kind,
		Msg:    fmt.Sprintf(format, args...),
		Line:   ln.text,
		LineNo: ln.no,
		Depth:  depth,
	}
}

func (p *parser) parseHierarchy() (*skeleton.Node, error) {
	ln, ok := p.next()
	if !ok || ln.text != "HIERARCHY" {
		return nil, p.errf(KindStructural, ln, 0, "expected HIERARCHY")
	}
	// End Site at depth 0 is rejected inside parseNode, so the root is
	// always a joint.
	root, _, err := p.parseNode(0)
	if err != nil {
		return nil, err
	}
	return root, nil
}

// parseNode consumes one ROOT / JOINT / End Site block, recursing into child
// blocks until the closing brace. End Sites are returned with isEnd set so
// the caller can record the marker without linking it as a child joint.
func (p *parser) parseNode(depth int) (node *skeleton.Node, isEnd bool, err error) {
	header, ok := p.next()
	if !ok {
		return nil, false, p.errf(KindStructural, header, depth, "unexpected end of input, expected a node block")
	}
	fields := strings.Fields(header.text)
	if len(fields) != 2 {
		return nil, false, p.errf(KindGrammar, header, depth, "node header has %d tokens, want 2", len(fields))
	}

	keyword, name := fields[0], fields[1]
	switch keyword {
	case "ROOT":
		if depth != 0 {
			return nil, false, p.errf(KindStructural, header, depth, "nested ROOT")
		}
		node = &skeleton.Node{Name: name}
	case "JOINT":
		if depth == 0 {
			return nil, false, p.errf(KindStructural, header, depth, "JOINT at top level, expected ROOT")
		}
		node = &skeleton.Node{Name: name}
	case "End":
		if name != "Site" {
			return nil, false, p.errf(KindGrammar, header, depth, "unknown block type %q", keyword+" "+name)
		}
		if depth == 0 {
			return nil, false, p.errf(KindStructural, header, depth, "End Site at top level")
		}
		node = &skeleton.Node{}
		isEnd = true
	default:
		return nil, false, p.errf(KindGrammar, header, depth, "unknown block type %q", keyword)
	}

	brace, ok := p.next()
	if !ok || brace.text != "{" {
		return nil, false, p.errf(KindGrammar, brace, depth, "expected { after %s", keyword)
	}

	offset, err := p.parseOffset(depth)
	if err != nil {
		return nil, false, err
	}
	node.Offset = offset

	if !isEnd {
		channels, err := p.parseChannels(depth)
		if err != nil {
			return nil, false, err
		}
		node.Channels = channels
	}

	for {
		ln, ok := p.peek()
		if !ok {
			return nil, false, p.errf(KindStructural, sourceLine{}, depth, "unexpected end of input, expected }")
		}
		if ln.text == "}" {
			p.next()
			return node, isEnd, nil
		}
		child, childEnd, err := p.parseNode(depth + 1)
		if err != nil {
			return nil, false, err
		}
		if childEnd {
			node.EndSites = append(node.EndSites, skeleton.EndSite{Offset: child.Offset})
		} else {
			node.Children = append(node.Children, child)
		}
	}
}

func (p *parser) parseOffset(depth int) ([3]float64, error) {
	var offset [3]float64
	ln, ok := p.next()
	if !ok {
		return offset, p.errf(KindStructural, ln, depth, "unexpected end of input, expected OFFSET")
	}
	fields := strings.Fields(ln.text)
	if len(fields) != 4 || fields[0] != "OFFSET" {
		return offset, p.errf(KindGrammar, ln, depth, "expected OFFSET with 3 values, got %d tokens", len(fields))
	}
	for i, tok := range fields[1:] {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return offset, p.errf(KindNumeric, ln, depth, "offset value %q is not a number", tok)
		}
		offset[i] = v
	}
	return offset, nil
}

// parseChannels reads a CHANNELS line: the keyword, a declared count, then
// exactly that many canonical channel names, order preserved.
func (p *parser) parseChannels(depth int) ([]skeleton.ChannelKind, error) {
	ln, ok := p.next()
	if !ok {
		return nil, p.errf(KindStructural, ln, depth, "unexpected end of input, expected CHANNELS")
	}
	fields := strings.Fields(ln.text)
	if len(fields) < 2 || fields[0] != "CHANNELS" {
		return nil, p.errf(KindGrammar, ln, depth, "expected CHANNELS line")
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 {
		return nil, p.errf(KindNumeric, ln, depth, "channel count %q is not a non-negative integer", fields[1])
	}
	if len(fields) != n+2 {
		return nil, p.errf(KindChannelCount, ln, depth, "declared %d channels, got %d names", n, len(fields)-2)
	}
	channels := make([]skeleton.ChannelKind, 0, n)
	for _, tok := range fields[2:] {
		kind, ok := skeleton.ParseChannelKind(tok)
		if !ok {
			return nil, p.errf(KindUnknownChannel, ln, depth, "unknown channel name %q", tok)
		}
		channels = append(channels, kind)
	}
	return channels, nil
}
