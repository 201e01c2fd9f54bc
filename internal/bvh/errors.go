package bvh

import (
	"errors"
	"fmt"
)

// Kind classifies a parse failure.
type Kind int

const (
	// KindStructural: a required section marker is missing or out of order
	// (HIERARCHY, MOTION, Frames, Frame Time, braces, nesting-level rules).
	KindStructural Kind = iota + 1
	// KindGrammar: a line has the wrong token shape or an unknown keyword.
	KindGrammar
	// KindChannelCount: a CHANNELS line declares more or fewer names than
	// its count.
	KindChannelCount
	// KindUnknownChannel: a channel name is not one of the six canonical
	// spellings.
	KindUnknownChannel
	// KindFrameCount: a frame row does not hold exactly one value per
	// channel.
	KindFrameCount
	// KindNumeric: a token expected to be numeric failed to parse.
	KindNumeric
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindGrammar:
		return "grammar"
	case KindChannelCount:
		return "channel count"
	case KindUnknownChannel:
		return "unknown channel"
	case KindFrameCount:
		return "frame data count"
	case KindNumeric:
		return "numeric parse"
	}
	return "unknown"
}

// ParseError is the single error type returned by the parser. It carries the
// offending raw line and its position so callers can produce an actionable
// diagnostic; the parser itself never logs.
type ParseError struct {
	Kind   Kind
	Msg    string
	Line   string // raw offending line, empty at end of input
	LineNo int    // 1-based, 0 at end of input
	Depth  int    // nesting level where the failure occurred
}

func (e *ParseError) Error() string {
	if e.LineNo == 0 {
		return fmt.Sprintf("bvh: %s error: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("bvh: %s error at line %d: %s (%q)", e.Kind, e.LineNo, e.Msg, e.Line)
}

// IsKind reports whether err is a ParseError of the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Kind == kind
}
