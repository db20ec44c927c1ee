package cache

import "strings"

// SegmentSeparator joins the segments of a composite key.
const SegmentSeparator = ","

// SegmentKind tells how a segment was produced.
type SegmentKind uint8

const (
	// LiteralSegment is the literal encoding of a primitive value.
	LiteralSegment SegmentKind = iota
	// ReferenceSegment is a "{n}" token standing for one reference identity.
	ReferenceSegment
	// CompositeSegment is the structural rendering of a struct or array. It
	// may embed reference tokens for the pointers, maps, slices and channels
	// it holds.
	CompositeSegment
)

func (k SegmentKind) String() string {
	switch k {
	case LiteralSegment:
		return "literal"
	case ReferenceSegment:
		return "reference"
	case CompositeSegment:
		return "composite"
	default:
		return "unknown"
	}
}

// Segment is one serialized argument.
type Segment struct {
	Kind SegmentKind
	Text string
}

func (s Segment) String() string { return s.Text }

// JoinSegments builds the composite key for an ordered list of segments.
func JoinSegments(segments []Segment) Key {
	switch len(segments) {
	case 0:
		return ""
	case 1:
		return Key(segments[0].Text)
	}
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString(SegmentSeparator)
		}
		b.WriteString(seg.Text)
	}
	return Key(b.String())
}

func literal(text string) Segment {
	return Segment{Kind: LiteralSegment, Text: text}
}
