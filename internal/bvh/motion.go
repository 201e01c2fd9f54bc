package bvh

import (
	"strconv"
	"strings"

	"github.com/dgallion1/mocapd/internal/skeleton"
)

// parseMotion reads the MOTION section into doc. The hierarchy must already
// be parsed: its depth-first channel total fixes both the number of curves
// and the expected width of every frame row.
func (p *parser) parseMotion(doc *skeleton.Document) error {
	ln, ok := p.next()
	if !ok || ln.text != "MOTION" {
		return p.errf(KindStructural, ln, 0, "expected MOTION")
	}

	frames, err := p.parseMotionKey("Frames")
	if err != nil {
		return err
	}
	frameCount, perr := strconv.Atoi(frames.value)
	if perr != nil || frameCount < 0 {
		return p.errf(KindNumeric, frames.line, 0, "frame count %q is not a non-negative integer", frames.value)
	}

	ft, err := p.parseMotionKey("Frame Time")
	if err != nil {
		return err
	}
	frameTime, perr := strconv.ParseFloat(ft.value, 64)
	if perr != nil {
		return p.errf(KindNumeric, ft.line, 0, "frame time %q is not a number", ft.value)
	}

	total := doc.Root.TotalChannels()
	curves := make([]skeleton.Curve, 0, total)
	for node := range doc.Root.All() {
		for _, kind := range node.Channels {
			curves = append(curves, skeleton.Curve{
				Joint:   node.Name,
				Kind:    kind,
				Samples: make([]float64, frameCount),
			})
		}
	}

	for frame := 0; frame < frameCount; frame++ {
		row, ok := p.next()
		if !ok {
			return p.errf(KindFrameCount, sourceLine{}, 0, "input ended at frame %d of %d", frame, frameCount)
		}
		fields := strings.Fields(row.text)
		if len(fields) != total {
			return p.errf(KindFrameCount, row, 0, "frame %d has %d values, want %d", frame, len(fields), total)
		}
		for i, tok := range fields {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return p.errf(KindNumeric, row, 0, "frame %d value %q is not a number", frame, tok)
			}
			curves[i].Samples[frame] = v
		}
	}

	doc.FrameCount = frameCount
	doc.FrameTime = frameTime
	doc.Curves = curves
	return nil
}

type motionKey struct {
	line  sourceLine
	value string
}

// parseMotionKey reads a "<key>: <value>" line; the key may contain a space
// (Frame Time), so the line is split on the first colon rather than on
// whitespace.
func (p *parser) parseMotionKey(key string) (motionKey, error) {
	ln, ok := p.next()
	if !ok {
		return motionKey{}, p.errf(KindStructural, ln, 0, "unexpected end of input, expected %s:", key)
	}
	k, v, found := strings.Cut(ln.text, ":")
	if !found || strings.TrimSpace(k) != key {
		return motionKey{}, p.errf(KindStructural, ln, 0, "expected %s:", key)
	}
	return motionKey{line: ln, value: strings.TrimSpace(v)}, nil
}
