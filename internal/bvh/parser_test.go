package bvh

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/dgallion1/mocapd/internal/skeleton"
)

const validBVH = `HIERARCHY
ROOT Hips
{
  OFFSET 0.0 0.0 0.0
  CHANNELS 6 Xposition Yposition Zposition Zrotation Xrotation Yrotation
  JOINT Spine
  {
    OFFSET 0.0 5.21 0.0
    CHANNELS 3 Zrotation Xrotation Yrotation
    End Site
    {
      OFFSET 0.0 3.1 0.0
    }
  }
}
MOTION
Frames: 2
Frame Time: 0.0333333
1.0 2.0 3.0 4.0 5.0 6.0 7.0 8.0 9.0
1.1 2.1 3.1 4.1 5.1 6.1 7.1 8.1 9.1
`

func TestParse_ValidDocument(t *testing.T) {
	doc, err := Parse(strings.NewReader(validBVH))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Root.Name != "Hips" {
		t.Errorf("expected root %q, got %q", "Hips", doc.Root.Name)
	}
	if doc.JointCount() != 2 {
		t.Errorf("expected 2 joints, got %d", doc.JointCount())
	}
	if len(doc.Curves) != 9 {
		t.Fatalf("expected 9 curves, got %d", len(doc.Curves))
	}
	if doc.FrameCount != 2 {
		t.Errorf("expected 2 frames, got %d", doc.FrameCount)
	}
	if doc.FrameTime < 0.0333332 || doc.FrameTime > 0.0333334 {
		t.Errorf("unexpected frame time %v", doc.FrameTime)
	}
	for i, c := range doc.Curves {
		if len(c.Samples) != doc.FrameCount {
			t.Errorf("curve %d: expected %d samples, got %d", i, doc.FrameCount, len(c.Samples))
		}
	}
}

func TestParse_CurveLayoutIsDepthFirst(t *testing.T) {
	doc, err := Parse(strings.NewReader(validBVH))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total := 0
	for node := range doc.Root.All() {
		total += len(node.Channels)
	}
	if len(doc.Curves) != total {
		t.Fatalf("curve array length %d != depth-first channel sum %d", len(doc.Curves), total)
	}

	wantJoints := []string{
		"Hips", "Hips", "Hips", "Hips", "Hips", "Hips",
		"Spine", "Spine", "Spine",
	}
	wantKinds := []skeleton.ChannelKind{
		skeleton.ChannelXPosition, skeleton.ChannelYPosition, skeleton.ChannelZPosition,
		skeleton.ChannelZRotation, skeleton.ChannelXRotation, skeleton.ChannelYRotation,
		skeleton.ChannelZRotation, skeleton.ChannelXRotation, skeleton.ChannelYRotation,
	}
	for i, c := range doc.Curves {
		if c.Joint != wantJoints[i] {
			t.Errorf("curve %d: expected joint %q, got %q", i, wantJoints[i], c.Joint)
		}
		if c.Kind != wantKinds[i] {
			t.Errorf("curve %d: expected kind %q, got %q", i, wantKinds[i], c.Kind)
		}
	}

	// Row values land in flat order: curve i holds column i of each row.
	if doc.Curves[0].Samples[0] != 1.0 || doc.Curves[0].Samples[1] != 1.1 {
		t.Errorf("curve 0 samples = %v", doc.Curves[0].Samples)
	}
	if doc.Curves[8].Samples[0] != 9.0 || doc.Curves[8].Samples[1] != 9.1 {
		t.Errorf("curve 8 samples = %v", doc.Curves[8].Samples)
	}
}

func TestParse_EndSiteKeptAsMarkerNotChild(t *testing.T) {
	doc, err := Parse(strings.NewReader(validBVH))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	spine := doc.Find("Spine")
	if spine == nil {
		t.Fatal("Spine not found")
	}
	if len(spine.Children) != 0 {
		t.Errorf("expected no child joints under Spine, got %d", len(spine.Children))
	}
	if len(spine.EndSites) != 1 {
		t.Fatalf("expected 1 end site under Spine, got %d", len(spine.EndSites))
	}
	want := [3]float64{0.0, 3.1, 0.0}
	if spine.EndSites[0].Offset != want {
		t.Errorf("expected end site offset %v, got %v", want, spine.EndSites[0].Offset)
	}
}

func TestParse_Deterministic(t *testing.T) {
	a, err := Parse(strings.NewReader(validBVH))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Parse(strings.NewReader(validBVH))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("parsing the same input twice produced different documents")
	}
}

func TestParse_MissingHierarchyKeyword(t *testing.T) {
	input := strings.Replace(validBVH, "HIERARCHY\n", "", 1)
	assertFails(t, input, KindStructural)
}

func TestParse_NestedRoot(t *testing.T) {
	input := strings.Replace(validBVH, "JOINT Spine", "ROOT Spine", 1)
	assertFails(t, input, KindStructural)
}

func TestParse_JointAtTopLevel(t *testing.T) {
	input := strings.Replace(validBVH, "ROOT Hips", "JOINT Hips", 1)
	assertFails(t, input, KindStructural)
}

func TestParse_EndSiteAtTopLevel(t *testing.T) {
	input := "HIERARCHY\nEnd Site\n{\nOFFSET 0 0 0\n}\n"
	assertFails(t, input, KindStructural)
}

func TestParse_UnknownBlockType(t *testing.T) {
	input := strings.Replace(validBVH, "JOINT Spine", "BONE Spine", 1)
	assertFails(t, input, KindGrammar)
}

func TestParse_MissingOpenBrace(t *testing.T) {
	input := strings.Replace(validBVH, "ROOT Hips\n{", "ROOT Hips", 1)
	assertFails(t, input, KindGrammar)
}

func TestParse_HeaderTokenCount(t *testing.T) {
	input := strings.Replace(validBVH, "JOINT Spine", "JOINT Spine Lower", 1)
	assertFails(t, input, KindGrammar)
}

func TestParse_ChannelCountMismatch(t *testing.T) {
	input := strings.Replace(validBVH,
		"CHANNELS 3 Zrotation Xrotation Yrotation",
		"CHANNELS 3 Zrotation Xrotation", 1)
	assertFails(t, input, KindChannelCount)
}

func TestParse_UnknownChannelName(t *testing.T) {
	input := strings.Replace(validBVH, "Xposition", "Wposition", 1)
	assertFails(t, input, KindUnknownChannel)
}

func TestParse_MissingMotionSection(t *testing.T) {
	idx := strings.Index(validBVH, "MOTION")
	assertFails(t, validBVH[:idx], KindStructural)
}

func TestParse_MissingFrameTime(t *testing.T) {
	input := strings.Replace(validBVH, "Frame Time: 0.0333333\n", "", 1)
	assertFails(t, input, KindStructural)
}

func TestParse_NegativeFrameCount(t *testing.T) {
	input := strings.Replace(validBVH, "Frames: 2", "Frames: -1", 1)
	assertFails(t, input, KindNumeric)
}

func TestParse_FrameRowTooShort(t *testing.T) {
	input := strings.Replace(validBVH,
		"1.1 2.1 3.1 4.1 5.1 6.1 7.1 8.1 9.1",
		"1.1 2.1 3.1", 1)
	assertFails(t, input, KindFrameCount)
}

func TestParse_FrameRowTooLong(t *testing.T) {
	input := strings.Replace(validBVH,
		"1.1 2.1 3.1 4.1 5.1 6.1 7.1 8.1 9.1",
		"1.1 2.1 3.1 4.1 5.1 6.1 7.1 8.1 9.1 10.1", 1)
	assertFails(t, input, KindFrameCount)
}

func TestParse_TruncatedFrameData(t *testing.T) {
	input := strings.Replace(validBVH, "1.1 2.1 3.1 4.1 5.1 6.1 7.1 8.1 9.1\n", "", 1)
	assertFails(t, input, KindFrameCount)
}

func TestParse_NonNumericFrameValue(t *testing.T) {
	input := strings.Replace(validBVH, "7.1", "seven", 1)
	assertFails(t, input, KindNumeric)
}

func TestParse_NonNumericOffset(t *testing.T) {
	input := strings.Replace(validBVH, "OFFSET 0.0 5.21 0.0", "OFFSET 0.0 x 0.0", 1)
	assertFails(t, input, KindNumeric)
}

func TestParse_ZeroFrames(t *testing.T) {
	idx := strings.Index(validBVH, "Frame Time:")
	input := strings.Replace(validBVH[:idx], "Frames: 2", "Frames: 0", 1) + "Frame Time: 0.0333333\n"
	doc, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.FrameCount != 0 {
		t.Errorf("expected 0 frames, got %d", doc.FrameCount)
	}
	if len(doc.Curves) != 9 {
		t.Errorf("expected 9 empty curves, got %d", len(doc.Curves))
	}
	for i, c := range doc.Curves {
		if len(c.Samples) != 0 {
			t.Errorf("curve %d: expected no samples, got %d", i, len(c.Samples))
		}
	}
}

func TestParse_ErrorCarriesLineContext(t *testing.T) {
	input := strings.Replace(validBVH, "JOINT Spine", "BONE Spine", 1)
	_, err := Parse(strings.NewReader(input))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Line != "BONE Spine" {
		t.Errorf("expected offending line %q, got %q", "BONE Spine", pe.Line)
	}
	if pe.LineNo == 0 {
		t.Error("expected a line number")
	}
	if pe.Depth != 1 {
		t.Errorf("expected depth 1, got %d", pe.Depth)
	}
}

func assertFails(t *testing.T, input string, kind Kind) {
	t.Helper()
	doc, err := Parse(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected an error")
	}
	if doc != nil {
		t.Error("expected no document on failure")
	}
	if !IsKind(err, kind) {
		t.Errorf("expected %v error, got: %v", kind, err)
	}
}
