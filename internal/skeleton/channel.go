package skeleton

// ChannelKind is one animated degree of freedom on a joint. Values use the
// exact BVH spellings so they round-trip through JSON and CBOR unchanged.
type ChannelKind string

const (
	ChannelXPosition ChannelKind = "Xposition"
	ChannelYPosition ChannelKind = "Yposition"
	ChannelZPosition ChannelKind = "Zposition"
	ChannelXRotation ChannelKind = "Xrotation"
	ChannelYRotation ChannelKind = "Yrotation"
	ChannelZRotation ChannelKind = "Zrotation"
)

// ParseChannelKind matches a token against the six canonical channel names.
// Matching is exact and case-sensitive.
func ParseChannelKind(tok string) (ChannelKind, bool) {
	switch ChannelKind(tok) {
	case ChannelXPosition, ChannelYPosition, ChannelZPosition,
		ChannelXRotation, ChannelYRotation, ChannelZRotation:
		return ChannelKind(tok), true
	}
	return "", false
}
