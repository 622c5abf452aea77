package dpix

// LineType classifies the feature a path was extracted from.
type LineType uint8

// Line types. Profile paths always have exactly two vertices and carry
// the normals of the two faces meeting at the edge.
const (
	Contour LineType = iota
	SuggestiveContour
	Ridge
	Valley
	ApparentRidge
	Isophote
	Boundary
	Crease
	Profile
)

var lineTypeNames = [...]string{
	Contour:           "contour",
	SuggestiveContour: "suggestive_contour",
	Ridge:             "ridge",
	Valley:            "valley",
	ApparentRidge:     "apparent_ridge",
	Isophote:          "isophote",
	Boundary:          "boundary",
	Crease:            "crease",
	Profile:           "profile",
}

// String returns the line type name used in settings and style files.
func (t LineType) String() string {
	if int(t) < len(lineTypeNames) {
		return lineTypeNames[t]
	}
	return "unknown"
}

// ParseLineType returns the line type with the given name.
func ParseLineType(name string) (LineType, bool) {
	for i, n := range lineTypeNames {
		if n == name {
			return LineType(i), true
		}
	}
	return 0, false
}
