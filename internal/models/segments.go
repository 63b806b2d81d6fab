package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

func decodeSegments(raw datatypes.JSON) []Segment {
	if len(raw) == 0 {
		return nil
	}
	var segs []Segment
	if err := json.Unmarshal(raw, &segs); err != nil {
		return nil
	}
	return segs
}

// EncodeSegments marshals segments for the jsonb columns. nil encodes to an
// empty JSON array so the column never holds SQL NULL once written.
func EncodeSegments(segs []Segment) datatypes.JSON {
	if segs == nil {
		segs = []Segment{}
	}
	b, err := json.Marshal(segs)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(b)
}
