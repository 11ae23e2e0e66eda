package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag is a DICOM attribute tag: group in the high 16 bits, element in the low 16 bits.
type Tag uint32

func NewTag(group, element uint16) Tag {
	return Tag(uint32(group)<<16 | uint32(element))
}

func (t Tag) Group() uint16 {
	return uint16(t >> 16)
}

func (t Tag) Element() uint16 {
	return uint16(t)
}

// String returns the tag in (gggg,eeee) format
func (t Tag) String() string {
	return fmt.Sprintf("(%04x,%04x)", t.Group(), t.Element())
}

// Hex returns the tag as 8 upper-case hex digits, the form used in tag paths
// and DICOMweb query parameters.
func (t Tag) Hex() string {
	return fmt.Sprintf("%08X", uint32(t))
}

// ParseTag accepts "GGGGEEEE" or "(gggg,eeee)".
func ParseTag(s string) (Tag, error) {
	raw := s
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		raw = strings.Replace(s[1:len(s)-1], ",", "", 1)
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("invalid tag '%s'", s)
	}
	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid tag '%s': %w", s, err)
	}
	return Tag(v), nil
}

// TagPath joins the hex form of each tag with '.', outermost first.
func TagPath(tags ...Tag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = t.Hex()
	}
	return strings.Join(parts, ".")
}

// Tags used by the gateway.
var (
	TagAccessionNumber                     = NewTag(0x0008, 0x0050)
	TagModality                            = NewTag(0x0008, 0x0060)
	TagReferringPhysicianName              = NewTag(0x0008, 0x0090)
	TagReferencedStudySequence             = NewTag(0x0008, 0x1110)
	TagSOPClassUID                         = NewTag(0x0008, 0x0016)
	TagSOPInstanceUID                      = NewTag(0x0008, 0x0018)
	TagPatientName                         = NewTag(0x0010, 0x0010)
	TagPatientID                           = NewTag(0x0010, 0x0020)
	TagPatientBirthDate                    = NewTag(0x0010, 0x0030)
	TagPatientSex                          = NewTag(0x0010, 0x0040)
	TagStudyInstanceUID                    = NewTag(0x0020, 0x000D)
	TagRequestingPhysician                 = NewTag(0x0032, 0x1032)
	TagRequestedProcedureDescription       = NewTag(0x0032, 0x1060)
	TagScheduledProcedureStepStartDate     = NewTag(0x0040, 0x0002)
	TagScheduledProcedureStepStartTime     = NewTag(0x0040, 0x0003)
	TagScheduledProcedureStepSequence      = NewTag(0x0040, 0x0100)
	TagRequestedProcedureID                = NewTag(0x0040, 0x1001)
	TagScheduledProcedureStepStartDateTime = NewTag(0x0040, 0x4005)
	TagReferencedRequestSequence           = NewTag(0x0040, 0xA370)
)
