package dataset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<NativeDicomModel xml:space="preserve">
  <DicomAttribute keyword="Modality" tag="00080060" vr="CS">
    <Value number="1">OP</Value>
  </DicomAttribute>
  <DicomAttribute keyword="PatientName" tag="00100010" vr="PN">
    <PersonName number="1">
      <Alphabetic>
        <FamilyName>PATIENT</FamilyName>
        <GivenName>SAMPLE</GivenName>
      </Alphabetic>
    </PersonName>
  </DicomAttribute>
  <DicomAttribute keyword="PatientID" tag="00100020" vr="LO">
    <Value number="1">PATIENT1234</Value>
  </DicomAttribute>
  <DicomAttribute keyword="OtherPatientIDs" tag="00101000" vr="LO">
    <Value number="2">B</Value>
    <Value number="1">A</Value>
  </DicomAttribute>
  <DicomAttribute keyword="PatientSex" tag="00100040" vr="CS"/>
  <DicomAttribute keyword="ScheduledProcedureStepSequence" tag="00400100" vr="SQ">
    <Item number="1">
      <DicomAttribute keyword="ScheduledProcedureStepStartDateTime" tag="00404005" vr="DT">
        <Value number="1">20200204101010</Value>
      </DicomAttribute>
    </Item>
  </DicomAttribute>
</NativeDicomModel>
`

func TestDecodeXML(t *testing.T) {
	ds, err := DecodeXML(strings.NewReader(sampleXML))
	require.NoError(t, err)

	spsItem := New()
	spsItem.Set(TagScheduledProcedureStepStartDateTime, VR_DT, "20200204101010")

	expected := New()
	expected.Set(TagModality, VR_CS, "OP")
	expected.Set(TagPatientName, VR_PN, "PATIENT^SAMPLE")
	expected.Set(TagPatientID, VR_LO, "PATIENT1234")
	expected.Set(NewTag(0x0010, 0x1000), VR_LO, "A", "B")
	expected.SetNull(TagPatientSex, VR_CS)
	expected.SetSequence(TagScheduledProcedureStepSequence, spsItem)

	assert.True(t, expected.Equal(ds), "decoded dataset does not match")
}

func TestDecodeXMLRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"wrong root":  `<Other/>`,
		"invalid tag": `<NativeDicomModel><DicomAttribute tag="XYZ" vr="CS"/></NativeDicomModel>`,
		"truncated":   `<NativeDicomModel><DicomAttribute tag="00080060"`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeXML(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestEncodeXMLRoundTrip(t *testing.T) {
	item := New()
	item.Set(TagScheduledProcedureStepStartDate, VR_DA, "20200204")
	item.Set(TagScheduledProcedureStepStartTime, VR_TM, "101010")

	ds := New()
	ds.Set(TagPatientName, VR_PN, "DOE^JANE^^DR=ドウ^ジェーン")
	ds.Set(TagPatientID, VR_LO, "OTHERPATIENT123")
	ds.SetNull(TagPatientBirthDate, VR_DA)
	ds.SetSequence(TagScheduledProcedureStepSequence, item)
	ds.SetSequence(TagReferencedStudySequence)

	var buf bytes.Buffer
	require.NoError(t, EncodeXML(&buf, ds))
	assert.Contains(t, buf.String(), `tag="00400100"`)
	assert.Contains(t, buf.String(), "<FamilyName>DOE</FamilyName>")

	decoded, err := DecodeXML(&buf)
	require.NoError(t, err)
	assert.True(t, ds.Equal(decoded), "round trip changed the dataset")
}
