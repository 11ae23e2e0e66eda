package worklist

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismrmrd/dicomweb-gateway/dataset"
)

const workitemXML = `<?xml version="1.0" encoding="UTF-8"?>
<NativeDicomModel>
  <DicomAttribute tag="00100010" vr="PN" keyword="PatientName">
    <PersonName number="1"><Alphabetic><FamilyName>PATIENT</FamilyName><GivenName>SAMPLE</GivenName></Alphabetic></PersonName>
  </DicomAttribute>
  <DicomAttribute tag="00100020" vr="LO" keyword="PatientID">
    <Value number="1">%s</Value>
  </DicomAttribute>
  <DicomAttribute tag="00400100" vr="SQ" keyword="ScheduledProcedureStepSequence">
    <Item number="1">
      <DicomAttribute tag="00080060" vr="CS" keyword="Modality"><Value number="1">OP</Value></DicomAttribute>
      <DicomAttribute tag="00404005" vr="DT" keyword="ScheduledProcedureStepStartDateTime"><Value number="1">20200204101010</Value></DicomAttribute>
    </Item>
  </DicomAttribute>
  <DicomAttribute tag="0040A370" vr="SQ" keyword="ReferencedRequestSequence">
    <Item number="1">
      <DicomAttribute tag="00080050" vr="SH" keyword="AccessionNumber"><Value number="1">ACC1</Value></DicomAttribute>
      <DicomAttribute tag="0020000D" vr="UI" keyword="StudyInstanceUID"><Value number="1">1.2.3.4</Value></DicomAttribute>
    </Item>
  </DicomAttribute>
</NativeDicomModel>
`

type testPart struct {
	headers map[string][]string
	body    string
}

func xmlPart(body string) testPart {
	return testPart{headers: map[string][]string{"Content-Type": {DicomXML}}, body: body}
}

func buildMultipart(t *testing.T, parts ...testPart) (string, []byte) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader(p.headers))
		require.Nil(t, err)
		_, err = w.Write([]byte(p.body))
		require.Nil(t, err)
	}
	require.Nil(t, mw.Close())
	return `multipart/related; type="application/dicom+xml"; boundary=` + mw.Boundary(), buf.Bytes()
}

func workitem(patientID string) string {
	return strings.Replace(workitemXML, "%s", patientID, 1)
}

func TestParseConvertsWorkitemsInOrder(t *testing.T) {
	contentType, body := buildMultipart(t, xmlPart(workitem("P1")), xmlPart(workitem("P2")))

	results, err := Parse(contentType, bytes.NewReader(body))
	require.Nil(t, err)
	require.Len(t, results, 2)

	sps := dataset.New()
	sps.Set(dataset.TagModality, dataset.VR_CS, "OP")
	sps.Set(dataset.TagScheduledProcedureStepStartDate, dataset.VR_DA, "20200204")
	sps.Set(dataset.TagScheduledProcedureStepStartTime, dataset.VR_TM, "101010")

	expected := dataset.New()
	expected.Set(dataset.TagAccessionNumber, dataset.VR_SH, "ACC1")
	expected.Set(dataset.TagPatientName, dataset.VR_PN, "PATIENT^SAMPLE")
	expected.Set(dataset.TagPatientID, dataset.VR_LO, "P1")
	expected.Set(dataset.TagStudyInstanceUID, dataset.VR_UI, "1.2.3.4")
	expected.SetSequence(dataset.TagScheduledProcedureStepSequence, sps)

	assert.True(t, expected.Equal(results[0]), "first workitem was not converted to the worklist schema")

	id, _ := results[1].String(dataset.TagPatientID)
	assert.Equal(t, "P2", id)
}

func TestParseEmptyBody(t *testing.T) {
	results, err := Parse(`multipart/related; type="application/dicom+xml"; boundary=abc`, strings.NewReader(""))
	require.Nil(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestParseRejectsUnsupportedMediaTypes(t *testing.T) {
	for _, contentType := range []string{
		"application/dicom+json",
		"multipart/mixed; boundary=abc",
		"multipart/related",
		"not a media type;;",
	} {
		t.Run(contentType, func(t *testing.T) {
			_, err := Parse(contentType, strings.NewReader("x"))
			assert.ErrorIs(t, err, ErrUnsupportedMediaType)
		})
	}
}

func TestParseRejectsBadParts(t *testing.T) {
	testCases := map[string]testPart{
		"json part":        {headers: map[string][]string{"Content-Type": {"application/dicom+json"}}, body: "{}"},
		"missing header":   {headers: map[string][]string{"X-Other": {"1"}}, body: workitem("P1")},
		"duplicate header": {headers: map[string][]string{"Content-Type": {DicomXML, DicomXML}}, body: workitem("P1")},
		"invalid xml":      xmlPart("<NativeDicomModel>"),
	}

	for desc, bad := range testCases {
		t.Run(desc, func(t *testing.T) {
			// one bad part fails the whole response
			contentType, body := buildMultipart(t, xmlPart(workitem("P1")), bad)
			_, err := Parse(contentType, bytes.NewReader(body))
			assert.ErrorIs(t, err, ErrMalformedPart)
		})
	}
}

func TestReferencedRequestSequenceWithMultipleItemsIsKept(t *testing.T) {
	first := dataset.New()
	first.Set(dataset.TagAccessionNumber, dataset.VR_SH, "ACC1")
	second := dataset.New()
	second.Set(dataset.TagAccessionNumber, dataset.VR_SH, "ACC2")

	ds := dataset.New()
	ds.SetSequence(dataset.TagReferencedRequestSequence, first, second)
	expected := ds.Clone()

	ToWorklistSchema(ds)
	assert.True(t, expected.Equal(ds))

	empty := dataset.New()
	empty.SetSequence(dataset.TagReferencedRequestSequence)
	ToWorklistSchema(empty)
	_, ok := empty.Sequence(dataset.TagReferencedRequestSequence)
	assert.True(t, ok)
}

func TestStartDateTimeSplit(t *testing.T) {
	testCases := []struct {
		dateTime     string
		expectedDate string
		expectedTime string
		converted    bool
	}{
		{"2020", "20200101", "", true},
		{"202002", "20200201", "", true},
		{"20200204", "20200204", "", true},
		{"20200204101010", "20200204", "101010", true},
		{"20200204101010.123456", "20200204", "101010.123456", true},
		{"20200204101010+0100", "20200204", "101010", true},
		{"20200204101010&0000", "20200204", "101010", true},
		{"20200204000000", "20200204", "", true},
		{"20200204000000.000000", "20200204", "", true},
		{"20200204-0500", "20200204", "", true},
		{"20200", "", "", false},
		{"2020020", "", "", false},
		{"202", "", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.dateTime, func(t *testing.T) {
			sps := dataset.New()
			sps.Set(dataset.TagScheduledProcedureStepStartDateTime, dataset.VR_DT, tc.dateTime)
			ds := dataset.New()
			ds.SetSequence(dataset.TagScheduledProcedureStepSequence, sps)

			ToWorklistSchema(ds)

			dateTime, hasDateTime := sps.String(dataset.TagScheduledProcedureStepStartDateTime)
			date, hasDate := sps.String(dataset.TagScheduledProcedureStepStartDate)
			tm, hasTime := sps.String(dataset.TagScheduledProcedureStepStartTime)

			if !tc.converted {
				assert.True(t, hasDateTime)
				assert.Equal(t, tc.dateTime, dateTime)
				assert.False(t, hasDate)
				assert.False(t, hasTime)
				return
			}

			assert.False(t, hasDateTime)
			assert.True(t, hasDate)
			assert.Equal(t, tc.expectedDate, date)
			assert.Equal(t, tc.expectedTime != "", hasTime)
			assert.Equal(t, tc.expectedTime, tm)
		})
	}
}

func TestStartDateTimeIsOnlySplitForSingleStep(t *testing.T) {
	first := dataset.New()
	first.Set(dataset.TagScheduledProcedureStepStartDateTime, dataset.VR_DT, "20200204101010")
	second := first.Clone()

	ds := dataset.New()
	ds.SetSequence(dataset.TagScheduledProcedureStepSequence, first, second)
	ToWorklistSchema(ds)

	_, ok := first.String(dataset.TagScheduledProcedureStepStartDateTime)
	assert.True(t, ok)
}
