package dataset

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileMetaRoundTrip(t *testing.T) {
	meta := FileMeta{
		MediaStorageSOPClassUID:      "1.2.840.10008.5.1.4.1.1.77.1.5.1",
		MediaStorageSOPInstanceUID:   "1.2.3.4.5",
		TransferSyntaxUID:            "1.2.840.10008.1.2.1",
		SourceApplicationEntityTitle: "MODALITY",
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFileMeta(&buf, meta))
	buf.WriteString("payload")

	b := buf.Bytes()
	assert.Equal(t, make([]byte, 128), b[:128])
	assert.Equal(t, "DICM", string(b[128:132]))

	r := bytes.NewReader(b)
	read, err := ReadFileMeta(r)
	require.NoError(t, err)

	meta.ImplementationClassUID = ImplementationClassUID
	meta.ImplementationVersionName = ImplementationVersionName
	assert.Equal(t, meta, *read)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(rest))
}

func TestFileMetaGroupHasEvenLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFileMeta(&buf, FileMeta{
		MediaStorageSOPClassUID:    "1.2.3",
		MediaStorageSOPInstanceUID: "1.2.34",
		TransferSyntaxUID:          "1.2.840.10008.1.2",
	}))
	assert.Equal(t, 0, buf.Len()%2)
}

func TestReadFileMetaRejectsNonPart10(t *testing.T) {
	cases := map[string][]byte{
		"empty":     {},
		"short":     make([]byte, 64),
		"no prefix": make([]byte, 256),
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadFileMeta(bytes.NewReader(data))
			assert.ErrorIs(t, err, ErrNotPart10)
		})
	}
}
