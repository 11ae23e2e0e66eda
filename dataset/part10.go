package dataset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	ImplementationClassUID    = "2.25.329800735698586629295641978511506172918"
	ImplementationVersionName = "DICOMWEB_GW_1"

	preambleLength = 128
)

var (
	ErrNotPart10 = errors.New("not a DICOM Part 10 stream")

	tagFileMetaGroupLength          = NewTag(0x0002, 0x0000)
	tagFileMetaVersion              = NewTag(0x0002, 0x0001)
	tagMediaStorageSOPClassUID      = NewTag(0x0002, 0x0002)
	tagMediaStorageSOPInstanceUID   = NewTag(0x0002, 0x0003)
	tagTransferSyntaxUID            = NewTag(0x0002, 0x0010)
	tagImplementationClassUID       = NewTag(0x0002, 0x0012)
	tagImplementationVersionName    = NewTag(0x0002, 0x0013)
	tagSourceApplicationEntityTitle = NewTag(0x0002, 0x0016)
)

// FileMeta is the File Meta Information (group 0002) that prefixes every
// staged instance.
type FileMeta struct {
	MediaStorageSOPClassUID      string
	MediaStorageSOPInstanceUID   string
	TransferSyntaxUID            string
	ImplementationClassUID       string
	ImplementationVersionName    string
	SourceApplicationEntityTitle string
}

// WriteFileMeta writes the 128 byte preamble, the "DICM" prefix and the File
// Meta Information in Explicit VR Little Endian. The dataset itself is
// expected to follow in the negotiated transfer syntax.
func WriteFileMeta(w io.Writer, meta FileMeta) error {
	if meta.ImplementationClassUID == "" {
		meta.ImplementationClassUID = ImplementationClassUID
	}
	if meta.ImplementationVersionName == "" {
		meta.ImplementationVersionName = ImplementationVersionName
	}

	var group bytes.Buffer
	writeExplicitElement(&group, tagFileMetaVersion, VR_OB, []byte{0x00, 0x01})
	writeExplicitElement(&group, tagMediaStorageSOPClassUID, VR_UI, []byte(meta.MediaStorageSOPClassUID))
	writeExplicitElement(&group, tagMediaStorageSOPInstanceUID, VR_UI, []byte(meta.MediaStorageSOPInstanceUID))
	writeExplicitElement(&group, tagTransferSyntaxUID, VR_UI, []byte(meta.TransferSyntaxUID))
	writeExplicitElement(&group, tagImplementationClassUID, VR_UI, []byte(meta.ImplementationClassUID))
	writeExplicitElement(&group, tagImplementationVersionName, VR_SH, []byte(meta.ImplementationVersionName))
	if meta.SourceApplicationEntityTitle != "" {
		writeExplicitElement(&group, tagSourceApplicationEntityTitle, VR_AE, []byte(meta.SourceApplicationEntityTitle))
	}

	var header bytes.Buffer
	header.Write(make([]byte, preambleLength))
	header.WriteString("DICM")
	groupLength := make([]byte, 4)
	binary.LittleEndian.PutUint32(groupLength, uint32(group.Len()))
	writeExplicitElement(&header, tagFileMetaGroupLength, VR_UL, groupLength)
	header.Write(group.Bytes())

	_, err := w.Write(header.Bytes())
	return err
}

func writeExplicitElement(buf *bytes.Buffer, tag Tag, vr string, value []byte) {
	// DICOM requires even lengths
	if len(value)%2 == 1 {
		pad := byte(0x20)
		if vr == VR_UI || vr == VR_OB {
			pad = 0x00
		}
		value = append(value, pad)
	}

	tagBytes := make([]byte, 4)
	binary.LittleEndian.PutUint16(tagBytes[0:2], tag.Group())
	binary.LittleEndian.PutUint16(tagBytes[2:4], tag.Element())
	buf.Write(tagBytes)
	buf.WriteString(vr)

	if isLongVR(vr) {
		// Long VR format: VR (2 bytes) + Reserved (2 bytes) + Length (4 bytes)
		buf.Write([]byte{0x00, 0x00})
		lengthBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(lengthBytes, uint32(len(value)))
		buf.Write(lengthBytes)
	} else {
		lengthBytes := make([]byte, 2)
		binary.LittleEndian.PutUint16(lengthBytes, uint16(len(value)))
		buf.Write(lengthBytes)
	}
	buf.Write(value)
}

func isLongVR(vr string) bool {
	switch vr {
	case "OB", "OD", "OF", "OL", "OW", "SQ", "UC", "UR", "UT", "UN", "OV", "SV", "UV":
		return true
	}
	return false
}

// ReadFileMeta consumes the preamble and File Meta Information from r,
// leaving r positioned at the start of the dataset.
func ReadFileMeta(r io.Reader) (*FileMeta, error) {
	prefix := make([]byte, preambleLength+4)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPart10, err)
	}
	if string(prefix[preambleLength:]) != "DICM" {
		return nil, fmt.Errorf("%w: missing DICM prefix at offset 128", ErrNotPart10)
	}

	// (0002,0000) UL: tag (4) + VR (2) + length (2) + value (4)
	lengthElement := make([]byte, 12)
	if _, err := io.ReadFull(r, lengthElement); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPart10, err)
	}
	group := binary.LittleEndian.Uint16(lengthElement[0:2])
	element := binary.LittleEndian.Uint16(lengthElement[2:4])
	if NewTag(group, element) != tagFileMetaGroupLength || string(lengthElement[4:6]) != VR_UL {
		return nil, fmt.Errorf("%w: missing file meta group length", ErrNotPart10)
	}

	data := make([]byte, binary.LittleEndian.Uint32(lengthElement[8:12]))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPart10, err)
	}

	meta := &FileMeta{}
	offset := 0
	for offset+8 <= len(data) {
		tag := NewTag(binary.LittleEndian.Uint16(data[offset:offset+2]), binary.LittleEndian.Uint16(data[offset+2:offset+4]))
		vr := string(data[offset+4 : offset+6])

		var length int
		if isLongVR(vr) {
			if offset+12 > len(data) {
				break
			}
			length = int(binary.LittleEndian.Uint32(data[offset+8 : offset+12]))
			offset += 12
		} else {
			length = int(binary.LittleEndian.Uint16(data[offset+6 : offset+8]))
			offset += 8
		}
		if offset+length > len(data) {
			return nil, fmt.Errorf("%w: element %v overruns file meta group", ErrNotPart10, tag)
		}

		value := strings.TrimRight(string(data[offset:offset+length]), "\x00 ")
		switch tag {
		case tagMediaStorageSOPClassUID:
			meta.MediaStorageSOPClassUID = value
		case tagMediaStorageSOPInstanceUID:
			meta.MediaStorageSOPInstanceUID = value
		case tagTransferSyntaxUID:
			meta.TransferSyntaxUID = value
		case tagImplementationClassUID:
			meta.ImplementationClassUID = value
		case tagImplementationVersionName:
			meta.ImplementationVersionName = value
		case tagSourceApplicationEntityTitle:
			meta.SourceApplicationEntityTitle = value
		}
		offset += length
	}

	return meta, nil
}
