package dataset

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Native DICOM Model (PS3.19 Annex A), the application/dicom+xml payload.
type xmlModel struct {
	XMLName    xml.Name       `xml:"NativeDicomModel"`
	Attributes []xmlAttribute `xml:"DicomAttribute"`
}

type xmlAttribute struct {
	Tag         string          `xml:"tag,attr"`
	VR          string          `xml:"vr,attr"`
	Keyword     string          `xml:"keyword,attr,omitempty"`
	Values      []xmlValue      `xml:"Value"`
	PersonNames []xmlPersonName `xml:"PersonName"`
	Items       []xmlItem       `xml:"Item"`
}

type xmlValue struct {
	Number int    `xml:"number,attr"`
	Text   string `xml:",chardata"`
}

type xmlItem struct {
	Number     int            `xml:"number,attr"`
	Attributes []xmlAttribute `xml:"DicomAttribute"`
}

type xmlPersonName struct {
	Number      int                `xml:"number,attr"`
	Alphabetic  *xmlNameComponents `xml:"Alphabetic,omitempty"`
	Ideographic *xmlNameComponents `xml:"Ideographic,omitempty"`
	Phonetic    *xmlNameComponents `xml:"Phonetic,omitempty"`
}

type xmlNameComponents struct {
	FamilyName string `xml:"FamilyName,omitempty"`
	GivenName  string `xml:"GivenName,omitempty"`
	MiddleName string `xml:"MiddleName,omitempty"`
	NamePrefix string `xml:"NamePrefix,omitempty"`
	NameSuffix string `xml:"NameSuffix,omitempty"`
}

// DecodeXML parses a NativeDicomModel document. Bulk data and inline binary
// values are skipped.
func DecodeXML(r io.Reader) (*Dataset, error) {
	var model xmlModel
	if err := xml.NewDecoder(r).Decode(&model); err != nil {
		return nil, fmt.Errorf("unable to decode native DICOM XML: %w", err)
	}
	return fromXMLAttributes(model.Attributes)
}

func fromXMLAttributes(attrs []xmlAttribute) (*Dataset, error) {
	ds := New()
	for _, a := range attrs {
		tag, err := ParseTag(a.Tag)
		if err != nil {
			return nil, err
		}

		vr := a.VR
		if vr == "" {
			vr = VR_UN
		}

		switch {
		case vr == VR_SQ:
			sort.SliceStable(a.Items, func(i, j int) bool { return a.Items[i].Number < a.Items[j].Number })
			items := make([]*Dataset, 0, len(a.Items))
			for _, item := range a.Items {
				child, err := fromXMLAttributes(item.Attributes)
				if err != nil {
					return nil, err
				}
				items = append(items, child)
			}
			ds.SetSequence(tag, items...)
		case vr == VR_PN && len(a.PersonNames) > 0:
			sort.SliceStable(a.PersonNames, func(i, j int) bool { return a.PersonNames[i].Number < a.PersonNames[j].Number })
			values := make([]string, len(a.PersonNames))
			for i, pn := range a.PersonNames {
				values[i] = pn.format()
			}
			ds.Set(tag, vr, values...)
		case len(a.Values) > 0:
			sort.SliceStable(a.Values, func(i, j int) bool { return a.Values[i].Number < a.Values[j].Number })
			values := make([]string, len(a.Values))
			for i, v := range a.Values {
				values[i] = v.Text
			}
			ds.Set(tag, vr, values...)
		default:
			ds.SetNull(tag, vr)
		}
	}
	return ds, nil
}

func (pn xmlPersonName) format() string {
	groups := []string{pn.Alphabetic.format(), pn.Ideographic.format(), pn.Phonetic.format()}
	return strings.TrimRight(strings.Join(groups, "="), "=")
}

func (c *xmlNameComponents) format() string {
	if c == nil {
		return ""
	}
	parts := []string{c.FamilyName, c.GivenName, c.MiddleName, c.NamePrefix, c.NameSuffix}
	return strings.TrimRight(strings.Join(parts, "^"), "^")
}

func parseNameComponents(group string) *xmlNameComponents {
	if group == "" {
		return nil
	}
	parts := strings.SplitN(group, "^", 5)
	for len(parts) < 5 {
		parts = append(parts, "")
	}
	return &xmlNameComponents{
		FamilyName: parts[0],
		GivenName:  parts[1],
		MiddleName: parts[2],
		NamePrefix: parts[3],
		NameSuffix: parts[4],
	}
}

// EncodeXML writes ds as a NativeDicomModel document.
func EncodeXML(w io.Writer, ds *Dataset) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(xmlModel{Attributes: toXMLAttributes(ds)}); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func toXMLAttributes(ds *Dataset) []xmlAttribute {
	attrs := make([]xmlAttribute, 0, ds.Len())
	for _, e := range ds.Elements() {
		a := xmlAttribute{Tag: e.Tag.Hex(), VR: e.VR}
		switch {
		case e.IsSequence():
			for i, item := range e.Items {
				a.Items = append(a.Items, xmlItem{Number: i + 1, Attributes: toXMLAttributes(item)})
			}
		case e.VR == VR_PN:
			for i, v := range e.Values {
				groups := strings.SplitN(v, "=", 3)
				for len(groups) < 3 {
					groups = append(groups, "")
				}
				a.PersonNames = append(a.PersonNames, xmlPersonName{
					Number:      i + 1,
					Alphabetic:  parseNameComponents(groups[0]),
					Ideographic: parseNameComponents(groups[1]),
					Phonetic:    parseNameComponents(groups[2]),
				})
			}
		default:
			for i, v := range e.Values {
				a.Values = append(a.Values, xmlValue{Number: i + 1, Text: v})
			}
		}
		attrs = append(attrs, a)
	}
	return attrs
}
