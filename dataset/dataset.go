// Package dataset holds the attribute tree shared by received instances,
// worklist queries and worklist results: an ordered set of tagged elements
// whose values are either strings or nested item datasets.
package dataset

import (
	"sort"
	"strings"
)

// VR (Value Representation) constants for the elements the gateway touches
const (
	VR_AE = "AE" // Application Entity
	VR_CS = "CS" // Code String
	VR_DA = "DA" // Date
	VR_DT = "DT" // Date Time
	VR_LO = "LO" // Long String
	VR_OB = "OB" // Other Byte
	VR_PN = "PN" // Person Name
	VR_SH = "SH" // Short String
	VR_SQ = "SQ" // Sequence of Items
	VR_TM = "TM" // Time
	VR_UI = "UI" // Unique Identifier
	VR_UL = "UL" // Unsigned Long
	VR_UN = "UN" // Unknown
)

// Element is one data element. Sequence elements (VR SQ) carry Items; all
// other elements carry their values in DICOM string form.
type Element struct {
	Tag    Tag
	VR     string
	Values []string
	Items  []*Dataset
}

func (e *Element) IsSequence() bool {
	return e.VR == VR_SQ
}

// String returns the first value, or "" if the element has none.
func (e *Element) String() string {
	if len(e.Values) == 0 {
		return ""
	}
	return e.Values[0]
}

// IsBlank reports whether the element carries no usable value. For sequences
// this means zero items.
func (e *Element) IsBlank() bool {
	if e.IsSequence() {
		return len(e.Items) == 0
	}
	for _, v := range e.Values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (e *Element) clone() *Element {
	c := &Element{Tag: e.Tag, VR: e.VR}
	if e.Values != nil {
		c.Values = append([]string(nil), e.Values...)
	}
	if e.Items != nil {
		c.Items = make([]*Dataset, len(e.Items))
		for i, item := range e.Items {
			if item != nil {
				c.Items[i] = item.Clone()
			}
		}
	}
	return c
}

// Dataset is an ordered collection of elements, kept sorted by tag.
type Dataset struct {
	elements []*Element
}

// New creates a new empty dataset
func New() *Dataset {
	return &Dataset{}
}

func (d *Dataset) index(tag Tag) (int, bool) {
	i := sort.Search(len(d.elements), func(i int) bool { return d.elements[i].Tag >= tag })
	return i, i < len(d.elements) && d.elements[i].Tag == tag
}

// Put inserts the element, replacing any element with the same tag.
func (d *Dataset) Put(e *Element) {
	i, found := d.index(e.Tag)
	if found {
		d.elements[i] = e
		return
	}
	d.elements = append(d.elements, nil)
	copy(d.elements[i+1:], d.elements[i:])
	d.elements[i] = e
}

// Set stores a string-valued element.
func (d *Dataset) Set(tag Tag, vr string, values ...string) *Element {
	e := &Element{Tag: tag, VR: vr, Values: values}
	d.Put(e)
	return e
}

// SetNull stores an element that is present but has no value. In a query
// this asks for the attribute to be returned without matching on it.
func (d *Dataset) SetNull(tag Tag, vr string) *Element {
	e := &Element{Tag: tag, VR: vr}
	d.Put(e)
	return e
}

// SetSequence stores a sequence element holding the given items.
func (d *Dataset) SetSequence(tag Tag, items ...*Dataset) *Element {
	e := &Element{Tag: tag, VR: VR_SQ, Items: items}
	d.Put(e)
	return e
}

func (d *Dataset) Get(tag Tag) (*Element, bool) {
	i, found := d.index(tag)
	if !found {
		return nil, false
	}
	return d.elements[i], true
}

// String returns the first value of the element with the given tag.
func (d *Dataset) String(tag Tag) (string, bool) {
	e, ok := d.Get(tag)
	if !ok || e.IsSequence() {
		return "", false
	}
	return e.String(), true
}

// Sequence returns the items of a sequence element.
func (d *Dataset) Sequence(tag Tag) ([]*Dataset, bool) {
	e, ok := d.Get(tag)
	if !ok || !e.IsSequence() {
		return nil, false
	}
	return e.Items, true
}

func (d *Dataset) Remove(tag Tag) bool {
	i, found := d.index(tag)
	if !found {
		return false
	}
	d.elements = append(d.elements[:i], d.elements[i+1:]...)
	return true
}

// AddAll copies every element of other into d, replacing elements with the
// same tag.
func (d *Dataset) AddAll(other *Dataset) {
	for _, e := range other.elements {
		d.Put(e.clone())
	}
}

// Elements returns the elements in tag order. The slice must not be modified.
func (d *Dataset) Elements() []*Element {
	return d.elements
}

func (d *Dataset) Len() int {
	return len(d.elements)
}

func (d *Dataset) Clone() *Dataset {
	c := &Dataset{elements: make([]*Element, len(d.elements))}
	for i, e := range d.elements {
		c.elements[i] = e.clone()
	}
	return c
}

// Equal compares tags, VRs, values and items recursively.
func (d *Dataset) Equal(other *Dataset) bool {
	if d == nil || other == nil {
		return d == other
	}
	if len(d.elements) != len(other.elements) {
		return false
	}
	for i, e := range d.elements {
		o := other.elements[i]
		if e.Tag != o.Tag || e.VR != o.VR || len(e.Values) != len(o.Values) || len(e.Items) != len(o.Items) {
			return false
		}
		for j := range e.Values {
			if e.Values[j] != o.Values[j] {
				return false
			}
		}
		for j := range e.Items {
			if !e.Items[j].Equal(o.Items[j]) {
				return false
			}
		}
	}
	return true
}
