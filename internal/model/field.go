package model

import "strings"

// FieldKind is the dBASE type code of an attribute column.
type FieldKind byte

const (
	FieldString FieldKind = 'C'
	FieldNumber FieldKind = 'N'
	FieldFloat  FieldKind = 'F'
	FieldDate   FieldKind = 'D'
)

// FieldDef describes one attribute column of a vector layer.
type FieldDef struct {
	Name      string    `json:"name"`
	Kind      FieldKind `json:"kind"`
	Size      uint8     `json:"size"`
	Precision uint8     `json:"precision"`
}

// Names of the attribute columns the sampling design reads and writes.
const (
	FieldSampleID = "SampID"

	// Prep output.
	FieldArea       = "area"
	FieldProportion = "proportion"
	FieldChangePix  = "ch_pix"
	FieldNoChange   = "noch_pix"

	// Stratification output.
	FieldStrata    = "strata"
	FieldPercent   = "percent"
	FieldSelection = "selection"
	FieldPopStage1 = "pop_stage1"
	FieldInclu1    = "inclu_1"
)

// ReservedFields are parsed into typed Tile fields and never carried in
// Tile.Attrs.
var ReservedFields = []string{
	FieldSampleID,
	FieldArea, FieldProportion, FieldChangePix, FieldNoChange,
	FieldStrata, FieldPercent, FieldSelection, FieldPopStage1, FieldInclu1,
}

// IsReserved reports whether name is one of ReservedFields, ignoring case.
func IsReserved(name string) bool {
	for _, r := range ReservedFields {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

// Schema is an ordered set of field definitions with case-insensitive lookup.
type Schema struct {
	Fields []FieldDef
	byName map[string]int
}

// NewSchema indexes fields by lower-cased name. Later duplicates are dropped.
func NewSchema(fields []FieldDef) *Schema {
	s := &Schema{byName: make(map[string]int, len(fields))}
	for _, f := range fields {
		s.Add(f)
	}
	return s
}

// Add appends f unless a field of the same name exists. It reports whether
// the field was added.
func (s *Schema) Add(f FieldDef) bool {
	if s.byName == nil {
		s.byName = make(map[string]int)
	}
	key := strings.ToLower(f.Name)
	if _, ok := s.byName[key]; ok {
		return false
	}
	s.byName[key] = len(s.Fields)
	s.Fields = append(s.Fields, f)
	return true
}

// Index returns the column index of name, or -1.
func (s *Schema) Index(name string) int {
	if i, ok := s.byName[strings.ToLower(name)]; ok {
		return i
	}
	return -1
}

// Passthrough returns the fields that are not reserved, in order.
func (s *Schema) Passthrough() []FieldDef {
	out := make([]FieldDef, 0, len(s.Fields))
	for _, f := range s.Fields {
		if !IsReserved(f.Name) {
			out = append(out, f)
		}
	}
	return out
}
