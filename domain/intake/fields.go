package intake

import "strings"

// Field is a canonical field name
type Field string

const (
	FieldIncidentNumber  Field = "incident_number"
	FieldDateTime        Field = "date_time"
	FieldBuilding        Field = "building"
	FieldEntityCode      Field = "entity_code"
	FieldConsequenceType Field = "consequence_type"
	FieldStartDate       Field = "start_date"
	FieldEndDate         Field = "end_date"
	FieldExplicitMinutes Field = "explicit_minutes"

	// Passthrough attributes carried to downstream consumers untouched.
	FieldGrade             Field = "grade"
	FieldIncidentType      Field = "incident_type"
	FieldLocation          Field = "location"
	FieldTimeBlock         Field = "time_block"
	FieldResponse          Field = "response"
	FieldDaysRemoved       Field = "days_removed"
	FieldRace              Field = "race"
	FieldGender            Field = "gender"
	FieldSpecialPopulation Field = "special_population"
)

// FieldSpec describes how a canonical field participates in one file's schema.
// Fields sharing a non-empty Group satisfy the requirement together: at least one of them
// must resolve.
type FieldSpec struct {
	Field     Field  `json:"field"`
	Required  bool   `json:"required"`
	Group     string `json:"group,omitempty"`
	Attribute bool   `json:"attribute,omitempty"`
}

// Schema is the ordered field list of one input
type Schema struct {
	Role   FileRole
	Fields []FieldSpec
}

var incidentSchema = Schema{
	Role: RoleIncident,
	Fields: []FieldSpec{
		{Field: FieldIncidentNumber, Required: true},
		{Field: FieldDateTime, Required: true},
		{Field: FieldBuilding, Required: true, Group: "building"},
		{Field: FieldEntityCode, Required: true, Group: "building"},
		{Field: FieldGrade, Attribute: true},
		{Field: FieldIncidentType, Attribute: true},
		{Field: FieldLocation, Attribute: true},
		{Field: FieldTimeBlock, Attribute: true},
		{Field: FieldResponse, Attribute: true},
		{Field: FieldRace, Attribute: true},
		{Field: FieldGender, Attribute: true},
		{Field: FieldSpecialPopulation, Attribute: true},
	},
}

var consequenceSchema = Schema{
	Role: RoleConsequence,
	Fields: []FieldSpec{
		{Field: FieldIncidentNumber, Required: true},
		{Field: FieldConsequenceType, Required: true},
		{Field: FieldStartDate, Required: true},
		{Field: FieldEndDate, Required: true},
		{Field: FieldExplicitMinutes},
		{Field: FieldDaysRemoved, Attribute: true},
	},
}

// SchemaFor returns the schema of the given input
func SchemaFor(role FileRole) Schema {
	if role == RoleConsequence {
		return consequenceSchema
	}
	return incidentSchema
}

// Spec returns the spec of f within the schema
func (s Schema) Spec(f Field) (FieldSpec, bool) {
	for _, spec := range s.Fields {
		if spec.Field == f {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// Contains reports whether f belongs to the schema
func (s Schema) Contains(f Field) bool {
	_, ok := s.Spec(f)
	return ok
}

// Attributes lists the passthrough fields of the schema
func (s Schema) Attributes() []Field {
	var out []Field
	for _, spec := range s.Fields {
		if spec.Attribute {
			out = append(out, spec.Field)
		}
	}
	return out
}

// Missing returns the required fields that resolved reports as absent, in schema order.
// A group counts as missing only when none of its members resolved; then every member is
// listed so the operator sees the acceptable alternatives.
func (s Schema) Missing(resolved func(Field) bool) []Field {
	var missing []Field
	groupHit := map[string]bool{}
	for _, spec := range s.Fields {
		if spec.Group != "" && resolved(spec.Field) {
			groupHit[spec.Group] = true
		}
	}
	for _, spec := range s.Fields {
		if !spec.Required || resolved(spec.Field) {
			continue
		}
		if spec.Group != "" && groupHit[spec.Group] {
			continue
		}
		missing = append(missing, spec.Field)
	}
	return missing
}

// FieldNames converts fields to strings for failure records
func FieldNames(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

// JoinFields renders fields as "a, b"
func JoinFields(fields []Field) string {
	return strings.Join(FieldNames(fields), ", ")
}
