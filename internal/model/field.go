package model

// FieldType is the declared storage type of a destination field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumeric  FieldType = "numeric"
	FieldInteger  FieldType = "integer"
	FieldDatetime FieldType = "datetime"
	FieldBoolean  FieldType = "boolean"
)

// Field describes one destination column fed by one CSV column.
type Field struct {
	Column   string    // CSV header name, uppercase (PHC_MONTANT)
	Name     string    // table column (phc_montant)
	Type     FieldType
	Scale    int32     // decimal places kept for numeric fields
	Required bool
}
