package domain

// DataType of a collection row's source.
type DataType string

const (
	DataTypeUnityCatalog   DataType = "UnityCatalog"
	DataTypeLeaseAgreement DataType = "LeaseAgreement"
)

// FieldMappingMethod is how a field is produced by the analyzer.
type FieldMappingMethod string

const (
	FieldMappingMethodExtract  FieldMappingMethod = "extract"
	FieldMappingMethodGenerate FieldMappingMethod = "generate"
)

// FieldMappingType is the declared value type of an extracted field.
type FieldMappingType string

const (
	FieldMappingTypeString   FieldMappingType = "string"
	FieldMappingTypeInteger  FieldMappingType = "integer"
	FieldMappingTypeFloat    FieldMappingType = "float"
	FieldMappingTypeBoolean  FieldMappingType = "boolean"
	FieldMappingTypeDate     FieldMappingType = "date"
	FieldMappingTypeDatetime FieldMappingType = "datetime"
	FieldMappingTypeTime     FieldMappingType = "time"
	FieldMappingTypeObject   FieldMappingType = "object"
	FieldMappingTypeArray    FieldMappingType = "array"
)

// ContentUnderstandingType maps the declared type to the type name the
// content understanding field schema expects.
func (t FieldMappingType) ContentUnderstandingType() string {
	switch t {
	case FieldMappingTypeFloat:
		return "number"
	case FieldMappingTypeDatetime:
		return "date"
	default:
		return string(t)
	}
}

// FieldSchema describes one extracted field. Array fields carry their item
// schemas in Items.
type FieldSchema struct {
	Name        string             `json:"name"`
	Type        FieldMappingType   `json:"type"`
	Description string             `json:"description"`
	Method      FieldMappingMethod `json:"method,omitempty"`
	Items       []FieldSchema      `json:"items,omitempty"`
}

// ClassifierConfig enables routing documents through a classifier before
// field extraction.
type ClassifierConfig struct {
	Enabled      bool   `json:"enabled"`
	ClassifierID string `json:"classifier_id"`
}

// CollectionRow is the list of extracted fields, with their schema, for one
// source data type of a collection.
type CollectionRow struct {
	DataType    DataType          `json:"data_type"`
	AnalyzerID  string            `json:"analyzer_id,omitempty"`
	FieldSchema []FieldSchema     `json:"field_schema"`
	Classifier  *ClassifierConfig `json:"classifier,omitempty"`
}

// FieldDataCollectionConfig defines the extracted field schema and the prompt
// for one named, versioned collection configuration. Immutable after publish;
// LeaseConfigHash partitions collection documents by schema version.
type FieldDataCollectionConfig struct {
	ID              string          `json:"_id"`
	Name            string          `json:"name"`
	Version         string          `json:"version"`
	Prompt          string          `json:"prompt"`
	LeaseConfigHash string          `json:"lease_config_hash"`
	CollectionRows  []CollectionRow `json:"collection_rows"`
}

// LeaseAgreementRows returns the rows whose data type is LeaseAgreement.
func (c *FieldDataCollectionConfig) LeaseAgreementRows() []CollectionRow {
	rows := make([]CollectionRow, 0, len(c.CollectionRows))
	for _, row := range c.CollectionRows {
		if row.DataType == DataTypeLeaseAgreement {
			rows = append(rows, row)
		}
	}
	return rows
}

// FieldList returns the declared field names across all lease agreement
// rows. Extracted fields outside this list are dropped during merge.
func (c *FieldDataCollectionConfig) FieldList() []string {
	var names []string
	for _, row := range c.LeaseAgreementRows() {
		for _, schema := range row.FieldSchema {
			names = append(names, schema.Name)
		}
	}
	return names
}

// BuildConfigID builds the store id for a named, versioned configuration.
func BuildConfigID(name, version string) string {
	return name + "-" + version
}
