package domain

// LeaseFieldData is the projection of a FieldValue that is shown to the
// model: the value variants plus the provenance the citation codec rewrites.
// Everything else (confidence, spans, markdown path, classifier metadata) is
// dropped to keep the payload small.
type LeaseFieldData struct {
	Type string `json:"type,omitempty"`

	ValueString  *string                    `json:"valueString,omitempty"`
	ValueNumber  *float64                   `json:"valueNumber,omitempty"`
	ValueInteger *int64                     `json:"valueInteger,omitempty"`
	ValueDate    *string                    `json:"valueDate,omitempty"`
	ValueTime    *string                    `json:"valueTime,omitempty"`
	ValueArray   []*LeaseFieldData          `json:"valueArray,omitempty"`
	ValueObject  map[string]*LeaseFieldData `json:"valueObject,omitempty"`

	Document       string `json:"document,omitempty"`
	Source         string `json:"source,omitempty"`
	DateOfDocument string `json:"date_of_document,omitempty"`
}

func (d *LeaseFieldData) HasValue() bool {
	return d.ValueString != nil ||
		d.ValueNumber != nil ||
		d.ValueInteger != nil ||
		d.ValueDate != nil ||
		d.ValueTime != nil ||
		d.ValueArray != nil ||
		d.ValueObject != nil
}

// NewLeaseFieldData projects a persisted FieldValue into its model-facing
// form, recursively.
func NewLeaseFieldData(f *FieldValue) *LeaseFieldData {
	if f == nil {
		return nil
	}
	d := &LeaseFieldData{
		Type:           f.Type,
		ValueString:    f.ValueString,
		ValueNumber:    f.ValueNumber,
		ValueInteger:   f.ValueInteger,
		ValueDate:      f.ValueDate,
		ValueTime:      f.ValueTime,
		Document:       f.Document,
		Source:         f.Source,
		DateOfDocument: f.DateOfDocument,
	}
	if f.ValueArray != nil {
		d.ValueArray = make([]*LeaseFieldData, 0, len(f.ValueArray))
		for _, item := range f.ValueArray {
			d.ValueArray = append(d.ValueArray, NewLeaseFieldData(item))
		}
	}
	if f.ValueObject != nil {
		d.ValueObject = make(map[string]*LeaseFieldData, len(f.ValueObject))
		for name, item := range f.ValueObject {
			d.ValueObject[name] = NewLeaseFieldData(item)
		}
	}
	return d
}

// LeaseView groups the projected fields of one lease inside the collection
// view.
type LeaseView struct {
	LeaseID *string                      `json:"lease_id,omitempty"`
	Fields  map[string][]*LeaseFieldData `json:"fields"`
}

// CollectionViewData is the queryable view of one collection for one config
// hash, as serialized for the model after citation aliasing.
type CollectionViewData struct {
	ID               string       `json:"_id"`
	LeaseConfigHash  string       `json:"lease_config_hash"`
	UnstructuredData []*LeaseView `json:"unstructured_data"`
}

// CitationMapping is what a citation alias stands for: the original source
// document path and the bounding boxes within it.
type CitationMapping struct {
	SourceDocument      string `json:"source_document"`
	SourceBoundingBoxes string `json:"source_bounding_boxes"`
}
