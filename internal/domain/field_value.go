package domain

// FieldKind identifies the variant of a FieldValue node. The extraction
// output is a recursive union: scalar leaves, arrays of nested values and
// objects of named nested values.
type FieldKind int

const (
	FieldKindScalar FieldKind = iota
	FieldKindArray
	FieldKindObject
)

// FieldValue is one extracted value instance for a named field, together with
// its provenance. Exactly the wire shape produced by the content
// understanding service, extended with the ingestion metadata the merge
// engine attaches (document/markdown paths, extraction date, classifier
// category and page range).
type FieldValue struct {
	Type string `json:"type,omitempty"`

	ValueString  *string                `json:"valueString,omitempty"`
	ValueNumber  *float64               `json:"valueNumber,omitempty"`
	ValueInteger *int64                 `json:"valueInteger,omitempty"`
	ValueDate    *string                `json:"valueDate,omitempty"`
	ValueTime    *string                `json:"valueTime,omitempty"`
	ValueArray   []*FieldValue          `json:"valueArray,omitempty"`
	ValueObject  map[string]*FieldValue `json:"valueObject,omitempty"`

	Spans      []map[string]interface{} `json:"spans,omitempty"`
	Confidence *float64                 `json:"confidence,omitempty"`
	Source     string                   `json:"source,omitempty"`

	DateOfDocument string `json:"date_of_document,omitempty"`
	Markdown       string `json:"markdown,omitempty"`
	Document       string `json:"document,omitempty"`

	Category             string `json:"category,omitempty"`
	SubdocumentStartPage *int   `json:"subdocument_start_page,omitempty"`
	SubdocumentEndPage   *int   `json:"subdocument_end_page,omitempty"`
}

func (f *FieldValue) Kind() FieldKind {
	switch {
	case f.ValueArray != nil:
		return FieldKindArray
	case f.ValueObject != nil:
		return FieldKindObject
	default:
		return FieldKindScalar
	}
}

// HasValue reports whether at least one value variant is populated. Records
// without any usable value are skipped during merge.
func (f *FieldValue) HasValue() bool {
	return f.ValueString != nil ||
		f.ValueNumber != nil ||
		f.ValueInteger != nil ||
		f.ValueDate != nil ||
		f.ValueTime != nil ||
		f.ValueArray != nil ||
		f.ValueObject != nil
}

// Lease is the per-lease bucket of extracted fields and source references
// inside a collection document. A nil LeaseID is legal; leases without an id
// are never merged together.
type Lease struct {
	LeaseID           *string                  `json:"lease_id"`
	OriginalDocuments []string                 `json:"original_documents"`
	Markdowns         []string                 `json:"markdowns"`
	Fields            map[string][]*FieldValue `json:"fields"`
}

// CollectionInformation is the information section of a collection document.
type CollectionInformation struct {
	Leases []*Lease `json:"leases"`
}
