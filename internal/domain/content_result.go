package domain

// ContentResult is the terminal payload of a content understanding operation,
// for both the analyzer and the classifier. The analyzer returns a single
// content block; the classifier returns one block per detected subdocument,
// each carrying its own category and page range.
type ContentResult struct {
	Status string            `json:"status,omitempty"`
	Result ContentResultBody `json:"result"`
}

type ContentResultBody struct {
	Contents []ContentBlock `json:"contents"`
}

type ContentBlock struct {
	// Nil when the block carries no extraction results at all; such blocks
	// are skipped on the classifier path.
	Fields map[string]*FieldValue `json:"fields,omitempty"`

	Markdown string `json:"markdown,omitempty"`

	Category        string `json:"category,omitempty"`
	StartPageNumber *int   `json:"startPageNumber,omitempty"`
	EndPageNumber   *int   `json:"endPageNumber,omitempty"`
}
