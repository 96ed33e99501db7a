package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/platform/apierr"
)

// CitationMapper rewrites a collection view into its model-facing form:
// every cited leaf loses its raw source-document path and bounding boxes
// and gains a short opaque alias instead. The returned mapping inverts the
// rewrite.
//
// Alias tokens are CITE{collection_id}-{column} where column counts leaves
// in document order using spreadsheet column letters (1=A, 26=Z, 27=AA).
type CitationMapper struct{}

func NewCitationMapper() *CitationMapper { return &CitationMapper{} }

// ExcelColumn converts a 1-based index to spreadsheet column letters.
func ExcelColumn(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// Alias rewrites the view in place and returns the alias mapping. One
// counter runs across all leases so tokens are unique within the view.
func (m *CitationMapper) Alias(view *domain.CollectionViewData) map[string]domain.CitationMapping {
	mapping := map[string]domain.CitationMapping{}
	counter := 1
	for _, lease := range view.UnstructuredData {
		m.aliasFields(lease.Fields, mapping, view.ID, &counter, "")
	}
	return mapping
}

func sortedFieldKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *CitationMapper) aliasFields(fields map[string][]*domain.LeaseFieldData, mapping map[string]domain.CitationMapping, id string, counter *int, inherited string) {
	toDelete := map[string]struct{}{}
	// Sorted iteration keeps alias assignment deterministic.
	for _, key := range sortedFieldKeys(fields) {
		for _, elem := range fields[key] {
			m.processNode(elem, key, toDelete, mapping, id, counter, inherited)
		}
	}
	for key := range toDelete {
		delete(fields, key)
	}
}

func (m *CitationMapper) aliasObject(obj map[string]*domain.LeaseFieldData, mapping map[string]domain.CitationMapping, id string, counter *int, inherited string) {
	toDelete := map[string]struct{}{}
	for _, key := range sortedFieldKeys(obj) {
		m.processNode(obj[key], key, toDelete, mapping, id, counter, inherited)
	}
	for key := range toDelete {
		delete(obj, key)
	}
}

// processNode rewrites one node. Valueless nodes mark their field for
// deletion. Array nodes with a document context pass that context down to
// each item's object members and are not aliased themselves; every other
// node with a document context becomes a cited leaf.
func (m *CitationMapper) processNode(node *domain.LeaseFieldData, key string, toDelete map[string]struct{}, mapping map[string]domain.CitationMapping, id string, counter *int, inherited string) {
	if node == nil || !node.HasValue() {
		toDelete[key] = struct{}{}
		return
	}

	node.Type = ""

	document := inherited
	if document == "" {
		document = node.Document
	}
	if document == "" {
		return
	}

	if node.ValueArray != nil {
		for _, item := range node.ValueArray {
			if item != nil && item.ValueObject != nil {
				m.aliasObject(item.ValueObject, mapping, id, counter, document)
			}
		}
		node.Document = ""
		return
	}

	alias := fmt.Sprintf("CITE%s-%s", id, ExcelColumn(*counter))
	mapping[alias] = domain.CitationMapping{
		SourceDocument:      document,
		SourceBoundingBoxes: node.Source,
	}
	node.Document = alias
	node.Source = ""
	*counter++
}

// ParseCitation normalizes a citation token from model output and extracts
// the collection id embedded in it. Tokens sometimes arrive wrapped in a
// JSON list; the first element is used.
func (m *CitationMapper) ParseCitation(raw string) (token string, collectionID string, err error) {
	token = strings.TrimSpace(raw)

	if strings.HasPrefix(token, "[") && strings.HasSuffix(token, "]") {
		var list []string
		if jsonErr := json.Unmarshal([]byte(token), &list); jsonErr != nil || len(list) == 0 {
			return "", "", apierr.BadRequest("invalid citation format, expected a list of 'CITE{collection_id}-{alias}' tokens")
		}
		token = list[0]
	}

	if !strings.HasPrefix(token, "CITE") || !strings.Contains(token, "-") {
		return "", "", apierr.BadRequest("invalid citation format, expected 'CITE{collection_id}-{alias}'")
	}

	collectionID = strings.SplitN(token, "-", 2)[0][len("CITE"):]
	return token, collectionID, nil
}
