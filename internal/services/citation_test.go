package services

import (
	"testing"

	"github.com/davenrook/leasewise-backend/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestExcelColumn(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{1, "A"},
		{2, "B"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{53, "BA"},
		{702, "ZZ"},
		{703, "AAA"},
	}
	for _, tc := range cases {
		if got := ExcelColumn(tc.n); got != tc.want {
			t.Fatalf("ExcelColumn(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestAlias_RewritesLeafAndBuildsMapping(t *testing.T) {
	m := NewCitationMapper()
	view := &domain.CollectionViewData{
		ID: "X1",
		UnstructuredData: []*domain.LeaseView{
			{
				LeaseID: strPtr("lease-1"),
				Fields: map[string][]*domain.LeaseFieldData{
					"rent": {
						{
							Type:        "string",
							ValueString: strPtr("1200"),
							Document:    "Collections/X1/lease-1/contract.pdf",
							Source:      "D(1,0.5,0.5)",
						},
					},
				},
			},
		},
	}

	mapping := m.Alias(view)

	leaf := view.UnstructuredData[0].Fields["rent"][0]
	if leaf.Document != "CITEX1-A" {
		t.Fatalf("expected aliased document, got %q", leaf.Document)
	}
	if leaf.Source != "" {
		t.Fatalf("expected source cleared, got %q", leaf.Source)
	}
	if leaf.Type != "" {
		t.Fatalf("expected type stripped, got %q", leaf.Type)
	}
	got, ok := mapping["CITEX1-A"]
	if !ok {
		t.Fatalf("expected mapping for CITEX1-A, got %v", mapping)
	}
	if got.SourceDocument != "Collections/X1/lease-1/contract.pdf" || got.SourceBoundingBoxes != "D(1,0.5,0.5)" {
		t.Fatalf("unexpected mapping entry: %+v", got)
	}
}

func TestAlias_CounterSpansLeasesAndWrapsPastZ(t *testing.T) {
	m := NewCitationMapper()
	fields := map[string][]*domain.LeaseFieldData{}
	// 27 leaves across sorted keys f01..f27 so the last alias wraps to AA.
	for i := 1; i <= 27; i++ {
		key := "f" + string(rune('0'+i/10)) + string(rune('0'+i%10))
		fields[key] = []*domain.LeaseFieldData{
			{ValueString: strPtr("v"), Document: "doc-" + key, Source: "b-" + key},
		}
	}
	view := &domain.CollectionViewData{
		ID:               "C",
		UnstructuredData: []*domain.LeaseView{{Fields: fields}},
	}

	mapping := m.Alias(view)
	if len(mapping) != 27 {
		t.Fatalf("expected 27 mappings, got %d", len(mapping))
	}
	first, ok := mapping["CITEC-A"]
	if !ok || first.SourceDocument != "doc-f01" {
		t.Fatalf("expected f01 under CITEC-A, got %+v (ok=%v)", first, ok)
	}
	last, ok := mapping["CITEC-AA"]
	if !ok || last.SourceDocument != "doc-f27" {
		t.Fatalf("expected f27 under CITEC-AA, got %+v (ok=%v)", last, ok)
	}
}

func TestAlias_DropsValuelessFields(t *testing.T) {
	m := NewCitationMapper()
	view := &domain.CollectionViewData{
		ID: "X",
		UnstructuredData: []*domain.LeaseView{
			{
				Fields: map[string][]*domain.LeaseFieldData{
					"empty": {{Type: "string"}},
					"kept":  {{ValueString: strPtr("v"), Document: "d", Source: "s"}},
				},
			},
		},
	}

	m.Alias(view)

	fields := view.UnstructuredData[0].Fields
	if _, ok := fields["empty"]; ok {
		t.Fatalf("expected valueless field removed, still present: %v", fields)
	}
	if _, ok := fields["kept"]; !ok {
		t.Fatalf("expected populated field kept")
	}
}

func TestAlias_ArrayPassesDocumentToObjectItems(t *testing.T) {
	m := NewCitationMapper()
	arr := &domain.LeaseFieldData{
		Document: "Collections/X/l/doc.pdf",
		ValueArray: []*domain.LeaseFieldData{
			{
				ValueObject: map[string]*domain.LeaseFieldData{
					"amount": {ValueNumber: float64Ptr(10), Source: "b1"},
					"label":  {ValueString: strPtr("base"), Source: "b2"},
				},
			},
		},
	}
	view := &domain.CollectionViewData{
		ID: "X",
		UnstructuredData: []*domain.LeaseView{
			{Fields: map[string][]*domain.LeaseFieldData{"charges": {arr}}},
		},
	}

	mapping := m.Alias(view)

	if arr.Document != "" {
		t.Fatalf("expected array document cleared, got %q", arr.Document)
	}
	if len(mapping) != 2 {
		t.Fatalf("expected two item mappings, got %d: %v", len(mapping), mapping)
	}
	item := arr.ValueArray[0].ValueObject
	// Sorted member order: amount then label.
	if item["amount"].Document != "CITEX-A" || item["label"].Document != "CITEX-B" {
		t.Fatalf("unexpected item aliases: %q, %q", item["amount"].Document, item["label"].Document)
	}
	if mapping["CITEX-A"].SourceDocument != "Collections/X/l/doc.pdf" {
		t.Fatalf("expected inherited source document, got %+v", mapping["CITEX-A"])
	}
	if mapping["CITEX-B"].SourceBoundingBoxes != "b2" {
		t.Fatalf("expected item bounding boxes, got %+v", mapping["CITEX-B"])
	}
}

func TestAlias_NodesWithoutDocumentAreNotAliased(t *testing.T) {
	m := NewCitationMapper()
	view := &domain.CollectionViewData{
		ID: "X",
		UnstructuredData: []*domain.LeaseView{
			{
				Fields: map[string][]*domain.LeaseFieldData{
					"plain": {{ValueString: strPtr("v")}},
				},
			},
		},
	}

	mapping := m.Alias(view)
	if len(mapping) != 0 {
		t.Fatalf("expected no mappings, got %v", mapping)
	}
	if doc := view.UnstructuredData[0].Fields["plain"][0].Document; doc != "" {
		t.Fatalf("expected document untouched, got %q", doc)
	}
}

func TestParseCitation(t *testing.T) {
	m := NewCitationMapper()
	cases := []struct {
		name       string
		raw        string
		wantToken  string
		wantCollID string
		wantErr    bool
	}{
		{name: "plain token", raw: "CITEabc-A", wantToken: "CITEabc-A", wantCollID: "abc"},
		{name: "surrounding whitespace", raw: "  CITEabc-B ", wantToken: "CITEabc-B", wantCollID: "abc"},
		{name: "json list wrapped", raw: `["CITEabc-C"]`, wantToken: "CITEabc-C", wantCollID: "abc"},
		{name: "missing prefix", raw: "abc-A", wantErr: true},
		{name: "missing separator", raw: "CITEabc", wantErr: true},
		{name: "empty json list", raw: "[]", wantErr: true},
		{name: "malformed json list", raw: "[CITEabc-A]", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, collID, err := m.ParseCitation(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got token=%q", token)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if token != tc.wantToken || collID != tc.wantCollID {
				t.Fatalf("got (%q, %q), want (%q, %q)", token, collID, tc.wantToken, tc.wantCollID)
			}
		})
	}
}

func float64Ptr(f float64) *float64 { return &f }
