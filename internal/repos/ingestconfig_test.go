package repos

import (
	"context"
	"strings"
	"testing"

	"github.com/davenrook/leasewise-backend/internal/types"
)

func TestIngestConfigRepo(t *testing.T) {
	db := testDatabase(t)
	tx := testTx(t, db)
	ctx := context.Background()
	repo := NewIngestConfigRepo(db, testLogger(t))

	row, err := repo.Get(ctx, tx, "cfg-1")
	if err != nil || row != nil {
		t.Fatalf("expected (nil, nil) for missing config, got (%v, %v)", row, err)
	}

	if err := repo.Upsert(ctx, tx, &types.IngestConfig{
		ID:      "cfg-1",
		Name:    "cfg",
		Version: "1",
		Payload: []byte(`{"data_type":"LeaseAgreement"}`),
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.Upsert(ctx, tx, &types.IngestConfig{
		ID:      "cfg-2",
		Name:    "cfg",
		Version: "2",
		Payload: []byte(`{"data_type":"LeaseAgreement"}`),
	}); err != nil {
		t.Fatalf("insert second version: %v", err)
	}
	if err := repo.Upsert(ctx, tx, &types.IngestConfig{
		ID:      "other-1",
		Name:    "other",
		Version: "1",
		Payload: []byte(`{}`),
	}); err != nil {
		t.Fatalf("insert other name: %v", err)
	}

	row, err = repo.Get(ctx, tx, "cfg-1")
	if err != nil || row == nil {
		t.Fatalf("get: (%v, %v)", row, err)
	}
	if row.Name != "cfg" || row.Version != "1" {
		t.Fatalf("unexpected config: %+v", row)
	}

	row.Payload = []byte(`{"data_type":"UnityCatalog"}`)
	if err := repo.Upsert(ctx, tx, row); err != nil {
		t.Fatalf("update: %v", err)
	}
	row, _ = repo.Get(ctx, tx, "cfg-1")
	if !strings.Contains(string(row.Payload), "UnityCatalog") {
		t.Fatalf("payload not updated: %s", row.Payload)
	}

	list, err := repo.ListByName(ctx, tx, "cfg")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 versions of cfg, got %d", len(list))
	}
	for _, c := range list {
		if c.Name != "cfg" {
			t.Fatalf("foreign config in listing: %+v", c)
		}
	}

	list, err = repo.ListByName(ctx, tx, "absent")
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty listing, got (%v, %v)", list, err)
	}
}
