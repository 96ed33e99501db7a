package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/platform/blob"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/repos"
	"github.com/davenrook/leasewise-backend/internal/types"
	"github.com/davenrook/leasewise-backend/internal/utils"
)

// ViewInvalidator drops cached collection views after a successful merge so
// readers never serve data older than the write that just landed.
type ViewInvalidator interface {
	InvalidateView(ctx context.Context, collectionID, configHash string) error
}

// IngestionService merges extraction output into the per-collection
// document. All writes for one (collection, config hash) pair are serialized
// through the document lock.
type IngestionService interface {
	IngestAnalyzerOutput(ctx context.Context, collectionID string, leaseID *string, filename string, dateOfDocument string, data *domain.ContentResult, config *domain.FieldDataCollectionConfig) error
	IngestClassifierOutput(ctx context.Context, collectionID string, leaseID *string, filename string, dateOfDocument string, data *domain.ContentResult, config *domain.FieldDataCollectionConfig) error
	IsDocumentIngested(ctx context.Context, collectionID, filename string, config *domain.FieldDataCollectionConfig, leaseID *string) (bool, error)
	CleanEmptyDocument(ctx context.Context, collectionID string, config *domain.FieldDataCollectionConfig) error
	CollectionInformation(ctx context.Context, collectionID string, config *domain.FieldDataCollectionConfig) (*domain.CollectionInformation, error)
}

type ingestionService struct {
	docs        repos.CollectionDocumentRepo
	store       blob.Store
	lock        DocumentLock
	invalidator ViewInvalidator
	log         *logger.Logger
}

func NewIngestionService(docs repos.CollectionDocumentRepo, store blob.Store, lock DocumentLock, invalidator ViewInvalidator, baseLog *logger.Logger) IngestionService {
	return &ingestionService{
		docs:        docs,
		store:       store,
		lock:        lock,
		invalidator: invalidator,
		log:         baseLog.With("service", "IngestionService"),
	}
}

func (s *ingestionService) IngestAnalyzerOutput(ctx context.Context, collectionID string, leaseID *string, filename string, dateOfDocument string, data *domain.ContentResult, config *domain.FieldDataCollectionConfig) error {
	return s.ingest(ctx, collectionID, leaseID, filename, dateOfDocument, data, config, false)
}

func (s *ingestionService) IngestClassifierOutput(ctx context.Context, collectionID string, leaseID *string, filename string, dateOfDocument string, data *domain.ContentResult, config *domain.FieldDataCollectionConfig) error {
	return s.ingest(ctx, collectionID, leaseID, filename, dateOfDocument, data, config, true)
}

func (s *ingestionService) ingest(ctx context.Context, collectionID string, leaseID *string, filename string, dateOfDocument string, data *domain.ContentResult, config *domain.FieldDataCollectionConfig, classifier bool) error {
	fieldList := config.FieldList()

	pdfPath, err := utils.BuildPDFPath(collectionID, filename, leaseID)
	if err != nil {
		return err
	}
	markdownPath, err := utils.BuildMarkdownPath(collectionID, filename, leaseID)
	if err != nil {
		return err
	}

	documentID := types.DocumentID(collectionID, config.LeaseConfigHash)

	held, err := s.lock.Wait(ctx, documentID)
	if err != nil {
		return err
	}
	if !held {
		return fmt.Errorf("timed out acquiring lock for document %s", documentID)
	}
	defer func() {
		if _, relErr := s.lock.Release(context.WithoutCancel(ctx), documentID); relErr != nil {
			s.log.Error("Failed to release document lock", "document_id", documentID, "error", relErr)
		}
	}()

	doc, info, err := s.getOrCreateDocument(ctx, documentID, collectionID, config)
	if err != nil {
		return err
	}

	lease := s.getOrCreateLease(info, leaseID, pdfPath, markdownPath, collectionID, config.LeaseConfigHash)

	if err := s.uploadMarkdown(ctx, data, markdownPath, classifier); err != nil {
		return err
	}

	if classifier {
		s.mergeClassifierFields(lease, data, fieldList, dateOfDocument, markdownPath, pdfPath)
	} else {
		s.mergeAnalyzerFields(lease, data, fieldList, dateOfDocument, markdownPath, pdfPath)
	}

	if err := s.upsertDocument(ctx, doc, info); err != nil {
		return err
	}

	if err := s.invalidator.InvalidateView(ctx, collectionID, config.LeaseConfigHash); err != nil {
		s.log.Warn("Failed to invalidate collection view cache", "collection_id", collectionID, "error", err)
	}

	s.log.Info("Extraction output ingested",
		"collection_id", collectionID,
		"lease_id", strValue(leaseID),
		"lease_config_hash", config.LeaseConfigHash,
		"classifier", classifier,
	)
	return nil
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// getOrCreateDocument loads the collection document, starting a fresh one
// when the row is missing or is a lock placeholder without content. The
// config id is refreshed on every ingestion so the document always names
// the latest configuration that wrote to it.
func (s *ingestionService) getOrCreateDocument(ctx context.Context, documentID, collectionID string, config *domain.FieldDataCollectionConfig) (*types.CollectionDocument, *domain.CollectionInformation, error) {
	row, err := s.docs.Get(ctx, nil, documentID)
	if err != nil {
		return nil, nil, err
	}

	if row == nil {
		row = &types.CollectionDocument{ID: documentID}
	}
	row.CollectionID = collectionID
	row.ConfigID = config.ID
	row.LeaseConfigHash = config.LeaseConfigHash

	info := &domain.CollectionInformation{Leases: []*domain.Lease{}}
	if len(row.Information) > 0 {
		if err := json.Unmarshal(row.Information, info); err != nil {
			s.log.Warn("Discarding unreadable document information", "document_id", documentID, "error", err)
			info = &domain.CollectionInformation{Leases: []*domain.Lease{}}
		}
	}
	return row, info, nil
}

// getOrCreateLease finds the lease bucket for leaseID, creating one when
// absent. Leases without an id are never matched, so every nil-id ingestion
// gets its own bucket. Document paths are append-only and deduplicated.
func (s *ingestionService) getOrCreateLease(info *domain.CollectionInformation, leaseID *string, pdfPath, markdownPath, collectionID, configHash string) *domain.Lease {
	lease := findLease(info, leaseID)
	if lease == nil {
		lease = &domain.Lease{
			LeaseID:           leaseID,
			OriginalDocuments: []string{},
			Markdowns:         []string{},
			Fields:            map[string][]*domain.FieldValue{},
		}
		info.Leases = append(info.Leases, lease)
	}

	if !contains(lease.OriginalDocuments, pdfPath) {
		lease.OriginalDocuments = append(lease.OriginalDocuments, pdfPath)
	} else {
		s.log.Warn("PDF file already ingested",
			"lease_id", strValue(leaseID), "collection_id", collectionID, "lease_config_hash", configHash)
	}

	if !contains(lease.Markdowns, markdownPath) {
		lease.Markdowns = append(lease.Markdowns, markdownPath)
	} else {
		s.log.Warn("Markdown file already ingested",
			"lease_id", strValue(leaseID), "collection_id", collectionID, "lease_config_hash", configHash)
	}

	return lease
}

func findLease(info *domain.CollectionInformation, leaseID *string) *domain.Lease {
	if leaseID == nil {
		return nil
	}
	for _, lease := range info.Leases {
		if lease.LeaseID != nil && *lease.LeaseID == *leaseID {
			return lease
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// uploadMarkdown writes the markdown body once. An existing blob wins; no
// overwrite on re-ingestion.
func (s *ingestionService) uploadMarkdown(ctx context.Context, data *domain.ContentResult, path string, classifier bool) error {
	exists, err := s.store.Exists(ctx, path)
	if err != nil {
		return err
	}
	if exists {
		s.log.Info("Markdown file already exists", "path", path)
		return nil
	}

	var body string
	if classifier {
		var b strings.Builder
		for _, content := range data.Result.Contents {
			if content.Markdown != "" {
				b.WriteString(content.Markdown)
				b.WriteString(" ")
			}
		}
		body = b.String()
	} else {
		if len(data.Result.Contents) == 0 {
			return fmt.Errorf("analyzer output has no contents")
		}
		body = data.Result.Contents[0].Markdown
	}

	return s.store.Upload(ctx, path, "text/markdown", strings.NewReader(body))
}

func (s *ingestionService) mergeAnalyzerFields(lease *domain.Lease, data *domain.ContentResult, fieldList []string, dateOfDocument, markdownPath, pdfPath string) {
	if len(data.Result.Contents) == 0 {
		return
	}
	for fieldName, fieldValue := range data.Result.Contents[0].Fields {
		s.mergeField(lease, fieldName, fieldValue, fieldList, dateOfDocument, markdownPath, pdfPath, "", nil, nil)
	}
}

func (s *ingestionService) mergeClassifierFields(lease *domain.Lease, data *domain.ContentResult, fieldList []string, dateOfDocument, markdownPath, pdfPath string) {
	for _, content := range data.Result.Contents {
		if content.Fields == nil {
			continue
		}
		for fieldName, fieldValue := range content.Fields {
			s.mergeField(lease, fieldName, fieldValue, fieldList, dateOfDocument, markdownPath, pdfPath,
				content.Category, content.StartPageNumber, content.EndPageNumber)
		}
	}
}

// mergeField appends one extracted value to the lease's field list. Unknown
// fields and fields without any usable value are skipped, never raised.
func (s *ingestionService) mergeField(lease *domain.Lease, fieldName string, fieldValue *domain.FieldValue, fieldList []string, dateOfDocument, markdownPath, pdfPath, category string, startPage, endPage *int) bool {
	if !contains(fieldList, fieldName) {
		s.log.Info("Skipping field not part of the configuration", "field", fieldName)
		return false
	}
	if fieldValue == nil || !fieldValue.HasValue() {
		s.log.Info("Skipping field without extractable value", "field", fieldName)
		return false
	}

	entry := *fieldValue
	entry.DateOfDocument = dateOfDocument
	entry.Markdown = markdownPath
	entry.Document = pdfPath
	if category != "" {
		entry.Category = category
	}
	if startPage != nil {
		entry.SubdocumentStartPage = startPage
	}
	if endPage != nil {
		entry.SubdocumentEndPage = endPage
	}

	lease.Fields[fieldName] = append(lease.Fields[fieldName], &entry)
	return true
}

func (s *ingestionService) upsertDocument(ctx context.Context, doc *types.CollectionDocument, info *domain.CollectionInformation) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	doc.Information = raw
	return s.docs.Upsert(ctx, nil, doc)
}

// IsDocumentIngested is the idempotence gate: true only when the document
// exists, holds a lease with the given id, and that lease already lists the
// computed original-document path for this file.
func (s *ingestionService) IsDocumentIngested(ctx context.Context, collectionID, filename string, config *domain.FieldDataCollectionConfig, leaseID *string) (bool, error) {
	info, err := s.CollectionInformation(ctx, collectionID, config)
	if err != nil {
		return false, err
	}
	if info == nil {
		return false, nil
	}

	lease := findLease(info, leaseID)
	if lease == nil {
		return false, nil
	}

	pdfPath, err := utils.BuildPDFPath(collectionID, filename, leaseID)
	if err != nil {
		return false, err
	}
	return contains(lease.OriginalDocuments, pdfPath), nil
}

// CleanEmptyDocument removes lock placeholder rows that never received
// content, so a failed first ingestion does not leave a half-formed document
// behind.
func (s *ingestionService) CleanEmptyDocument(ctx context.Context, collectionID string, config *domain.FieldDataCollectionConfig) error {
	documentID := types.DocumentID(collectionID, config.LeaseConfigHash)
	row, err := s.docs.Get(ctx, nil, documentID)
	if err != nil {
		return err
	}
	if row == nil {
		return nil
	}
	if row.CollectionID != "" && len(row.Information) > 0 {
		return nil
	}
	s.log.Info("Deleting empty collection document", "document_id", documentID)
	return s.docs.Delete(ctx, nil, documentID)
}

// CollectionInformation returns the parsed information section, or nil when
// no content has been ingested for this collection and config hash.
func (s *ingestionService) CollectionInformation(ctx context.Context, collectionID string, config *domain.FieldDataCollectionConfig) (*domain.CollectionInformation, error) {
	return loadCollectionInformation(ctx, s.docs, collectionID, config)
}

func loadCollectionInformation(ctx context.Context, docs repos.CollectionDocumentRepo, collectionID string, config *domain.FieldDataCollectionConfig) (*domain.CollectionInformation, error) {
	documentID := types.DocumentID(collectionID, config.LeaseConfigHash)
	row, err := docs.Get(ctx, nil, documentID)
	if err != nil {
		return nil, err
	}
	if row == nil || row.CollectionID == "" || len(row.Information) == 0 {
		return nil, nil
	}

	var info domain.CollectionInformation
	if err := json.Unmarshal(row.Information, &info); err != nil {
		return nil, fmt.Errorf("decode information for %s: %w", documentID, err)
	}
	return &info, nil
}
