package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/platform/apierr"
	"github.com/davenrook/leasewise-backend/internal/platform/docintel"
	"github.com/davenrook/leasewise-backend/internal/platform/envutil"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/repos"
	"github.com/davenrook/leasewise-backend/internal/types"
)

const (
	analyzerTemplateID = "document-2024-12-01"
	analyzerScenario   = "document"
	baseAnalyzerID     = "prebuilt-documentAnalyzer"
)

// IngestConfigService manages named, versioned collection configurations.
// Publishing a config creates any missing analyzers and stamps the config
// with a hash over its lease schema, which partitions collection documents.
type IngestConfigService interface {
	LoadConfig(ctx context.Context, id string) (*domain.FieldDataCollectionConfig, error)
	GetConfig(ctx context.Context, name, version string) (*domain.FieldDataCollectionConfig, error)
	SetConfig(ctx context.Context, config *domain.FieldDataCollectionConfig, name, version string) error
}

type ingestConfigService struct {
	configs   repos.IngestConfigRepo
	docintel  docintel.Client
	log       *logger.Logger
	projectID string
}

func NewIngestConfigService(configs repos.IngestConfigRepo, dc docintel.Client, baseLog *logger.Logger) IngestConfigService {
	return &ingestConfigService{
		configs:   configs,
		docintel:  dc,
		log:       baseLog.With("service", "IngestConfigService"),
		projectID: envutil.Str("PROJECT_ID", "leasewise"),
	}
}

// LoadConfig returns nil when no configuration exists with the given id.
func (s *ingestConfigService) LoadConfig(ctx context.Context, id string) (*domain.FieldDataCollectionConfig, error) {
	row, err := s.configs.Get(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	var config domain.FieldDataCollectionConfig
	if err := json.Unmarshal(row.Payload, &config); err != nil {
		return nil, fmt.Errorf("decode configuration %s: %w", id, err)
	}
	return &config, nil
}

func (s *ingestConfigService) GetConfig(ctx context.Context, name, version string) (*domain.FieldDataCollectionConfig, error) {
	config, err := s.LoadConfig(ctx, domain.BuildConfigID(name, version))
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, apierr.NotFound("configuration not found")
	}
	return config, nil
}

func (s *ingestConfigService) SetConfig(ctx context.Context, config *domain.FieldDataCollectionConfig, name, version string) error {
	if config.Name != name || config.Version != version {
		return apierr.BadRequest("configuration name and version do not match the route parameters")
	}

	leaseRows := config.LeaseAgreementRows()
	if len(leaseRows) > 0 {
		if err := s.validateAnalyzersAndCreate(ctx, leaseRows); err != nil {
			return err
		}
		s.validateClassifiers(ctx, leaseRows)
		config.LeaseConfigHash = leaseConfigHash(leaseRows)
	}

	config.ID = domain.BuildConfigID(name, version)

	payload, err := json.Marshal(config)
	if err != nil {
		return err
	}
	return s.configs.Upsert(ctx, nil, &types.IngestConfig{
		ID:      config.ID,
		Name:    name,
		Version: version,
		Payload: payload,
	})
}

// leaseConfigHash hashes the lease schema: field schemas plus classifier per
// row, with schemas sorted by name and rows by classifier id so equivalent
// configs always hash identically.
func leaseConfigHash(rows []domain.CollectionRow) string {
	type rowData struct {
		FieldSchema []domain.FieldSchema     `json:"field_schema"`
		Classifier  *domain.ClassifierConfig `json:"classifier"`
	}

	data := make([]rowData, 0, len(rows))
	for _, row := range rows {
		schemas := append([]domain.FieldSchema(nil), row.FieldSchema...)
		sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
		data = append(data, rowData{FieldSchema: schemas, Classifier: row.Classifier})
	}
	sort.Slice(data, func(i, j int) bool {
		return classifierSortKey(data[i].Classifier) < classifierSortKey(data[j].Classifier)
	})

	serialized, _ := json.Marshal(data)
	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:])
}

func classifierSortKey(c *domain.ClassifierConfig) string {
	if c == nil {
		return ""
	}
	return c.ClassifierID
}

func (s *ingestConfigService) validateAnalyzersAndCreate(ctx context.Context, rows []domain.CollectionRow) error {
	analyzers, err := s.docintel.ListAnalyzers(ctx)
	if err != nil {
		s.log.Error("Failed to fetch analyzers", "error", err)
		return apierr.Internal("unable to validate analyzers due to a service error")
	}
	available := map[string]struct{}{}
	for _, analyzer := range analyzers {
		if id, ok := analyzer["analyzerId"].(string); ok {
			available[id] = struct{}{}
		}
	}

	for _, row := range rows {
		if _, ok := available[row.AnalyzerID]; ok {
			continue
		}

		s.log.Info("Creating analyzer", "analyzer_id", row.AnalyzerID)
		op, err := s.docintel.CreateAnalyzer(ctx, row.AnalyzerID, s.buildAnalyzerTemplate(row))
		if err != nil {
			return err
		}
		if _, err := s.docintel.PollResult(ctx, op); err != nil {
			return err
		}
		s.log.Info("Analyzer created", "analyzer_id", row.AnalyzerID)
	}
	return nil
}

// validateClassifiers only reports missing classifiers; they are created
// through their own endpoint.
func (s *ingestConfigService) validateClassifiers(ctx context.Context, rows []domain.CollectionRow) {
	classifiers, err := s.docintel.ListClassifiers(ctx)
	if err != nil {
		s.log.Error("Failed to fetch classifiers", "error", err)
		return
	}
	available := map[string]struct{}{}
	for _, classifier := range classifiers {
		if id, ok := classifier["classifierId"].(string); ok {
			available[id] = struct{}{}
		}
	}

	for _, row := range rows {
		if row.Classifier == nil {
			continue
		}
		if _, ok := available[row.Classifier.ClassifierID]; !ok {
			s.log.Error("Classifier does not exist, create it via the classifier endpoint",
				"classifier_id", row.Classifier.ClassifierID)
		}
	}
}

func (s *ingestConfigService) buildAnalyzerTemplate(row domain.CollectionRow) map[string]any {
	fields := map[string]any{}
	for _, field := range row.FieldSchema {
		if field.Type == domain.FieldMappingTypeArray {
			fields[field.Name] = arrayFieldSchema(field)
		} else {
			fields[field.Name] = fieldSchema(field)
		}
	}

	return map[string]any{
		"baseAnalyzerId": baseAnalyzerID,
		"scenario":       analyzerScenario,
		"config": map[string]any{
			"returnDetails":                    true,
			"estimateFieldSourceAndConfidence": true,
		},
		"tags": map[string]any{
			"projectId":  s.projectID,
			"templateId": analyzerTemplateID,
		},
		"fieldSchema": map[string]any{
			"fields": fields,
		},
	}
}

func fieldSchema(field domain.FieldSchema) map[string]any {
	return map[string]any{
		"name":        field.Name,
		"type":        field.Type.ContentUnderstandingType(),
		"description": field.Description,
		"method":      string(field.Method),
	}
}

func arrayFieldSchema(field domain.FieldSchema) map[string]any {
	properties := map[string]any{}
	for _, item := range field.Items {
		properties[item.Name] = fieldSchema(item)
	}
	return map[string]any{
		"type":        string(domain.FieldMappingTypeArray),
		"method":      string(field.Method),
		"description": field.Description,
		"items": map[string]any{
			"type":       string(domain.FieldMappingTypeObject),
			"method":     string(domain.FieldMappingMethodExtract),
			"properties": properties,
		},
	}
}
