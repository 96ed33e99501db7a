package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/platform/apierr"
	"github.com/davenrook/leasewise-backend/internal/platform/docintel"
	"github.com/davenrook/leasewise-backend/internal/platform/envutil"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/utils"
)

// IngestRunner drives document ingestion end to end: resolve the
// configuration, skip documents that are already merged, run the analyzer or
// classifier, and hand the output to the merge engine. In local development
// analysis output is cached on disk so re-runs skip the remote call.
type IngestRunner interface {
	IngestDocuments(ctx context.Context, configName, configVersion string, documents []domain.IngestDocumentRequest) error
}

type ingestRunner struct {
	configs   IngestConfigService
	ingestion IngestionService
	docintel  docintel.Client
	fileCache *utils.FileCache
	log       *logger.Logger
}

func NewIngestRunner(configs IngestConfigService, ingestion IngestionService, dc docintel.Client, baseLog *logger.Logger) (IngestRunner, error) {
	localDev := strings.EqualFold(envutil.Str("ENVIRONMENT", ""), "local")
	fileCache, err := utils.NewFileCache(envutil.Str("ANALYZER_CACHE_DIR", "analyzer_cache"), localDev)
	if err != nil {
		return nil, err
	}
	return &ingestRunner{
		configs:   configs,
		ingestion: ingestion,
		docintel:  dc,
		fileCache: fileCache,
		log:       baseLog.With("service", "IngestRunner"),
	}, nil
}

func (r *ingestRunner) IngestDocuments(ctx context.Context, configName, configVersion string, documents []domain.IngestDocumentRequest) error {
	runLog := r.log.With("run_id", uuid.NewString())

	config, err := r.configs.LoadConfig(ctx, domain.BuildConfigID(configName, configVersion))
	if err != nil {
		return err
	}
	if config == nil {
		return apierr.NotFound("configuration not found")
	}

	leaseRows := config.LeaseAgreementRows()

	for _, document := range documents {
		leaseID := optionalString(document.LeaseID)
		dateOfDocument := document.DateOfDocument.Format("2006-01-02")

		for _, row := range leaseRows {
			if err := r.ingestion.CleanEmptyDocument(ctx, document.ID, config); err != nil {
				return err
			}

			ingested, err := r.ingestion.IsDocumentIngested(ctx, document.ID, document.Filename, config, leaseID)
			if err != nil {
				return err
			}
			if ingested {
				runLog.Warn("Document already ingested, skipping",
					"collection_id", document.ID,
					"lease_id", document.LeaseID,
					"filename", document.Filename,
					"lease_config_hash", config.LeaseConfigHash,
				)
				continue
			}

			classifierEnabled := row.Classifier != nil && row.Classifier.Enabled

			output, err := r.analyzeDocument(ctx, row, document, config, classifierEnabled)
			if err != nil {
				return err
			}

			if classifierEnabled {
				err = r.ingestion.IngestClassifierOutput(ctx, document.ID, leaseID, document.Filename, dateOfDocument, output, config)
			} else {
				err = r.ingestion.IngestAnalyzerOutput(ctx, document.ID, leaseID, document.Filename, dateOfDocument, output, config)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *ingestRunner) analyzeDocument(ctx context.Context, row domain.CollectionRow, document domain.IngestDocumentRequest, config *domain.FieldDataCollectionConfig, classifierEnabled bool) (*domain.ContentResult, error) {
	cacheKey := r.fileCache.Key(document.ID, document.Filename, config.LeaseConfigHash)

	var cached domain.ContentResult
	hit, err := r.fileCache.Read(cacheKey, &cached)
	if err != nil {
		r.log.Warn("Failed to read analyzer cache", "key", cacheKey, "error", err)
	}
	if hit {
		r.log.Info("Loaded analysis output from file cache", "key", cacheKey)
		return &cached, nil
	}

	var op *docintel.Operation
	if classifierEnabled {
		op, err = r.docintel.BeginClassify(ctx, row.Classifier.ClassifierID, document.FileBytes)
	} else {
		op, err = r.docintel.BeginAnalyze(ctx, row.AnalyzerID, document.FileBytes)
	}
	if err != nil {
		return nil, err
	}

	output, err := r.docintel.PollResult(ctx, op)
	if err != nil {
		return nil, err
	}

	if err := r.fileCache.Write(cacheKey, output); err != nil {
		r.log.Warn("Failed to write analyzer cache", "key", cacheKey, "error", err)
	}
	return output, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
