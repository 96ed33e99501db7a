package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/davenrook/leasewise-backend/internal/clients/redis"
	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/platform/envutil"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/repos"
)

// CollectionDataProvider assembles the model-facing view of a collection:
// the extracted field tree with citations replaced by aliases, serialized to
// JSON, plus the alias mapping needed to restore citations from model
// output. Views are cached per (collection, config hash) until the next
// ingestion invalidates them.
type CollectionDataProvider interface {
	GetCollectionData(ctx context.Context, collectionID string, config *domain.FieldDataCollectionConfig) (string, error)
	RestoreCitations(ctx context.Context, citations []string, config *domain.FieldDataCollectionConfig) ([][]string, error)
	InvalidateView(ctx context.Context, collectionID, configHash string) error
}

type cachedView struct {
	DocumentData string                            `json:"document_data"`
	Citations    map[string]domain.CitationMapping `json:"citations"`
}

type collectionDataProvider struct {
	docs   repos.CollectionDocumentRepo
	cache  goredis.ViewCache
	mapper *CitationMapper
	log    *logger.Logger
	ttl    time.Duration
}

func NewCollectionDataProvider(docs repos.CollectionDocumentRepo, cache goredis.ViewCache, mapper *CitationMapper, baseLog *logger.Logger) CollectionDataProvider {
	return &collectionDataProvider{
		docs:   docs,
		cache:  cache,
		mapper: mapper,
		log:    baseLog.With("service", "CollectionDataProvider"),
		ttl:    envutil.Duration("COLLECTION_VIEW_TTL", 24*time.Hour),
	}
}

func viewCacheKey(collectionID, configHash string) string {
	return fmt.Sprintf("collection_view:%s:%s", collectionID, configHash)
}

func (p *collectionDataProvider) GetCollectionData(ctx context.Context, collectionID string, config *domain.FieldDataCollectionConfig) (string, error) {
	view, err := p.getOrBuild(ctx, collectionID, config)
	if err != nil {
		return "", err
	}
	return view.DocumentData, nil
}

func (p *collectionDataProvider) getOrBuild(ctx context.Context, collectionID string, config *domain.FieldDataCollectionConfig) (*cachedView, error) {
	key := viewCacheKey(collectionID, config.LeaseConfigHash)

	var cached cachedView
	hit, err := p.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		p.log.Warn("Collection view cache read failed", "key", key, "error", err)
	}
	if hit {
		return &cached, nil
	}

	view, err := p.buildView(ctx, collectionID, config)
	if err != nil {
		return nil, err
	}

	if err := p.cache.SetJSON(ctx, key, view, p.ttl); err != nil {
		p.log.Warn("Collection view cache write failed", "key", key, "error", err)
	}
	return view, nil
}

func (p *collectionDataProvider) buildView(ctx context.Context, collectionID string, config *domain.FieldDataCollectionConfig) (*cachedView, error) {
	info, err := loadCollectionInformation(ctx, p.docs, collectionID, config)
	if err != nil {
		return nil, err
	}

	view := &domain.CollectionViewData{
		ID:              collectionID,
		LeaseConfigHash: config.LeaseConfigHash,
	}

	if info != nil && len(config.LeaseAgreementRows()) > 0 {
		seen := map[string]struct{}{}
		for _, lease := range info.Leases {
			key := "nil"
			if lease.LeaseID != nil {
				key = "id:" + *lease.LeaseID
			}
			if _, dup := seen[key]; dup {
				p.log.Error("Duplicate lease key in collection document, skipping", "collection_id", collectionID, "lease_id", strValue(lease.LeaseID))
				continue
			}
			seen[key] = struct{}{}

			fields := make(map[string][]*domain.LeaseFieldData, len(lease.Fields))
			for name, values := range lease.Fields {
				projected := make([]*domain.LeaseFieldData, 0, len(values))
				for _, v := range values {
					projected = append(projected, domain.NewLeaseFieldData(v))
				}
				fields[name] = projected
			}
			view.UnstructuredData = append(view.UnstructuredData, &domain.LeaseView{
				LeaseID: lease.LeaseID,
				Fields:  fields,
			})
		}
	} else if info == nil {
		p.log.Warn("No ingested data for collection", "collection_id", collectionID, "lease_config_hash", config.LeaseConfigHash)
	}

	citations := p.mapper.Alias(view)

	raw, err := json.Marshal(view)
	if err != nil {
		return nil, err
	}
	return &cachedView{DocumentData: string(raw), Citations: citations}, nil
}

// RestoreCitations expands alias tokens from model output back into
// [source_document, source_bounding_boxes] pairs. Malformed tokens are an
// error the caller can surface; aliases that resolve to nothing are
// dropped.
func (p *collectionDataProvider) RestoreCitations(ctx context.Context, citations []string, config *domain.FieldDataCollectionConfig) ([][]string, error) {
	restored := make([][]string, 0, len(citations))
	for _, raw := range citations {
		token, collectionID, err := p.mapper.ParseCitation(raw)
		if err != nil {
			return nil, err
		}

		view, err := p.getOrBuild(ctx, collectionID, config)
		if err != nil {
			return nil, err
		}

		mapping, ok := view.Citations[token]
		if !ok {
			p.log.Warn("Citation alias not found in view", "citation", token)
			continue
		}
		restored = append(restored, []string{mapping.SourceDocument, mapping.SourceBoundingBoxes})
	}
	return restored, nil
}

func (p *collectionDataProvider) InvalidateView(ctx context.Context, collectionID, configHash string) error {
	return p.cache.Delete(ctx, viewCacheKey(collectionID, configHash))
}
