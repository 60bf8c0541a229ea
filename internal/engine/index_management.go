package engine

import (
	"strings"

	"github.com/google/uuid"

	"github.com/gcbaptista/go-shard-query/config"
	"github.com/gcbaptista/go-shard-query/internal/errors"
	"github.com/gcbaptista/go-shard-query/mapping"
	"github.com/gcbaptista/go-shard-query/model"
	"github.com/gcbaptista/go-shard-query/services"
)

// CreateIndex creates a new index with the given settings and mapping.
// A missing UUID is generated.
func (e *Engine) CreateIndex(settings config.IndexSettings, def *mapping.Definition) error {
	settings.ApplyDefaults()
	if problems := settings.Validate(); len(problems) > 0 {
		return errors.NewValidationError("settings", strings.Join(problems, "; "))
	}
	if settings.UUID == "" {
		settings.UUID = uuid.NewString()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.indexes[settings.Name]; exists {
		return errors.NewIndexAlreadyExistsError(settings.Name)
	}

	instance, err := NewIndexInstance(settings, def, e.registry, e.logger)
	if err != nil {
		return errors.NewValidationError("mapping", err.Error())
	}

	e.indexes[settings.Name] = instance
	e.logger.Info("index created", "index", settings.Name, "uuid", settings.UUID, "fields", len(instance.mappings.FieldNames()))
	return nil
}

// DeleteIndex removes an index and everything cached for it.
func (e *Engine) DeleteIndex(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	instance, exists := e.indexes[name]
	if !exists {
		return errors.NewIndexNotFoundError(name)
	}
	delete(e.indexes, name)
	instance.invalidateCaches()

	e.logger.Info("index deleted", "index", name)
	return nil
}

// GetIndexInfo returns the settings, fields and document count of an index.
func (e *Engine) GetIndexInfo(name string) (services.IndexInfo, error) {
	instance, err := e.instance(name)
	if err != nil {
		return services.IndexInfo{}, err
	}

	instance.mu.RLock()
	defer instance.mu.RUnlock()
	fields := instance.mappings.FieldNames()
	if fields == nil {
		fields = []string{}
	}
	return services.IndexInfo{
		Settings:      *instance.settings, // Return a copy
		Fields:        fields,
		DocumentType:  instance.mappings.DocumentType(),
		DocumentCount: instance.DocumentStore.Len(),
	}, nil
}

// AddDocuments indexes docs into an index.
func (e *Engine) AddDocuments(indexName string, docs []model.Document) error {
	instance, err := e.instance(indexName)
	if err != nil {
		return err
	}
	if err := instance.AddDocuments(docs); err != nil {
		return errors.NewValidationError("documents", err.Error())
	}
	return nil
}

// DeleteDocument removes one document from an index.
func (e *Engine) DeleteDocument(indexName, documentID string) error {
	instance, err := e.instance(indexName)
	if err != nil {
		return err
	}
	if !instance.DeleteDocument(documentID) {
		return errors.NewDocumentNotFoundError(documentID, indexName)
	}
	return nil
}
