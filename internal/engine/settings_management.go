package engine

import (
	"fmt"
	"strings"

	"github.com/gcbaptista/go-shard-query/config"
	"github.com/gcbaptista/go-shard-query/internal/errors"
	"github.com/gcbaptista/go-shard-query/mapping"
)

// UpdateIndexSettings replaces the search-time settings of an index. The
// name, uuid and created version of an index never change. Contexts created
// before the update keep the settings they were created with.
func (e *Engine) UpdateIndexSettings(name string, newSettings config.IndexSettings) error {
	instance, err := e.instance(name)
	if err != nil {
		return err
	}
	return instance.updateSettings(name, newSettings)
}

func (i *IndexInstance) updateSettings(name string, newSettings config.IndexSettings) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	oldSettings := i.settings
	if newSettings.Name != "" && newSettings.Name != name {
		return errors.NewValidationError("name", fmt.Sprintf("cannot change index name from '%s' to '%s'", name, newSettings.Name))
	}
	newSettings.Name = name
	newSettings.UUID = oldSettings.UUID
	newSettings.VersionCreated = oldSettings.VersionCreated
	newSettings.ApplyDefaults()
	if problems := newSettings.Validate(); len(problems) > 0 {
		return errors.NewValidationError("settings", strings.Join(problems, "; "))
	}

	if newSettings.RequestCacheSize != oldSettings.RequestCacheSize {
		i.requestCache.Resize(newSettings.RequestCacheSize)
	}
	// Cached results were computed under the old settings.
	i.requestCache.Purge()
	i.settings = &newSettings

	i.logger.Info("settings updated",
		"allow_expensive_queries", newSettings.IsAllowExpensiveQueries(),
		"max_rewrite_steps", newSettings.MaxRewriteSteps)
	return nil
}

// UpdateMapping replaces the mapping of an index and reindexes every stored
// document against it. When a document does not fit the new mapping the
// index is left unchanged.
func (e *Engine) UpdateMapping(name string, def *mapping.Definition) error {
	instance, err := e.instance(name)
	if err != nil {
		return err
	}
	return instance.updateMapping(def, e.registry)
}

func (i *IndexInstance) updateMapping(def *mapping.Definition, registry *mapping.Registry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	// Extract all documents before reindexing
	docs := i.Documents()

	previous := i.state()
	if err := i.build(def, registry); err != nil {
		return errors.NewValidationError("mapping", err.Error())
	}
	if len(docs) > 0 {
		if err := i.indexer.AddDocuments(docs); err != nil {
			i.restore(previous)
			return errors.NewValidationError("mapping", fmt.Sprintf("failed to reindex documents: %v", err))
		}
	}

	i.logger.Info("mapping updated", "documents", len(docs), "fields", len(i.mappings.FieldNames()))
	return nil
}
