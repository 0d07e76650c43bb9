package sqlgen

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/toiawase/internal/dialect"
	"github.com/hyperjump/toiawase/internal/models"
	"github.com/hyperjump/toiawase/internal/provider"
)

// SourceSchema bundles everything generation needs for one relational source.
type SourceSchema struct {
	Name    string
	Type    dialect.SourceType
	MaxRows int
	Schema  *models.DatabaseSchemaInfo
}

// Generator produces one validated statement per relational source. Failures
// are isolated: a source whose generation or validation fails gets a
// rejected/failed entry, never an error that stops the other sources.
type Generator struct {
	provider provider.Provider
	logger   *zap.Logger
}

// NewGenerator creates a Generator backed by a text-generation provider.
func NewGenerator(p provider.Provider, logger *zap.Logger) *Generator {
	return &Generator{provider: p, logger: logger}
}

// Generate builds, formats, and validates a statement per source. The result
// map always has one entry per input source.
func (g *Generator) Generate(ctx context.Context, userQuery string, sources []SourceSchema) map[string]*models.GeneratedQuery {
	out := make(map[string]*models.GeneratedQuery, len(sources))
	for _, src := range sources {
		out[src.Name] = g.generateOne(ctx, userQuery, src)
	}
	return out
}

func (g *Generator) generateOne(ctx context.Context, userQuery string, src SourceSchema) *models.GeneratedQuery {
	gq := &models.GeneratedQuery{SourceName: src.Name, Status: models.GenerationPending}

	d, err := dialect.For(src.Type)
	if err != nil {
		gq.Status = models.GenerationFailed
		gq.Reason = err.Error()
		return gq
	}
	if src.Schema == nil || len(src.Schema.Tables) == 0 {
		gq.Status = models.GenerationFailed
		gq.Reason = "no schema available for source"
		return gq
	}

	prompt := d.BuildPromptContext(src.Schema, userQuery)
	raw, err := g.provider.GenerateText(ctx, prompt)
	if err != nil {
		g.logger.Warn("sql generation failed",
			zap.String("source", src.Name), zap.Error(err))
		gq.Status = models.GenerationFailed
		gq.Reason = fmt.Sprintf("generation failed: %v", err)
		return gq
	}

	gq.SQL = d.FormatSQL(raw, src.MaxRows)

	warnings, err := Validate(gq.SQL, d, src.Schema)
	gq.Warnings = warnings
	if err != nil {
		if verr, ok := err.(*ValidationError); ok {
			gq.Errors = verr.Errors
		} else {
			gq.Errors = []string{err.Error()}
		}
		gq.Status = models.GenerationRejected
		gq.Reason = "validation failed"
		g.logger.Warn("generated sql rejected",
			zap.String("source", src.Name),
			zap.Strings("errors", gq.Errors))
		return gq
	}

	gq.Status = models.GenerationValidated
	g.logger.Debug("generated sql validated",
		zap.String("source", src.Name),
		zap.String("sql", gq.SQL),
		zap.Strings("warnings", warnings))
	return gq
}
