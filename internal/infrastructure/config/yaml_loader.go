package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	cfgpkg "github.com/alexisbeaulieu97/stepwise/internal/config"
	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	"github.com/alexisbeaulieu97/stepwise/internal/infrastructure/schema"
	"github.com/alexisbeaulieu97/stepwise/internal/ports"
	apperrors "github.com/alexisbeaulieu97/stepwise/pkg/errors"
)

// YAMLLoader implements the FlowLoader port by reading YAML files from disk.
type YAMLLoader struct {
	logger ports.Logger
}

func NewYAMLLoader(logger ports.Logger) *YAMLLoader {
	return &YAMLLoader{logger: logger}
}

func (l *YAMLLoader) Load(ctx context.Context, path string) (*ports.Flow, error) {
	if err := contextCheck(ctx); err != nil {
		return nil, err
	}

	l.logDebug(ctx, "loading wizard flow", map[string]interface{}{"path": path})

	cfg, err := cfgpkg.ParseFlow(path)
	if err != nil {
		l.logError(ctx, "failed to parse flow", err, map[string]interface{}{"path": path})
		return nil, convertError(err, path)
	}

	if err := contextCheck(ctx); err != nil {
		return nil, err
	}

	catalog, err := schema.BuildCatalog(ctx, cfg, filepath.Dir(path))
	if err != nil {
		l.logError(ctx, "failed to build schema catalog", err, map[string]interface{}{"path": path})
		return nil, convertError(err, path)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		l.logError(ctx, "flow failed registry validation", err, map[string]interface{}{"path": path})
		return nil, err
	}

	l.logInfo(ctx, "wizard flow loaded", map[string]interface{}{
		"path":    path,
		"steps":   registry.Len(),
		"schemas": len(catalog.Refs()),
	})

	return &ports.Flow{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Description: cfg.Description,
		InitialStep: cfg.InitialStep,
		Registry:    registry,
		Schemas:     catalog,
	}, nil
}

func (l *YAMLLoader) Validate(ctx context.Context, path string) error {
	if err := contextCheck(ctx); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		l.logError(ctx, "flow path stat failed", err, map[string]interface{}{"path": path})
		return convertError(err, path)
	}
	if info.IsDir() {
		return domainError(domain.ErrCodeInvalidFlow, "flow path is a directory", nil, map[string]interface{}{"path": path})
	}

	ext := filepath.Ext(path)
	switch ext {
	case ".yaml", ".yml":
		l.logDebug(ctx, "validating wizard flow", map[string]interface{}{"path": path})
		_, err = l.Load(ctx, path)
	default:
		err = domainError(domain.ErrCodeInvalidFlow, "unsupported flow file extension", nil, map[string]interface{}{"path": path, "extension": ext})
	}

	return err
}

var _ ports.FlowLoader = (*YAMLLoader)(nil)

// buildRegistry turns flow steps into frozen step definitions. visible_when
// entries and visible_if_present are combined with AllOf.
func buildRegistry(cfg *cfgpkg.Flow) (*domain.Registry, error) {
	defs := make([]domain.StepDefinition, len(cfg.Steps))
	for i, step := range cfg.Steps {
		defs[i] = domain.StepDefinition{
			ID:         step.ID,
			Title:      step.Title,
			Order:      step.EffectiveOrder(i),
			Applicable: visibility(step),
			SchemaRef:  domain.SchemaRef(step.Schema),
			Optional:   step.Optional,
		}
	}
	return domain.NewFrozenRegistry(defs...)
}

func visibility(step cfgpkg.Step) domain.Predicate {
	paths := make([]string, 0, len(step.VisibleWhen))
	for path := range step.VisibleWhen {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	preds := make([]domain.Predicate, 0, len(paths)+1)
	for _, path := range paths {
		allowed := make([]any, len(step.VisibleWhen[path]))
		for i, value := range step.VisibleWhen[path] {
			allowed[i] = value
		}
		preds = append(preds, domain.FieldIn(path, allowed...))
	}
	if len(step.VisibleIfPresent) > 0 {
		preds = append(preds, domain.AnyPresent(step.VisibleIfPresent...))
	}
	return domain.AllOf(preds...)
}

func convertError(err error, path string) error {
	if err == nil {
		return nil
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domainError(domain.ErrCodeCancelled, "load cancelled", err, nil)
	}
	var parseErr *apperrors.ParseError
	if errors.As(err, &parseErr) {
		if errors.Is(parseErr.Err, os.ErrNotExist) {
			return domainError(domain.ErrCodeNotFound, "flow not found", parseErr.Err, map[string]interface{}{"path": path})
		}
		return domainError(domain.ErrCodeInvalidFlow, "invalid flow syntax", err, map[string]interface{}{"path": parseErr.Path, "line": parseErr.Line})
	}
	var valErr *apperrors.ValidationError
	if errors.As(err, &valErr) {
		context := map[string]interface{}{"path": path}
		if valErr.Field != "" {
			context["field"] = valErr.Field
		}
		code := domain.ErrCodeInvalidFlow
		msg := strings.ToLower(valErr.Message)
		switch {
		case strings.Contains(msg, "duplicate"):
			code = domain.ErrCodeDuplicateStep
		case strings.Contains(msg, "unknown schema"), strings.Contains(msg, "schemas.openapi"):
			code = domain.ErrCodeUnknownSchema
		}
		return domainError(code, valErr.Message, valErr.Err, context)
	}
	var schemaErr *apperrors.SchemaError
	if errors.As(err, &schemaErr) {
		return domainError(domain.ErrCodeInvalidFlow, schemaErr.Message, err, map[string]interface{}{"path": path, "schema_ref": schemaErr.Ref})
	}
	if os.IsNotExist(err) {
		return domainError(domain.ErrCodeNotFound, "flow not found", err, map[string]interface{}{"path": path})
	}
	return domainError(domain.ErrCodeInternal, "flow load failed", err, map[string]interface{}{"path": path})
}

func contextCheck(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return domainError(domain.ErrCodeCancelled, "operation cancelled", err, nil)
	}
	return nil
}

func domainError(code domain.ErrorCode, message string, cause error, ctx map[string]interface{}) *domain.DomainError {
	return &domain.DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: ctx,
	}
}

func (l *YAMLLoader) logDebug(ctx context.Context, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Debug(ctx, msg, flattenFields(fields)...)
}

func (l *YAMLLoader) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Info(ctx, msg, flattenFields(fields)...)
}

func (l *YAMLLoader) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	payload := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		payload[k] = v
	}
	payload["error"] = err
	l.logger.Error(ctx, msg, flattenFields(payload)...)
}

func flattenFields(fields map[string]interface{}) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return args
}
