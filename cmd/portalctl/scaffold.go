package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/ettle/strcase"

	"github.com/goliatone/go-portal-metrics/components/dashboard"
)

type scaffoldCmd struct {
	Code         string   `required:"" help:"Fully-qualified widget code (e.g. portal.widget.clients)."`
	Name         string   `required:"" help:"Display name for the widget."`
	Description  string   `required:"" help:"One-line description used in manifests."`
	Category     string   `default:"metrics" help:"Widget category (summary, charts, metrics, ...)."`
	ManifestPath string   `required:"" type:"path" help:"Path to the widget manifest YAML file to update."`
	SchemaPath   string   `type:"path" help:"Optional path to a JSON schema file for the widget configuration."`
	Metric       string   `help:"Summary metric rendered as a KPI card; no provider stub is generated when set."`
	Tag          []string `help:"Optional tags to include in the manifest (use multiple --tag flags)."`
	DocsURL      string   `help:"Link to provider documentation."`
	ProviderOut  string   `help:"File path for the generated provider stub (defaults to components/dashboard/<code>_provider.go)."`
	Overwrite    bool     `help:"Overwrite existing provider stub / manifest entry if present."`
	SkipProvider bool     `name:"skip-provider" help:"Skip provider stub generation."`
}

func (cmd *scaffoldCmd) Run() error {
	if err := cmd.validate(); err != nil {
		return err
	}
	manifestPath, err := filepath.Abs(cmd.ManifestPath)
	if err != nil {
		return fmt.Errorf("portalctl: resolve manifest path: %w", err)
	}
	doc, err := loadOrInitManifest(manifestPath)
	if err != nil {
		return err
	}
	schema, err := cmd.loadSchema()
	if err != nil {
		return err
	}
	entry := cmd.entry(schema)
	if err := checkSchema(entry.Definition); err != nil {
		return err
	}
	if err := mergeEntry(doc, entry, cmd.Overwrite); err != nil {
		return err
	}
	if err := writeManifest(manifestPath, doc); err != nil {
		return err
	}

	if cmd.Metric != "" || cmd.SkipProvider {
		fmt.Fprintf(os.Stdout, "✓ Added %s to %s\n", cmd.Code, manifestPath)
		return nil
	}
	providerType := deriveBaseName(cmd.Code) + "Provider"
	providerPath := cmd.ProviderOut
	if providerPath == "" {
		providerPath = filepath.Join("components", "dashboard", fmt.Sprintf("%s_provider.go", sanitizeFileName(cmd.Code)))
	}
	if err := writeProviderStub(providerPath, providerType, cmd.Code, cmd.Overwrite); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Added %s to %s and generated %s\n", cmd.Code, manifestPath, providerPath)
	return nil
}

func (cmd *scaffoldCmd) validate() error {
	if !strings.Contains(cmd.Code, ".") {
		return fmt.Errorf("portalctl: widget code %s must contain at least one '.' segment", cmd.Code)
	}
	if cmd.Metric != "" && !slices.Contains(dashboard.SummaryMetrics(), cmd.Metric) {
		return fmt.Errorf("portalctl: unknown metric %q (want one of %s)", cmd.Metric, strings.Join(dashboard.SummaryMetrics(), ", "))
	}
	return nil
}

func (cmd *scaffoldCmd) entry(schema map[string]any) dashboard.ManifestWidget {
	return dashboard.ManifestWidget{
		Definition: dashboard.WidgetDefinition{
			Code:        cmd.Code,
			Name:        cmd.Name,
			Description: cmd.Description,
			Category:    cmd.Category,
			Schema:      schema,
		},
		Provider: dashboard.ManifestProvider{
			Name:    fmt.Sprintf("%s Provider", cmd.Name),
			Summary: cmd.Description,
			Metric:  cmd.Metric,
			DocsURL: cmd.DocsURL,
		},
		Tags: cmd.Tag,
	}
}

func (cmd *scaffoldCmd) loadSchema() (map[string]any, error) {
	if cmd.SchemaPath == "" {
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}, nil
	}
	data, err := os.ReadFile(cmd.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("portalctl: read schema file: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("portalctl: parse schema JSON: %w", err)
	}
	return schema, nil
}

// checkSchema compiles the schema and validates its own defaults against it.
func checkSchema(def dashboard.WidgetDefinition) error {
	validator := dashboard.NewJSONSchemaValidator()
	if err := validator.Validate(def, dashboard.ApplyDefaults(def, nil)); err != nil {
		return fmt.Errorf("portalctl: schema for %s: %w", def.Code, err)
	}
	return nil
}

// mergeEntry adds entry to doc, replacing an existing widget with the same
// code only when overwrite is set. Widgets stay sorted by code.
func mergeEntry(doc *dashboard.WidgetManifestDocument, entry dashboard.ManifestWidget, overwrite bool) error {
	replaced := false
	for idx := range doc.Widgets {
		if doc.Widgets[idx].Definition.Code != entry.Definition.Code {
			continue
		}
		if !overwrite {
			return fmt.Errorf("portalctl: manifest already defines widget %s (use --overwrite to replace)", entry.Definition.Code)
		}
		doc.Widgets[idx] = entry
		replaced = true
		break
	}
	if !replaced {
		doc.Widgets = append(doc.Widgets, entry)
	}
	sort.Slice(doc.Widgets, func(i, j int) bool {
		return doc.Widgets[i].Definition.Code < doc.Widgets[j].Definition.Code
	})
	return nil
}

func loadOrInitManifest(path string) (*dashboard.WidgetManifestDocument, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &dashboard.WidgetManifestDocument{
				Version: dashboard.ManifestVersion,
				Widgets: []dashboard.ManifestWidget{},
				Source:  path,
			}, nil
		}
		return nil, fmt.Errorf("portalctl: stat manifest: %w", err)
	}
	return dashboard.ReadManifest(path)
}

func writeManifest(path string, doc *dashboard.WidgetManifestDocument) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("portalctl: mkdir %s: %w", filepath.Dir(path), err)
	}
	file, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("portalctl: create manifest %s: %w", path, err)
	}
	defer file.Close()
	return dashboard.EncodeManifest(file, doc)
}

func writeProviderStub(path, providerType, code string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("portalctl: provider stub %s already exists (use --overwrite or --provider-out)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("portalctl: mkdir provider dir: %w", err)
	}
	content := fmt.Sprintf(`package dashboard

import (
	"context"
)

// %[1]s fetches data for %[2]s widgets.
type %[1]s struct{}

// New%[1]s returns the provider; register it with Registry.RegisterProvider(%[2]q, ...).
func New%[1]s() Provider {
	return &%[1]s{}
}

// Fetch builds the widget payload from the viewer's product and quarter.
func (p *%[1]s) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	return WidgetData{
		"product": meta.Scope.Product,
		"quarter": meta.Scope.Quarter,
	}, nil
}
`, providerType, code)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("portalctl: write provider stub: %w", err)
	}
	return nil
}

func deriveBaseName(code string) string {
	parts := strings.Split(code, ".")
	slug := strings.TrimSpace(parts[len(parts)-1])
	if slug == "" {
		slug = code
	}
	return strcase.ToCamel(slug)
}

func sanitizeFileName(code string) string {
	replacer := strings.NewReplacer(".", "_", "-", "_", "/", "_", " ", "_")
	return strings.ToLower(replacer.Replace(code))
}
