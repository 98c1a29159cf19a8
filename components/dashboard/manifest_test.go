package dashboard

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clientsManifest = `
version: "1"
name: portal-extras
widgets:
  - definition:
      code: portal.widget.clients_card
      name: Active Clients
      description: Clients that submitted ideas this quarter.
      category: summary
      schema:
        type: object
        properties:
          title:
            type: string
    provider:
      name: Clients card
      summary: Single KPI card bound to the clients metric.
      metric: clients
      docs_url: https://example.com/widgets/clients
    tags: [kpi]
`

func TestDecodeManifest(t *testing.T) {
	doc, err := DecodeManifest(strings.NewReader(clientsManifest))
	require.NoError(t, err)
	require.Len(t, doc.Widgets, 1)

	widget := doc.Widgets[0]
	assert.Equal(t, "portal.widget.clients_card", widget.Definition.Code)
	assert.Equal(t, "Active Clients", widget.Definition.Name)
	assert.Equal(t, "clients", widget.Provider.Metric)
	assert.Equal(t, []string{"kpi"}, widget.Tags)
	assert.Equal(t, "summary", widget.Definition.Category)
}

func TestDecodeManifestDefaultsVersion(t *testing.T) {
	doc, err := DecodeManifest(strings.NewReader("widgets:\n  - definition:\n      code: a.b\n      name: AB\n"))
	require.NoError(t, err)
	assert.Equal(t, ManifestVersion, doc.Version)
}

func TestDecodeManifestRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"unknown field":  "version: \"1\"\nwidgets: []\nentry: x\n",
		"bad version":    "version: \"2\"\nwidgets: []\n",
		"missing code":   "widgets:\n  - definition:\n      name: X\n",
		"missing name":   "widgets:\n  - definition:\n      code: x\n",
		"duplicate code": "widgets:\n  - definition: {code: x, name: X}\n  - definition: {code: x, name: Y}\n",
		"unknown metric": "widgets:\n  - definition: {code: x, name: X}\n    provider: {metric: revenue}\n",
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeManifest(strings.NewReader(payload))
			assert.Error(t, err)
		})
	}
}

func TestRegistryLoadManifestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widgets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(clientsManifest), 0o600))

	reg := newTestRegistry(nil)
	doc, err := reg.LoadManifestFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Source)

	def, ok := reg.Definition("portal.widget.clients_card")
	require.True(t, ok)
	assert.Equal(t, "Active Clients", def.Name)
	meta, ok := reg.ProviderMetadata("portal.widget.clients_card")
	require.True(t, ok)
	assert.Equal(t, "Clients card", meta.Name)

	provider, ok := reg.Provider("portal.widget.clients_card")
	require.True(t, ok)
	view := sampleView()
	data, err := provider.Fetch(context.Background(), WidgetContext{View: &view})
	require.NoError(t, err)
	card := data["card"].(summaryCard)
	assert.Equal(t, "2", card.Display)
	assert.Equal(t, "Active Clients", data["title"])
}

func TestReadManifestMissingFile(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEncodeManifestRoundTrip(t *testing.T) {
	doc, err := DecodeManifest(strings.NewReader(clientsManifest))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeManifest(&buf, doc))
	again, err := DecodeManifest(&buf)
	require.NoError(t, err)
	assert.Equal(t, doc.Widgets[0].Provider, again.Widgets[0].Provider)
}
