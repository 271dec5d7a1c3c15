package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs a command with the given args and captures output.
func executeCommand(args ...string) (string, error) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

const cardsJSON = `[
  {"text": "3 BR Apartment for Rent in Dubai MarinaAED120,000Yearly32Furnished 1,200 sqftMarina Gate, Dubai Marina, DubaiAgentCall",
   "url": "https://www.bayut.com/property/details-1.html"},
  {"text": "  "},
  {"text": "Studio for Rent in JVCAED40,000Yearly01 400 sqftBloom Towers, JVC, DubaiCall",
   "url": "https://www.bayut.com/property/details-2.html"}
]`

func writeCards(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cards.json")
	require.NoError(t, os.WriteFile(path, []byte(cardsJSON), 0o644))
	return path
}

func TestRootHelp(t *testing.T) {
	_, err := executeCommand("--help")
	require.NoError(t, err)
}

func TestGlobalFlags(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"pages", "cards-file", "data-dir", "log-level"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "expected --%s flag to exist", name)
	}
}

func TestExtractRequiresCardsFile(t *testing.T) {
	_, err := executeCommand("extract", "--log-level", "error")
	assert.Error(t, err)
}

func TestExtract(t *testing.T) {
	out, err := executeCommand("extract", writeCards(t), "--log-level", "error")
	require.NoError(t, err)

	var got []extractedCard
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)

	assert.Equal(t, 120000.0, got[0].Price)
	assert.Equal(t, 3, got[0].Bedrooms)
	assert.Equal(t, "Marina Gate, Dubai Marina, Dubai", got[0].Location)
	assert.Equal(t, "https://www.bayut.com/property/details-1.html", got[0].URL)
	assert.NotEmpty(t, got[0].Strategies)
}

func TestRunWithCardsFile(t *testing.T) {
	dataDir := t.TempDir()

	out, err := executeCommand("run", "--cards-file", writeCards(t), "--data-dir", dataDir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "RENTAL MARKET INSIGHTS")

	for _, name := range []string{"historical_data.csv", "area_statistics.csv", "enriched_listings.json"} {
		assert.FileExists(t, filepath.Join(dataDir, name))
	}

	raw, err := os.ReadFile(filepath.Join(dataDir, "enriched_listings.json"))
	require.NoError(t, err)
	var batch []map[string]any
	require.NoError(t, json.Unmarshal(raw, &batch))
	assert.Len(t, batch, 2)

	out, err = executeCommand("stats", "--json", "--data-dir", dataDir, "--log-level", "error")
	require.NoError(t, err)
	var stats []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Len(t, stats, 2)
}

func TestStatsOnEmptyDataDir(t *testing.T) {
	out, err := executeCommand("stats", "--data-dir", t.TempDir(), "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "No priced listings")
	assert.Contains(t, out, "No statistics yet")
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	_, err := executeCommand("schedule", "--every", "sometimes",
		"--cards-file", writeCards(t), "--data-dir", t.TempDir(), "--log-level", "error")
	assert.ErrorContains(t, err, "invalid schedule")
}
