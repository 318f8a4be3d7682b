package refdata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/address-risk-engine/internal/config"
	"github.com/rawblock/address-risk-engine/internal/logger"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParseAddressBook(t *testing.T) {
	body := `# exchange wallets
1NDyJtNTjmwk5xPNhjgAMu4HDHigtobu1s,Binance,hot_wallet,batching,walletexplorer

3Cbq7aT1tY8kMxWLbitaG7yT6bPbKChq64, Coinbase, cold_wallet
1NDyJtNTjmwk5xPNhjgAMu4HDHigtobu1s,Kraken
bc1qplainaddress
`
	book, err := ParseAddressBook(strings.NewReader(body), KindExchange, "exchanges.csv")
	require.NoError(t, err)
	require.Len(t, book, 3)

	binance := book["1NDyJtNTjmwk5xPNhjgAMu4HDHigtobu1s"]
	assert.Equal(t, "Binance", binance.Label, "first owner wins")
	assert.Equal(t, "hot_wallet", binance.Type)
	assert.Equal(t, "walletexplorer", binance.Source)

	coinbase := book["3Cbq7aT1tY8kMxWLbitaG7yT6bPbKChq64"]
	assert.Equal(t, "Coinbase", coinbase.Label)
	assert.Equal(t, "cold_wallet", coinbase.Type)
	assert.Equal(t, "exchanges.csv", coinbase.Source)

	assert.Equal(t, KindExchange, book["bc1qplainaddress"].Label)
}

func TestLoader_MissingFilesDegrade(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(logger.NewNop())

	ref := l.Load(config.RefDataConfig{
		Denylist:  filepath.Join(dir, "nope.txt"),
		Scenarios: filepath.Join(dir, "nope.json"),
	})

	assert.NotNil(t, ref.Denylist)
	assert.Empty(t, ref.Denylist)
	assert.Empty(t, ref.Mixers)
	assert.NotNil(t, ref.Scenarios)
	assert.Empty(t, ref.Scenarios)
}

func TestLoader_LoadsTablesAndScenarios(t *testing.T) {
	dir := t.TempDir()
	deny := writeFile(t, dir, "denylist.txt", "# OFAC\n12QtD5BFwRsdNsAZY76UVE1xyCGNTojH9h\n")
	scen := writeFile(t, dir, "scenarios.json", `[
  {"id": "LAZARUS-AUTO", "actor": "Lazarus", "description": "fast peel",
   "pattern": {"tx_count_min": 12, "avg_interval_max": 300, "high_fee_flag": true}}
]`)

	ref := NewLoader(logger.NewNop()).Load(config.RefDataConfig{Denylist: deny, Scenarios: scen})

	label, ok := ref.Denylist.Lookup("12QtD5BFwRsdNsAZY76UVE1xyCGNTojH9h")
	require.True(t, ok)
	assert.Equal(t, KindDenylist, label.Label)

	require.Len(t, ref.Scenarios, 1)
	p := ref.Scenarios[0].Pattern
	require.NotNil(t, p.TxCountMin)
	assert.Equal(t, 12, *p.TxCountMin)
	assert.Nil(t, p.ReusedAddressRatioMin)
	require.NotNil(t, p.HighFeeFlag)
	assert.True(t, *p.HighFeeFlag)
}

func TestParseScenarios_YAMLAndMalformed(t *testing.T) {
	yml := `
- id: MIXER-RELAY
  actor: Relay operator
  pattern:
    reused_address_ratio_min: 0.4
`
	templates, err := ParseScenarios([]byte(yml), ".yaml")
	require.NoError(t, err)
	require.Len(t, templates, 1)
	require.NotNil(t, templates[0].Pattern.ReusedAddressRatioMin)
	assert.InDelta(t, 0.4, *templates[0].Pattern.ReusedAddressRatioMin, 1e-12)
	assert.Nil(t, templates[0].Pattern.TxCountMin)

	_, err = ParseScenarios([]byte("{not json"), ".json")
	assert.Error(t, err)

	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.json", "{not json")
	assert.Empty(t, NewLoader(logger.NewNop()).Scenarios(bad))
}

func TestGenerateScenarios(t *testing.T) {
	csvBody := `group,address,tx_count,avg_interval,reused_ratio,high_fee
Lazarus Group,a,10,100,0.5,True
Lazarus Group,b,20,300,0.3,true
Lazarus Group,c,15,200,0.4,false
Scammer,d,3,5000,0,false
Scammer,e,,5000,0,false
`
	samples, err := ParseLabelledStats(strings.NewReader(csvBody))
	require.NoError(t, err)
	require.Len(t, samples, 4)

	templates := GenerateScenarios(samples)
	require.Len(t, templates, 2)

	laz := templates[0]
	assert.Equal(t, "LAZARUS_GROUP-AUTO", laz.ID)
	assert.Equal(t, 15, *laz.Pattern.TxCountMin)
	assert.InDelta(t, 200, *laz.Pattern.AvgIntervalMax, 1e-9)
	assert.InDelta(t, 0.4, *laz.Pattern.ReusedAddressRatioMin, 1e-9)
	assert.True(t, *laz.Pattern.HighFeeFlag)

	assert.Equal(t, "SCAMMER-AUTO", templates[1].ID)
	assert.False(t, *templates[1].Pattern.HighFeeFlag)
}
