package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/nhomyk/AgenticQA-sub001/internal/checksum"
	"github.com/nhomyk/AgenticQA-sub001/internal/dataset"
	"github.com/nhomyk/AgenticQA-sub001/internal/testutil"
)

// TestGoldenFullRunReport pins the report structure of a clean full run.
// Reports carry no hashes or timestamps, so the snapshot is stable as long
// as the run identifiers are blanked.
//
// To regenerate:
//
//	go test ./internal/pipeline -run TestGoldenFullRunReport -update
func TestGoldenFullRunReport(t *testing.T) {
	p, _ := testPipeline(t, Config{Actor: "deployer", ChainID: "golden-chain"})
	ds := testutil.NewDataset(testutil.GenerateRecords(3)...)

	outcome, err := p.Run(context.Background(), ds, checksum.NewScope("2"),
		func(_ context.Context, d dataset.Dataset) (dataset.Dataset, error) {
			return mutate(d, 1, "name", dataset.String("renamed-2")), nil
		})
	require.NoError(t, err)
	require.NotNil(t, outcome.Post)

	// Run identifiers are freshly generated per run.
	outcome.Pre.RunID = ""
	outcome.Post.RunID = ""

	data, err := json.MarshalIndent(outcome, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "full_run", data)
}
