package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/storage/memory"
)

type testStores struct {
	runs   *memory.RunStore
	series *memory.SeriesStore
	cells  *memory.SweepCellStore
}

func setupTestData(t *testing.T) testStores {
	ctx := context.Background()
	s := testStores{
		runs:   memory.NewRunStore(),
		series: memory.NewSeriesStore(),
		cells:  memory.NewSweepCellStore(),
	}

	verified := domain.PresetConfigNoLiquidity
	runs := []*domain.RunSummary{
		{RunID: "run-b", ConfigID: "cfgA", Config: domain.PresetConfigFeeOnly, Values: "uniform[1,2)", TransactionsCount: 2, Succeeded: 2, FinalMeanBalance: 5, FinalNetProfitMean: 5, StartedAt: 1, CompletedAt: 10},
		{RunID: "run-a", ConfigID: "cfgA", Config: domain.PresetConfigFeeOnly, Values: "uniform[1,2)", TransactionsCount: 2, Succeeded: 2, FinalMeanBalance: -1, FinalNetProfitMean: -1, StartedAt: 2, CompletedAt: 20},
		{RunID: "run-c", ConfigID: "cfgB", Config: verified, SweepID: "sweep1", Values: "uniform[1,10)", TransactionsCount: 2, Succeeded: 1, Failed: 1, FailureRatio: 0.5, FinalMeanBalance: 3, FinalNetProfitMean: 3, StartedAt: 3, CompletedAt: 30},
	}
	for _, r := range runs {
		if err := s.runs.Insert(ctx, r); err != nil {
			t.Fatalf("Insert run failed: %v", err)
		}
	}

	// Series only for run-a
	points := []*domain.SeriesPoint{
		{RunID: "run-a", Index: 0, MeanBalance: 0},
		{RunID: "run-a", Index: 1, Value: 1.5, Succeeded: true, MeanBalance: 2},
		{RunID: "run-a", Index: 2, Value: 1.2, Succeeded: true, MeanBalance: -1},
	}
	if err := s.series.InsertBulk(ctx, points); err != nil {
		t.Fatalf("Insert series failed: %v", err)
	}

	cells := []*domain.SweepCell{
		{SweepID: "sweep1", ConfigID: "cfgB", Index: 1, Config: verified, Repetitions: 2, MeanBalance: []float64{0, 3}, FailureRatio: []float64{0, 0.5}},
		{SweepID: "sweep1", ConfigID: "cfgC", Index: 0, Config: domain.PresetConfigSweepDefault, Repetitions: 2, MeanBalance: []float64{0, 1}, FailureRatio: []float64{0, 0}},
	}
	for _, c := range cells {
		if err := s.cells.Insert(ctx, c); err != nil {
			t.Fatalf("Insert cell failed: %v", err)
		}
	}

	return s
}

func (s testStores) generator() *Generator {
	return NewGenerator(s.runs, s.series, s.cells)
}

func TestGenerate_Deterministic(t *testing.T) {
	ctx := context.Background()

	fixedTime := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	fixedClock := func() time.Time { return fixedTime }

	var first string
	for run := 0; run < 5; run++ {
		report, err := setupTestData(t).generator().WithClock(fixedClock).Generate(ctx, GenerateOptions{SweepID: "sweep1"})
		if err != nil {
			t.Fatalf("Run %d: Generate failed: %v", run, err)
		}

		md := RenderMarkdown(report)
		if first == "" {
			first = md
			continue
		}
		if md != first {
			t.Errorf("Run %d: markdown differs", run)
		}
	}
}

func TestGenerate_RunsAndConfigs(t *testing.T) {
	report, err := setupTestData(t).generator().Generate(context.Background(), GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.RunCount != 3 || report.ConfigCount != 2 {
		t.Fatalf("expected 3 runs and 2 configs, got %d and %d", report.RunCount, report.ConfigCount)
	}

	// Sorted by (config_id, repetition, run_id)
	wantOrder := []string{"run-a", "run-b", "run-c"}
	for i, id := range wantOrder {
		if report.Runs[i].RunID != id {
			t.Errorf("Runs[%d] = %s, want %s", i, report.Runs[i].RunID, id)
		}
	}

	a := report.Runs[0]
	if !a.HasSeries {
		t.Fatal("run-a should carry series statistics")
	}
	if a.MaxDrawdown != 3 {
		t.Errorf("run-a max drawdown %v, want 3", a.MaxDrawdown)
	}
	if a.Liquidity != "assumed" {
		t.Errorf("run-a liquidity %q", a.Liquidity)
	}
	if report.Runs[1].HasSeries {
		t.Error("run-b has no stored series")
	}
	if report.Runs[2].Liquidity != "verified" {
		t.Errorf("run-c liquidity %q", report.Runs[2].Liquidity)
	}

	cfgA := report.Configs[0]
	if cfgA.ConfigID != "cfgA" || cfgA.Runs != 2 {
		t.Errorf("unexpected first config row %+v", cfgA)
	}
	if cfgA.FinalMeanBalance != 2 || cfgA.ProfitableRate != 0.5 {
		t.Errorf("cfgA mean %v profitable %v", cfgA.FinalMeanBalance, cfgA.ProfitableRate)
	}
	if report.Sweep != nil {
		t.Error("no sweep requested")
	}
}

func TestGenerate_Limit(t *testing.T) {
	report, err := setupTestData(t).generator().Generate(context.Background(), GenerateOptions{Limit: 1})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.RunCount != 1 || report.Runs[0].RunID != "run-c" {
		t.Errorf("expected only the latest run, got %+v", report.Runs)
	}
}

func TestGenerate_SweepSection(t *testing.T) {
	report, err := setupTestData(t).generator().Generate(context.Background(), GenerateOptions{SweepID: "sweep1"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.Sweep == nil || len(report.Sweep.Cells) != 2 {
		t.Fatalf("expected 2 sweep cells, got %+v", report.Sweep)
	}
	if report.Sweep.Cells[0].ConfigID != "cfgC" {
		t.Errorf("cells not in grid order: %+v", report.Sweep.Cells)
	}
	if c := report.Sweep.Cells[1]; c.FinalFailureRatio != 0.5 || c.RelayRelay != 20 {
		t.Errorf("unexpected cell row %+v", c)
	}
}

func TestRenderMarkdown_ContainsRequiredSections(t *testing.T) {
	report, err := setupTestData(t).generator().Generate(context.Background(), GenerateOptions{SweepID: "sweep1"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	md := RenderMarkdown(report)

	for _, section := range []string{
		"# Relay Economics Report",
		"## Runs",
		"## Config Summary",
		"## Sweep sweep1",
		"| run-a |",
		"n/a",
	} {
		if !strings.Contains(md, section) {
			t.Errorf("markdown missing %q", section)
		}
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	md := RenderMarkdown(&Report{GeneratedAt: time.Unix(0, 0).UTC()})
	if !strings.Contains(md, "No runs available.") || !strings.Contains(md, "No config summary available.") {
		t.Errorf("empty report should say so:\n%s", md)
	}
	if strings.Contains(md, "## Sweep") {
		t.Error("sweep section rendered without a sweep")
	}
}

func TestRenderRunsCSV(t *testing.T) {
	csv := RenderRunsCSV([]RunRow{{RunID: "r1", ConfigID: "c1", Liquidity: "verified", Values: "uniform[1,10)", Seed: 7, Transactions: 4, Succeeded: 3, Failed: 1, FailureRatio: 0.25}})
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "run_id,config_id,") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "r1,c1,,0,verified,uniform[1,10),7,4,3,1,0.250000,") {
		t.Errorf("unexpected row %q", lines[1])
	}
	if got, want := strings.Count(lines[1], ","), strings.Count(lines[0], ","); got != want {
		t.Errorf("row has %d separators, header %d", got, want)
	}
}

func TestRenderSweepCSV(t *testing.T) {
	csv := RenderSweepCSV(SweepRows([]*domain.SweepCell{
		{Index: 3, ConfigID: "c", Config: domain.PresetConfigSweepDefault, Repetitions: 5, MeanBalance: []float64{1, 2}, FailureRatio: []float64{0, 0.1}},
	}))
	want := "index,config_id,r2r_balance,r2c_balance,proportional_fee,repetitions,final_mean_balance,final_failure_ratio\n" +
		"3,c,1e+06,1e+06,0.01,5,2.000000,0.100000\n"
	if csv != want {
		t.Errorf("got:\n%s\nwant:\n%s", csv, want)
	}
}

func TestRenderSeriesCSV(t *testing.T) {
	csv := RenderSeriesCSV([]*domain.SeriesPoint{
		{Index: 0, MeanBalance: -4.5, Expected: -4.5},
		{Index: 1, Value: 1.5, Succeeded: true, MeanBalance: -4, NetProfitMean: -4, Expected: -4},
	})
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[2] != "1,1.500000,true,-4.000000,-4.000000,0.000000,-4.000000" {
		t.Errorf("unexpected row %q", lines[2])
	}
}

func TestRenderCellSeriesCSV(t *testing.T) {
	csv := RenderCellSeriesCSV(&domain.SweepCell{MeanBalance: []float64{1, 2}, FailureRatio: []float64{0}})
	want := "index,mean_balance,failure_ratio\n0,1.000000,0.000000\n1,2.000000,0.000000\n"
	if csv != want {
		t.Errorf("got %q, want %q", csv, want)
	}
}
