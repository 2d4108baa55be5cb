package main

import (
	"context"
	"fmt"
	"time"

	"github.com/capacitylab/fleet-advisor/internal/decision"
	"github.com/capacitylab/fleet-advisor/internal/forecaster"
	"github.com/capacitylab/fleet-advisor/internal/lifecycle"
	"github.com/capacitylab/fleet-advisor/internal/telemetry"
	"github.com/capacitylab/fleet-advisor/pkg/config"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

const demoSamples = 60

// runDemo performs one scripted pass through the pipeline against a
// simulated telemetry stream with a rising load phase, then prints a
// summary of what each stage produced.
func runDemo(cfg *config.Config, store *telemetry.Store, fc *forecaster.Forecaster, engine *decision.Engine, manager *lifecycle.Manager) error {
	ctx := context.Background()

	fmt.Println("=== Demand Forecast Demo ===")
	fmt.Printf("Collecting %d simulated samples...\n", demoSamples)

	source := telemetry.NewSimSource(telemetry.SimSourceConfig{
		BaseLoad: 45.0,
		Variance: 8.0,
		Seed:     1,
	})

	base := time.Now().Add(-time.Duration(demoSamples) * time.Minute)
	for i := 0; i < demoSamples; i++ {
		// ramp load up over the second half of the window
		if i == demoSamples/2 {
			source.SetBaseLoad(75.0)
		}

		sample, err := source.Sample(ctx)
		if err != nil {
			return fmt.Errorf("demo sample failed: %w", err)
		}
		sample.Timestamp = base.Add(time.Duration(i) * time.Minute)
		store.Add(*sample)
	}

	summary := store.Summary(demoSamples)
	fmt.Printf("Avg load: %.1f%%  avg CPU: %.1f%%  samples: %d\n",
		summary.AvgLoadScore, summary.AvgCPU, summary.TotalSamples)

	fmt.Println("\n=== Training forecast model ===")
	if fc.Train(store.Recent(demoSamples)) {
		fmt.Println("Model trained")
	} else {
		fmt.Println("Training failed, falling back to trend projection")
	}

	recent := store.Recent(cfg.Decision.RecentSamples)
	predictions := fc.Predict(recent, cfg.Forecast.Horizon)
	fmt.Printf("\nForecast (next %d steps): ", len(predictions))
	for _, p := range predictions {
		fmt.Printf("%.1f%% ", p)
	}
	fmt.Println()

	flags := fc.DetectAnomalies(recent, cfg.Forecast.AnomalyWindow)
	anomalies := 0
	for _, flagged := range flags {
		if flagged {
			anomalies++
		}
	}
	fmt.Printf("Anomalous samples in window: %d\n", anomalies)

	currentLoad := recent[len(recent)-1].LoadScore
	rec := fc.Recommend(predictions, currentLoad)
	fmt.Printf("\nRecommendation: %s (confidence %.2f)\n  %s\n",
		rec.Action, rec.Confidence, rec.Reason)

	fmt.Println("\n=== Decision ===")
	dec := engine.Decide(manager.State(), rec, manager.History(cfg.Decision.HistoryLimit))
	fmt.Printf("Action: %s\nReason: %s\nInstances: %d -> %d\n",
		dec.Action, dec.Reason, dec.CurrentInstances, dec.RecommendedInstances)
	fmt.Printf("Cost impact: %+.2f/hour (%+.2f/month)\n",
		dec.CostImpact.HourlyCostChange, dec.CostImpact.MonthlyCostChange)

	if dec.ShouldExecute() {
		fmt.Println("\n=== Executing ===")
		result := manager.Execute(ctx, dec)
		fmt.Printf("Status: %s in %.2fs\n", result.Status, result.ExecutionTimeSeconds)
		for _, e := range result.Errors {
			fmt.Printf("  error: %s\n", e)
		}
	} else {
		fmt.Println("\nNo execution needed")
	}

	printState(manager.State())
	return nil
}

func printState(state models.ResourceState) {
	fmt.Println("\n=== Resource State ===")
	fmt.Printf("Instances: %d  CPU: %.0f cores  Memory: %.0f GB  Storage: %.0f GB\n",
		state.Instances, state.Resources.TotalCPUCores,
		state.Resources.TotalMemoryGB, state.Resources.TotalStorageGB)
	fmt.Printf("Scaling events recorded: %d\n", len(state.ScalingEvents))
}
