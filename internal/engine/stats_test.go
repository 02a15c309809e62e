package engine

import (
	"math"
	"testing"

	"github.com/karpella/ec2console/internal/aws/ec2"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeStats(t *testing.T) {
	instances := []ec2.Instance{
		{ID: "i-1", Type: "t3.medium", State: ec2.StateRunning, Zone: "us-east-1a"},
		{ID: "i-2", Type: "m5.large", State: ec2.StateRunning, Zone: "us-east-1b"},
		{ID: "i-3", Type: "t3.medium", State: ec2.StateStopped, Zone: "us-east-1a"},
		{ID: "i-4", Type: "c5.large", State: ec2.StatePending, Zone: "us-east-1b"},
	}

	stats := ComputeStats(instances, DefaultEstimator)

	if stats.Total != 4 {
		t.Fatalf("Total = %d, want 4", stats.Total)
	}
	if stats.Running != 2 {
		t.Fatalf("Running = %d, want 2", stats.Running)
	}
	if stats.Stopped != 1 {
		t.Fatalf("Stopped = %d, want 1", stats.Stopped)
	}
	if stats.VCPUs != 4 {
		t.Fatalf("VCPUs = %d, want 4", stats.VCPUs)
	}

	wantHourly := 0.0416 + 0.096
	if !almostEqual(stats.HourlyUSD, wantHourly) {
		t.Fatalf("HourlyUSD = %f, want %f", stats.HourlyUSD, wantHourly)
	}
	if !almostEqual(stats.MonthlyUSD, wantHourly*730) {
		t.Fatalf("MonthlyUSD = %f, want %f", stats.MonthlyUSD, wantHourly*730)
	}

	if stats.ByType["t3.medium"] != 2 || stats.ByType["m5.large"] != 1 || stats.ByType["c5.large"] != 1 {
		t.Fatalf("ByType = %v", stats.ByType)
	}
	if stats.ByZone["us-east-1a"] != 2 || stats.ByZone["us-east-1b"] != 2 {
		t.Fatalf("ByZone = %v", stats.ByZone)
	}
}

func TestComputeStats_UnknownTypeContributesNothing(t *testing.T) {
	instances := []ec2.Instance{
		{ID: "i-1", Type: "x99.mega", State: ec2.StateRunning, Zone: "us-east-1a"},
	}

	stats := ComputeStats(instances, DefaultEstimator)

	if stats.Running != 1 {
		t.Fatalf("Running = %d, want 1", stats.Running)
	}
	if stats.VCPUs != 0 || stats.HourlyUSD != 0 {
		t.Fatalf("unknown type should not accrue: vcpus=%d hourly=%f", stats.VCPUs, stats.HourlyUSD)
	}
	if stats.ByType["x99.mega"] != 1 {
		t.Fatalf("ByType = %v", stats.ByType)
	}
}

func TestComputeStats_CustomEstimator(t *testing.T) {
	est := TableEstimator{
		"custom.large": {VCPUs: 12, HourlyUSD: 1.5},
	}
	instances := []ec2.Instance{
		{ID: "i-1", Type: "custom.large", State: ec2.StateRunning},
		{ID: "i-2", Type: "custom.large", State: ec2.StateStopped},
	}

	stats := ComputeStats(instances, est)

	if stats.VCPUs != 12 {
		t.Fatalf("VCPUs = %d, want 12", stats.VCPUs)
	}
	if !almostEqual(stats.HourlyUSD, 1.5) {
		t.Fatalf("HourlyUSD = %f, want 1.5", stats.HourlyUSD)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil, nil)
	if stats.Total != 0 || stats.Running != 0 || stats.MonthlyUSD != 0 {
		t.Fatalf("unexpected stats for empty input: %+v", stats)
	}
	if stats.ByType == nil || stats.ByZone == nil {
		t.Fatal("expected initialized breakdown maps")
	}
}
