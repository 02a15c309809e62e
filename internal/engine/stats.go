package engine

import "github.com/karpella/ec2console/internal/aws/ec2"

// hoursPerMonth is the 730-hour convention used for monthly estimates.
const hoursPerMonth = 730

// TypeSpec describes one instance type for estimation purposes.
type TypeSpec struct {
	VCPUs     int
	HourlyUSD float64
}

// Estimator resolves an instance type to its size and cost spec. Types
// it does not know contribute nothing to the estimates.
type Estimator interface {
	Spec(instanceType string) (TypeSpec, bool)
}

// TableEstimator is a static type table.
type TableEstimator map[string]TypeSpec

func (t TableEstimator) Spec(instanceType string) (TypeSpec, bool) {
	spec, ok := t[instanceType]
	return spec, ok
}

// DefaultEstimator holds approximate on-demand Linux pricing for the
// common general-purpose, compute and memory families. The numbers are
// estimates for a summary line, not a bill.
var DefaultEstimator = TableEstimator{
	"t2.micro":    {VCPUs: 1, HourlyUSD: 0.0116},
	"t2.small":    {VCPUs: 1, HourlyUSD: 0.023},
	"t2.medium":   {VCPUs: 2, HourlyUSD: 0.0464},
	"t3.micro":    {VCPUs: 2, HourlyUSD: 0.0104},
	"t3.small":    {VCPUs: 2, HourlyUSD: 0.0208},
	"t3.medium":   {VCPUs: 2, HourlyUSD: 0.0416},
	"t3.large":    {VCPUs: 2, HourlyUSD: 0.0832},
	"t3.xlarge":   {VCPUs: 4, HourlyUSD: 0.1664},
	"t3.2xlarge":  {VCPUs: 8, HourlyUSD: 0.3328},
	"m5.large":    {VCPUs: 2, HourlyUSD: 0.096},
	"m5.xlarge":   {VCPUs: 4, HourlyUSD: 0.192},
	"m5.2xlarge":  {VCPUs: 8, HourlyUSD: 0.384},
	"m5.4xlarge":  {VCPUs: 16, HourlyUSD: 0.768},
	"m6i.large":   {VCPUs: 2, HourlyUSD: 0.096},
	"m6i.xlarge":  {VCPUs: 4, HourlyUSD: 0.192},
	"m6i.2xlarge": {VCPUs: 8, HourlyUSD: 0.384},
	"c5.large":    {VCPUs: 2, HourlyUSD: 0.085},
	"c5.xlarge":   {VCPUs: 4, HourlyUSD: 0.17},
	"c5.2xlarge":  {VCPUs: 8, HourlyUSD: 0.34},
	"c6i.large":   {VCPUs: 2, HourlyUSD: 0.085},
	"c6i.xlarge":  {VCPUs: 4, HourlyUSD: 0.17},
	"r5.large":    {VCPUs: 2, HourlyUSD: 0.126},
	"r5.xlarge":   {VCPUs: 4, HourlyUSD: 0.252},
	"r6i.large":   {VCPUs: 2, HourlyUSD: 0.126},
	"r6i.xlarge":  {VCPUs: 4, HourlyUSD: 0.252},
}

// Stats is a pure reduction of one collection snapshot. vCPU and cost
// figures accrue from running instances only; the breakdowns cover the
// whole collection.
type Stats struct {
	Total   int
	Running int
	Stopped int

	VCPUs      int
	HourlyUSD  float64
	MonthlyUSD float64

	ByType map[string]int
	ByZone map[string]int
}

// ComputeStats reduces a collection. It never fetches; the result is a
// function of the snapshot alone.
func ComputeStats(instances []ec2.Instance, est Estimator) Stats {
	stats := Stats{
		ByType: make(map[string]int),
		ByZone: make(map[string]int),
	}
	if est == nil {
		est = DefaultEstimator
	}

	for _, inst := range instances {
		stats.Total++
		if inst.Type != "" {
			stats.ByType[inst.Type]++
		}
		if inst.Zone != "" {
			stats.ByZone[inst.Zone]++
		}

		switch inst.State {
		case ec2.StateRunning:
			stats.Running++
			if spec, ok := est.Spec(inst.Type); ok {
				stats.VCPUs += spec.VCPUs
				stats.HourlyUSD += spec.HourlyUSD
			}
		case ec2.StateStopped:
			stats.Stopped++
		}
	}

	stats.MonthlyUSD = stats.HourlyUSD * hoursPerMonth
	return stats
}
