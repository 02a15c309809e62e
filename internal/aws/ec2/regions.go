package ec2

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
)

// regionNames maps region codes to the labels the console shows. Codes
// not listed here fall back to the code itself.
var regionNames = map[string]string{
	"us-east-1":      "US East (N. Virginia)",
	"us-east-2":      "US East (Ohio)",
	"us-west-1":      "US West (N. California)",
	"us-west-2":      "US West (Oregon)",
	"ca-central-1":   "Canada (Central)",
	"sa-east-1":      "South America (São Paulo)",
	"eu-west-1":      "Europe (Ireland)",
	"eu-west-2":      "Europe (London)",
	"eu-west-3":      "Europe (Paris)",
	"eu-central-1":   "Europe (Frankfurt)",
	"eu-north-1":     "Europe (Stockholm)",
	"eu-south-1":     "Europe (Milan)",
	"ap-southeast-1": "Asia Pacific (Singapore)",
	"ap-southeast-2": "Asia Pacific (Sydney)",
	"ap-northeast-1": "Asia Pacific (Tokyo)",
	"ap-northeast-2": "Asia Pacific (Seoul)",
	"ap-northeast-3": "Asia Pacific (Osaka)",
	"ap-south-1":     "Asia Pacific (Mumbai)",
	"ap-east-1":      "Asia Pacific (Hong Kong)",
	"af-south-1":     "Africa (Cape Town)",
	"me-south-1":     "Middle East (Bahrain)",
}

func regionDisplayName(code string) string {
	if name, ok := regionNames[code]; ok {
		return name
	}
	return code
}

// ListRegions returns every region the provider reports, including ones
// the account has not opted into, sorted by display name then code.
func (c *Client) ListRegions(ctx context.Context) ([]Region, error) {
	out, err := c.api.DescribeRegions(ctx, &awsec2.DescribeRegionsInput{AllRegions: aws.Bool(true)})
	if err != nil {
		return nil, Classify("DescribeRegions", err)
	}

	regions := make([]Region, 0, len(out.Regions))
	for _, r := range out.Regions {
		code := aws.ToString(r.RegionName)
		if code == "" {
			continue
		}
		optIn := aws.ToString(r.OptInStatus)
		regions = append(regions, Region{
			Code:        code,
			DisplayName: regionDisplayName(code),
			OptedIn:     optIn == "opt-in-not-required" || optIn == "opted-in",
		})
	}

	sort.Slice(regions, func(i, j int) bool {
		if regions[i].DisplayName != regions[j].DisplayName {
			return regions[i].DisplayName < regions[j].DisplayName
		}
		return regions[i].Code < regions[j].Code
	})

	return regions, nil
}
