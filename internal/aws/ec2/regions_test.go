package ec2

import (
	"context"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

func TestListRegions(t *testing.T) {
	mock := &mockAPI{
		describeRegionsFunc: func(ctx context.Context, params *awsec2.DescribeRegionsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeRegionsOutput, error) {
			if !awssdk.ToBool(params.AllRegions) {
				t.Error("expected AllRegions=true")
			}
			return &awsec2.DescribeRegionsOutput{
				Regions: []types.Region{
					{RegionName: awssdk.String("us-east-1"), OptInStatus: awssdk.String("opt-in-not-required")},
					{RegionName: awssdk.String("ap-east-1"), OptInStatus: awssdk.String("not-opted-in")},
					{RegionName: awssdk.String("eu-central-1"), OptInStatus: awssdk.String("opt-in-not-required")},
					{RegionName: awssdk.String("af-south-1"), OptInStatus: awssdk.String("opted-in")},
				},
			}, nil
		},
	}

	client := NewClient(mock)
	regions, err := client.ListRegions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 4 {
		t.Fatalf("expected 4 regions, got %d", len(regions))
	}

	// Sorted by display name: Africa, Asia Pacific, Europe, US East.
	wantOrder := []string{"af-south-1", "ap-east-1", "eu-central-1", "us-east-1"}
	for i, code := range wantOrder {
		if regions[i].Code != code {
			t.Errorf("regions[%d].Code = %s, want %s", i, regions[i].Code, code)
		}
	}

	if regions[0].DisplayName != "Africa (Cape Town)" {
		t.Errorf("DisplayName = %s, want Africa (Cape Town)", regions[0].DisplayName)
	}
	if !regions[0].OptedIn {
		t.Error("af-south-1 should be opted in")
	}
	if regions[1].OptedIn {
		t.Error("ap-east-1 should not be opted in")
	}
	if !regions[3].OptedIn {
		t.Error("us-east-1 should be opted in")
	}
}

func TestListRegions_UnknownCodeFallsBack(t *testing.T) {
	mock := &mockAPI{
		describeRegionsFunc: func(ctx context.Context, params *awsec2.DescribeRegionsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeRegionsOutput, error) {
			return &awsec2.DescribeRegionsOutput{
				Regions: []types.Region{
					{RegionName: awssdk.String("xx-future-1"), OptInStatus: awssdk.String("not-opted-in")},
				},
			}, nil
		},
	}

	client := NewClient(mock)
	regions, err := client.ListRegions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d", len(regions))
	}
	if regions[0].DisplayName != "xx-future-1" {
		t.Errorf("DisplayName = %s, want xx-future-1", regions[0].DisplayName)
	}
}
