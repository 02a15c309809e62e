package engine

import (
	"testing"

	"github.com/karpella/ec2console/internal/aws/ec2"
)

func TestKeyString_CanonicalOrdering(t *testing.T) {
	a := Key{
		Region: "us-east-1",
		Filters: ec2.Filters{
			States: []ec2.InstanceState{ec2.StateStopped, ec2.StateRunning},
			Types:  []string{"t3.micro", "m5.large"},
			Tags:   map[string]string{"team": "infra", "env": "dev"},
		},
	}
	b := Key{
		Region: "us-east-1",
		Filters: ec2.Filters{
			States: []ec2.InstanceState{ec2.StateRunning, ec2.StateStopped},
			Types:  []string{"m5.large", "t3.micro"},
			Tags:   map[string]string{"env": "dev", "team": "infra"},
		},
	}

	if a.String() != b.String() {
		t.Fatalf("equivalent keys render differently:\n%s\n%s", a.String(), b.String())
	}
}

func TestKeyString_DistinguishesQueries(t *testing.T) {
	base := Key{Region: "us-east-1"}
	cases := []Key{
		{Region: "eu-west-1"},
		{Region: "us-east-1", Filters: ec2.Filters{States: []ec2.InstanceState{ec2.StateRunning}}},
		{Region: "us-east-1", Filters: ec2.Filters{Tags: map[string]string{"env": "dev"}}},
		{Region: "us-east-1", Filters: ec2.Filters{VpcID: "vpc-1"}},
		{Region: "us-east-1", Filters: ec2.Filters{Zone: "us-east-1a"}},
	}

	seen := map[string]bool{base.String(): true}
	for _, key := range cases {
		ks := key.String()
		if seen[ks] {
			t.Fatalf("key %+v collides with another query: %s", key, ks)
		}
		seen[ks] = true
	}
}

func TestKeyString_TagValueMatters(t *testing.T) {
	a := Key{Region: "us-east-1", Filters: ec2.Filters{Tags: map[string]string{"env": "dev"}}}
	b := Key{Region: "us-east-1", Filters: ec2.Filters{Tags: map[string]string{"env": "prod"}}}
	if a.String() == b.String() {
		t.Fatal("different tag values must not collide")
	}
}
