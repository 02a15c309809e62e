package ec2

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// API is the narrow slice of the EC2 service the console uses.
type API interface {
	DescribeInstances(ctx context.Context, params *awsec2.DescribeInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeInstancesOutput, error)
	DescribeInstanceStatus(ctx context.Context, params *awsec2.DescribeInstanceStatusInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeInstanceStatusOutput, error)
	StartInstances(ctx context.Context, params *awsec2.StartInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *awsec2.StopInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.StopInstancesOutput, error)
	RebootInstances(ctx context.Context, params *awsec2.RebootInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.RebootInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *awsec2.TerminateInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.TerminateInstancesOutput, error)
	CreateTags(ctx context.Context, params *awsec2.CreateTagsInput, optFns ...func(*awsec2.Options)) (*awsec2.CreateTagsOutput, error)
	DescribeRegions(ctx context.Context, params *awsec2.DescribeRegionsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeRegionsOutput, error)
}

type Client struct {
	api API
}

func NewClient(api API) *Client {
	return &Client{api: api}
}

// ListInstances returns all instances matching the filters, flattened
// across reservations and pages. Records with no usable id or state are
// dropped rather than failing the listing.
func (c *Client) ListInstances(ctx context.Context, filters Filters) ([]Instance, error) {
	input := &awsec2.DescribeInstancesInput{Filters: filters.wire()}

	var instances []Instance
	for {
		out, err := c.api.DescribeInstances(ctx, input)
		if err != nil {
			return nil, Classify("DescribeInstances", err)
		}

		for _, reservation := range out.Reservations {
			for _, inst := range reservation.Instances {
				rec, ok := normalize(inst)
				if !ok {
					continue
				}
				instances = append(instances, rec)
			}
		}

		if out.NextToken == nil {
			break
		}
		input.NextToken = out.NextToken
	}

	return instances, nil
}

// DescribeStatuses returns health-check results for the given instances.
// An empty id list yields a nil result without a network call.
func (c *Client) DescribeStatuses(ctx context.Context, ids []string) ([]Status, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	input := &awsec2.DescribeInstanceStatusInput{
		InstanceIds:         ids,
		IncludeAllInstances: aws.Bool(true),
	}

	var statuses []Status
	for {
		out, err := c.api.DescribeInstanceStatus(ctx, input)
		if err != nil {
			return nil, Classify("DescribeInstanceStatus", err)
		}

		for _, st := range out.InstanceStatuses {
			rec := Status{InstanceID: aws.ToString(st.InstanceId)}
			if st.InstanceState != nil {
				rec.State = InstanceState(st.InstanceState.Name)
			}
			if st.SystemStatus != nil {
				rec.SystemCheck = string(st.SystemStatus.Status)
			}
			if st.InstanceStatus != nil {
				rec.InstanceCheck = string(st.InstanceStatus.Status)
			}
			statuses = append(statuses, rec)
		}

		if out.NextToken == nil {
			break
		}
		input.NextToken = out.NextToken
	}

	return statuses, nil
}

// TagInstances applies the given tags to every listed instance. An empty
// id list is a no-op; an empty tag set is rejected before any call.
func (c *Client) TagInstances(ctx context.Context, ids []string, tags map[string]string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(tags) == 0 {
		return &ValidationError{Message: "at least one tag is required"}
	}

	wire := make([]types.Tag, 0, len(tags))
	for _, key := range sortedKeys(tags) {
		wire = append(wire, types.Tag{Key: aws.String(key), Value: aws.String(tags[key])})
	}

	if _, err := c.api.CreateTags(ctx, &awsec2.CreateTagsInput{Resources: ids, Tags: wire}); err != nil {
		return Classify("CreateTags", err)
	}
	return nil
}

func (f Filters) wire() []types.Filter {
	var filters []types.Filter
	if len(f.States) > 0 {
		values := make([]string, len(f.States))
		for i, s := range f.States {
			values[i] = string(s)
		}
		filters = append(filters, wireFilter("instance-state-name", values...))
	}
	if len(f.Types) > 0 {
		filters = append(filters, wireFilter("instance-type", f.Types...))
	}
	for _, key := range sortedKeys(f.Tags) {
		filters = append(filters, wireFilter("tag:"+key, f.Tags[key]))
	}
	if f.VpcID != "" {
		filters = append(filters, wireFilter("vpc-id", f.VpcID))
	}
	if f.Zone != "" {
		filters = append(filters, wireFilter("availability-zone", f.Zone))
	}
	return filters
}

func wireFilter(name string, values ...string) types.Filter {
	return types.Filter{Name: aws.String(name), Values: values}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalize(inst types.Instance) (Instance, bool) {
	id := aws.ToString(inst.InstanceId)
	var state InstanceState
	if inst.State != nil {
		state = InstanceState(inst.State.Name)
	}
	if id == "" || !state.Known() {
		return Instance{}, false
	}

	rec := Instance{
		ID:        id,
		Type:      string(inst.InstanceType),
		State:     state,
		PublicIP:  aws.ToString(inst.PublicIpAddress),
		PrivateIP: aws.ToString(inst.PrivateIpAddress),
		KeyName:   aws.ToString(inst.KeyName),
		ImageID:   aws.ToString(inst.ImageId),
		VpcID:     aws.ToString(inst.VpcId),
		SubnetID:  aws.ToString(inst.SubnetId),
	}
	if inst.Placement != nil {
		rec.Zone = aws.ToString(inst.Placement.AvailabilityZone)
	}
	if inst.LaunchTime != nil {
		rec.LaunchedAt = *inst.LaunchTime
	}
	for _, sg := range inst.SecurityGroups {
		rec.SecurityGroups = append(rec.SecurityGroups, SecurityGroup{
			ID:   aws.ToString(sg.GroupId),
			Name: aws.ToString(sg.GroupName),
		})
	}
	if len(inst.Tags) > 0 {
		rec.Tags = make(map[string]string, len(inst.Tags))
		for _, tag := range inst.Tags {
			key := aws.ToString(tag.Key)
			rec.Tags[key] = aws.ToString(tag.Value)
			if key == "Name" {
				rec.Name = aws.ToString(tag.Value)
			}
		}
	}
	return rec, true
}
