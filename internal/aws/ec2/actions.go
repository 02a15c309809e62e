package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// PerformAction requests a lifecycle transition for one instance and
// reports the previous/current state pair the provider returned. Reboot
// responses carry no states, so the result leaves both empty. A bad id
// or unknown action is rejected without a network call.
func (c *Client) PerformAction(ctx context.Context, id string, action Action, opts ActionOptions) (ActionResult, error) {
	if id == "" {
		return ActionResult{}, &ValidationError{Message: "instance id is required"}
	}

	res := ActionResult{InstanceID: id, Action: action}
	ids := []string{id}

	switch action {
	case ActionStart:
		out, err := c.api.StartInstances(ctx, &awsec2.StartInstancesInput{InstanceIds: ids})
		if err != nil {
			return ActionResult{}, Classify("StartInstances", err)
		}
		res.PreviousState, res.CurrentState = statePair(out.StartingInstances, id)

	case ActionStop:
		input := &awsec2.StopInstancesInput{InstanceIds: ids}
		if opts.Force {
			input.Force = aws.Bool(true)
		}
		out, err := c.api.StopInstances(ctx, input)
		if err != nil {
			return ActionResult{}, Classify("StopInstances", err)
		}
		res.PreviousState, res.CurrentState = statePair(out.StoppingInstances, id)

	case ActionReboot:
		if _, err := c.api.RebootInstances(ctx, &awsec2.RebootInstancesInput{InstanceIds: ids}); err != nil {
			return ActionResult{}, Classify("RebootInstances", err)
		}

	case ActionTerminate:
		out, err := c.api.TerminateInstances(ctx, &awsec2.TerminateInstancesInput{InstanceIds: ids})
		if err != nil {
			return ActionResult{}, Classify("TerminateInstances", err)
		}
		res.PreviousState, res.CurrentState = statePair(out.TerminatingInstances, id)

	default:
		return ActionResult{}, &ValidationError{Message: fmt.Sprintf("unknown action %q", action)}
	}

	return res, nil
}

func statePair(changes []types.InstanceStateChange, id string) (InstanceState, InstanceState) {
	for _, change := range changes {
		if aws.ToString(change.InstanceId) != id {
			continue
		}
		var prev, curr InstanceState
		if change.PreviousState != nil {
			prev = InstanceState(change.PreviousState.Name)
		}
		if change.CurrentState != nil {
			curr = InstanceState(change.CurrentState.Name)
		}
		return prev, curr
	}
	return "", ""
}
