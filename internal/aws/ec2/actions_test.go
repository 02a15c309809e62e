package ec2

import (
	"context"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
)

func stateChange(id string, prev, curr types.InstanceStateName) types.InstanceStateChange {
	return types.InstanceStateChange{
		InstanceId:    awssdk.String(id),
		PreviousState: &types.InstanceState{Name: prev},
		CurrentState:  &types.InstanceState{Name: curr},
	}
}

func TestPerformAction_Start(t *testing.T) {
	mock := &mockAPI{
		startInstancesFunc: func(ctx context.Context, params *awsec2.StartInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.StartInstancesOutput, error) {
			if len(params.InstanceIds) != 1 || params.InstanceIds[0] != "i-1" {
				t.Errorf("InstanceIds = %v, want [i-1]", params.InstanceIds)
			}
			return &awsec2.StartInstancesOutput{
				StartingInstances: []types.InstanceStateChange{
					stateChange("i-1", types.InstanceStateNameStopped, types.InstanceStateNamePending),
				},
			}, nil
		},
	}

	client := NewClient(mock)
	res, err := client.PerformAction(context.Background(), "i-1", ActionStart, ActionOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PreviousState != StateStopped {
		t.Errorf("PreviousState = %s, want stopped", res.PreviousState)
	}
	if res.CurrentState != StatePending {
		t.Errorf("CurrentState = %s, want pending", res.CurrentState)
	}
}

func TestPerformAction_StopForce(t *testing.T) {
	mock := &mockAPI{
		stopInstancesFunc: func(ctx context.Context, params *awsec2.StopInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.StopInstancesOutput, error) {
			if !awssdk.ToBool(params.Force) {
				t.Error("expected Force=true")
			}
			return &awsec2.StopInstancesOutput{
				StoppingInstances: []types.InstanceStateChange{
					stateChange("i-1", types.InstanceStateNameRunning, types.InstanceStateNameStopping),
				},
			}, nil
		},
	}

	client := NewClient(mock)
	res, err := client.PerformAction(context.Background(), "i-1", ActionStop, ActionOptions{Force: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PreviousState != StateRunning || res.CurrentState != StateStopping {
		t.Errorf("state pair = %s -> %s, want running -> stopping", res.PreviousState, res.CurrentState)
	}
}

func TestPerformAction_StopWithoutForce(t *testing.T) {
	mock := &mockAPI{
		stopInstancesFunc: func(ctx context.Context, params *awsec2.StopInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.StopInstancesOutput, error) {
			if params.Force != nil {
				t.Errorf("Force = %v, want unset", *params.Force)
			}
			return &awsec2.StopInstancesOutput{}, nil
		},
	}

	client := NewClient(mock)
	if _, err := client.PerformAction(context.Background(), "i-1", ActionStop, ActionOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPerformAction_Reboot(t *testing.T) {
	called := false
	mock := &mockAPI{
		rebootInstancesFunc: func(ctx context.Context, params *awsec2.RebootInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.RebootInstancesOutput, error) {
			called = true
			return &awsec2.RebootInstancesOutput{}, nil
		},
	}

	client := NewClient(mock)
	res, err := client.PerformAction(context.Background(), "i-1", ActionReboot, ActionOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected RebootInstances call")
	}
	if res.PreviousState != "" || res.CurrentState != "" {
		t.Errorf("state pair = %s -> %s, want empty pair", res.PreviousState, res.CurrentState)
	}
}

func TestPerformAction_Terminate(t *testing.T) {
	mock := &mockAPI{
		terminateInstancesFunc: func(ctx context.Context, params *awsec2.TerminateInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.TerminateInstancesOutput, error) {
			return &awsec2.TerminateInstancesOutput{
				TerminatingInstances: []types.InstanceStateChange{
					stateChange("i-1", types.InstanceStateNameRunning, types.InstanceStateNameShuttingDown),
				},
			}, nil
		},
	}

	client := NewClient(mock)
	res, err := client.PerformAction(context.Background(), "i-1", ActionTerminate, ActionOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PreviousState != StateRunning || res.CurrentState != StateShuttingDown {
		t.Errorf("state pair = %s -> %s, want running -> shutting-down", res.PreviousState, res.CurrentState)
	}
}

func TestPerformAction_EmptyID(t *testing.T) {
	client := NewClient(&mockAPI{})
	_, err := client.PerformAction(context.Background(), "", ActionStart, ActionOptions{})
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestPerformAction_UnknownAction(t *testing.T) {
	client := NewClient(&mockAPI{})
	_, err := client.PerformAction(context.Background(), "i-1", Action("hibernate"), ActionOptions{})
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestPerformAction_ClassifiedFailure(t *testing.T) {
	mock := &mockAPI{
		startInstancesFunc: func(ctx context.Context, params *awsec2.StartInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.StartInstancesOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "IncorrectInstanceState", Message: "not in a state from which it can be started"}
		},
	}

	client := NewClient(mock)
	_, err := client.PerformAction(context.Background(), "i-1", ActionStart, ActionOptions{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Code != "IncorrectInstanceState" {
		t.Errorf("Code = %s, want IncorrectInstanceState", apiErr.Code)
	}
	if apiErr.Retryable {
		t.Error("IncorrectInstanceState must not be retryable")
	}
}

func TestPerformAction_ResultOmitsOtherInstances(t *testing.T) {
	mock := &mockAPI{
		startInstancesFunc: func(ctx context.Context, params *awsec2.StartInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.StartInstancesOutput, error) {
			return &awsec2.StartInstancesOutput{
				StartingInstances: []types.InstanceStateChange{
					stateChange("i-other", types.InstanceStateNameStopped, types.InstanceStateNamePending),
				},
			}, nil
		},
	}

	client := NewClient(mock)
	res, err := client.PerformAction(context.Background(), "i-1", ActionStart, ActionOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PreviousState != "" || res.CurrentState != "" {
		t.Errorf("state pair = %s -> %s, want empty pair for missing id", res.PreviousState, res.CurrentState)
	}
}
