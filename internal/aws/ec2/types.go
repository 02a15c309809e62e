package ec2

import "time"

// InstanceState is the provider's lifecycle state for an instance.
type InstanceState string

const (
	StatePending      InstanceState = "pending"
	StateRunning      InstanceState = "running"
	StateStopping     InstanceState = "stopping"
	StateStopped      InstanceState = "stopped"
	StateShuttingDown InstanceState = "shutting-down"
	StateTerminated   InstanceState = "terminated"
)

// Known reports whether s is one of the provider's lifecycle states.
func (s InstanceState) Known() bool {
	switch s {
	case StatePending, StateRunning, StateStopping, StateStopped,
		StateShuttingDown, StateTerminated:
		return true
	}
	return false
}

// SecurityGroup identifies one security group attached to an instance.
type SecurityGroup struct {
	ID   string
	Name string
}

// Instance is a flattened view of a single EC2 instance.
type Instance struct {
	ID             string
	Name           string
	Type           string
	State          InstanceState
	PublicIP       string
	PrivateIP      string
	Zone           string
	KeyName        string
	ImageID        string
	VpcID          string
	SubnetID       string
	SecurityGroups []SecurityGroup
	LaunchedAt     time.Time
	Tags           map[string]string
}

// DisplayName is the listing sort key: the Name tag when present,
// otherwise the instance id.
func (i Instance) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.ID
}

// Status is one instance's health-check result.
type Status struct {
	InstanceID    string
	State         InstanceState
	SystemCheck   string
	InstanceCheck string
}

// Region describes one provider region and whether the account can use it.
type Region struct {
	Code        string
	DisplayName string
	OptedIn     bool
}

// Filters narrows a listing. The zero value matches everything.
type Filters struct {
	States []InstanceState
	Types  []string
	Tags   map[string]string
	VpcID  string
	Zone   string
}

// Action is a lifecycle transition request.
type Action string

const (
	ActionStart     Action = "start"
	ActionStop      Action = "stop"
	ActionReboot    Action = "reboot"
	ActionTerminate Action = "terminate"
)

// ActionOptions carries per-action flags.
type ActionOptions struct {
	// Force applies to stop only.
	Force bool
}

// ActionResult reports the state pair the provider returned for an
// action. Reboot responses carry no states; both fields stay empty.
type ActionResult struct {
	InstanceID    string
	Action        Action
	PreviousState InstanceState
	CurrentState  InstanceState
}
