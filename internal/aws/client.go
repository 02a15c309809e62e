package aws

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/karpella/ec2console/internal/auth"
	awsec2 "github.com/karpella/ec2console/internal/aws/ec2"
)

// NewEC2Client builds an instance client bound to one credential set and
// one region. Credential rotation or a region switch means building a new
// one; the client itself is immutable.
func NewEC2Client(ctx context.Context, creds *auth.CloudCredentials, region string) (*awsec2.Client, error) {
	cfg, err := NewConfig(ctx, creds, region)
	if err != nil {
		return nil, err
	}
	return awsec2.NewClient(ec2.NewFromConfig(cfg)), nil
}

// NewIdentityClient builds the unauthenticated identity pool client. The
// pool's home region is encoded in its ID.
func NewIdentityClient(ctx context.Context, poolID string) (*cognitoidentity.Client, error) {
	cfg, err := NewAnonymousConfig(ctx, PoolRegion(poolID))
	if err != nil {
		return nil, err
	}
	return cognitoidentity.NewFromConfig(cfg), nil
}

// NewSTSClient builds a caller-identity client for verifying freshly
// derived credentials.
func NewSTSClient(ctx context.Context, creds *auth.CloudCredentials, region string) (*sts.Client, error) {
	cfg, err := NewConfig(ctx, creds, region)
	if err != nil {
		return nil, err
	}
	return sts.NewFromConfig(cfg), nil
}

// PoolRegion extracts the home region from an identity pool ID of the form
// "<region>:<uuid>".
func PoolRegion(poolID string) string {
	if i := strings.IndexByte(poolID, ':'); i > 0 {
		return poolID[:i]
	}
	return poolID
}
