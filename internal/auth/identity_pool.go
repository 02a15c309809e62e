package auth

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// IdentityAPI is the subset of the identity-pool service the broker uses.
type IdentityAPI interface {
	GetId(ctx context.Context, params *cognitoidentity.GetIdInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetIdOutput, error)
	GetCredentialsForIdentity(ctx context.Context, params *cognitoidentity.GetCredentialsForIdentityInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetCredentialsForIdentityOutput, error)
}

// STSAPI is the subset of STS used to verify derived credentials.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// CredentialBroker turns a valid ID token into temporary cloud
// credentials through an identity pool.
type CredentialBroker struct {
	api          IdentityAPI
	poolID       string
	providerName string
}

func NewCredentialBroker(api IdentityAPI, poolID, providerName string) *CredentialBroker {
	return &CredentialBroker{api: api, poolID: poolID, providerName: providerName}
}

// Derive resolves the pool identity for the token and exchanges it for
// scoped credentials. Callers must hold a session that passed Valid;
// failures mean the signed-in state is no longer trustworthy.
func (b *CredentialBroker) Derive(ctx context.Context, idToken string) (*CloudCredentials, error) {
	logins := map[string]string{b.providerName: idToken}

	idOut, err := b.api.GetId(ctx, &cognitoidentity.GetIdInput{
		IdentityPoolId: aws.String(b.poolID),
		Logins:         logins,
	})
	if err != nil {
		return nil, &DerivationError{Step: "resolve identity", Message: "identity pool lookup failed", Err: err}
	}
	identityID := aws.ToString(idOut.IdentityId)
	if identityID == "" {
		return nil, &DerivationError{Step: "resolve identity", Message: "identity pool returned no identity id"}
	}

	credOut, err := b.api.GetCredentialsForIdentity(ctx, &cognitoidentity.GetCredentialsForIdentityInput{
		IdentityId: aws.String(identityID),
		Logins:     logins,
	})
	if err != nil {
		return nil, &DerivationError{Step: "exchange credentials", Message: "credential exchange failed", Err: err}
	}
	raw := credOut.Credentials
	if raw == nil || aws.ToString(raw.AccessKeyId) == "" || aws.ToString(raw.SecretKey) == "" || aws.ToString(raw.SessionToken) == "" {
		return nil, &DerivationError{Step: "exchange credentials", Message: "credential response missing key material"}
	}

	return &CloudCredentials{
		AccessKeyID:  aws.ToString(raw.AccessKeyId),
		SecretKey:    aws.ToString(raw.SecretKey),
		SessionToken: aws.ToString(raw.SessionToken),
		Expiration:   aws.ToTime(raw.Expiration),
	}, nil
}

// CallerIdentity is the verified principal behind a set of credentials.
type CallerIdentity struct {
	Account string
	ARN     string
	UserID  string
}

// VerifyCredentials confirms the derived credentials are accepted by the
// cloud side. A failure here is fatal for the session.
func VerifyCredentials(ctx context.Context, api STSAPI) (CallerIdentity, error) {
	out, err := api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return CallerIdentity{}, &DerivationError{Step: "verify credentials", Message: "caller identity check failed", Err: err}
	}
	return CallerIdentity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}
