package ec2

import (
	"errors"
	"net/http"
	"testing"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

func responseError(status int, inner error) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      inner,
		},
		RequestID: "req-1",
	}
}

func TestClassify_ThrottlingCode(t *testing.T) {
	err := &smithy.OperationError{
		ServiceID:     "EC2",
		OperationName: "DescribeInstances",
		Err: responseError(503, &smithy.GenericAPIError{
			Code:    "RequestLimitExceeded",
			Message: "Request limit exceeded.",
		}),
	}

	apiErr := Classify("DescribeInstances", err)
	if apiErr.Code != "RequestLimitExceeded" {
		t.Errorf("Code = %s, want RequestLimitExceeded", apiErr.Code)
	}
	if apiErr.Message != "Request limit exceeded." {
		t.Errorf("Message = %s, want provider message", apiErr.Message)
	}
	if apiErr.HTTPStatus != 503 {
		t.Errorf("HTTPStatus = %d, want 503", apiErr.HTTPStatus)
	}
	if !apiErr.Retryable {
		t.Error("throttling code must be retryable")
	}
	if !errors.Is(apiErr, err) {
		t.Error("classified error must wrap the original")
	}
}

func TestClassify_TransientStatusOnly(t *testing.T) {
	err := responseError(502, errors.New("bad gateway"))

	apiErr := Classify("StartInstances", err)
	if apiErr.Code != "" {
		t.Errorf("Code = %s, want empty", apiErr.Code)
	}
	if apiErr.HTTPStatus != 502 {
		t.Errorf("HTTPStatus = %d, want 502", apiErr.HTTPStatus)
	}
	if !apiErr.Retryable {
		t.Error("502 must be retryable")
	}
}

func TestClassify_NonRetryableCode(t *testing.T) {
	err := responseError(403, &smithy.GenericAPIError{
		Code:    "UnauthorizedOperation",
		Message: "You are not authorized to perform this operation.",
	})

	apiErr := Classify("TerminateInstances", err)
	if apiErr.Code != "UnauthorizedOperation" {
		t.Errorf("Code = %s, want UnauthorizedOperation", apiErr.Code)
	}
	if apiErr.HTTPStatus != 403 {
		t.Errorf("HTTPStatus = %d, want 403", apiErr.HTTPStatus)
	}
	if apiErr.Retryable {
		t.Error("authorization failure must not be retryable")
	}
}

func TestClassify_CapacityCode(t *testing.T) {
	apiErr := Classify("StartInstances", &smithy.GenericAPIError{
		Code:    "InsufficientInstanceCapacity",
		Message: "We currently do not have sufficient capacity.",
	})
	if !apiErr.Retryable {
		t.Error("capacity shortage must be retryable")
	}
}

func TestClassify_PlainError(t *testing.T) {
	apiErr := Classify("DescribeRegions", errors.New("dial tcp: connection refused"))
	if apiErr.Code != "" {
		t.Errorf("Code = %s, want empty", apiErr.Code)
	}
	if apiErr.HTTPStatus != 0 {
		t.Errorf("HTTPStatus = %d, want 0", apiErr.HTTPStatus)
	}
	if apiErr.Retryable {
		t.Error("unclassified error must not be retryable")
	}
	if apiErr.Message != "dial tcp: connection refused" {
		t.Errorf("Message = %s, want original text", apiErr.Message)
	}
}

func TestClassify_ThrottlingStatus(t *testing.T) {
	apiErr := Classify("StopInstances", responseError(429, errors.New("slow down")))
	if !apiErr.Retryable {
		t.Error("429 must be retryable")
	}
}
