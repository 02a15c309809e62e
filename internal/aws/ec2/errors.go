package ec2

import (
	"errors"
	"fmt"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
)

// APIError is a classified provider failure.
type APIError struct {
	Op         string
	Code       string
	Message    string
	HTTPStatus int
	Retryable  bool

	cause error
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *APIError) Unwrap() error { return e.cause }

// ValidationError reports input rejected before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// retryableCodes are the provider error codes worth retrying. Anything
// not listed here fails fast unless the HTTP status says otherwise.
var retryableCodes = map[string]bool{
	"RequestLimitExceeded":         true,
	"RequestThrottled":             true,
	"Throttling":                   true,
	"ThrottlingException":          true,
	"TooManyRequestsException":     true,
	"EC2ThrottledException":        true,
	"InsufficientInstanceCapacity": true,
	"InternalError":                true,
	"InternalFailure":              true,
	"ServiceUnavailable":           true,
	"Unavailable":                  true,
}

func retryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// Classify turns a transport failure into an APIError with a
// retryability verdict. Errors with no known code and no transient HTTP
// status are not retryable.
func Classify(op string, err error) *APIError {
	apiErr := &APIError{Op: op, Message: err.Error(), cause: err}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		apiErr.Code = ae.ErrorCode()
		if msg := ae.ErrorMessage(); msg != "" {
			apiErr.Message = msg
		}
	}

	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		apiErr.HTTPStatus = re.HTTPStatusCode()
	}

	apiErr.Retryable = retryableCodes[apiErr.Code] || retryableStatus(apiErr.HTTPStatus)
	return apiErr
}
