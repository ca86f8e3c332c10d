package remediation

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/shield/types"
	"github.com/aws/smithy-go"
)

// Error kinds surfaced to the orchestrator. Match them with errors.Is.
var (
	ErrMissingField      = errors.New("missing required field")
	ErrLookup            = errors.New("protection lookup failed")
	ErrMalformedResponse = errors.New("malformed protection record")
	ErrTransientService  = errors.New("transient service failure")
	ErrPermission        = errors.New("permission denied")
	ErrRejected          = errors.New("request rejected by shield")
)

var (
	errMissingResourceID  = errors.New("field ResourceID is not defined")
	errMissingResourceArn = errors.New("field Protection.ResourceArn is not defined")
)

const (
	opValidate = "validate request"
	opDescribe = "describe protection"
	opEnable   = "enable automatic response"
)

// Error reports which step failed and why. The SDK error, when there is one,
// stays reachable through errors.As.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}

	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

func classify(op string, err error) error {
	return &Error{Op: op, Kind: kindOf(op, err), Err: err}
}

func kindOf(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrTransientService
	}

	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return ErrLookup
	}

	var accessDenied *types.AccessDeniedException
	var dependencyDenied *types.AccessDeniedForDependencyException
	var noRole *types.NoAssociatedRoleException
	if errors.As(err, &accessDenied) || errors.As(err, &dependencyDenied) || errors.As(err, &noRole) {
		return ErrPermission
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		// No service response at all: DNS, connection reset, and so on.
		return ErrTransientService
	}

	switch apiErr.ErrorCode() {
	case "AccessDenied", "UnauthorizedOperation", "UnrecognizedClientException",
		"InvalidClientTokenId", "ExpiredTokenException", "MissingAuthenticationToken":
		return ErrPermission
	case "OptimisticLockException", "LimitsExceededException", "ThrottlingException", "Throttling":
		return ErrTransientService
	case "InvalidParameterException":
		if op == opDescribe {
			return ErrLookup
		}
	}

	if apiErr.ErrorFault() == smithy.FaultServer {
		return ErrTransientService
	}

	return ErrRejected
}
