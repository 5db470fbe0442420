package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/idkeeper/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Outward messages. The internal error is logged, never returned.
const (
	msgBadCredentials = "invalid username or password"
	msgBadToken       = "invalid or expired token"
	msgAuthRequired   = "authentication required"
	msgTokenRequired  = "token is required"
	msgForbidden      = "permission denied"
	msgNotFound       = "user not found"
	msgExists         = "user already exists"
	msgUnavailable    = "service unavailable"
	msgDelivery       = "email delivery failed"
	msgInternal       = "internal error"
)

// toStatus maps a service error to its status. Login folds unknown users
// into the bad credentials answer so responses do not reveal which usernames exist.
func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	st := classify(method, err)
	if st.Code() == codes.Internal || st.Code() == codes.Unavailable {
		s.logger.Error(ctx, "Request error", "method", method, "error", err)
	} else {
		s.logger.Info(ctx, "Request rejected", "method", method, "code", st.Code().String(), "error", err)
	}
	return st.Err()
}

func classify(method string, err error) *status.Status {
	switch {
	case method == "Login" && (errors.Is(err, common.ErrUserNotFound) || errors.Is(err, common.ErrInvalidCredentials)):
		return status.New(codes.Unauthenticated, msgBadCredentials)
	case errors.Is(err, common.ErrUnauthenticated):
		return status.New(codes.Unauthenticated, msgAuthRequired)
	case errors.Is(err, common.ErrMalformedToken),
		errors.Is(err, common.ErrInvalidSignature),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenAlreadyUsed):
		return status.New(codes.Unauthenticated, msgBadToken)
	case errors.Is(err, common.ErrMissingToken):
		return status.New(codes.InvalidArgument, msgTokenRequired)
	case errors.Is(err, common.ErrForbidden):
		return status.New(codes.PermissionDenied, msgForbidden)
	case errors.Is(err, common.ErrUserNotFound):
		return status.New(codes.NotFound, msgNotFound)
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrPasswordMismatch):
		return status.New(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrConflict):
		return status.New(codes.AlreadyExists, msgExists)
	case errors.Is(err, common.ErrStoreUnavailable):
		return status.New(codes.Unavailable, msgUnavailable)
	case errors.Is(err, common.ErrDeliveryFailed):
		return status.New(codes.Unavailable, msgDelivery)
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, "request canceled")
	}
	return status.New(codes.Internal, msgInternal)
}
