package admin

import (
	"fmt"
	"strconv"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/durationpb"

	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

const errorDomain = "storefront"

// retryDelay 下单/变更超时后建议的重试间隔
const retryDelay = time.Second

// 业务错误码 → (gRPC状态码, ErrorInfo.Reason)
var codeTable = map[int]struct {
	code   codes.Code
	reason string
}{
	apperrors.ErrCodeUnauthorized:           {codes.Unauthenticated, "UNAUTHENTICATED"},
	apperrors.ErrCodeInvalidToken:           {codes.Unauthenticated, "INVALID_TOKEN"},
	apperrors.ErrCodeTokenExpired:           {codes.Unauthenticated, "TOKEN_EXPIRED"},
	apperrors.ErrCodeForbidden:              {codes.PermissionDenied, "FORBIDDEN"},
	apperrors.ErrCodeUnauthorizedTransition: {codes.PermissionDenied, "UNAUTHORIZED_TRANSITION"},
	apperrors.ErrCodeNotFound:               {codes.NotFound, "NOT_FOUND"},
	apperrors.ErrCodeBookNotFound:           {codes.NotFound, "BOOK_NOT_FOUND"},
	apperrors.ErrCodeOrderNotFound:          {codes.NotFound, "ORDER_NOT_FOUND"},
	apperrors.ErrCodeInvalidParams:          {codes.InvalidArgument, "INVALID_PARAMS"},
	apperrors.ErrCodeBindError:              {codes.InvalidArgument, "INVALID_PARAMS"},
	apperrors.ErrCodeInvalidOrderStatus:     {codes.InvalidArgument, "INVALID_ORDER_STATUS"},
	apperrors.ErrCodeInsufficientStock:      {codes.FailedPrecondition, "INSUFFICIENT_STOCK"},
	apperrors.ErrCodeBackwardTransition:     {codes.FailedPrecondition, "BACKWARD_TRANSITION"},
	apperrors.ErrCodeMissingShippingInfo:    {codes.FailedPrecondition, "MISSING_SHIPPING_PHONE"},
	apperrors.ErrCodeAlreadyCancelled:       {codes.FailedPrecondition, "ALREADY_CANCELLED"},
	apperrors.ErrCodeOrderDeleted:           {codes.FailedPrecondition, "ORDER_DELETED"},
	apperrors.ErrCodeTerminalStatus:         {codes.FailedPrecondition, "TERMINAL_STATUS"},
	apperrors.ErrCodeStatusConflict:         {codes.Aborted, "STATUS_CONFLICT"},
	apperrors.ErrCodeCheckoutTimeout:        {codes.Unavailable, "TIMEOUT"},
}

// toStatus 业务错误转gRPC错误
// ErrorInfo携带业务码和结构化上下文,可重试的错误附带RetryInfo
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	appErr := apperrors.GetAppError(err)
	entry, ok := codeTable[appErr.Code]
	if !ok {
		entry.code, entry.reason = codes.Internal, "INTERNAL"
		if appErr.Code < apperrors.ErrCodeInternal {
			entry.code, entry.reason = codes.FailedPrecondition, "BUSINESS_ERROR"
		}
	}

	message := appErr.Message
	if entry.code != codes.Internal {
		message = err.Error()
	}
	st := status.New(entry.code, message)

	info := &errdetails.ErrorInfo{
		Reason:   entry.reason,
		Domain:   errorDomain,
		Metadata: map[string]string{"code": strconv.Itoa(appErr.Code)},
	}
	for k, v := range apperrors.GetDetails(err) {
		info.Metadata[k] = fmt.Sprint(v)
	}
	details := []protoadapt.MessageV1{info}
	if apperrors.IsRetryable(err) {
		details = append(details, &errdetails.RetryInfo{RetryDelay: durationpb.New(retryDelay)})
	}

	withDetails, derr := st.WithDetails(details...)
	if derr != nil {
		return st.Err()
	}
	return withDetails.Err()
}
