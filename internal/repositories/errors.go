// Package repositories はデータベース操作を行うリポジトリを提供します。
package repositories

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

var (
	// ErrTodoNotFound はTODOが見つからない場合のエラーです。
	ErrTodoNotFound = errors.New("todo not found")
	// ErrInvalidPageKey は nextKey が壊れているか、別ユーザー/別インデックスのものである場合のエラーです。
	ErrInvalidPageKey = errors.New("invalid page key")
)

// ConflictError は条件付き書き込みの失敗です。そのままリトライしてはいけません。
type ConflictError struct{ Cause error }

func (e *ConflictError) Error() string { return fmt.Sprintf("conflict: %v", e.Cause) }
func (e *ConflictError) Unwrap() error { return e.Cause }

// RetryableError はスロットリング等、時間をおけば成功する可能性があるエラーです。
type RetryableError struct{ Cause error }

func (e *RetryableError) Error() string { return fmt.Sprintf("retryable: %v", e.Cause) }
func (e *RetryableError) Unwrap() error { return e.Cause }

// OpError はその他のストアエラーです。
type OpError struct{ Cause error }

func (e *OpError) Error() string { return fmt.Sprintf("op error: %v", e.Cause) }
func (e *OpError) Unwrap() error { return e.Cause }

// Classify はsmithyのエラーコードから ConflictError / RetryableError / OpError に分類します。
// リトライはしません (呼び出し側の責任)。
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var api smithy.APIError
	if errors.As(err, &api) {
		switch api.ErrorCode() {
		case "ConditionalCheckFailedException", "TransactionCanceledException":
			return &ConflictError{Cause: err}
		case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded", "TransactionInProgressException":
			return &RetryableError{Cause: err}
		}
	}
	return &OpError{Cause: err}
}

// IsRetryable は err が RetryableError を含むかどうかを返します。
func IsRetryable(err error) bool {
	var r *RetryableError
	return errors.As(err, &r)
}
