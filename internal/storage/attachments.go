// Package storage は添付ファイル用のS3署名付きURLを発行します。
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignAPI は s3.PresignClient のうち使う部分です。
type PresignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// AttachmentStore はTodoごとの添付ファイルのアップロード先を管理します。
type AttachmentStore struct {
	presigner  PresignAPI
	bucket     string
	expiration time.Duration
}

// NewAttachmentStore は新しいAttachmentStoreを作成します。
func NewAttachmentStore(presigner PresignAPI, bucket string, expiration time.Duration) *AttachmentStore {
	return &AttachmentStore{presigner: presigner, bucket: bucket, expiration: expiration}
}

// NewS3AttachmentStore はAWS設定からS3クライアントを作り、AttachmentStoreを返します。
func NewS3AttachmentStore(awsCfg aws.Config, bucket string, expiration time.Duration) *AttachmentStore {
	client := s3.NewFromConfig(awsCfg)
	return NewAttachmentStore(s3.NewPresignClient(client), bucket, expiration)
}

// UploadURL は todoId をキーとするオブジェクトへのPUT用署名付きURLを返します。
func (s *AttachmentStore) UploadURL(ctx context.Context, todoID string) (string, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(todoID),
	}, s3.WithPresignExpires(s.expiration))
	if err != nil {
		return "", fmt.Errorf("could not presign upload url: %w", err)
	}
	return req.URL, nil
}

// ObjectURL はアップロード後に参照するオブジェクトのURLです。
func (s *AttachmentStore) ObjectURL(todoID string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, todoID)
}
