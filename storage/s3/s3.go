// Copyright 2023 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package s3

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsHttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"

	"github.com/mendersoftware/taskqueue-artifacts/model"
	"github.com/mendersoftware/taskqueue-artifacts/storage"
)

const (
	ExpireMaxLimit = 7 * 24 * time.Hour
	ExpireMinLimit = 1 * time.Minute
)

// SimpleStorageService brokers presigned credentials for a single bucket.
// Implements storage.Bucket.
type SimpleStorageService struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	region        string
	cdnHost       string
}

type StaticCredentials struct {
	Key    string `json:"key"`
	Secret string `json:"secret"`
	Token  string `json:"token"`
}

func (creds StaticCredentials) Validate() error {
	return validation.ValidateStruct(&creds,
		validation.Field(&creds.Key, validation.Required),
		validation.Field(&creds.Secret, validation.Required),
	)
}

func (creds StaticCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	return aws.Credentials{
		AccessKeyID:     creds.Key,
		SecretAccessKey: creds.Secret,
		SessionToken:    creds.Token,
		Source:          "artifacts:StaticCredentials",
	}, nil
}

func New(ctx context.Context, bucket string, opts ...*Options) (*SimpleStorageService, error) {
	opt := NewOptions(opts...)
	if err := opt.Validate(); err != nil {
		return nil, errors.WithMessage(err, "s3: invalid configuration")
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	clientOpts, presignOpts := opt.toS3Options()
	client := s3.NewFromConfig(cfg, clientOpts)
	presignClient := s3.NewPresignClient(client, presignOpts)

	region := cfg.Region
	if opt.Region != nil {
		region = *opt.Region
	}
	var cdnHost string
	if opt.CDNHost != nil {
		cdnHost = *opt.CDNHost
	}

	s3c := &SimpleStorageService{
		client:        client,
		presignClient: presignClient,
		bucket:        bucket,
		region:        region,
		cdnHost:       cdnHost,
	}

	err = s3c.init(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "s3: failed to check bucket preconditions")
	}
	return s3c, nil
}

func (s *SimpleStorageService) init(ctx context.Context) error {
	hparams := &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	}
	var rspErr *awsHttp.ResponseError

	_, err := s.client.HeadBucket(ctx, hparams)
	if err == nil {
		// bucket exists and have permission to access it
		return nil
	} else if errors.As(err, &rspErr) {
		switch rspErr.Response.StatusCode {
		case http.StatusNotFound:
			err = nil // pass
		case http.StatusForbidden:
			err = fmt.Errorf(
				"s3: insufficient permissions for accessing bucket '%s'",
				s.bucket,
			)
		}
	}
	if err != nil {
		return err
	}
	cparams := &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	}

	_, err = s.client.CreateBucket(ctx, cparams)
	if err != nil {
		var errBucket *types.BucketAlreadyOwnedByYou
		if !errors.As(err, &errBucket) {
			return errors.WithMessage(err, "s3: error creating bucket")
		}
	}
	waitTime := time.Second * 30
	if deadline, ok := ctx.Deadline(); ok {
		waitTime = time.Until(deadline)
	}
	err = s3.NewBucketExistsWaiter(s.client).
		Wait(ctx, &s3.HeadBucketInput{Bucket: &s.bucket}, waitTime)
	return err
}

func (s *SimpleStorageService) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	return err
}

func (s *SimpleStorageService) Name() string {
	return s.bucket
}

func (s *SimpleStorageService) Region() string {
	return s.region
}

// PutRequest presigns an upload bound to the content type: a PUT with a
// different Content-Type header fails signature validation.
func (s *SimpleStorageService) PutRequest(
	ctx context.Context,
	key string,
	opts storage.PutOptions,
) (*model.Link, error) {
	expireAfter := capDurationToLimits(opts.Expire).Truncate(time.Second)

	params := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if opts.ContentType != "" {
		params.ContentType = aws.String(opts.ContentType)
	}

	signDate := time.Now()
	req, err := s.presignClient.PresignPutObject(
		ctx,
		params,
		s3.WithPresignExpires(expireAfter),
	)
	if err != nil {
		return nil, errors.WithMessage(err, "s3: failed to sign PUT request")
	}

	link := model.NewLink(req.URL, signDate.Add(expireAfter))
	link.Method = http.MethodPut
	return link, nil
}

// GetURL builds the un-signed URL for a world-readable object. The
// same-region form addresses the bucket host directly; the default form
// goes through the CDN host when one is configured.
func (s *SimpleStorageService) GetURL(key string, sameRegion bool) string {
	host := fmt.Sprintf("%s.s3.%s.amazonaws.com", s.bucket, s.region)
	if !sameRegion {
		if s.cdnHost != "" {
			host = s.cdnHost
		} else {
			host = fmt.Sprintf("%s.s3.amazonaws.com", s.bucket)
		}
	}
	u := url.URL{
		Scheme: "https",
		Host:   host,
		Path:   "/" + key,
	}
	return u.String()
}

// SignedGetRequest duration is limited to 7 days (AWS limitation)
func (s *SimpleStorageService) SignedGetRequest(
	ctx context.Context,
	key string,
	expireAfter time.Duration,
) (*model.Link, error) {
	expireAfter = capDurationToLimits(expireAfter).Truncate(time.Second)

	params := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}

	signDate := time.Now()
	req, err := s.presignClient.PresignGetObject(ctx,
		params,
		s3.WithPresignExpires(expireAfter),
	)
	if err != nil {
		return nil, errors.WithMessage(err, "s3: failed to sign GET request")
	}

	return model.NewLink(req.URL, signDate.Add(expireAfter)), nil
}

// presign requests are limited to 7 days
func capDurationToLimits(duration time.Duration) time.Duration {
	if duration < ExpireMinLimit {
		duration = ExpireMinLimit
	} else if duration > ExpireMaxLimit {
		duration = ExpireMaxLimit
	}
	return duration
}
