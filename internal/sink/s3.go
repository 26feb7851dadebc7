// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sink

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

// S3UploadConfig names the optional destination §6 "output.upload"
// pushes completed trial files to once a convert run finishes.
type S3UploadConfig struct {
	Endpoint     string
	Bucket       string
	Prefix       string
	AccessKey    string
	SecretKey    string
	Region       string
	UsePathStyle bool
}

// S3Uploader pushes finished local trial/catalog files to an
// S3-compatible object store after a run completes. Uploads happen once,
// at the end of the run, not per-trial: a crash mid-run leaves the local
// files intact for the next resume attempt (§8 property 5).
type S3Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Uploader(cfg S3UploadConfig) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("sink: S3 upload: empty bucket name")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("sink: S3 upload: load AWS config: %w", err)
	}

	opts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}

	return &S3Uploader{client: s3.NewFromConfig(awsCfg, opts), bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// UploadFile reads localPath and puts it at prefix/basename(localPath).
func (u *S3Uploader) UploadFile(ctx context.Context, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("sink: S3 upload: read %s: %w", localPath, err)
	}
	key := filepath.Base(localPath)
	if u.prefix != "" {
		key = u.prefix + "/" + key
	}
	if _, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}); err != nil {
		return fmt.Errorf("sink: S3 upload: put %q: %w", key, err)
	}
	cclog.Infof("[SINK]> uploaded %s to s3://%s/%s", localPath, u.bucket, key)
	return nil
}
