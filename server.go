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

package main

import (
	"context"
	"net/http"

	"github.com/ant0ine/go-json-rest/rest"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mendersoftware/go-lib-micro/config"

	api "github.com/mendersoftware/taskqueue-artifacts/api/http"
	"github.com/mendersoftware/taskqueue-artifacts/app"
	"github.com/mendersoftware/taskqueue-artifacts/authz"
	dconfig "github.com/mendersoftware/taskqueue-artifacts/config"
	"github.com/mendersoftware/taskqueue-artifacts/region"
	"github.com/mendersoftware/taskqueue-artifacts/storage"
	"github.com/mendersoftware/taskqueue-artifacts/storage/azblob"
	"github.com/mendersoftware/taskqueue-artifacts/storage/s3"
	mstore "github.com/mendersoftware/taskqueue-artifacts/store/mongo"
)

func SetupS3(ctx context.Context, bucket string) (storage.Bucket, error) {
	c := config.Config

	options := s3.NewOptions().
		SetRegion(c.GetString(dconfig.SettingAwsS3Region)).
		SetForcePathStyle(c.GetBool(dconfig.SettingAwsS3ForcePathStyle)).
		SetUseAccelerate(c.GetBool(dconfig.SettingAwsS3UseAccelerate))

	// The following parameters fall back on AWS_* environment if not set
	if c.IsSet(dconfig.SettingsAwsAuth) ||
		(c.IsSet(dconfig.SettingAwsAuthKeyId) &&
			c.IsSet(dconfig.SettingAwsAuthSecret)) {
		options.SetStaticCredentials(
			c.GetString(dconfig.SettingAwsAuthKeyId),
			c.GetString(dconfig.SettingAwsAuthSecret),
			c.GetString(dconfig.SettingAwsAuthToken),
		)
	}
	if c.IsSet(dconfig.SettingAwsURI) {
		options.SetURI(c.GetString(dconfig.SettingAwsURI))
	}
	if c.IsSet(dconfig.SettingAwsExternalURI) {
		options.SetExternalURI(c.GetString(dconfig.SettingAwsExternalURI))
	}
	if c.IsSet(dconfig.SettingAwsCDNHost) {
		options.SetCDNHost(c.GetString(dconfig.SettingAwsCDNHost))
	}

	return s3.New(ctx, bucket, options)
}

// SetupBlobStorage returns a nil container when no Azure credentials
// are configured; azure artifacts are then rejected at create.
func SetupBlobStorage(ctx context.Context) (storage.BlobContainer, error) {
	c := config.Config

	container := c.GetString(dconfig.SettingAzureContainerName)
	if c.IsSet(dconfig.SettingAzureConnectionString) {
		options := azblob.NewOptions().
			SetConnectionString(c.GetString(dconfig.SettingAzureConnectionString))
		return azblob.New(ctx, container, options)
	}
	if c.IsSet(dconfig.SettingAzureSharedKeyAccountName) {
		sk := azblob.SharedKeyCredentials{
			AccountName: c.GetString(dconfig.SettingAzureSharedKeyAccountName),
			AccountKey:  c.GetString(dconfig.SettingAzureSharedKeyAccountKey),
		}
		if c.IsSet(dconfig.SettingAzureSharedKeyURI) {
			uri := c.GetString(dconfig.SettingAzureSharedKeyURI)
			sk.URI = &uri
		}
		return azblob.New(ctx, container, azblob.NewOptions().SetSharedKey(sk))
	}
	return nil, nil
}

func RunServer(ctx context.Context, dbClient *mongo.Client) error {
	c := config.Config

	ds := mstore.NewDataStoreMongoWithClient(dbClient)

	// Storage layer
	publicBucket, err := SetupS3(ctx,
		c.GetString(dconfig.SettingAwsS3PublicBucket))
	if err != nil {
		return errors.WithMessage(err, "main: failed to setup public bucket")
	}
	privateBucket, err := SetupS3(ctx,
		c.GetString(dconfig.SettingAwsS3PrivateBucket))
	if err != nil {
		return errors.WithMessage(err, "main: failed to setup private bucket")
	}
	blobs, err := SetupBlobStorage(ctx)
	if err != nil {
		return errors.WithMessage(err, "main: failed to setup blob container")
	}

	regions, err := region.NewResolver(
		c.GetStringSlice(dconfig.SettingRegionRanges))
	if err != nil {
		return errors.WithMessage(err, "main: invalid region ranges")
	}

	artifacts := app.NewArtifacts(
		ds,
		publicBucket, privateBucket,
		blobs,
		regions,
		authz.New(),
		c.GetString(dconfig.SettingCloudMirrorHost),
	)

	router, err := api.NewRouter(artifacts)
	if err != nil {
		return err
	}

	restApi := rest.NewApi()
	SetupMiddleware(c, restApi)
	restApi.SetApp(router)

	listen := c.GetString(dconfig.SettingListen)
	return http.ListenAndServe(listen, restApi.MakeHandler())
}
