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

package config

import (
	"fmt"

	"github.com/mendersoftware/go-lib-micro/config"
)

const (
	SettingListen        = "listen"
	SettingListenDefault = ":8080"

	SettingMongo        = "mongo_url"
	SettingMongoDefault = "mongodb://mongo:27017"

	SettingDbSSL        = "mongo_ssl"
	SettingDbSSLDefault = false

	SettingDbSSLSkipVerify        = "mongo_ssl_skipverify"
	SettingDbSSLSkipVerifyDefault = false

	SettingDbUsername = "mongo_username"
	SettingDbPassword = "mongo_password"

	SettingsAws = "aws"

	SettingAwsS3Region        = SettingsAws + ".region"
	SettingAwsS3RegionDefault = "us-west-2"

	SettingAwsS3PublicBucket        = SettingsAws + ".public_bucket"
	SettingAwsS3PublicBucketDefault = "taskqueue-public-artifacts"

	SettingAwsS3PrivateBucket        = SettingsAws + ".private_bucket"
	SettingAwsS3PrivateBucketDefault = "taskqueue-private-artifacts"

	SettingAwsS3ForcePathStyle        = SettingsAws + ".force_path_style"
	SettingAwsS3ForcePathStyleDefault = false

	SettingAwsS3UseAccelerate        = SettingsAws + ".use_accelerate"
	SettingAwsS3UseAccelerateDefault = false

	SettingAwsURI         = SettingsAws + ".uri"
	SettingAwsExternalURI = SettingsAws + ".external_uri"

	// SettingAwsCDNHost is the cloud-frontable hostname serving the
	// public bucket; empty falls back to the bucket endpoint.
	SettingAwsCDNHost = SettingsAws + ".cdn_host"

	SettingsAwsAuth      = SettingsAws + ".auth"
	SettingAwsAuthKeyId  = SettingsAwsAuth + ".key"
	SettingAwsAuthSecret = SettingsAwsAuth + ".secret"
	SettingAwsAuthToken  = SettingsAwsAuth + ".token"

	SettingAzure = "azure"

	SettingAzureConnectionString = SettingAzure + ".connection_string"

	SettingAzureSharedKeyAccountName = SettingAzure + ".account_name"
	SettingAzureSharedKeyAccountKey  = SettingAzure + ".account_key"
	SettingAzureSharedKeyURI         = SettingAzure + ".uri"

	SettingAzureContainerName        = SettingAzure + ".container_name"
	SettingAzureContainerNameDefault = "taskqueue-artifacts"

	// SettingCloudMirrorHost is the region-aware caching redirector for
	// public s3 artifacts fetched from a foreign region.
	SettingCloudMirrorHost        = "cloud_mirror_host"
	SettingCloudMirrorHostDefault = "cloud-mirror.taskcluster.net"

	// SettingRegionRanges lists "CIDR=region" pairs resolving request
	// origins to cloud regions.
	SettingRegionRanges = "region_ranges"

	SettingEventsURL        = "events_url"
	SettingEventsURLDefault = "http://taskqueue-events:8080"

	SettingMiddleware        = "middleware"
	SettingMiddlewareDefault = EnvProd

	EnvProd = "prod"
	EnvDev  = "dev"
)

var (
	Validators = []config.Validator{ValidateAwsAuth, ValidateBuckets}
	Defaults   = []config.Default{
		{Key: SettingListen, Value: SettingListenDefault},
		{Key: SettingMongo, Value: SettingMongoDefault},
		{Key: SettingDbSSL, Value: SettingDbSSLDefault},
		{Key: SettingDbSSLSkipVerify, Value: SettingDbSSLSkipVerifyDefault},
		{Key: SettingAwsS3Region, Value: SettingAwsS3RegionDefault},
		{Key: SettingAwsS3PublicBucket, Value: SettingAwsS3PublicBucketDefault},
		{Key: SettingAwsS3PrivateBucket, Value: SettingAwsS3PrivateBucketDefault},
		{Key: SettingAwsS3ForcePathStyle, Value: SettingAwsS3ForcePathStyleDefault},
		{Key: SettingAwsS3UseAccelerate, Value: SettingAwsS3UseAccelerateDefault},
		{Key: SettingAzureContainerName, Value: SettingAzureContainerNameDefault},
		{Key: SettingCloudMirrorHost, Value: SettingCloudMirrorHostDefault},
		{Key: SettingEventsURL, Value: SettingEventsURLDefault},
		{Key: SettingMiddleware, Value: SettingMiddlewareDefault},
	}
)

// ValidateAwsAuth validates the SettingsAwsAuth section if provided.
func ValidateAwsAuth(c config.Reader) error {
	if c.IsSet(SettingsAwsAuth) {
		required := []string{SettingAwsAuthKeyId, SettingAwsAuthSecret}
		for _, key := range required {
			if !c.IsSet(key) || c.GetString(key) == "" {
				return MissingOptionError(key)
			}
		}
	}
	return nil
}

// ValidateBuckets requires both buckets and rejects a shared one: the
// public bucket is world-readable, the private one must never be.
func ValidateBuckets(c config.Reader) error {
	public := c.GetString(SettingAwsS3PublicBucket)
	private := c.GetString(SettingAwsS3PrivateBucket)
	if public == "" {
		return MissingOptionError(SettingAwsS3PublicBucket)
	}
	if private == "" {
		return MissingOptionError(SettingAwsS3PrivateBucket)
	}
	if public == private {
		return fmt.Errorf(
			"options '%s' and '%s' must name distinct buckets",
			SettingAwsS3PublicBucket, SettingAwsS3PrivateBucket,
		)
	}
	return nil
}

// MissingOptionError generates a missing required option error.
func MissingOptionError(option string) error {
	return fmt.Errorf("Required option: '%s'", option)
}
