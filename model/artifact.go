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

package model

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	// PublicPrefix marks artifacts readable without authorization.
	PublicPrefix = "public/"

	// DefaultContentType is assumed when a create request leaves the
	// content type unset.
	DefaultContentType = "application/json"
)

type StorageType string

const (
	StorageTypeS3        StorageType = "s3"
	StorageTypeAzure     StorageType = "azure"
	StorageTypeReference StorageType = "reference"
	StorageTypeError     StorageType = "error"
)

var storageTypes = []interface{}{
	StorageTypeS3,
	StorageTypeAzure,
	StorageTypeReference,
	StorageTypeError,
}

// S3Details locates the artifact object in an S3-compatible bucket.
type S3Details struct {
	Bucket string `json:"bucket" bson:"bucket"`
	Prefix string `json:"prefix" bson:"prefix"`
}

// AzureDetails locates the artifact blob in a blob container.
type AzureDetails struct {
	Container string `json:"container" bson:"container"`
	Path      string `json:"path" bson:"path"`
}

// ReferenceDetails points at bytes hosted elsewhere.
type ReferenceDetails struct {
	URL string `json:"url" bson:"url"`
}

// ErrorDetails records why an artifact could not be produced.
type ErrorDetails struct {
	Message string `json:"message" bson:"message"`
	Reason  string `json:"reason" bson:"reason"`
}

// ArtifactDetails is the per-storage-type variant record. Exactly one
// member matching Artifact.StorageType is set.
type ArtifactDetails struct {
	S3        *S3Details        `json:"s3,omitempty" bson:"s3,omitempty"`
	Azure     *AzureDetails     `json:"azure,omitempty" bson:"azure,omitempty"`
	Reference *ReferenceDetails `json:"reference,omitempty" bson:"reference,omitempty"`
	Error     *ErrorDetails     `json:"error,omitempty" bson:"error,omitempty"`
}

// Equal reports deep structural equality of the variant records.
func (d ArtifactDetails) Equal(other ArtifactDetails) bool {
	switch {
	case d.S3 != nil:
		return other.S3 != nil && *d.S3 == *other.S3
	case d.Azure != nil:
		return other.Azure != nil && *d.Azure == *other.Azure
	case d.Reference != nil:
		return other.Reference != nil && *d.Reference == *other.Reference
	case d.Error != nil:
		return other.Error != nil && *d.Error == *other.Error
	}
	return other.S3 == nil && other.Azure == nil &&
		other.Reference == nil && other.Error == nil
}

// Artifact is the authoritative metadata record of a single named output
// of a task run. The bytes, if any, live in a third-party object store.
type Artifact struct {
	ID          string          `json:"-" bson:"_id"`
	TaskID      string          `json:"taskId" bson:"task_id"`
	RunID       int             `json:"runId" bson:"run_id"`
	Name        string          `json:"name" bson:"name"`
	StorageType StorageType     `json:"storageType" bson:"storage_type"`
	ContentType string          `json:"contentType" bson:"content_type"`
	Expires     time.Time       `json:"expires" bson:"expires"`
	Details     ArtifactDetails `json:"details" bson:"details"`
}

// ArtifactID builds the primary key for the (taskID, runID, name) triple.
func ArtifactID(taskID string, runID int, name string) string {
	return fmt.Sprintf("%s/%d/%s", taskID, runID, name)
}

// ObjectKey is the object-store key of the artifact bytes.
func (a *Artifact) ObjectKey() string {
	return fmt.Sprintf("%s/%d/%s", a.TaskID, a.RunID, a.Name)
}

// Public artifacts are readable without authorization.
func (a *Artifact) Public() bool {
	return strings.HasPrefix(a.Name, PublicPrefix)
}

func (a Artifact) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.TaskID, validation.Required),
		validation.Field(&a.RunID, validation.Min(0)),
		validation.Field(&a.Name, validation.Required),
		validation.Field(&a.StorageType, validation.Required,
			validation.In(storageTypes...)),
		validation.Field(&a.ContentType, validation.Required),
		validation.Field(&a.Expires, validation.Required),
	)
}

// APIArtifact is the external representation used by list responses and
// the artifactCreated event.
type APIArtifact struct {
	StorageType StorageType `json:"storageType"`
	Name        string      `json:"name"`
	Expires     time.Time   `json:"expires"`
	ContentType string      `json:"contentType"`
	URL         string      `json:"url,omitempty"`
}

func (a *Artifact) APIArtifact() APIArtifact {
	ret := APIArtifact{
		StorageType: a.StorageType,
		Name:        a.Name,
		Expires:     a.Expires,
		ContentType: a.ContentType,
	}
	if a.StorageType == StorageTypeReference && a.Details.Reference != nil {
		ret.URL = a.Details.Reference.URL
	}
	return ret
}

// ArtifactRequest is the createArtifact body, discriminated by StorageType.
type ArtifactRequest struct {
	StorageType StorageType `json:"storageType"`
	ContentType string      `json:"contentType,omitempty"`
	Expires     time.Time   `json:"expires"`

	// reference
	URL string `json:"url,omitempty"`

	// error
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func (r ArtifactRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.StorageType, validation.Required,
			validation.In(storageTypes...)),
		validation.Field(&r.Expires, validation.Required),
	)
	if err != nil {
		return err
	}
	switch r.StorageType {
	case StorageTypeReference:
		err = validation.ValidateStruct(&r,
			validation.Field(&r.URL, validation.Required, is.URL),
		)
	case StorageTypeError:
		err = validation.ValidateStruct(&r,
			validation.Field(&r.Message, validation.Required),
			validation.Field(&r.Reason, validation.Required),
		)
	}
	return err
}

// ArtifactPostResponse is the createArtifact reply. PutURL and Expires are
// only present for storage types that accept uploads.
type ArtifactPostResponse struct {
	StorageType StorageType `json:"storageType"`
	ContentType string      `json:"contentType,omitempty"`
	Expires     *time.Time  `json:"expires,omitempty"`
	PutURL      string      `json:"putUrl,omitempty"`
}

// ArtifactPage is one page of a list response. ContinuationToken is
// present iff more pages may follow.
type ArtifactPage struct {
	Artifacts         []APIArtifact `json:"artifacts"`
	ContinuationToken string        `json:"continuationToken,omitempty"`
}
