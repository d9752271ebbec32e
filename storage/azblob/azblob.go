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

package azblob

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/mendersoftware/taskqueue-artifacts/model"
	"github.com/mendersoftware/taskqueue-artifacts/storage"
)

const (
	headerBlobType = "x-ms-blob-type"

	blobTypeBlock = "BlockBlob"
)

type client struct {
	containerClient *azblob.ContainerClient
	credentials     *azblob.SharedKeyCredential
	container       string
}

func New(ctx context.Context, container string, opts ...*Options) (storage.BlobContainer, error) {
	var (
		err    error
		cc     *azblob.ContainerClient
		azCred *azblob.SharedKeyCredential
	)
	opt := NewOptions(opts...)
	if opt.ConnectionString != nil {
		cc, err = azblob.NewContainerClientFromConnectionString(
			*opt.ConnectionString, container, &azblob.ClientOptions{},
		)
		if err == nil {
			azCred, err = keyFromConnString(*opt.ConnectionString)
		}
	} else if sk := opt.SharedKey; sk != nil {
		var containerURL string
		containerURL, azCred, err = sk.azParams(container)
		if err == nil {
			cc, err = azblob.NewContainerClientWithSharedKey(
				containerURL,
				azCred,
				&azblob.ClientOptions{},
			)
		}
	}
	if err != nil {
		return nil, err
	}
	c := &client{
		containerClient: cc,
		credentials:     azCred,
		container:       container,
	}
	if err := c.HealthCheck(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *client) HealthCheck(ctx context.Context) error {
	_, err := c.containerClient.GetProperties(
		ctx, &azblob.ContainerGetPropertiesOptions{},
	)
	if err != nil {
		return OpError{
			Op:     OpHealthCheck,
			Reason: err,
		}
	}
	return nil
}

func (c *client) Name() string {
	return c.container
}

func buildSignedURL(
	blobURL string,
	SASParams azblob.SASQueryParameters,
) (string, error) {
	baseURL, err := url.Parse(blobURL)
	if err != nil {
		return "", err
	}
	qSAS, err := url.ParseQuery(SASParams.Encode())
	if err != nil {
		return "", err
	}
	q := baseURL.Query()
	for key, values := range qSAS {
		for _, value := range values {
			q.Add(key, value)
		}
	}
	baseURL.RawQuery = q.Encode()
	return baseURL.String(), nil
}

func (c *client) signedRequest(
	path string,
	permissions azblob.BlobSASPermissions,
	duration time.Duration,
) (*model.Link, string, error) {
	bc, err := c.containerClient.NewBlobClient(path)
	if err != nil {
		return nil, "", err
	}
	now := time.Now().UTC()
	exp := now.Add(duration)
	// NOTE: BlobClient.GetSASToken does not expose all signature
	// parameters, build the signature values by hand.
	urlParts, _ := azblob.NewBlobURLParts(bc.URL())
	qParams, err := azblob.BlobSASSignatureValues{
		ContainerName: urlParts.ContainerName,
		BlobName:      urlParts.BlobName,

		Permissions: permissions.String(),

		StartTime:  now,
		ExpiryTime: exp,
	}.NewSASQueryParameters(c.credentials)
	if err != nil {
		return nil, "", err
	}
	uri, err := buildSignedURL(bc.URL(), qParams)
	if err != nil {
		return nil, "", err
	}
	return model.NewLink(uri, exp), urlParts.ContainerName, nil
}

// SignedPutRequest generates a write SAS for the blob path.
func (c *client) SignedPutRequest(
	ctx context.Context,
	path string,
	duration time.Duration,
) (*model.Link, error) {
	link, _, err := c.signedRequest(path, azblob.BlobSASPermissions{
		Create: true,
		Write:  true,
	}, duration)
	if err != nil {
		return nil, OpError{
			Op:      OpPutRequest,
			Message: "failed to create pre-signed URL",
			Reason:  err,
		}
	}
	link.Method = http.MethodPut
	link.Header = map[string]string{
		headerBlobType: blobTypeBlock,
	}
	return link, nil
}

// SignedGetRequest generates a read SAS for the blob path.
func (c *client) SignedGetRequest(
	ctx context.Context,
	path string,
	duration time.Duration,
) (*model.Link, error) {
	link, _, err := c.signedRequest(path, azblob.BlobSASPermissions{
		Read: true,
	}, duration)
	if err != nil {
		return nil, OpError{
			Op:      OpGetRequest,
			Message: "failed to create pre-signed URL",
			Reason:  err,
		}
	}
	link.Method = http.MethodGet
	return link, nil
}
