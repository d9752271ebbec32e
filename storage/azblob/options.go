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
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

var (
	ErrConnStrNoName = errors.New("connection string does not contain an account name")
	ErrConnStrNoKey  = errors.New("connection string does not contain an account key")
)

type SharedKeyCredentials struct {
	AccountName string
	AccountKey  string

	URI *string // Optional
}

func (creds SharedKeyCredentials) azParams(
	containerName string,
) (containerURL string, azCreds *azblob.SharedKeyCredential, err error) {
	azCreds, err = azblob.NewSharedKeyCredential(creds.AccountName, creds.AccountKey)
	if err == nil {
		if creds.URI != nil {
			containerURL = *creds.URI
		} else {
			containerURL = fmt.Sprintf(
				"https://%s.blob.core.windows.net/%s",
				azCreds.AccountName(),
				containerName,
			)
		}
	}
	return containerURL, azCreds, err
}

type Options struct {
	ConnectionString *string
	SharedKey        *SharedKeyCredentials
}

func NewOptions(opts ...*Options) *Options {
	opt := &Options{}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if o.ConnectionString != nil {
			opt.ConnectionString = o.ConnectionString
		}
		if o.SharedKey != nil {
			opt.SharedKey = o.SharedKey
		}
	}
	return opt
}

func (opts *Options) SetConnectionString(connStr string) *Options {
	opts.ConnectionString = &connStr
	return opts
}

func (opts *Options) SetSharedKey(sk SharedKeyCredentials) *Options {
	opts.SharedKey = &sk
	return opts
}

func connStringAttr(cs, key string) (string, bool) {
	var start, end int
	for {
		i := strings.Index(cs[start:], key)
		if i < 0 {
			return "", false
		}
		start += i
		if i == 0 || cs[start-1] == ';' {
			break
		}
		start += len(key)
	}
	start += len(key)
	i := strings.IndexRune(cs[start:], ';')
	if i < 0 {
		// cs ends with value
		end = len(cs)
	} else {
		end = start + i
	}
	return cs[start:end], true
}

func keyFromConnString(cs string) (*azblob.SharedKeyCredential, error) {
	const (
		attrName = "AccountName="
		attrKey  = "AccountKey="
	)
	var (
		accountName, accountKey string
		ok                      bool
	)
	if accountName, ok = connStringAttr(cs, attrName); !ok {
		return nil, ErrConnStrNoName
	}
	if accountKey, ok = connStringAttr(cs, attrKey); !ok {
		return nil, ErrConnStrNoKey
	}
	return azblob.NewSharedKeyCredential(accountName, accountKey)
}
