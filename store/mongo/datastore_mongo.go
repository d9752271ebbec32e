// Copyright 2023 Northern.tech AS
//
//	Licensed under the Apache License, Version 2.0 (the "License");
//	you may not use this file except in compliance with the License.
//	You may obtain a copy of the License at
//
//	    http://www.apache.org/licenses/LICENSE-2.0
//
//	Unless required by applicable law or agreed to in writing, software
//	distributed under the License is distributed on an "AS IS" BASIS,
//	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//	See the License for the specific language governing permissions and
//	limitations under the License.
package mongo

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mopts "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mendersoftware/go-lib-micro/config"

	dconfig "github.com/mendersoftware/taskqueue-artifacts/config"
	"github.com/mendersoftware/taskqueue-artifacts/model"
	"github.com/mendersoftware/taskqueue-artifacts/store"
)

const (
	DatabaseName        = "taskqueue_artifacts"
	CollectionArtifacts = "artifacts"
	CollectionTasks     = "tasks"
)

var (
	// Unique index backing the conditional insert on the composite key.
	IndexUniqueTaskRunName = "uniqueTaskRunNameIndex"

	StorageKeyId          = "_id"
	StorageKeyTaskId      = "task_id"
	StorageKeyRunId       = "run_id"
	StorageKeyName        = "name"
	StorageKeyExpires     = "expires"
	StorageKeyDetails     = "details"
	StorageKeyDetailsRef  = "details.reference"
	StorageKeyStorageType = "storage_type"
)

// DataStoreMongo is the MongoDB-backed artifact table.
type DataStoreMongo struct {
	client *mongo.Client
}

func NewDataStoreMongoWithClient(client *mongo.Client) *DataStoreMongo {
	return &DataStoreMongo{
		client: client,
	}
}

func NewMongoClient(ctx context.Context, c config.Reader) (*mongo.Client, error) {

	clientOptions := mopts.Client()
	mongoURL := c.GetString(dconfig.SettingMongo)
	if !strings.Contains(mongoURL, "://") {
		return nil, errors.Errorf("Invalid mongoURL %q: missing schema.",
			mongoURL)
	}
	clientOptions.ApplyURI(mongoURL)

	username := c.GetString(dconfig.SettingDbUsername)
	if username != "" {
		credentials := mopts.Credential{
			Username: username,
		}
		password := c.GetString(dconfig.SettingDbPassword)
		if password != "" {
			credentials.Password = password
			credentials.PasswordSet = true
		}
		clientOptions.SetAuth(credentials)
	}

	if c.GetBool(dconfig.SettingDbSSL) {
		tlsConfig := &tls.Config{}
		tlsConfig.InsecureSkipVerify = c.GetBool(dconfig.SettingDbSSLSkipVerify)
		clientOptions.SetTLSConfig(tlsConfig)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to connect to mongo server")
	}

	// Validate connection
	if err = client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "Error reaching mongo server")
	}

	return client, nil
}

func (db *DataStoreMongo) Ping(ctx context.Context) error {
	res := db.client.Database(DatabaseName).RunCommand(ctx, bson.M{"ping": 1})
	return res.Err()
}

func (db *DataStoreMongo) collArtifacts() *mongo.Collection {
	return db.client.Database(DatabaseName).Collection(CollectionArtifacts)
}

func (db *DataStoreMongo) collTasks() *mongo.Collection {
	return db.client.Database(DatabaseName).Collection(CollectionTasks)
}

// InsertArtifact persists the artifact unless the composite key is taken.
func (db *DataStoreMongo) InsertArtifact(
	ctx context.Context,
	artifact *model.Artifact,
) error {
	if artifact == nil {
		return errors.New("mongo: nil artifact")
	}
	if err := artifact.Validate(); err != nil {
		return err
	}
	artifact.ID = model.ArtifactID(
		artifact.TaskID, artifact.RunID, artifact.Name,
	)

	_, err := db.collArtifacts().InsertOne(ctx, artifact)
	if err != nil {
		if isDuplicateKeyError(err) {
			return store.ErrArtifactExists
		}
		return errors.Wrap(err, "mongo: failed to insert artifact")
	}
	return nil
}

func isDuplicateKeyError(err error) bool {
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var wExc mongo.WriteException
	if errors.As(err, &wExc) {
		for _, wErr := range wExc.WriteErrors {
			if mongo.IsDuplicateKeyError(wErr) {
				return true
			}
		}
	}
	return false
}

func (db *DataStoreMongo) GetArtifact(
	ctx context.Context,
	taskID string, runID int, name string,
) (*model.Artifact, error) {
	var artifact model.Artifact
	id := model.ArtifactID(taskID, runID, name)
	err := db.collArtifacts().
		FindOne(ctx, bson.D{{Key: StorageKeyId, Value: id}}).
		Decode(&artifact)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, errors.Wrap(err, "mongo: failed to get artifact")
	}
	return &artifact, nil
}

// RefreshArtifact extends expiration and assigns details in one atomic
// update. $max keeps expires monotonic under concurrent re-creates: the
// winning value is the maximum over all racing writers.
func (db *DataStoreMongo) RefreshArtifact(
	ctx context.Context,
	taskID string, runID int, name string,
	expires time.Time,
	details model.ArtifactDetails,
) error {
	id := model.ArtifactID(taskID, runID, name)
	update := bson.D{
		{Key: "$max", Value: bson.D{
			{Key: StorageKeyExpires, Value: expires},
		}},
		{Key: "$set", Value: bson.D{
			{Key: StorageKeyDetails, Value: details},
		}},
	}
	res, err := db.collArtifacts().
		UpdateOne(ctx, bson.D{{Key: StorageKeyId, Value: id}}, update)
	if err != nil {
		return errors.Wrap(err, "mongo: failed to refresh artifact")
	}
	if res.MatchedCount == 0 {
		return errors.Errorf("mongo: artifact %s vanished during refresh", id)
	}
	return nil
}

// ListArtifacts returns one name-ordered page of a run's artifacts. The
// query probes limit+1 documents to learn whether a next page may exist.
func (db *DataStoreMongo) ListArtifacts(
	ctx context.Context,
	taskID string, runID int,
	query store.ListQuery,
) ([]model.Artifact, string, error) {
	if query.Limit <= 0 {
		return nil, "", errors.New("mongo: non-positive page limit")
	}

	filter := bson.D{
		{Key: StorageKeyTaskId, Value: taskID},
		{Key: StorageKeyRunId, Value: runID},
	}
	if query.ContinuationToken != "" {
		anchor, err := decodeContinuation(query.ContinuationToken)
		if err != nil {
			return nil, "", err
		}
		filter = append(filter, bson.E{
			Key:   StorageKeyName,
			Value: bson.M{"$gt": anchor},
		})
	}

	findOpts := mopts.Find().
		SetSort(bson.D{{Key: StorageKeyName, Value: 1}}).
		SetLimit(int64(query.Limit) + 1)

	cursor, err := db.collArtifacts().Find(ctx, filter, findOpts)
	if err != nil {
		return nil, "", errors.Wrap(err, "mongo: failed to query artifacts")
	}
	var artifacts []model.Artifact
	if err = cursor.All(ctx, &artifacts); err != nil {
		return nil, "", errors.Wrap(err, "mongo: failed to decode artifacts")
	}

	var next string
	if len(artifacts) > query.Limit {
		artifacts = artifacts[:query.Limit]
		next = encodeContinuation(artifacts[len(artifacts)-1].Name)
	}
	return artifacts, next, nil
}

func (db *DataStoreMongo) GetTask(
	ctx context.Context,
	taskID string,
) (*model.Task, error) {
	var task model.Task
	err := db.collTasks().
		FindOne(ctx, bson.D{{Key: StorageKeyId, Value: taskID}}).
		Decode(&task)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, errors.Wrap(err, "mongo: failed to get task")
	}
	return &task, nil
}

// Continuation tokens are opaque to callers: base64 over the last name
// served. Anything that does not decode was never issued by this store.
func encodeContinuation(name string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(name))
}

func decodeContinuation(token string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", store.ErrInvalidContinuation
	}
	return string(b), nil
}
