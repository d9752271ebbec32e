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

	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/mendersoftware/go-lib-micro/mongo/migrate"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mopts "go.mongodb.org/mongo-driver/mongo/options"
)

const DbVersion = "1.0.0"

func Migrate(ctx context.Context,
	version string,
	client *mongo.Client,
	automigrate bool) error {

	l := log.FromContext(ctx)

	if automigrate {
		l.Infof("automigrate is ON, will apply migrations")
	} else {
		l.Infof("automigrate is OFF, will check db version compatibility")
	}

	ver, err := migrate.NewVersion(version)
	if err != nil {
		return errors.Wrap(err, "failed to parse service version")
	}

	m := migrate.SimpleMigrator{
		Client:      client,
		Db:          DatabaseName,
		Automigrate: automigrate,
	}

	migrations := []migrate.Migration{
		&migration_1_0_0{
			client: client,
			db:     DatabaseName,
		},
	}

	err = m.Apply(ctx, *ver, migrations)
	if err != nil {
		return errors.Wrap(err, "failed to apply migrations")
	}

	return nil
}

type migration_1_0_0 struct {
	client *mongo.Client
	db     string
}

// Up creates the unique compound index the conditional insert relies on.
func (m *migration_1_0_0) Up(from migrate.Version) error {
	ctx := context.Background()
	coll := m.client.Database(m.db).Collection(CollectionArtifacts)

	indexModel := mongo.IndexModel{
		// NOTE: Keys must be bson.D, element order matters!
		Keys: bson.D{
			{Key: StorageKeyTaskId, Value: 1},
			{Key: StorageKeyRunId, Value: 1},
			{Key: StorageKeyName, Value: 1},
		},
		Options: mopts.Index().
			SetName(IndexUniqueTaskRunName).
			SetUnique(true),
	}
	_, err := coll.Indexes().CreateOne(ctx, indexModel)
	return err
}

func (m *migration_1_0_0) Version() migrate.Version {
	return migrate.MakeVersion(1, 0, 0)
}
