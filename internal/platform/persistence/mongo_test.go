package persistence

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestMongoDB_DatabaseAndCollection(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// mongo.Connect does not dial eagerly, so a handle works without a server
	client, err := mongo.Connect(context.TODO(), options.Client().ApplyURI("mongodb://localhost:27017"))
	assert.NoError(t, err)
	db := client.Database("fundflow_test")

	mdb := &MongoDB{logger: logger, client: client, database: db}

	assert.Equal(t, db, mdb.Database())
	assert.Equal(t, "ledger_entries", mdb.Collection("ledger_entries").Name())
}
