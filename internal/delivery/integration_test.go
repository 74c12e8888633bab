//go:build integration

package delivery_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"ruleflow/internal/catalog"
	"ruleflow/internal/config"
	"ruleflow/internal/delivery"
	"ruleflow/internal/testinfra"
)

func TestRecordUpdater_UpdatesAllowedCollection(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Mongo: true})
	ctx := context.Background()

	orders := infra.MongoDB.Collection("orders")
	_, err := orders.InsertOne(ctx, bson.M{"_id": "o-1", "status": "open"})
	require.NoError(t, err)

	updater := delivery.NewRecordUpdater(infra.MongoDB, config.RecordConfig{AllowedCollections: []string{"orders"}})

	result, err := updater.Deliver(ctx, &catalog.DatabaseConfig{
		Collection: "orders",
		Filter:     map[string]interface{}{"_id": "o-1"},
		Set:        map[string]interface{}{"status": "flagged"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result["modified"])

	var doc bson.M
	require.NoError(t, orders.FindOne(ctx, bson.M{"_id": "o-1"}).Decode(&doc))
	assert.Equal(t, "flagged", doc["status"])

	_, err = updater.Deliver(ctx, &catalog.DatabaseConfig{
		Collection: "customers",
		Filter:     map[string]interface{}{"_id": "c-1"},
		Set:        map[string]interface{}{"tier": "gold"},
	})
	assert.Error(t, err)
}

func TestRedisNotifier_Publishes(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Redis: true})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub := infra.RedisClient.Subscribe(ctx, "ruleflow:ops")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	notifier := delivery.NewRedisNotifier(infra.RedisClient, config.NotificationConfig{ChannelPrefix: "ruleflow:"})
	result, err := notifier.Deliver(ctx, &catalog.NotificationConfig{Channel: "ops", Message: "Big order o-1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result["receivers"])

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &body))
	assert.Equal(t, "Big order o-1", body["message"])
	assert.Equal(t, "info", body["level"])
}
