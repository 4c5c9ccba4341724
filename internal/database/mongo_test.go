package database

import (
	"context"
	"os"
	"testing"
)

func TestConnectMongo_InvalidURI(t *testing.T) {
	if _, err := ConnectMongo(context.Background(), "not-a-mongo-uri"); err == nil {
		t.Fatal("不正なURIではエラーが返るべき")
	}
}

func TestConnectMongo_Live(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI が未設定のためスキップ")
	}

	client, err := ConnectMongo(context.Background(), uri)
	if err != nil {
		t.Fatalf("MongoDBへの接続に失敗: %v", err)
	}
	defer client.Disconnect(context.Background())
}
