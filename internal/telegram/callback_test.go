package telegram

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDecodeCallback(t *testing.T) {
	t.Run("round trips a join payload", func(t *testing.T) {
		id := primitive.NewObjectID()
		decoded, err := decodeCallback(encodeJoinCallback(id.Hex()))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		join, ok := decoded.(JoinLottery)
		if !ok {
			t.Fatalf("expected a JoinLottery, got %T", decoded)
		}
		if join.LotteryID != id {
			t.Errorf("expected lottery id %s, got %s", id.Hex(), join.LotteryID.Hex())
		}
	})

	t.Run("rejects an unknown payload", func(t *testing.T) {
		if _, err := decodeCallback("vote:123"); err == nil {
			t.Fatal("expected an error for an unknown payload")
		}
	})

	t.Run("rejects a malformed lottery id", func(t *testing.T) {
		if _, err := decodeCallback(joinCallbackPrefix + "not-an-object-id"); err == nil {
			t.Fatal("expected an error for a malformed id")
		}
	})
}
