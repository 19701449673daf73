package telegram

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Callback payloads are decoded once here, at the transport boundary; the
// services never see raw callback strings.

const joinCallbackPrefix = "join-lottery:"

// JoinLottery is the decoded participation-control interaction
type JoinLottery struct {
	LotteryID primitive.ObjectID
}

func encodeJoinCallback(lotteryID string) string {
	return joinCallbackPrefix + lotteryID
}

// decodeCallback parses a callback payload into its typed form
func decodeCallback(data string) (interface{}, error) {
	if rest, ok := strings.CutPrefix(data, joinCallbackPrefix); ok {
		id, err := primitive.ObjectIDFromHex(rest)
		if err != nil {
			return nil, fmt.Errorf("malformed lottery id in callback %q: %w", data, err)
		}
		return JoinLottery{LotteryID: id}, nil
	}
	return nil, fmt.Errorf("unknown callback payload %q", data)
}
