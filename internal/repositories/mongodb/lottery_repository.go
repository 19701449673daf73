package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/nightcrane/lotterybot/internal/models"
	"github.com/nightcrane/lotterybot/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LotteryRepository implements the repositories.LotteryRepository interface
type LotteryRepository struct {
	collection *mongo.Collection
}

// NewLotteryRepository creates a new LotteryRepository
func NewLotteryRepository(db *mongo.Database) repositories.LotteryRepository {
	return &LotteryRepository{
		collection: db.Collection("lotteries"),
	}
}

// Create persists a new lottery and assigns its ID
func (r *LotteryRepository) Create(ctx context.Context, lottery *models.Lottery) error {
	lottery.CreatedAt = time.Now()
	lottery.UpdatedAt = time.Now()
	lottery.IsEnded = false
	if lottery.Participants == nil {
		lottery.Participants = []int64{}
	}
	res, err := r.collection.InsertOne(ctx, lottery)
	if err != nil {
		return err
	}
	lottery.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a lottery by ID, optionally scoped to a chat. A missing
// record yields (nil, nil).
func (r *LotteryRepository) FindByID(ctx context.Context, id primitive.ObjectID, chatID *int64) (*models.Lottery, error) {
	filter := bson.M{"_id": id}
	if chatID != nil {
		filter["chatId"] = *chatID
	}
	var lottery models.Lottery
	err := r.collection.FindOne(ctx, filter).Decode(&lottery)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lottery, nil
}

// FindUnended returns all lotteries that have not been drawn yet
func (r *LotteryRepository) FindUnended(ctx context.Context) ([]*models.Lottery, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"isEnded": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var lotteries []*models.Lottery
	if err := cursor.All(ctx, &lotteries); err != nil {
		return nil, err
	}
	return lotteries, nil
}

// Update merges the given fields into an existing lottery. Updating a missing
// record is a no-op.
func (r *LotteryRepository) Update(ctx context.Context, id primitive.ObjectID, chatID *int64, fields map[string]interface{}) error {
	filter := bson.M{"_id": id}
	if chatID != nil {
		filter["chatId"] = *chatID
	}
	set := bson.M{"updatedAt": time.Now()}
	for k, v := range fields {
		set[k] = v
	}
	_, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	return err
}

// MarkEnded flips the isEnded flag. The transition is one way; nothing ever
// resets it.
func (r *LotteryRepository) MarkEnded(ctx context.Context, id primitive.ObjectID, chatID int64) error {
	filter := bson.M{"_id": id, "chatId": chatID}
	update := bson.M{"$set": bson.M{"isEnded": true, "updatedAt": time.Now()}}
	_, err := r.collection.UpdateOne(ctx, filter, update)
	return err
}

// AddParticipant appends userID to the participant list atomically. The
// filter only matches when the lottery is still open and the user is not yet
// a participant, so concurrent joins by the same user collapse to a single
// entry and the returned count reaches each value exactly once.
func (r *LotteryRepository) AddParticipant(ctx context.Context, id primitive.ObjectID, chatID *int64, userID int64) (bool, int, error) {
	filter := bson.M{
		"_id":          id,
		"isEnded":      false,
		"participants": bson.M{"$ne": userID},
		// Never admit past the participant cap, even while a threshold draw
		// is still in flight.
		"$expr": bson.M{"$or": bson.A{
			bson.M{"$eq": bson.A{bson.M{"$ifNull": bson.A{"$maxParticipants", 0}}, 0}},
			bson.M{"$lt": bson.A{bson.M{"$size": "$participants"}, "$maxParticipants"}},
		}},
	}
	if chatID != nil {
		filter["chatId"] = *chatID
	}
	update := bson.M{
		"$push": bson.M{"participants": userID},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var lottery models.Lottery
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&lottery)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Missing, ended, or already joined; the caller re-reads to tell apart.
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return true, len(lottery.Participants), nil
}
