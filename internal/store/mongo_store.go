package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/krishangMittal/PlayMyJam/internal/domain"
	"github.com/krishangMittal/PlayMyJam/pkg/log"
)

const (
	roomsCollection    = "rooms"
	requestsCollection = "requests"
)

// MongoConfig holds MongoDB configuration.
type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
}

// RoomDocument represents a room document in MongoDB.
type RoomDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	RoomCode    string             `bson:"roomCode"`
	DJID        string             `bson:"djId"`
	CreatedAt   time.Time          `bson:"createdAt"`
	ActiveUsers int                `bson:"activeUsers"`
}

// ToDomain converts RoomDocument to domain Room.
func (doc *RoomDocument) ToDomain() *domain.Room {
	return &domain.Room{
		Code:        doc.RoomCode,
		DJID:        doc.DJID,
		ActiveUsers: doc.ActiveUsers,
		CreatedAt:   doc.CreatedAt.UTC(),
	}
}

// RequestDocument represents a song request document in MongoDB.
type RequestDocument struct {
	ID        string    `bson:"_id"`
	RoomCode  string    `bson:"roomCode"`
	Song      string    `bson:"song"`
	Artist    string    `bson:"artist"`
	Status    string    `bson:"status"`
	Timestamp time.Time `bson:"timestamp"`
}

// ToDomain converts RequestDocument to domain SongRequest.
func (doc *RequestDocument) ToDomain() *domain.SongRequest {
	return &domain.SongRequest{
		ID:        doc.ID,
		RoomCode:  doc.RoomCode,
		Song:      doc.Song,
		Artist:    doc.Artist,
		Status:    domain.RequestStatus(doc.Status),
		Timestamp: doc.Timestamp.UTC(),
	}
}

// MongoStore implements Store using MongoDB.
type MongoStore struct {
	client   *mongo.Client
	rooms    *mongo.Collection
	requests *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout)
	if cfg.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)
	return &MongoStore{
		client:   client,
		rooms:    db.Collection(roomsCollection),
		requests: db.Collection(requestsCollection),
	}, nil
}

// Migrate creates the indexes the queries rely on.
func (s *MongoStore) Migrate(ctx context.Context) error {
	roomIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "roomCode", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "activeUsers", Value: 1}, {Key: "createdAt", Value: 1}},
		},
	}
	if _, err := s.rooms.Indexes().CreateMany(ctx, roomIndexes); err != nil {
		return fmt.Errorf("failed to create room indexes: %w", err)
	}

	requestIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "roomCode", Value: 1}, {Key: "timestamp", Value: -1}},
		},
	}
	if _, err := s.requests.Indexes().CreateMany(ctx, requestIndexes); err != nil {
		return fmt.Errorf("failed to create request indexes: %w", err)
	}

	l := log.Ctx(ctx)
	l.Info().Msg("mongo indexes created")
	return nil
}

// CreateRoom inserts a new room.
func (s *MongoStore) CreateRoom(ctx context.Context, room *domain.Room) error {
	doc := &RoomDocument{
		RoomCode:    room.Code,
		DJID:        room.DJID,
		CreatedAt:   room.CreatedAt,
		ActiveUsers: room.ActiveUsers,
	}
	if _, err := s.rooms.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrRoomExists
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoomCode, room.Code).Msg("failed to create room in mongo")
		return err
	}
	return nil
}

// GetRoom retrieves a room by code.
func (s *MongoStore) GetRoom(ctx context.Context, code string) (*domain.Room, error) {
	var doc RoomDocument
	if err := s.rooms.FindOne(ctx, bson.M{"roomCode": code}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return doc.ToDomain(), nil
}

// UpdateRoomActiveUsers writes the durable active-user count.
func (s *MongoStore) UpdateRoomActiveUsers(ctx context.Context, code string, count int) error {
	_, err := s.rooms.UpdateOne(ctx, bson.M{"roomCode": code}, bson.M{"$set": bson.M{"activeUsers": count}})
	return err
}

// DeleteRoom removes a room. Deleting a missing room succeeds.
func (s *MongoStore) DeleteRoom(ctx context.Context, code string) error {
	_, err := s.rooms.DeleteOne(ctx, bson.M{"roomCode": code})
	return err
}

// CreateRequest inserts a song request.
func (s *MongoStore) CreateRequest(ctx context.Context, req *domain.SongRequest) error {
	doc := &RequestDocument{
		ID:        req.ID,
		RoomCode:  req.RoomCode,
		Song:      req.Song,
		Artist:    req.Artist,
		Status:    string(req.Status),
		Timestamp: req.Timestamp,
	}
	if _, err := s.requests.InsertOne(ctx, doc); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoomCode, req.RoomCode).Msg("failed to create song request in mongo")
		return err
	}
	return nil
}

// GetRequestsByRoom lists a room's requests newest-first.
func (s *MongoStore) GetRequestsByRoom(ctx context.Context, code string, limit int) ([]*domain.SongRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.requests.Find(ctx, bson.M{"roomCode": code}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []RequestDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	requests := make([]*domain.SongRequest, len(docs))
	for i := range docs {
		requests[i] = docs[i].ToDomain()
	}
	return requests, nil
}

// UpdateRequestStatus sets a request's status with a single FindOneAndUpdate.
func (s *MongoStore) UpdateRequestStatus(ctx context.Context, roomCode, id string, allowedFrom []domain.RequestStatus, status domain.RequestStatus) (*domain.SongRequest, error) {
	filter := requestStatusFilter(roomCode, id, allowedFrom)
	update := bson.M{"$set": bson.M{"status": string(status)}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc RequestDocument
	err := s.requests.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.ToDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldSongRequest, id).Msg("failed to update request status in mongo")
		return nil, err
	}
	if allowedFrom == nil {
		return nil, ErrRequestNotFound
	}

	count, err := s.requests.CountDocuments(ctx, bson.M{"_id": id, "roomCode": roomCode})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrRequestNotFound
	}
	return nil, ErrStatusConflict
}

func requestStatusFilter(roomCode, id string, allowedFrom []domain.RequestStatus) bson.M {
	filter := bson.M{"_id": id, "roomCode": roomCode}
	if allowedFrom != nil {
		filter["status"] = bson.M{"$in": statusStrings(allowedFrom)}
	}
	return filter
}

// DeleteRequestsByRoom removes every request of a room.
func (s *MongoStore) DeleteRequestsByRoom(ctx context.Context, code string) (int64, error) {
	result, err := s.requests.DeleteMany(ctx, bson.M{"roomCode": code})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// FindIdleRoomsOlderThan returns rooms with zero active users created before t.
func (s *MongoStore) FindIdleRoomsOlderThan(ctx context.Context, t time.Time) ([]*domain.Room, error) {
	filter := bson.M{
		"activeUsers": 0,
		"createdAt":   bson.M{"$lt": t},
	}
	cursor, err := s.rooms.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []RoomDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	rooms := make([]*domain.Room, len(docs))
	for i := range docs {
		rooms[i] = docs[i].ToDomain()
	}
	return rooms, nil
}

// ResetActiveUsers zeroes every non-zero durable count.
func (s *MongoStore) ResetActiveUsers(ctx context.Context) error {
	result, err := s.rooms.UpdateMany(ctx,
		bson.M{"activeUsers": bson.M{"$ne": 0}},
		bson.M{"$set": bson.M{"activeUsers": 0}},
	)
	if err != nil {
		return err
	}
	if result.ModifiedCount > 0 {
		l := log.Ctx(ctx)
		l.Info().Int64("rooms", result.ModifiedCount).Msg("reset stale active user counts")
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
