// database/repository/booking.go
package repository

import (
	"context"
	"sync"
	"time"

	"bookflow/database"
	"bookflow/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BookingRepository defines data access for flattened booking records. The
// conflict detector queries it for overlapping bookings.
type BookingRepository interface {
	Upsert(ctx context.Context, record models.BookingRecord) error
	GetByID(ctx context.Context, id string) (*models.BookingRecord, error)
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error
	// FindOverlapping returns bookings for the builder whose status is
	// pending or confirmed and whose [start, end) interval overlaps the
	// given range. excludeID skips the booking being rescheduled.
	FindOverlapping(ctx context.Context, builderID string, start, end time.Time, excludeID string) ([]models.BookingRecord, error)
}

// MongoBookingRepo implements BookingRepository on MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

func NewMongoBookingRepo() *MongoBookingRepo {
	return &MongoBookingRepo{
		coll: database.MongoClient.Database("bookflow").Collection("bookings"),
	}
}

func (repo *MongoBookingRepo) Upsert(ctx context.Context, record models.BookingRecord) error {
	filter := bson.M{"id": record.ID}
	update := bson.M{"$set": record}
	opts := options.Update().SetUpsert(true)
	_, err := repo.coll.UpdateOne(ctx, filter, update, opts)
	return err
}

func (repo *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.BookingRecord, error) {
	var record models.BookingRecord
	err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (repo *MongoBookingRepo) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	_, err := repo.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"status": status}})
	return err
}

func (repo *MongoBookingRepo) FindOverlapping(ctx context.Context, builderID string, start, end time.Time, excludeID string) ([]models.BookingRecord, error) {
	filter := bson.M{
		"builder_id": builderID,
		"status":     bson.M{"$in": []models.BookingStatus{models.BookingStatusPending, models.BookingStatusConfirmed}},
		// Intervals are half-open: [start, end).
		"start": bson.M{"$lt": end},
		"end":   bson.M{"$gt": start},
	}
	if excludeID != "" {
		filter["id"] = bson.M{"$ne": excludeID}
	}
	cursor, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.BookingRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// MemoryBookingRepo is the in-process implementation used by tests.
type MemoryBookingRepo struct {
	mu      sync.Mutex
	records map[string]models.BookingRecord
}

func NewMemoryBookingRepo() *MemoryBookingRepo {
	return &MemoryBookingRepo{records: make(map[string]models.BookingRecord)}
}

func (repo *MemoryBookingRepo) Upsert(_ context.Context, record models.BookingRecord) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.records[record.ID] = record
	return nil
}

func (repo *MemoryBookingRepo) GetByID(_ context.Context, id string) (*models.BookingRecord, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	record, ok := repo.records[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return &record, nil
}

func (repo *MemoryBookingRepo) UpdateStatus(_ context.Context, id string, status models.BookingStatus) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	record, ok := repo.records[id]
	if !ok {
		return ErrBookingNotFound
	}
	record.Status = status
	repo.records[id] = record
	return nil
}

func (repo *MemoryBookingRepo) FindOverlapping(_ context.Context, builderID string, start, end time.Time, excludeID string) ([]models.BookingRecord, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var out []models.BookingRecord
	for _, r := range repo.records {
		if r.BuilderID != builderID || r.ID == excludeID {
			continue
		}
		if r.Status != models.BookingStatusPending && r.Status != models.BookingStatusConfirmed {
			continue
		}
		if r.Start.Before(end) && r.End.After(start) {
			out = append(out, r)
		}
	}
	return out, nil
}
