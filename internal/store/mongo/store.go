// Package mongo provides the MongoDB store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/punchcard/punchcard/internal/model"
	"github.com/punchcard/punchcard/internal/store"
)

// Collection name constants.
const (
	colVendors   = "vendors"
	colCustomers = "customers"
	colVisits    = "visits"
	colCards     = "loyalty_cards"
	colCounters  = "counters"
)

// visitSeqKey is the counter document that hands out visit sequence numbers.
const visitSeqKey = "visit_seq"

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// Migrate creates indexes for all collections. It is safe to call repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}

// Database returns the underlying database handle.
func (s *Store) Database() *mongo.Database { return s.db }

// ==================== Vendor Store ====================

func (s *Store) CreateVendor(ctx context.Context, v *model.Vendor) error {
	if _, err := s.db.Collection(colVendors).InsertOne(ctx, toVendorModel(v)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("mongo: create vendor: %w", err)
	}
	return nil
}

func (s *Store) GetVendor(ctx context.Context, id string) (*model.Vendor, error) {
	return s.findVendor(ctx, bson.M{"_id": id})
}

func (s *Store) GetVendorByEmail(ctx context.Context, email string) (*model.Vendor, error) {
	return s.findVendor(ctx, bson.M{"email_lower": lower(email)})
}

func (s *Store) UpdateVendor(ctx context.Context, v *model.Vendor) error {
	res, err := s.db.Collection(colVendors).UpdateOne(ctx,
		bson.M{"_id": v.ID},
		bson.M{"$set": bson.M{
			"name":          v.Name,
			"business_name": v.BusinessName,
			"timezone":      v.Timezone,
			"updated_at":    v.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("mongo: update vendor: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) findVendor(ctx context.Context, filter bson.M) (*model.Vendor, error) {
	var m vendorModel
	if err := s.db.Collection(colVendors).FindOne(ctx, filter).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, decodeOrWrap("vendor", "get vendor", err)
	}
	v := fromVendorModel(&m)
	if err := store.CheckVendor(v); err != nil {
		return nil, err
	}
	return v, nil
}

// ==================== Customer Store ====================

func (s *Store) CreateCustomer(ctx context.Context, c *model.Customer) error {
	if _, err := s.GetVendor(ctx, c.VendorID); err != nil {
		return err
	}
	if _, err := s.db.Collection(colCustomers).InsertOne(ctx, toCustomerModel(c)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("mongo: create customer: %w", err)
	}
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	var m customerModel
	if err := s.db.Collection(colCustomers).FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, decodeOrWrap("customer", "get customer", err)
	}
	c := fromCustomerModel(&m)
	if err := store.CheckCustomer(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) ListCustomers(ctx context.Context, vendorID string) ([]*model.Customer, error) {
	cur, err := s.db.Collection(colCustomers).Find(ctx,
		bson.M{"vendor_id": vendorID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: list customers: %w", err)
	}
	var models []customerModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, decodeOrWrap("customer", "list customers", err)
	}

	result := make([]*model.Customer, 0, len(models))
	for i := range models {
		c := fromCustomerModel(&models[i])
		if err := store.CheckCustomer(c); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	set := bson.M{
		"name":       c.Name,
		"email":      c.Email,
		"phone":      c.Phone,
		"updated_at": c.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if c.ArchivedAt != nil {
		set["archived_at"] = *c.ArchivedAt
	} else {
		update["$unset"] = bson.M{"archived_at": ""}
	}

	res, err := s.db.Collection(colCustomers).UpdateOne(ctx,
		bson.M{"_id": c.ID, "vendor_id": c.VendorID},
		update,
	)
	if err != nil {
		return fmt.Errorf("mongo: update customer: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ==================== Visit Store ====================

// AppendVisit takes the next sequence number from the counter document and
// inserts the visit. The unique idempotency index turns a retried key into a
// duplicate-key error, in which case the existing visit is returned. The
// sequence number taken for a rejected insert is skipped.
func (s *Store) AppendVisit(ctx context.Context, v *model.Visit) (*model.Visit, bool, error) {
	if v.IdempotencyKey != "" {
		existing, err := s.visitByIdempotencyKey(ctx, v.VendorID, v.IdempotencyKey)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, false, err
		}
	}

	seq, err := s.nextSeq(ctx)
	if err != nil {
		return nil, false, err
	}
	stored := *v
	stored.Seq = seq

	if _, err := s.db.Collection(colVisits).InsertOne(ctx, toVisitModel(&stored)); err != nil {
		if mongo.IsDuplicateKeyError(err) && v.IdempotencyKey != "" {
			existing, err := s.visitByIdempotencyKey(ctx, v.VendorID, v.IdempotencyKey)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("mongo: append visit: %w", err)
	}
	return &stored, true, nil
}

func (s *Store) ListVisits(ctx context.Context, vendorID, customerID string) ([]model.Visit, error) {
	cur, err := s.db.Collection(colVisits).Find(ctx,
		bson.M{"vendor_id": vendorID, "customer_id": customerID},
		options.Find().SetSort(bson.D{{Key: "visited_at_us", Value: 1}, {Key: "seq", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: list visits: %w", err)
	}
	var models []visitModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, decodeOrWrap("visit", "list visits", err)
	}

	result := make([]model.Visit, 0, len(models))
	for i := range models {
		v := fromVisitModel(&models[i])
		if err := store.CheckVisit(v, vendorID); err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	return result, nil
}

func (s *Store) CountVisits(ctx context.Context, vendorID, customerID string, since, until time.Time) (int, error) {
	n, err := s.db.Collection(colVisits).CountDocuments(ctx, bson.M{
		"vendor_id":   vendorID,
		"customer_id": customerID,
		"visited_at_us": bson.M{
			"$gte": since.UnixMicro(),
			"$lt":  until.UnixMicro(),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("mongo: count visits: %w", err)
	}
	return int(n), nil
}

func (s *Store) visitByIdempotencyKey(ctx context.Context, vendorID, key string) (*model.Visit, error) {
	var m visitModel
	err := s.db.Collection(colVisits).
		FindOne(ctx, bson.M{"vendor_id": vendorID, "idempotency_key": key}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, decodeOrWrap("visit", "get visit by idempotency key", err)
	}
	v := fromVisitModel(&m)
	if err := store.CheckVisit(v, vendorID); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Store) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": visitSeqKey},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("mongo: next visit seq: %w", err)
	}
	return counter.Seq, nil
}

// ==================== Card Store ====================

func (s *Store) CreateCard(ctx context.Context, c *model.LoyaltyCard) error {
	if _, err := s.db.Collection(colCards).InsertOne(ctx, toCardModel(c)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("mongo: create card: %w", err)
	}
	return nil
}

func (s *Store) GetCard(ctx context.Context, vendorID, customerID string) (*model.LoyaltyCard, error) {
	var m cardModel
	err := s.db.Collection(colCards).
		FindOne(ctx, bson.M{"vendor_id": vendorID, "customer_id": customerID}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, decodeOrWrap("card", "get card", err)
	}
	c := fromCardModel(&m)
	if err := store.CheckCard(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) ListCards(ctx context.Context, vendorID string) ([]*model.LoyaltyCard, error) {
	cur, err := s.db.Collection(colCards).Find(ctx,
		bson.M{"vendor_id": vendorID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: list cards: %w", err)
	}
	var models []cardModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, decodeOrWrap("card", "list cards", err)
	}

	result := make([]*model.LoyaltyCard, 0, len(models))
	for i := range models {
		c := fromCardModel(&models[i])
		if err := store.CheckCard(c); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

func (s *Store) UpdateCard(ctx context.Context, c *model.LoyaltyCard, expectedRedemptions int) error {
	set := bson.M{
		"reward_threshold": c.RewardThreshold,
		"cycle_start_us":   c.CycleStart.UnixMicro(),
		"redemptions":      c.Redemptions,
		"updated_at":       c.UpdatedAt,
	}
	if c.LastRedeemedAt != nil {
		set["last_redeemed_at"] = *c.LastRedeemedAt
	}

	res, err := s.db.Collection(colCards).UpdateOne(ctx,
		bson.M{"vendor_id": c.VendorID, "customer_id": c.CustomerID, "redemptions": expectedRedemptions},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("mongo: update card: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := s.db.Collection(colCards).CountDocuments(ctx,
		bson.M{"vendor_id": c.VendorID, "customer_id": c.CustomerID})
	if err != nil {
		return fmt.Errorf("mongo: check card: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

// ==================== Helpers ====================

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// decodeOrWrap reports BSON shape mismatches as *store.DecodeError.
func decodeOrWrap(kind, op string, err error) error {
	var decodeErr *bson.DecodeError
	if errors.As(err, &decodeErr) {
		return &store.DecodeError{Kind: kind, Err: err}
	}
	return fmt.Errorf("mongo: %s: %w", op, err)
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// migrationIndexes returns the index definitions for all collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colVendors: {
			{
				Keys:    bson.D{{Key: "email_lower", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colCustomers: {
			{Keys: bson.D{{Key: "vendor_id", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colVisits: {
			{Keys: bson.D{{Key: "vendor_id", Value: 1}, {Key: "customer_id", Value: 1}, {Key: "visited_at_us", Value: 1}, {Key: "seq", Value: 1}}},
			{
				Keys: bson.D{{Key: "vendor_id", Value: 1}, {Key: "idempotency_key", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$type": "string"}}),
			},
		},
		colCards: {
			{
				Keys:    bson.D{{Key: "vendor_id", Value: 1}, {Key: "customer_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "vendor_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		},
	}
}
