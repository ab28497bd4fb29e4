package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stripe-checkout/internal/models"
)

const ordersCollection = "orders"

type MongoStore struct {
	coll *mongo.Collection
}

var _ OrderStore = (*MongoStore)(nil)

// orderDoc is the persisted shape; the string id on models.Order maps to
// the ObjectID hex.
type orderDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	models.Order `bson:",inline"`
}

func (d orderDoc) order() models.Order {
	o := d.Order
	o.ID = d.ID.Hex()
	return o
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(ordersCollection)}
}

// EnsureIndexes creates the indexes List depends on. Safe to call on every
// startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "customerEmail", Value: 1}, {Key: "paymentStatus", Value: 1}}},
	})
	return err
}

func (s *MongoStore) Create(ctx context.Context, o *models.Order) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.PaymentStatus == "" {
		o.PaymentStatus = models.PaymentStatusPending
	}
	res, err := s.coll.InsertOne(ctx, orderDoc{Order: *o})
	if err != nil {
		return err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return errors.New("unexpected inserted id type")
	}
	o.ID = oid.Hex()
	return nil
}

func (s *MongoStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	var doc orderDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o := doc.order()
	return &o, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, upd OrderUpdate) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.PaymentStatus != nil {
		set["paymentStatus"] = *upd.PaymentStatus
	}
	if upd.TransactionID != nil {
		set["transactionId"] = *upd.TransactionID
	}
	if upd.StripeSessionID != nil {
		set["stripePaymentIntentId"] = *upd.StripeSessionID
	}

	var doc orderDoc
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o := doc.order()
	return &o, nil
}

func (s *MongoStore) List(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["paymentStatus"] = f.Status
	}
	if f.Email != "" {
		filter["customerEmail"] = f.Email
	}

	cur, err := s.coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.order())
	}
	return out, nil
}

// Connect dials Mongo and pings it before returning the database handle.
func Connect(ctx context.Context, uri, db string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	return client, client.Database(db), nil
}

// IsDuplicateKey reports whether err is a Mongo duplicate-key error,
// surfaced as 409 by the HTTP error handler.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
