package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sessionserrors "petsit/internal/sessions/errors"
	"petsit/pkg/config"
	mongotx "petsit/pkg/db/mongo"
	"petsit/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Sessions"
)

// StatusChange is a conditional transition: it only applies while the
// session is in one of From.
type StatusChange struct {
	From []string
	To   string
	At   time.Time

	// PaymentStatus, when set, also requires the session's payment status
	// to be unchanged.
	PaymentStatus string

	SitterID     string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	DurationMin  *int64
	CancelReason string
	CancelledBy  string
}

// Apply mirrors the update on an in-memory session.
func (c StatusChange) Apply(s *model.Session) {
	s.Status = c.To
	s.UpdatedAt = c.At
	if c.SitterID != "" {
		s.SitterID = c.SitterID
	}
	if c.StartedAt != nil {
		s.ServiceStartedAt = c.StartedAt
	}
	if c.CompletedAt != nil {
		s.CompletedAt = c.CompletedAt
	}
	if c.DurationMin != nil {
		s.ActualDurationMin = c.DurationMin
	}
	if c.CancelReason != "" {
		s.CancelReason = c.CancelReason
		s.CancelledBy = c.CancelledBy
		at := c.At
		s.CancelledAt = &at
	}
}

func (c StatusChange) update() bson.M {
	set := bson.M{
		"status":     c.To,
		"updated_at": c.At,
	}
	if c.SitterID != "" {
		set["sitter_id"] = c.SitterID
	}
	if c.StartedAt != nil {
		set["service_started_at"] = *c.StartedAt
	}
	if c.CompletedAt != nil {
		set["completed_at"] = *c.CompletedAt
	}
	if c.DurationMin != nil {
		set["actual_duration_min"] = *c.DurationMin
	}
	if c.CancelReason != "" {
		set["cancel_reason"] = c.CancelReason
		set["cancelled_by"] = c.CancelledBy
		set["cancelled_at"] = c.At
	}
	return bson.M{"$set": set}
}

// Filter narrows a listing. Empty fields are ignored.
type Filter struct {
	BookingID string
	OwnerID   string
	SitterID  string
}

func (f Filter) bson() bson.M {
	filter := bson.M{}
	if f.BookingID != "" {
		filter["booking_id"] = f.BookingID
	}
	if f.OwnerID != "" {
		filter["owner_id"] = f.OwnerID
	}
	if f.SitterID != "" {
		filter["sitter_id"] = f.SitterID
	}
	return filter
}

type SessionRepository interface {
	CreateMany(ctx context.Context, sessions []*model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	Find(ctx context.Context, filter Filter, limit int, offset int64) ([]*model.Session, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	TransitionStatus(ctx context.Context, id string, change StatusChange) (*model.Session, error)
	MarkPaid(ctx context.Context, id string, paymentRef string) (*model.Session, error)
	MarkPaidByBooking(ctx context.Context, bookingID string, paymentRef string) (int64, error)
	MarkRefunded(ctx context.Context, id string) error
	PromoteUpcoming(ctx context.Context, before time.Time, at time.Time) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoSessionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoSessionRepository(cfg *config.Config) SessionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSessionRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoSessionRepository) CreateMany(ctx context.Context, sessions []*model.Session) error {
	if len(sessions) == 0 {
		return nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	docs := make([]any, len(sessions))
	for i, s := range sessions {
		docs[i] = s
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to create sessions: %w", err)
	}
	return nil
}

func (r *mongoSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var session model.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sessionserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return &session, nil
}

func (r *mongoSessionRepository) Find(ctx context.Context, filter Filter, limit int, offset int64) ([]*model.Session, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_at", Value: 1}, {Key: "sequence_number", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter.bson(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	return sessions, nil
}

func (r *mongoSessionRepository) Count(ctx context.Context, filter Filter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter.bson())
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// TransitionStatus updates the session only if its current status is one of
// change.From. A lost race returns ErrStatusChanged.
func (r *mongoSessionRepository) TransitionStatus(ctx context.Context, id string, change StatusChange) (*model.Session, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": change.From},
	}
	if change.PaymentStatus != "" {
		filter["payment_status"] = change.PaymentStatus
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var session model.Session
	err := r.collection.FindOneAndUpdate(ctx, filter, change.update(), opts).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sessionserrors.ErrStatusChanged
		}
		return nil, fmt.Errorf("failed to update session status: %w", err)
	}

	return &session, nil
}

func (r *mongoSessionRepository) MarkPaid(ctx context.Context, id string, paymentRef string) (*model.Session, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "payment_status": model.PaymentStatusPending}
	update := bson.M{"$set": bson.M{
		"payment_status": model.PaymentStatusPaid,
		"payment_ref":    paymentRef,
		"updated_at":     time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var session model.Session
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sessionserrors.ErrAlreadyPaid
		}
		return nil, fmt.Errorf("failed to record session payment: %w", err)
	}
	return &session, nil
}

// MarkPaidByBooking marks every unpaid, uncancelled session of a booking as
// paid and returns how many changed.
func (r *mongoSessionRepository) MarkPaidByBooking(ctx context.Context, bookingID string, paymentRef string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"booking_id":     bookingID,
		"payment_status": model.PaymentStatusPending,
		"status":         bson.M{"$nin": []string{model.SessionStatusCancelled, model.SessionStatusUserCancelled}},
	}
	update := bson.M{"$set": bson.M{
		"payment_status": model.PaymentStatusPaid,
		"payment_ref":    paymentRef,
		"updated_at":     time.Now().UTC(),
	}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to record booking payment: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoSessionRepository) MarkRefunded(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "payment_status": model.PaymentStatusPaid}
	update := bson.M{"$set": bson.M{
		"payment_status": model.PaymentStatusRefunded,
		"updated_at":     time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark session refunded: %w", err)
	}
	if result.MatchedCount == 0 {
		return sessionserrors.ErrNotFound
	}
	return nil
}

// PromoteUpcoming moves confirmed sessions scheduled before the cutoff to
// UPCOMING.
func (r *mongoSessionRepository) PromoteUpcoming(ctx context.Context, before time.Time, at time.Time) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"status":       model.SessionStatusConfirmed,
		"scheduled_at": bson.M{"$lte": before},
	}
	update := bson.M{"$set": bson.M{
		"status":     model.SessionStatusUpcoming,
		"updated_at": at,
	}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to promote upcoming sessions: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoSessionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
