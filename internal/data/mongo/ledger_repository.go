package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fundflow-core/internal/domain/ledger"
)

const (
	// LedgerCollectionName is the name of the ledger collection in MongoDB
	LedgerCollectionName = "ledger_entries"
)

// LedgerRepository implements the ledger.Repository interface for MongoDB
type LedgerRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewLedgerRepository creates a new MongoDB ledger repository
func NewLedgerRepository(logger *slog.Logger, db *mongo.Database) ledger.Repository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new ledger entry after checking for duplicates.
// Returns ErrDuplicateEntry if an entry with the same id exists.
func (r *LedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(LedgerCollectionName)

	existing, err := r.GetByID(ctx, entry.ID)
	if err != nil && !errors.Is(err, ledger.ErrEntryNotFound{}) {
		r.logger.Error("Failed to check for existing ledger entry",
			"entry_id", entry.ID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing ledger entry: %w", err)
	}
	if existing != nil {
		return ledger.ErrDuplicateEntry{EntryID: entry.ID}
	}

	if _, err = collection.InsertOne(ctx, entry); err != nil {
		r.logger.Error("Failed to create ledger entry",
			"entry_id", entry.ID.String(),
			"error", err)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	return nil
}

// GetByID retrieves a ledger entry by its id.
// Returns ErrEntryNotFound if no entry exists.
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{"entry_id": id}
	var entry ledger.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get ledger entry",
			"entry_id", id.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return &entry, nil
}

// GetByIdempotencyKey retrieves a ledger entry by its caller-supplied
// deduplication token, scoped to one account and entry type. Returns nil
// when no entry exists, enabling idempotent withdrawal creation.
func (r *LedgerRepository) GetByIdempotencyKey(ctx context.Context, accountID uuid.UUID, entryType ledger.EntryType, key string) (*ledger.Entry, error) {
	if key == "" {
		return nil, errors.New("idempotency key cannot be empty")
	}

	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{
		"account_id":      accountID,
		"type":            entryType,
		"idempotency_key": key,
	}
	var entry ledger.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // No entry found with this idempotency key
		}
		r.logger.Error("Failed to get ledger entry by idempotency key",
			"account_id", accountID.String(),
			"idempotency_key", key,
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entry by idempotency key: %w", err)
	}

	return &entry, nil
}

// GetByAccountID retrieves paginated ledger entries for an account.
// Results are sorted by creation time in descending order (newest first).
func (r *LedgerRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{"account_id": accountID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get ledger entries",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*ledger.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode ledger entries",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}

	return entries, nil
}

// UpdateStatusCAS performs the conditional state transition the withdrawal
// state machine relies on: the update filter matches the current status, so
// a concurrent transition makes this one fail with ErrStatusConflict instead
// of silently overwriting it.
func (r *LedgerRepository) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to ledger.Status, note string) (*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	now := time.Now().UTC()
	set := bson.M{
		"status":           to,
		"state_changed_at": now,
	}
	if note != "" {
		set["notes"] = note
	}
	if to.IsTerminal() {
		set["timeout_at"] = nil
	} else {
		set["timeout_at"] = now.Add(ledger.TimeoutFor(to))
	}

	filter := bson.M{"entry_id": id, "status": from}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var entry ledger.Entry
	err := collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrStatusConflict{EntryID: id, Expected: from}
		}
		r.logger.Error("Failed to transition ledger entry",
			"entry_id", id.String(),
			"from", string(from),
			"to", string(to),
			"error", err)
		return nil, fmt.Errorf("failed to transition ledger entry: %w", err)
	}

	return &entry, nil
}

// IncrementRetryCount bumps the bounded retry counter of an entry
func (r *LedgerRepository) IncrementRetryCount(ctx context.Context, id uuid.UUID) error {
	collection := r.db.Collection(LedgerCollectionName)

	result, err := collection.UpdateOne(ctx,
		bson.M{"entry_id": id},
		bson.M{"$inc": bson.M{"retry_count": 1}})
	if err != nil {
		r.logger.Error("Failed to increment retry count",
			"entry_id", id.String(),
			"error", err)
		return fmt.Errorf("failed to increment retry count: %w", err)
	}
	if result.MatchedCount == 0 {
		return ledger.ErrEntryNotFound{EntryID: id}
	}

	return nil
}

// SumAmount aggregates entry amounts matching the filter. A filter that
// matches nothing sums to zero.
func (r *LedgerRepository) SumAmount(ctx context.Context, filter ledger.SumFilter) (int64, error) {
	collection := r.db.Collection(LedgerCollectionName)

	match := bson.M{
		"account_id": filter.AccountID,
		"type":       filter.Type,
	}
	if filter.MemberID != "" {
		match["member_id"] = filter.MemberID
	}
	if len(filter.Statuses) > 0 {
		match["status"] = bson.M{"$in": filter.Statuses}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
		}}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Error("Failed to aggregate ledger amounts",
			"account_id", filter.AccountID.String(),
			"type", string(filter.Type),
			"error", err)
		return 0, fmt.Errorf("failed to aggregate ledger amounts: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		r.logger.Error("Failed to decode aggregation result",
			"account_id", filter.AccountID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to decode aggregation result: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

// FindStale returns non-terminal entries whose timeout has passed, for the
// external reconciliation sweep. Oldest timeouts come first.
func (r *LedgerRepository) FindStale(ctx context.Context, statuses []ledger.Status, olderThan time.Time, limit int) ([]*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{
		"status":     bson.M{"$in": statuses},
		"timeout_at": bson.M{"$ne": nil, "$lt": olderThan},
	}
	opts := options.Find().
		SetSort(bson.M{"timeout_at": 1}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to find stale ledger entries",
			"older_than", olderThan,
			"error", err)
		return nil, fmt.Errorf("failed to find stale ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*ledger.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode stale ledger entries",
			"older_than", olderThan,
			"error", err)
		return nil, fmt.Errorf("failed to decode stale ledger entries: %w", err)
	}

	return entries, nil
}
