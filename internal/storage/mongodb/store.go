// Package mongodb implements every store contract on MongoDB. Documents use
// camelCase field names and string _id values.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/felixgeelhaar/finplan/internal/auth"
	"github.com/felixgeelhaar/finplan/internal/domain"
	"github.com/felixgeelhaar/finplan/internal/expense"
	"github.com/felixgeelhaar/finplan/internal/plan"
)

var (
	_ auth.UserStore    = (*Store)(nil)
	_ auth.SessionStore = (*Store)(nil)
	_ expense.Store     = (*Store)(nil)
	_ plan.Store        = (*Store)(nil)
)

// Store is the MongoDB backend
type Store struct {
	client   *mongo.Client
	users    *mongo.Collection
	sessions *mongo.Collection
	expenses *mongo.Collection
	plans    *mongo.Collection
}

// Connect dials uri, selects database and makes sure indexes exist
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := New(client, client.Database(database))
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// New builds a store over an existing client and database
func New(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client:   client,
		users:    db.Collection("users"),
		sessions: db.Collection("sessions"),
		expenses: db.Collection("expenses"),
		plans:    db.Collection("plans"),
	}
}

// EnsureIndexes creates the indexes the queries rely on
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.users, []mongo.IndexModel{{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		}}},
		{s.sessions, []mongo.IndexModel{{
			Keys: bson.D{{Key: "userId", Value: 1}},
		}}},
		{s.expenses, []mongo.IndexModel{{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}},
		}}},
		{s.plans, []mongo.IndexModel{{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		}}},
	}
	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateMany(ctx, spec.models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", spec.coll.Name(), err)
		}
	}
	return nil
}

// Ping checks the primary is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

type userDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := s.users.InsertOne(ctx, userDoc{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrEmailExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &domain.User{
		ID:           doc.ID,
		Email:        doc.Email,
		Name:         doc.Name,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

func (s *Store) FindIdentity(ctx context.Context, id string) (*domain.Identity, error) {
	var doc userDoc
	opts := options.FindOne().SetProjection(bson.M{"email": 1, "name": 1})
	err := s.users.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return &domain.Identity{UserID: doc.ID, Email: doc.Email, Name: doc.Name}, nil
}

// DeleteUser removes an account. Sessions are not cascaded.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// -----------------------------------------------------------------------------
// Sessions
// -----------------------------------------------------------------------------

type sessionDoc struct {
	ID           string    `bson:"_id"`
	UserID       string    `bson:"userId"`
	LastActivity time.Time `bson:"lastActivity"`
	CreatedAt    time.Time `bson:"createdAt"`
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var doc sessionDoc
	err := s.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &domain.Session{
		ID:           doc.ID,
		UserID:       doc.UserID,
		LastActivity: doc.LastActivity,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (s *Store) SaveSession(ctx context.Context, sess *domain.Session) error {
	update := bson.M{
		"$set": bson.M{
			"userId":       sess.UserID,
			"lastActivity": sess.LastActivity,
		},
		"$setOnInsert": bson.M{"createdAt": sess.CreatedAt},
	}
	_, err := s.sessions.UpdateOne(ctx, bson.M{"_id": sess.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *Store) TouchSession(ctx context.Context, id string, at time.Time) error {
	res, err := s.sessions.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastActivity": at}})
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.sessions.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Expenses
// -----------------------------------------------------------------------------

type expenseDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	Date      time.Time `bson:"date"`
	Category  string    `bson:"category"`
	Amount    int64     `bson:"amount"`
	Memo      string    `bson:"memo,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (s *Store) CreateExpense(ctx context.Context, e *domain.Expense) error {
	_, err := s.expenses.InsertOne(ctx, expenseDoc{
		ID:        e.ID,
		UserID:    e.UserID,
		Date:      e.Date,
		Category:  e.Category,
		Amount:    e.Amount,
		Memo:      e.Memo,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, userID string, r domain.DateRange) ([]*domain.Expense, error) {
	filter := bson.M{
		"userId": userID,
		"date":   bson.M{"$gte": r.From, "$lte": r.To},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})

	cur, err := s.expenses.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find expenses: %w", err)
	}
	var docs []expenseDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode expenses: %w", err)
	}

	list := make([]*domain.Expense, 0, len(docs))
	for _, d := range docs {
		list = append(list, &domain.Expense{
			ID:        d.ID,
			UserID:    d.UserID,
			Date:      d.Date,
			Category:  d.Category,
			Amount:    d.Amount,
			Memo:      d.Memo,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		})
	}
	return list, nil
}

func (s *Store) DeleteExpense(ctx context.Context, userID, id string) error {
	res, err := s.expenses.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrExpenseNotFound
	}
	return nil
}

// -----------------------------------------------------------------------------
// Plans
// -----------------------------------------------------------------------------

type planDoc struct {
	ID        string          `bson:"_id"`
	UserID    string          `bson:"userId"`
	Title     string          `bson:"title"`
	Targets   []domain.Target `bson:"targets"`
	CreatedAt time.Time       `bson:"createdAt"`
	UpdatedAt time.Time       `bson:"updatedAt"`
}

func (d planDoc) plan() *domain.Plan {
	targets := d.Targets
	if targets == nil {
		targets = []domain.Target{}
	}
	return &domain.Plan{
		ID:        d.ID,
		UserID:    d.UserID,
		Title:     d.Title,
		Targets:   targets,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func targetsOrEmpty(t []domain.Target) []domain.Target {
	if t == nil {
		return []domain.Target{}
	}
	return t
}

func (s *Store) CreatePlan(ctx context.Context, p *domain.Plan) error {
	_, err := s.plans.InsertOne(ctx, planDoc{
		ID:        p.ID,
		UserID:    p.UserID,
		Title:     p.Title,
		Targets:   targetsOrEmpty(p.Targets),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (s *Store) ListPlans(ctx context.Context, userID string) ([]*domain.Plan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.plans.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find plans: %w", err)
	}
	var docs []planDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode plans: %w", err)
	}

	list := make([]*domain.Plan, 0, len(docs))
	for _, d := range docs {
		list = append(list, d.plan())
	}
	return list, nil
}

func (s *Store) GetPlan(ctx context.Context, userID, id string) (*domain.Plan, error) {
	var doc planDoc
	err := s.plans.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find plan: %w", err)
	}
	return doc.plan(), nil
}

func (s *Store) UpdatePlan(ctx context.Context, p *domain.Plan) error {
	update := bson.M{"$set": bson.M{
		"title":     p.Title,
		"targets":   targetsOrEmpty(p.Targets),
		"updatedAt": p.UpdatedAt,
	}}
	res, err := s.plans.UpdateOne(ctx, bson.M{"_id": p.ID, "userId": p.UserID}, update)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

func (s *Store) DeletePlan(ctx context.Context, userID, id string) error {
	res, err := s.plans.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}
