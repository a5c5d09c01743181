package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"alcyxob/workout-engine/internal/domain"
	"alcyxob/workout-engine/internal/repository"
)

const (
	exerciseCollectionName = "exercises"
	templateCollectionName = "workout_templates"
)

// mongoCatalogRepository implements repository.CatalogRepository
type mongoCatalogRepository struct {
	exercises *mongo.Collection
	templates *mongo.Collection
}

// NewMongoCatalogRepository creates a read-only catalog backed by MongoDB.
func NewMongoCatalogRepository(db *mongo.Database) repository.CatalogRepository {
	return &mongoCatalogRepository{
		exercises: db.Collection(exerciseCollectionName),
		templates: db.Collection(templateCollectionName),
	}
}

// GetExercise retrieves a catalog exercise by its ID.
func (r *mongoCatalogRepository) GetExercise(ctx context.Context, exerciseID string) (*domain.Exercise, error) {
	var exercise domain.Exercise
	if err := r.exercises.FindOne(ctx, bson.M{"_id": exerciseID}).Decode(&exercise); err != nil {
		return nil, notFound(err)
	}
	return &exercise, nil
}

// GetTemplate retrieves a template, only if it belongs to userID.
func (r *mongoCatalogRepository) GetTemplate(ctx context.Context, userID, templateID string) (*domain.WorkoutTemplate, error) {
	var tpl domain.WorkoutTemplate
	filter := bson.M{"_id": templateID, "userId": userID}
	if err := r.templates.FindOne(ctx, filter).Decode(&tpl); err != nil {
		return nil, notFound(err)
	}
	return &tpl, nil
}

// EnsureCatalogIndexes creates indexes for the catalog collections.
func EnsureCatalogIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) {
	indexes := []mongo.IndexModel{
		{
			// Listing a user's templates
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "updatedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	if _, err := db.Collection(templateCollectionName).Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warn("failed to create indexes", zap.String("collection", templateCollectionName), zap.Error(err))
	}

	exerciseIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: "text"}},
			Options: options.Index().SetName("exercise_text_search"),
		},
	}
	if _, err := db.Collection(exerciseCollectionName).Indexes().CreateMany(ctx, exerciseIndexes); err != nil {
		logger.Warn("failed to create indexes", zap.String("collection", exerciseCollectionName), zap.Error(err))
	}
}
