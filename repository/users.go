package repository

import (
	"context"
	"errors"
	"fmt"
	"os"

	"main/model"
	"main/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrUserNotFound = errors.New("user not found")

func GetUserRepo(client *mongo.Client) *UserRepo {
	dbName := os.Getenv("MONGO_DB")
	collectionName := os.Getenv("USERS_COLLECTION")
	return &UserRepo{
		MongoCollection: client.Database(dbName).Collection(collectionName),
	}
}

type UserRepo struct {
	MongoCollection *mongo.Collection
}

func (r *UserRepo) Insert(ctx context.Context, user *model.User) error {
	timer := utils.TrackDBOperation("insert", "users")
	defer timer.ObserveDuration()

	if user.Email == "" || user.UserID == "" {
		utils.TrackError("database", "invalid_user_data")
		return errors.New("email and user id required")
	}

	if _, err := r.MongoCollection.InsertOne(ctx, user); err != nil {
		utils.TrackError("database", "user_creation_failed")
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	err := r.MongoCollection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		utils.TrackError("database", "user_lookup_error")
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) FindByID(ctx context.Context, userID string) (*model.User, error) {
	timer := utils.TrackDBOperation("find", "users")
	defer timer.ObserveDuration()

	return r.findOne(ctx, bson.M{"user_id": userID})
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	timer := utils.TrackDBOperation("find", "users")
	defer timer.ObserveDuration()

	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepo) FindByProvider(ctx context.Context, provider, providerID string) (*model.User, error) {
	timer := utils.TrackDBOperation("find", "users")
	defer timer.ObserveDuration()

	field := providerField(provider)
	if field == "" {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
	return r.findOne(ctx, bson.M{field: providerID})
}

func providerField(provider string) string {
	switch provider {
	case "google":
		return "google_id"
	case "github":
		return "github_id"
	}
	return ""
}

func (r *UserRepo) updateOne(ctx context.Context, userID string, update bson.M) error {
	result, err := r.MongoCollection.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		utils.TrackError("database", "user_not_found")
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) UpdateTwoFactor(ctx context.Context, userID string, enabled bool, methods []string) error {
	timer := utils.TrackDBOperation("update", "users")
	defer timer.ObserveDuration()

	update := bson.M{
		"$set": bson.M{
			"two_factor_enabled": enabled,
			"two_factor_methods": methods,
		},
	}
	// Dropping the authenticator method also drops its secret.
	if !containsMethod(methods, model.TwoFactorAuthenticator) {
		update["$set"].(bson.M)["two_factor_secret"] = ""
	}

	if err := r.updateOne(ctx, userID, update); err != nil {
		utils.TrackError("database", "2fa_update_failed")
		return err
	}
	return nil
}

func containsMethod(methods []string, method string) bool {
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}

func (r *UserRepo) SetAuthenticatorSecret(ctx context.Context, userID, secret string) error {
	timer := utils.TrackDBOperation("update", "users")
	defer timer.ObserveDuration()

	return r.updateOne(ctx, userID, bson.M{
		"$set": bson.M{"two_factor_secret": secret},
	})
}

func (r *UserRepo) AppendLoginAttempt(ctx context.Context, userID string, attempt model.LoginAttempt) error {
	timer := utils.TrackDBOperation("update", "users")
	defer timer.ObserveDuration()

	return r.updateOne(ctx, userID, bson.M{
		"$push": bson.M{"login_history": attempt},
	})
}

func (r *UserRepo) AddKnownDevice(ctx context.Context, userID, deviceKey string) error {
	timer := utils.TrackDBOperation("update", "users")
	defer timer.ObserveDuration()

	return r.updateOne(ctx, userID, bson.M{
		"$addToSet": bson.M{"known_devices": deviceKey},
	})
}

func (r *UserRepo) SetLoginNotifications(ctx context.Context, userID string, enabled bool) error {
	timer := utils.TrackDBOperation("update", "users")
	defer timer.ObserveDuration()

	return r.updateOne(ctx, userID, bson.M{
		"$set": bson.M{"login_notifications": enabled},
	})
}

func (r *UserRepo) LinkProvider(ctx context.Context, userID, provider, providerID string) error {
	timer := utils.TrackDBOperation("update", "users")
	defer timer.ObserveDuration()

	field := providerField(provider)
	if field == "" {
		return fmt.Errorf("unknown provider: %s", provider)
	}
	return r.updateOne(ctx, userID, bson.M{
		"$set": bson.M{field: providerID},
	})
}
