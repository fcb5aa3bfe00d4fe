package mongo

import (
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	teamCollectionName   = "teams"
	playerCollectionName = "players"
)

// mongoRosterRepository implements repository.RosterRepository over the
// teams and players collections mirrored from the roster service.
type mongoRosterRepository struct {
	teams   *mongo.Collection
	players *mongo.Collection
}

// NewMongoRosterRepository creates a new roster repository.
func NewMongoRosterRepository(db *mongo.Database) repository.RosterRepository {
	return &mongoRosterRepository{
		teams:   db.Collection(teamCollectionName),
		players: db.Collection(playerCollectionName),
	}
}

// GetTeam retrieves a team by its id.
func (r *mongoRosterRepository) GetTeam(ctx context.Context, id string) (*domain.Team, error) {
	var team domain.Team
	err := r.teams.FindOne(ctx, bson.M{"_id": id}).Decode(&team)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &team, nil
}

// GetSubTeams returns the direct children of a team.
func (r *mongoRosterRepository) GetSubTeams(ctx context.Context, parentTeamID string) ([]domain.Team, error) {
	cursor, err := r.teams.Find(ctx, bson.M{"parentTeamId": parentTeamID},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var teams []domain.Team
	if err = cursor.All(ctx, &teams); err != nil {
		return nil, err
	}
	return teams, cursor.Err()
}

// FindPlayers resolves a hierarchy filter into players, sorted by id.
func (r *mongoRosterRepository) FindPlayers(ctx context.Context, f repository.PlayerFilter) ([]domain.Player, error) {
	filter := bson.M{}
	if f.OrganizationID != "" {
		filter["organizationId"] = f.OrganizationID
	}
	if len(f.TeamIDs) > 0 {
		filter["teamId"] = bson.M{"$in": f.TeamIDs}
	}
	if len(f.PlayerIDs) > 0 {
		filter["_id"] = bson.M{"$in": f.PlayerIDs}
	}
	if len(f.Lines) > 0 {
		filter["line"] = bson.M{"$in": f.Lines}
	}
	if len(f.Positions) > 0 {
		filter["position"] = bson.M{"$in": f.Positions}
	}
	if f.ActiveOnly {
		filter["active"] = true
	}

	cursor, err := r.players.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var players []domain.Player
	if err = cursor.All(ctx, &players); err != nil {
		return nil, err
	}
	return players, cursor.Err()
}

// EnsureRosterIndexes creates the indexes used by target resolution.
func EnsureRosterIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(teamCollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "parentTeamId", Value: 1}},
		Options: options.Index().SetSparse(true),
	}); err != nil {
		return err
	}
	_, err := db.Collection(playerCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "organizationId", Value: 1}, {Key: "teamId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "teamId", Value: 1}, {Key: "line", Value: 1}, {Key: "position", Value: 1}},
			Options: options.Index(),
		},
	})
	return err
}
