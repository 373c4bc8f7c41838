package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func newOutcomesCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outcomes",
		Short: "Maintain the stored reservation submit outcomes",
	}
	cmd.AddCommand(newOutcomesClearCmd(g))
	return cmd
}

// newOutcomesClearCmd removes stored outcomes ahead of their retention expiry.
func newOutcomesClearCmd(g *globals) *cobra.Command {
	var (
		mongoURL  string
		dbName    string
		olderThan time.Duration
	)

	c := &cobra.Command{
		Use:   "clear",
		Short: "Delete stored outcomes older than --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := g.logger()

			client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
			if err != nil {
				return fmt.Errorf("connect to mongodb: %w", err)
			}
			defer client.Disconnect(ctx)

			if err := client.Ping(ctx, nil); err != nil {
				return fmt.Errorf("ping mongodb: %w", err)
			}
			logger.Info("Connected to MongoDB", "database", dbName)

			cutoff := time.Now().UTC().Add(-olderThan)
			result, err := client.Database(dbName).Collection("outcomes").
				DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
			if err != nil {
				return fmt.Errorf("delete outcomes: %w", err)
			}

			printf(cmd.OutOrStdout(), "Deleted %d outcomes older than %s\n", result.DeletedCount, cutoff.Format(time.RFC3339))
			return nil
		},
	}

	c.Flags().StringVar(&mongoURL, "mongo-url", envOrDef("FRONTDESK_DB_MONGO_URL", "mongodb://localhost:27017"), "MongoDB connection URL")
	c.Flags().StringVar(&dbName, "db", envOrDef("FRONTDESK_DB_MONGO_NAME", "frontdesk"), "database name")
	c.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "age of the outcomes to delete")
	return c
}
