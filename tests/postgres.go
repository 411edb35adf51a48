package tests

import (
	"context"
	"log"
	"math/rand/v2"
	"os"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/prior-it/socialauth/postgres"
)

var Faker = gofakeit.New(rand.Uint64())

// DB connects to the database in DATABASE_URL and runs all migrations.
// Tests that need a database are skipped when DATABASE_URL is not set.
func DB(t *testing.T) *postgres.DB {
	t.Helper()
	ctx := context.Background()
	err := godotenv.Load("../.env")
	if err != nil {
		log.Printf("Could not load the .env file: %v", err)
	}
	url := os.Getenv("DATABASE_URL")
	if len(url) == 0 {
		t.Skip("To test database functionality, set the DATABASE_URL env variable to a valid database")
	}
	db, err := postgres.NewDB(ctx, url)
	if err != nil {
		t.Fatalf("Cannot connect to the database: %v", err)
	}
	t.Cleanup(db.Close)

	err = db.Migrate(ctx)
	if err != nil {
		log.Panicf("Cannot migrate db: %v", err)
	}

	return db
}

func Check(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
