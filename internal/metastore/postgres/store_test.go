package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"

	"database/sql"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	cs "github.com/spectator-tech/cluster-spectator/internal"
)

var (
	username = "postgres"
	password = "password"
	database = "postgres"
	port     = "5433"
	dialect  = "postgres"
)

var db *sql.DB

func TestMain(m *testing.M) {
	dockerPool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Failed to connect to docker pool: %s", err)
	}

	opts := dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "13",
		Env: []string{
			"POSTGRES_USER=" + username,
			"POSTGRES_PASSWORD=" + password,
			"POSTGRES_DB=" + database,
		},
		ExposedPorts: []string{"5432"},
		PortBindings: map[docker.Port][]docker.PortBinding{
			"5432": {
				{HostIP: "0.0.0.0", HostPort: port},
			},
		},
	}

	resource, err := dockerPool.RunWithOptions(&opts, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		log.Fatalf("Failed to start docker container: %s", err.Error())
	}

	dsn := fmt.Sprintf("%s://%s:%s@localhost:%s/%s?sslmode=disable", dialect, username, password, port, database)
	if err = dockerPool.Retry(func() error {
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return err
		}

		return db.Ping()
	}); err != nil {
		log.Fatalf("Failed to establish a conn to docker Postgres database: %v", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})

	migrator, err := migrate.NewWithDatabaseInstance(
		"file://../../../db/migrations",
		"postgres", driver)
	if err != nil {
		log.Fatalf("Failed to initialize migrator database instance: %v", err)
	}

	if err := migrator.Up(); err != nil {
		log.Fatalf("Failed to migrate up to the latest database schema: %v", err)
	}

	code := m.Run()

	if err1, err2 := migrator.Close(); err1 != nil || err2 != nil {
		log.Fatalf("Failed to close migrator source or database: %v", err)
	}

	if err := dockerPool.Purge(resource); err != nil {
		log.Fatalf("Failed to purge docker resource: %s", err)
	}

	os.Exit(code)
}

func TestPutRecord(t *testing.T) {

	store, err := NewStore(db)
	if err != nil {
		log.Fatalf("Failed to instantiate the Postgres store: %v", err)
	}

	keys := cs.KeyBuilder{ClusterName: "put-cluster"}

	record := cs.NewRecord("node1")
	record.SetSimpleField(cs.FieldHostName, "node1.internal")

	if err := store.PutRecord(context.Background(), keys.LiveInstances(), record); err != nil {
		t.Errorf("Expected nil error, but got '%v'", err)
	}

	children, err := store.ChildValuesMap(context.Background(), keys.LiveInstances(), true)
	if err != nil {
		t.Errorf("Expected nil error, but got '%v'", err)
	}

	stored, ok := children["node1"]
	if !ok {
		t.Fatalf("Expected the stored record to be enumerated, but it was not")
	}
	if stored.SimpleFields[cs.FieldHostName] != "node1.internal" {
		t.Errorf("Expected host 'node1.internal', but got '%s'", stored.SimpleFields[cs.FieldHostName])
	}
	if stored.Stat.Version != 1 {
		t.Errorf("Expected version 1 for a new record, but got %d", stored.Stat.Version)
	}
}

func TestPutRecordBumpsVersion(t *testing.T) {

	store, err := NewStore(db)
	if err != nil {
		log.Fatalf("Failed to instantiate the Postgres store: %v", err)
	}

	keys := cs.KeyBuilder{ClusterName: "bump-cluster"}

	record := cs.NewRecord("node1")
	if err := store.PutRecord(context.Background(), keys.LiveInstances(), record); err != nil {
		t.Errorf("Expected nil error, but got '%v'", err)
	}

	record.SetSimpleField(cs.FieldSessionID, "session-2")
	if err := store.PutRecord(context.Background(), keys.LiveInstances(), record); err != nil {
		t.Errorf("Expected nil error, but got '%v'", err)
	}

	stats, err := store.Stats(context.Background(), []string{keys.LiveInstance("node1")})
	if err != nil {
		t.Errorf("Expected nil error, but got '%v'", err)
	}

	if stats[0] == nil {
		t.Fatalf("Expected a stat for the stored record, but got nil")
	}
	if stats[0].Version != 2 {
		t.Errorf("Expected version 2 after two writes, but got %d", stats[0].Version)
	}
}

func TestStatsAndRecordsPreserveOrder(t *testing.T) {

	store, err := NewStore(db)
	if err != nil {
		log.Fatalf("Failed to instantiate the Postgres store: %v", err)
	}

	keys := cs.KeyBuilder{ClusterName: "order-cluster"}

	if err := store.PutRecord(context.Background(), keys.LiveInstances(), cs.NewRecord("node2")); err != nil {
		t.Errorf("Expected nil error, but got '%v'", err)
	}

	lookup := []string{
		keys.LiveInstance("node1"),
		keys.LiveInstance("node2"),
		keys.LiveInstance("node3"),
	}

	stats, err := store.Stats(context.Background(), lookup)
	if err != nil {
		t.Errorf("Expected nil error, but got '%v'", err)
	}
	if stats[0] != nil || stats[1] == nil || stats[2] != nil {
		t.Errorf("Expected only the middle key to have a stat, but got %v", stats)
	}

	records, err := store.Records(context.Background(), lookup, true)
	if err != nil {
		t.Errorf("Expected nil error, but got '%v'", err)
	}
	if records[0] != nil || records[1] == nil || records[2] != nil {
		t.Errorf("Expected only the middle key to have a record, but got %v", records)
	}
	if records[1].ID != "node2" {
		t.Errorf("Expected record 'node2', but got '%s'", records[1].ID)
	}
}

func TestDeleteRecord(t *testing.T) {

	store, err := NewStore(db)
	if err != nil {
		log.Fatalf("Failed to instantiate the Postgres store: %v", err)
	}

	keys := cs.KeyBuilder{ClusterName: "delete-cluster"}

	if err := store.PutRecord(context.Background(), keys.LiveInstances(), cs.NewRecord("node1")); err != nil {
		t.Errorf("Expected nil error, but got '%v'", err)
	}

	if err := store.DeleteRecord(context.Background(), keys.LiveInstances(), "node1"); err != nil {
		t.Errorf("Expected nil error, but got '%v'", err)
	}

	children, err := store.ChildValuesMap(context.Background(), keys.LiveInstances(), true)
	if err != nil {
		t.Errorf("Expected nil error, but got '%v'", err)
	}
	if len(children) != 0 {
		t.Errorf("Expected no children after the delete, but got %d", len(children))
	}

	// deleting a missing record doesn't error
	if err := store.DeleteRecord(context.Background(), keys.LiveInstances(), "node1"); err != nil {
		t.Errorf("Expected nil error, but got '%v'", err)
	}
}
