package main

import (
	"context"
	"testing"

	"github.com/rivermill/tap-sendgrid/pkg/state"
)

func TestNewStateStore_DefaultsToFile(t *testing.T) {
	redisURL = ""
	statePath = t.TempDir() + "/state.json"

	store, err := newStateStore(context.Background())
	if err != nil {
		t.Fatalf("newStateStore() error = %v", err)
	}
	if _, ok := store.(*state.FileStore); !ok {
		t.Errorf("Expected a file store, got %T", store)
	}
}

func TestRootCommand_RequiresConfigAndCatalog(t *testing.T) {
	rootCmd.SetArgs([]string{})

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("Expected an error without --config and --catalog")
	}
}
