package storage

import (
	"strings"
	"testing"
)

func TestMigrations_Order(t *testing.T) {
	// Tables must be created before the tables referencing them.
	order := []string{"users", "matrices", "categories", "cells"}
	pos := make(map[string]int)
	for i, ddl := range migrations {
		for _, table := range order {
			if strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS "+table+" ") {
				pos[table] = i
			}
		}
	}
	for i := 1; i < len(order); i++ {
		if pos[order[i-1]] >= pos[order[i]] {
			t.Errorf("%s created after %s", order[i-1], order[i])
		}
	}
}

func TestMigrations_Idempotent(t *testing.T) {
	for i, ddl := range migrations {
		if !strings.Contains(ddl, "IF NOT EXISTS") {
			t.Errorf("migration %d is not idempotent", i)
		}
	}
}
