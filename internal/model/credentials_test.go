package model

import (
	"testing"
	"time"
)

func TestUpdateVersionMonotonic(t *testing.T) {
	c := Credentials{}

	for i := 1; i <= 5; i++ {
		before := c.Version
		c.UpdateVersion()
		if c.Version <= before {
			t.Fatalf("version did not advance: %d -> %d", before, c.Version)
		}
	}
	if c.Version != 5 {
		t.Errorf("expected version 5, got %d", c.Version)
	}
	if c.LastPassword != "" {
		t.Errorf("UpdateVersion must not touch the password history, got %q", c.LastPassword)
	}
}

func TestUpdatePasswordMonotonic(t *testing.T) {
	c := Credentials{Version: 2}

	before := c.Version
	c.UpdatePassword("old-hash")

	if c.Version <= before {
		t.Fatalf("version did not advance: %d -> %d", before, c.Version)
	}
	if c.LastPassword != "old-hash" {
		t.Errorf("expected previous hash to be recorded, got %q", c.LastPassword)
	}
}

func TestUpdateRefreshesTimestamp(t *testing.T) {
	c := Credentials{UpdatedAt: time.Now().Add(-time.Hour).Unix()}

	stale := c.UpdatedAt
	c.UpdateVersion()
	if c.UpdatedAt <= stale {
		t.Error("UpdateVersion did not refresh updatedAt")
	}

	stale = time.Now().Add(-time.Minute).Unix()
	c.UpdatedAt = stale
	c.UpdatePassword("hash")
	if c.UpdatedAt <= stale {
		t.Error("UpdatePassword did not refresh updatedAt")
	}
}
