package main

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/runstore"
)

func TestRunRewardsLogsLookupFailure(t *testing.T) {
	store, err := runstore.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	store.Close()

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	if got := runRewards(store, "r1"); got != nil {
		t.Fatalf("expected no series from a closed store, got %v", got)
	}
	if !strings.Contains(buf.String(), "reward series for run r1") {
		t.Fatalf("lookup failure not logged: %q", buf.String())
	}
}
