package testutil

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGolden marshals v as indented JSON and compares it against
// testdata/golden/{name}.golden relative to the calling package.
//
// To regenerate golden files, run the package tests with -update:
//
//	go test ./internal/event -update
func AssertGolden(t *testing.T, name string, v any) {
	t.Helper()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden %s: %v", name, err)
	}
	data = append(data, '\n')

	AssertGoldenBytes(t, name, data)
}

// AssertGoldenBytes compares raw output against a golden file.
func AssertGoldenBytes(t *testing.T, name string, data []byte) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
