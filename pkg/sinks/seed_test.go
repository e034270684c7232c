package sinks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contractors-seed.ts")
	s := NewSeedSink(path, 5000, "/data/registry.csv")

	feed(t, s,
		contractor("1001", `Joe's "Best" Roofing`, "Active", "Phoenix"),
		contractor("1002", "Old Co", "Expired", "Tucson"),
		contractor("1001", "Duplicate", "Active", "Mesa"),
		contractor("1003", "No City", "Active", ""),
	)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{path}, s.Artifacts())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	script := string(raw)

	assert.True(t, strings.HasPrefix(script, "// Generated by registryflow from registry.csv."))
	assert.Contains(t, script, "import { PrismaClient } from '@prisma/client';")
	assert.Contains(t, script, `businessName: "Joe's \"Best\" Roofing",`)
	assert.Contains(t, script, `serviceAreas: ["Phoenix"],`)
	assert.Contains(t, script, `serviceAreas: [],`)
	assert.NotContains(t, script, "Old Co")
	assert.NotContains(t, script, "Duplicate", "first occurrence wins")
	assert.Contains(t, script, "where: { licenseNumber: contractor.licenseNumber },")
	assert.Contains(t, script, "await prisma.$disconnect();")
	assert.NotContains(t, script, "city:")
}

func TestSeedSink_Cap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contractors-seed.ts")
	s := NewSeedSink(path, 2, "")

	feed(t, s,
		contractor("1", "A", "Active", "Phoenix"),
		contractor("2", "B", "Active", "Phoenix"),
		contractor("3", "C", "Active", "Phoenix"),
		contractor("4", "D", "Active", "Phoenix"),
	)
	assert.Equal(t, 2, s.Len())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	script := string(raw)

	assert.Equal(t, 2, strings.Count(script, "licenseNumber: \""))
	assert.Contains(t, script, "2 active contractors, 2 left out by the cap of 2.")
	assert.True(t, strings.HasPrefix(script, "// Generated by registryflow. Do not edit by hand."))
}

func TestSeedSink_Deterministic(t *testing.T) {
	dir := t.TempDir()
	render := func(name string) string {
		path := filepath.Join(dir, name)
		feed(t, NewSeedSink(path, 10, "registry.csv"),
			contractor("1", "A", "Active", "Phoenix"),
			contractor("2", "B", "Active", "Tucson"),
		)
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		return string(raw)
	}

	assert.Equal(t, render("a.ts"), render("b.ts"))
}

func TestTSLiteral(t *testing.T) {
	got, err := tsLiteral("line\nbreak \u2028 </script>")
	require.NoError(t, err)
	assert.Equal(t, `"line\nbreak \u2028 </script>"`, got)
}
