package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeebo/assert"
	"github.com/zeebo/pcg"
)

func TestConfig(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		cfg, err := loadConfig("")
		assert.NoError(t, err)
		assert.Equal(t, cfg.Records, 10000)
		assert.Equal(t, len(cfg.Enums), 2)

		s, err := build(cfg)
		assert.NoError(t, err)
		assert.Equal(t, s.layout.Bits(), uint(96))
		assert.Equal(t, s.layout.Size(), 12)
		assert.Equal(t, len(s.checks), 7)
		assert.Equal(t, s.enums["Status"].Bits(), uint(3))
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "layout.toml")
		assert.NoError(t, os.WriteFile(path, []byte(`
records = 3

[[enum]]
name = "Dir"
  [[enum.variant]]
  name = "Up"
  [[enum.variant]]
  name = "Down"

[layout]
name = "Step"
unfilled = true
  [[layout.field]]
  name = "dir"
  enum = "Dir"
  [[layout.field]]
  name = "n"
  bits = 3
`), 0644))

		cfg, err := loadConfig(path)
		assert.NoError(t, err)

		s, err := build(cfg)
		assert.NoError(t, err)
		assert.Equal(t, s.layout.Size(), 1)
		assert.Equal(t, s.enums["Dir"].Bits(), uint(1))
	})

	t.Run("UnknownKeys", func(t *testing.T) {
		_, err := parseConfig("recordz = 1\n")
		assert.Error(t, err)
	})

	t.Run("BadDefinitions", func(t *testing.T) {
		for _, data := range []string{
			// three variants need an explicit width
			"[[enum]]\nname = \"E\"\n[[enum.variant]]\nname = \"A\"\n[[enum.variant]]\nname = \"B\"\n[[enum.variant]]\nname = \"C\"\n",
			// structs are not enumerations
			"[[enum]]\nname = \"E\"\nkind = \"struct\"\n",
			// discriminant does not fit
			"[[enum]]\nname = \"E\"\nbits = 1\n[[enum.variant]]\nname = \"A\"\nvalue = 2\n",
			// unknown enum
			"[layout]\nname = \"L\"\n[[layout.field]]\nname = \"f\"\nenum = \"Missing\"\n",
			// not a whole number of bytes
			"[layout]\nname = \"L\"\n[[layout.field]]\nname = \"f\"\nbits = 3\n",
			// empty
			"[layout]\nname = \"L\"\n",
		} {
			cfg, err := parseConfig(data)
			assert.NoError(t, err)
			_, err = build(cfg)
			assert.Error(t, err)
		}
	})

	t.Run("AmbiguousMessage", func(t *testing.T) {
		cfg, err := parseConfig("[[enum]]\nname = \"E\"\n[[enum.variant]]\nname = \"A\"\n[[enum.variant]]\nname = \"B\"\n[[enum.variant]]\nname = \"C\"\n")
		assert.NoError(t, err)
		_, err = build(cfg)
		assert.That(t, strings.Contains(err.Error(), "bits = 2"))
	})
}

func TestRun(t *testing.T) {
	cfg, err := loadConfig("")
	assert.NoError(t, err)
	s, err := build(cfg)
	assert.NoError(t, err)

	t.Run("Heap", func(t *testing.T) {
		var rng pcg.T
		recs := heapRecords(500, s.layout.Size())
		assert.NoError(t, s.run(&rng, recs))
	})

	t.Run("Mapped", func(t *testing.T) {
		var rng pcg.T
		recs, err := mapRecords(filepath.Join(t.TempDir(), "records"), 500, s.layout.Size())
		assert.NoError(t, err)
		assert.NoError(t, s.run(&rng, recs))
		assert.NoError(t, recs.Close())
	})

	t.Run("Corrupt", func(t *testing.T) {
		var rng pcg.T
		recs := heapRecords(2, s.layout.Size())

		verifies, err := s.fill(&rng, recs.At(0))
		assert.NoError(t, err)

		// Status has no variant with code 7
		status, ok := s.layout.Field("status")
		assert.That(t, ok)
		buf := recs.At(0)
		for i := status.Offset; i < status.Offset+status.Width; i++ {
			buf[i/8] |= 1 << (i % 8)
		}
		assert.Error(t, verify(buf, verifies))
	})
}
