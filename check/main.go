package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeebo/errs"
	"github.com/zeebo/mon"
	"github.com/zeebo/mon/monhandler"
	"github.com/zeebo/pcg"
)

var (
	layoutPath = flag.String("layout", "", "toml layout file (uses a built in layout if empty)")
	numRecords = flag.Int("records", 0, "number of records to pack (overrides the layout file)")
	mapPath    = flag.String("file", "", "pack records into this file through mmap instead of the heap")
	httpAddr   = flag.String("http", "", "address to serve timings on")
	verbose    = flag.Bool("v", false, "log every field")

	rng pcg.T
	log zerolog.Logger
)

func stats() {
	defer fmt.Println()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	mon.Times(func(name string, state *mon.State) bool {
		sum, avg := state.Average()
		fmt.Fprintf(tw, "%s\t%v\t%v\t%v\n",
			name, state.Total(), time.Duration(sum), time.Duration(avg))
		return true
	})
}

func main() {
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	if *httpAddr != "" {
		go func() {
			if err := http.ListenAndServe(*httpAddr, monhandler.Handler{}); err != nil {
				log.Error().Err(err).Msg("timing server stopped")
			}
		}()
	}

	if err := run(); err != nil {
		stats()
		log.Fatal().Msgf("%+v", err)
	}
	stats()
}

func run() (err error) {
	cfg, err := loadConfig(*layoutPath)
	if err != nil {
		return errs.Wrap(err)
	}
	if *numRecords > 0 {
		cfg.Records = *numRecords
	}
	if cfg.Records <= 0 {
		return errs.New("no records to pack")
	}

	s, err := build(cfg)
	if err != nil {
		return errs.Wrap(err)
	}

	log.Info().
		Str("layout", s.layout.Name()).
		Uint("bits", s.layout.Bits()).
		Int("size", s.layout.Size()).
		Int("enums", len(s.enums)).
		Msg("built layout")
	for _, f := range s.layout.Fields() {
		log.Debug().
			Str("field", f.Name).
			Uint("offset", f.Offset).
			Uint("width", f.Width).
			Msg("field")
	}

	var recs *records
	if *mapPath != "" {
		recs, err = mapRecords(*mapPath, cfg.Records, s.layout.Size())
		if err != nil {
			return errs.Wrap(err)
		}
		defer func() { err = errs.Combine(err, recs.Close()) }()
	} else {
		recs = heapRecords(cfg.Records, s.layout.Size())
	}

	start := time.Now()
	if err := s.run(&rng, recs); err != nil {
		return errs.Wrap(err)
	}

	log.Info().
		Int("records", recs.Len()).
		Int("bytes", recs.Len()*s.layout.Size()).
		Dur("elapsed", time.Since(start)).
		Msg("all records verified")
	return nil
}
