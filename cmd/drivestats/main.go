// Command drivestats summarizes archived drives with DuckDB.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/brensch/gridiron/config"
	"github.com/brensch/gridiron/store"
)

type report struct {
	Ticks    int64                  `json:"ticks"`
	Outcomes []store.OutcomeSummary `json:"outcomes"`
	Sides    []store.SideSummary    `json:"sides"`
}

func main() {
	dataDirs := flag.String("data-dirs", config.GetEnvOrDefault("DATA_DIRS", "data/autoplay"), "Comma-separated archive roots (each holding ticks/ and drives/)")
	asJSON := flag.Bool("json", false, "Print the report as JSON")
	timeout := flag.Duration("timeout", config.GetEnvDurationOrDefault("QUERY_TIMEOUT", time.Minute), "Query timeout")
	flag.Parse()

	db, err := store.OpenArchiveDB(strings.Split(*dataDirs, ","))
	if err != nil {
		log.Fatalf("open archive: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	r, err := buildReport(ctx, db)
	if err != nil {
		log.Fatal(err)
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			log.Fatal(err)
		}
		return
	}
	printReport(os.Stdout, r)
}

func buildReport(ctx context.Context, db *store.ArchiveDB) (report, error) {
	var (
		r   report
		err error
	)
	if r.Ticks, err = db.TickCount(ctx); err != nil {
		return r, err
	}
	if r.Outcomes, err = db.Outcomes(ctx); err != nil {
		return r, err
	}
	if r.Sides, err = db.Sides(ctx); err != nil {
		return r, err
	}
	return r, nil
}

func printReport(w io.Writer, r report) {
	fmt.Fprintf(w, "ticks archived: %d\n\n", r.Ticks)
	if len(r.Outcomes) == 0 {
		fmt.Fprintln(w, "no drives archived")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REASON\tDRIVES\tAVG PLAYS\tAVG YARDS\tLONGEST\tPOINTS")
	for _, o := range r.Outcomes {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\t%d\t%d\n", o.Reason, o.Drives, o.AvgPlays, o.AvgYards, o.LongestDrive, o.TotalPoints)
	}
	_ = tw.Flush()

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SIDE\tDRIVES\tTOUCHDOWNS\tPOINTS\tAVG YARDS")
	for _, s := range r.Sides {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.1f\n", s.Possession, s.Drives, s.Touchdowns, s.TotalPoints, s.AvgYards)
	}
	_ = tw.Flush()
}
