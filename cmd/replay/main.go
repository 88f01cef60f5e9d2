package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"sion-backend/models"
	"sion-backend/services"
)

// simSummary - 시뮬레이션별 집계
type simSummary struct {
	id         string
	scenario   models.Scenario
	first      time.Time
	last       time.Time
	ticks      int
	actions    map[string]int
	skipped    int
	rolledBack int
	phases     []string
	done       bool
}

func main() {
	var (
		dir     = flag.String("dir", "data/archive", "archive dir containing <prefix>-*.jsonl.zst")
		prefix  = flag.String("prefix", "ticks", "archive file prefix")
		simID   = flag.String("sim", "", "only summarize this simulation")
		verbose = flag.Bool("v", false, "print every tick")
	)
	flag.Parse()

	files, err := services.ListArchiveFiles(*dir, *prefix)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list archive:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no archive files in", *dir)
		os.Exit(1)
	}

	sums := map[string]*simSummary{}
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open:", err)
			os.Exit(1)
		}
		err = services.ReadArchive(f, func(res models.TickResult) error {
			if *simID != "" && res.SimulationID != *simID {
				return nil
			}
			if *verbose {
				fmt.Printf("%s %s #%d actions=%d skipped=%d\n",
					res.Time.Format(time.RFC3339), res.SimulationID, res.Tick, len(res.Actions), len(res.Skipped))
			}
			add(sums, res)
			return nil
		})
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	ordered := make([]*simSummary, 0, len(sums))
	for _, s := range sums {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].first.Before(ordered[j].first) })

	fmt.Printf("files=%d simulations=%d\n", len(files), len(ordered))
	for _, s := range ordered {
		fmt.Printf("\n%s (%s) ticks=%d skipped=%d rolled_back=%d done=%v span=%s\n",
			s.id, s.scenario, s.ticks, s.skipped, s.rolledBack, s.done, s.last.Sub(s.first).Round(time.Millisecond))
		if len(s.phases) > 0 {
			fmt.Printf("  phases: %v\n", s.phases)
		}
		keys := make([]string, 0, len(s.actions))
		for k := range s.actions {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-16s %d\n", k, s.actions[k])
		}
	}
}

func add(sums map[string]*simSummary, res models.TickResult) {
	s, ok := sums[res.SimulationID]
	if !ok {
		s = &simSummary{
			id:       res.SimulationID,
			scenario: res.Scenario,
			first:    res.Time,
			actions:  map[string]int{},
		}
		if res.Phase != "" {
			s.phases = append(s.phases, string(res.Phase))
		}
		sums[res.SimulationID] = s
	}
	s.last = res.Time
	s.ticks++
	s.skipped += len(res.Skipped)
	if res.RolledBack {
		s.rolledBack++
	}
	if res.Done {
		s.done = true
	}
	if res.PhaseChanged && (len(s.phases) == 0 || s.phases[len(s.phases)-1] != string(res.Phase)) {
		s.phases = append(s.phases, string(res.Phase))
	}
	for _, rec := range res.Actions {
		s.actions[rec.Label()]++
	}
}
