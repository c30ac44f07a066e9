package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"git.home.luguber.info/inful/brandintel/internal/config"
	"git.home.luguber.info/inful/brandintel/internal/livesync"
	"git.home.luguber.info/inful/brandintel/internal/model"
	"git.home.luguber.info/inful/brandintel/internal/readiness"
	"git.home.luguber.info/inful/brandintel/internal/service"
)

// printStatus renders unit statuses, per-template readiness, and document
// states for one subject.
func printStatus(ctx context.Context, svc *service.Service, subjectID string) error {
	reports, err := svc.Readiness(ctx, subjectID)
	if err != nil {
		return err
	}
	states, err := svc.DocumentStates(ctx, subjectID)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(reports))
	for id := range reports {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		report := reports[id]
		fmt.Printf("%-20s %s\n", id, readiness.Describe(report))
		if state, ok := states[id]; ok {
			fmt.Printf("%-20s %s (action: %s)\n", "", state.StatusLine, state.Action)
		}
	}
	return nil
}

// followStatus keeps a live channel attached to the subject and re-prints the
// unit table on every delivery, until ctx is canceled.
func followStatus(ctx context.Context, feed livesync.Feed, fetcher livesync.Fetcher, sync config.SyncConfig, subjectID string, out io.Writer) error {
	ch := livesync.NewChannel(subjectID, feed, fetcher, func(units []model.ExtractionUnit) {
		renderUnits(out, units)
	}, channelOptions(sync))
	ch.Start(ctx)
	defer ch.Close()

	<-ctx.Done()
	return nil
}

func channelOptions(sync config.SyncConfig) livesync.Options {
	return livesync.Options{
		Backoff:      sync.Policy(),
		PollInterval: sync.PollInterval,
	}
}

func renderUnits(out io.Writer, units []model.ExtractionUnit) {
	fmt.Fprintf(out, "-- %s\n", time.Now().Format(time.TimeOnly))
	for _, u := range units {
		line := string(u.Status)
		if u.ErrorMessage != "" {
			line += "  " + u.ErrorMessage
		}
		fmt.Fprintf(out, "%-20s %s\n", u.UnitType, line)
	}
}
