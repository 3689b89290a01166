package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ahrav/go-tabroom/internal/allocation"
	"github.com/ahrav/go-tabroom/internal/application"
	"github.com/ahrav/go-tabroom/internal/breaking"
	"github.com/ahrav/go-tabroom/internal/domain"
)

var titler = cases.Title(language.English)

// remarkLabel renders a remark code for people, e.g. "Lost Coin Toss".
func remarkLabel(r domain.Remark) string {
	if r == domain.RemarkNone {
		return "-"
	}
	return titler.String(strings.ReplaceAll(string(r), "_", " "))
}

func flagLabels(flags []domain.DrawFlag) string {
	if len(flags) == 0 {
		return "-"
	}
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}

func printStandings(w io.Writer, entries []domain.StandingEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tTEAM\tPOINTS\tSPEAKS\tMARGINS\tDS\tROUNDS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%g\t%.2f\t%g\t%g\t%d\n",
			e.Rank, e.TeamID, e.Points, e.SpeakerScore, e.Margins, e.DrawStrength, e.RoundsCounted)
	}
	return tw.Flush()
}

func printDraw(w io.Writer, out *application.DrawOutcome) error {
	fmt.Fprintf(w, "Round %d (%s, seed %d, run %s)\n", out.Draw.Round, out.Draw.Method, out.Draw.Seed, out.Draw.RunID)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROOM\tVENUE\tAFF\tNEG\tBRACKET\tFLAGS")
	for _, d := range out.Debates {
		neg, venue := d.Neg, d.VenueID
		if neg == "" {
			neg = "(bye)"
		}
		if venue == "" {
			venue = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%g\t%s\n", d.RoomRank, venue, d.Aff, neg, d.Bracket, flagLabels(d.Flags))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	flagged := out.Draw.Flagged()
	flags := make([]domain.DrawFlag, 0, len(flagged))
	for f := range flagged {
		flags = append(flags, f)
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i] < flags[j] })
	for _, f := range flags {
		fmt.Fprintf(w, "  %s x%d: %s\n", f, flagged[f], domain.DrawFlagDescriptions[f])
	}
	return nil
}

func printAllocation(w io.Writer, res *allocation.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEBATE\tCHAIR\tPANEL\tTRAINEES")
	for _, a := range res.Allocations {
		chair := a.Chair
		if chair == "" {
			chair = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.DebateID, chair, joinOrDash(a.Panel), joinOrDash(a.Trainees))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "Objective %.3f (baseline %.3f)\n", res.Objective, res.Baseline)
	if len(res.Invalid) > 0 {
		fmt.Fprintf(w, "Invalid panels: %s\n", strings.Join(res.Invalid, ", "))
	}
	var short *domain.InsufficientResourcesError
	if errors.As(res.Shortfall, &short) {
		fmt.Fprintf(w, "Warning: %v\n", short)
	}
	return nil
}

func printBreaks(w io.Writer, res *breaking.Result) error {
	for _, cb := range res.Categories {
		fmt.Fprintf(w, "%s (%d of %d)\n", cb.Category.Name, len(cb.Breaking()), cb.Category.BreakSize)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RANK\tBREAK\tTEAM\tREMARK")
		for _, bt := range cb.Teams {
			breakRank := "-"
			if bt.BreakRank != nil {
				breakRank = fmt.Sprint(*bt.BreakRank)
			}
			remark := remarkLabel(bt.Remark())
			if bt.IsManual() {
				remark += " (manual)"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", bt.Rank, breakRank, bt.TeamID, remark)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func joinOrDash(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ",")
}
