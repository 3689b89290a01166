package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-tabroom/internal/application"
	"github.com/ahrav/go-tabroom/internal/domain"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create any missing database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			return s.Migrate(cmd.Context())
		},
	}
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [config.yaml]",
		Short: "Import a tournament configuration and roster",
		Long: `Validates a tournament YAML file and replaces the stored roster, options
and break categories with its contents. Draws and breaks already stored are
kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := application.NewConfigLoader()
			if err != nil {
				return err
			}
			tour, err := loader.LoadFromFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tab, err := c.tabulator(cmd.Context())
			if err != nil {
				return err
			}
			if err := tab.ImportRoster(cmd.Context(), tour); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s: %d teams, %d adjudicators, %d results\n",
				tour.Snapshot.TournamentID, len(tour.Snapshot.Teams), len(tour.Snapshot.Adjudicators),
				len(tour.Snapshot.Results))
			return nil
		},
	}
}

func (c *cli) standingsCmd() *cobra.Command {
	var after int
	cmd := &cobra.Command{
		Use:   "standings [tournament]",
		Short: "Print team standings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tab, err := c.tabulator(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := tab.Standings(cmd.Context(), args[0], after)
			if err != nil {
				return err
			}
			return printStandings(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVar(&after, "after", 0, "rank on results up to this round; 0 uses every round")
	return cmd
}

// manualPairing is one entry of a --pairings file.
type manualPairing struct {
	Aff string `yaml:"aff"`
	Neg string `yaml:"neg"`
}

func (c *cli) drawCmd() *cobra.Command {
	var pairingsFile string
	cmd := &cobra.Command{
		Use:   "draw [tournament] [round]",
		Short: "Generate and store the draw for a round",
		Long: `Draws a round with the tournament's configured draw method and replaces
any debates already stored for it. The manual draw method reads its pairings
from --pairings, a YAML list of {aff, neg} entries.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			round, err := parseRound(args[1])
			if err != nil {
				return err
			}
			var manual []domain.Pairing
			if pairingsFile != "" {
				if manual, err = readPairings(pairingsFile); err != nil {
					return err
				}
			}

			tab, err := c.tabulator(cmd.Context())
			if err != nil {
				return err
			}
			out, err := tab.GenerateDraw(cmd.Context(), args[0], round, manual)
			if err != nil {
				return err
			}
			return printDraw(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&pairingsFile, "pairings", "", "YAML file of manual pairings")
	return cmd
}

func (c *cli) allocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "allocate [tournament] [round]",
		Short: "Allocate adjudicators to a drawn round",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			round, err := parseRound(args[1])
			if err != nil {
				return err
			}
			tab, err := c.tabulator(cmd.Context())
			if err != nil {
				return err
			}
			res, err := tab.AllocateAdjudicators(cmd.Context(), args[0], round)
			if err != nil {
				return err
			}
			return printAllocation(cmd.OutOrStdout(), res)
		},
	}
}

func (c *cli) checkinCmd() *cobra.Command {
	var av domain.RoundAvailability
	cmd := &cobra.Command{
		Use:   "checkin [tournament] [round]",
		Short: "Record who is available for a round",
		Long: `Replaces the check-ins of a round. Draws and allocations of the round only
use the teams, adjudicators and venues listed; a kind left empty keeps
everyone of that kind available.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			round, err := parseRound(args[1])
			if err != nil {
				return err
			}
			av.Round = round
			tab, err := c.tabulator(cmd.Context())
			if err != nil {
				return err
			}
			if err := tab.SetAvailability(cmd.Context(), args[0], av); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Round %d of %s: %s teams, %s adjudicators, %s venues checked in\n",
				round, args[0], countOrAll(av.Teams), countOrAll(av.Adjudicators), countOrAll(av.Venues))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&av.Teams, "teams", nil, "team IDs checked in")
	cmd.Flags().StringSliceVar(&av.Adjudicators, "adjudicators", nil, "adjudicator IDs checked in")
	cmd.Flags().StringSliceVar(&av.Venues, "venues", nil, "venue IDs checked in")
	return cmd
}

func countOrAll(ids []string) string {
	if len(ids) == 0 {
		return "all"
	}
	return strconv.Itoa(len(ids))
}

func (c *cli) breakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "break [tournament]",
		Short: "Compute and store every break category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tab, err := c.tabulator(cmd.Context())
			if err != nil {
				return err
			}
			res, err := tab.ComputeBreaks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printBreaks(cmd.OutOrStdout(), res)
		},
	}
}

func (c *cli) remarkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remark [tournament] [category] [team] [remark]",
		Short: "Set or clear an operator remark on a team's break",
		Long: `Sets a manual remark such as withdrawn, disqualified or lost_coin_toss.
The team stays out of the category's break until the remark is cleared by
passing an empty remark ("").`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			tab, err := c.tabulator(cmd.Context())
			if err != nil {
				return err
			}
			remark := domain.Remark(args[3])
			if err := tab.SetRemark(cmd.Context(), args[0], args[1], args[2], remark); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s in %s: %s\n", args[2], args[1], remarkLabel(remark))
			return nil
		},
	}
}

func parseRound(arg string) (int, error) {
	round, err := strconv.Atoi(arg)
	if err != nil || round < 1 {
		return 0, fmt.Errorf("%w: round must be a positive integer, got %q", domain.ErrInvalidInput, arg)
	}
	return round, nil
}

func readPairings(path string) ([]domain.Pairing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pairings: %w", err)
	}
	var entries []manualPairing
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing pairings: %w", err)
	}
	pairings := make([]domain.Pairing, len(entries))
	for i, e := range entries {
		pairings[i] = domain.Pairing{Aff: e.Aff, Neg: e.Neg}
	}
	return pairings, nil
}
