package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/groundguard-io/groundguard/internal/core"
	"github.com/groundguard-io/groundguard/internal/processor"
)

// statusResponse mirrors the /state endpoint body.
type statusResponse struct {
	State  core.State `json:"state"`
	Halted bool       `json:"halted"`
}

// newStatusCommand builds the "status" subcommand: query a running daemon's
// status server and render its statistics.
func newStatusCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running safety core and print its state and statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 5 * time.Second}

			var state statusResponse
			if err := getJSON(client, fmt.Sprintf("http://%s/state", addr), &state); err != nil {
				return fmt.Errorf("failed to query state: %w", err)
			}

			var stats processor.Statistics
			if err := getJSON(client, fmt.Sprintf("http://%s/statistics", addr), &stats); err != nil {
				return fmt.Errorf("failed to query statistics: %w", err)
			}

			table := uitable.New()
			table.AddRow("STATE", string(state.State))
			table.AddRow("HALTED", fmt.Sprintf("%v", state.Halted))
			table.AddRow("COMMANDS RECEIVED", fmt.Sprintf("%d", stats.Intake.CommandsReceived))
			table.AddRow("COMMANDS FORWARDED", fmt.Sprintf("%d", stats.Forwarder.CommandsForwarded))
			table.AddRow("NO-COMMAND CYCLES", fmt.Sprintf("%d", stats.Forwarder.NoCommandCycles))
			table.AddRow("AVG LOOP TIME (us)", fmt.Sprintf("%d", stats.Forwarder.AvgLoopTimeUs))
			table.AddRow("MAX LOOP TIME (us)", fmt.Sprintf("%d", stats.Forwarder.MaxLoopTimeUs))
			table.AddRow("LAST SELECTED", stats.Selector.LastSelected.String())
			for _, src := range core.SourcesByPriority {
				table.AddRow(fmt.Sprintf("SELECTIONS %s", src), fmt.Sprintf("%d", stats.Selector.SelectionsBySource[src]))
			}
			table.AddRow("HEARTBEATS SENT", fmt.Sprintf("%d", stats.Watchdog.HeartbeatsSent))
			table.AddRow("WATCHDOG FEEDS", fmt.Sprintf("%d", stats.Watchdog.FeedsReceived))

			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8750", "Address of the status server.")
	return cmd
}

func getJSON(client *http.Client, url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
