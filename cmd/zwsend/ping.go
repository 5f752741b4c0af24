package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/backkem/zwave/pkg/commandclass"
)

var cmdPing = &cobra.Command{
	Use:   "ping <node>",
	Short: "Send a NoOperation and report the transmit status",
	Args:  cobra.ExactArgs(1),
	RunE:  runPing,
}

var pingCount int

func init() {
	rootCmd.AddCommand(cmdPing)
	cmdPing.Flags().IntVarP(&pingCount, "count", "n", 1, "Number of pings")
	addTransmitFlags(cmdPing)
}

func runPing(cmd *cobra.Command, args []string) error {
	node, err := parseNode(args[0])
	if err != nil {
		return err
	}

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	failed := 0
	for i := 0; i < pingCount; i++ {
		start := time.Now()
		res, err := sendWith(cmd, s, &commandclass.NoOperation{Header: commandclass.Header{Node: node}})
		rtt := time.Since(start).Round(time.Microsecond)
		if err != nil {
			failed++
			fmt.Fprintf(out, "node %d: %v (%s)\n", node, err, rtt)
			continue
		}
		fmt.Fprintf(out, "node %d: callback %d %s time=%s\n", node, res.CallbackID, res.TransmitStatus, rtt)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d pings failed", failed, pingCount)
	}
	return nil
}
