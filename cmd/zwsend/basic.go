package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/backkem/zwave/pkg/commandclass"
)

var (
	cmdBasicSet = &cobra.Command{
		Use:   "basic-set <node> <value>",
		Short: "Set a node's basic value",
		Args:  cobra.ExactArgs(2),
		RunE:  runBasicSet,
	}

	cmdBasicGet = &cobra.Command{
		Use:   "basic-get <node>",
		Short: "Read a node's basic value",
		Args:  cobra.ExactArgs(1),
		RunE:  runBasicGet,
	}
)

func init() {
	rootCmd.AddCommand(cmdBasicSet)
	rootCmd.AddCommand(cmdBasicGet)
	addTransmitFlags(cmdBasicSet)
	addTransmitFlags(cmdBasicGet)
}

func runBasicSet(cmd *cobra.Command, args []string) error {
	node, err := parseNode(args[0])
	if err != nil {
		return err
	}
	value, err := parseByte("value", args[1])
	if err != nil {
		return err
	}

	res, err := send(cmd, &commandclass.BasicSet{Header: commandclass.Header{Node: node}, Value: value})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "node %d: set to 0x%02X (callback %d, %s)\n",
		node, value, res.CallbackID, res.TransmitStatus)
	return nil
}

func runBasicGet(cmd *cobra.Command, args []string) error {
	node, err := parseNode(args[0])
	if err != nil {
		return err
	}

	res, err := send(cmd, &commandclass.BasicGet{Header: commandclass.Header{Node: node}})
	if err != nil {
		return err
	}
	report, ok := res.Response.(*commandclass.BasicReport)
	if !ok {
		return fmt.Errorf("node %d: unexpected reply %T", node, res.Response)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "node %d: value 0x%02X", node, report.Value)
	if report.HasTarget {
		fmt.Fprintf(out, " target 0x%02X duration 0x%02X", report.TargetValue, report.Duration)
	}
	fmt.Fprintln(out)
	return nil
}
