package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/backkem/zwave/pkg/commandclass"
)

var cmdAssociationGet = &cobra.Command{
	Use:   "association-get <node> <group>",
	Short: "List the members of an association group",
	Args:  cobra.ExactArgs(2),
	RunE:  runAssociationGet,
}

func init() {
	rootCmd.AddCommand(cmdAssociationGet)
	addTransmitFlags(cmdAssociationGet)
}

func runAssociationGet(cmd *cobra.Command, args []string) error {
	node, err := parseNode(args[0])
	if err != nil {
		return err
	}
	group, err := parseByte("group", args[1])
	if err != nil {
		return err
	}

	res, err := send(cmd, &commandclass.AssociationGet{Header: commandclass.Header{Node: node}, GroupID: group})
	if err != nil {
		return err
	}
	report, ok := res.Response.(*commandclass.AssociationReport)
	if !ok {
		return fmt.Errorf("node %d: unexpected reply %T", node, res.Response)
	}

	members := make([]string, len(report.Nodes))
	for i, n := range report.Nodes {
		members[i] = fmt.Sprint(n)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "node %d group %d (%d/%d, %d reports): [%s]\n",
		node, report.GroupID, len(report.Nodes), report.MaxNodes, len(res.Partials)+1,
		strings.Join(members, " "))
	return nil
}
