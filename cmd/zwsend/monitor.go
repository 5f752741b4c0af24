package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backkem/zwave/pkg/application"
	"github.com/backkem/zwave/pkg/message"
)

var cmdMonitor = &cobra.Command{
	Use:   "monitor",
	Short: "Print unsolicited messages until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runMonitor,
}

func init() {
	rootCmd.AddCommand(cmdMonitor)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	s, err := openSession(func(msg message.Message) {
		fmt.Fprintln(out, describe(msg))
	})
	if err != nil {
		return err
	}
	defer s.Close()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case <-c:
	case <-cmd.Context().Done():
	}
	return nil
}

func describe(msg message.Message) string {
	switch m := msg.(type) {
	case *application.CommandRequest:
		cc := m.Command()
		if cc == nil {
			return fmt.Sprintf("node %d: empty command", m.Source)
		}
		payload, _ := cc.Payload()
		return fmt.Sprintf("node %d: %s command 0x%02X % X", m.Source, cc.CCID(), cc.CommandID(), payload)
	case *message.Raw:
		return fmt.Sprintf("%s %s (0x%02X): % X", m.MessageType(), m.FunctionType(), uint8(m.FunctionType()), m.Frame.Payload)
	default:
		return fmt.Sprintf("%s %s", msg.MessageType(), msg.FunctionType())
	}
}
