package main

import (
	"github.com/spf13/cobra"

	"github.com/backkem/zwave/pkg/commandclass"
	"github.com/backkem/zwave/pkg/driver"
	"github.com/backkem/zwave/pkg/senddata"
)

var flagTxOptions uint8

func addTransmitFlags(cmd *cobra.Command) {
	cmd.Flags().Uint8VarP(&flagTxOptions, "tx-options", "o", uint8(senddata.DefaultTransmitOptions), "Transmit option bits")
}

// send runs one exchange in a fresh session.
func send(cmd *cobra.Command, cc commandclass.Command) (*driver.Result, error) {
	s, err := openSession(nil)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return sendWith(cmd, s, cc)
}

func sendWith(cmd *cobra.Command, s *session, cc commandclass.Command) (*driver.Result, error) {
	ctx, cancel := s.context(cmd.Context())
	defer cancel()

	opts := senddata.TransmitOptions(flagTxOptions)
	s.log.Debugf("sending %s to node %d with %s", cc.CCID(), cc.NodeID(), opts)
	return s.driver.SendCommand(ctx, cc, senddata.WithTransmitOptions(opts))
}
