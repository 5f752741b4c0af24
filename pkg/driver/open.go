package driver

import (
	"io"

	"github.com/backkem/zwave/pkg/transport"
)

// Open runs a driver over port: it builds the serial transport, feeds its
// frames to the driver and starts reading. Closing the driver closes the
// transport and port.
//
// link.Port and link.MessageHandler are set by Open; config.Transport is
// ignored.
func Open(port io.ReadWriteCloser, config Config, link transport.SerialConfig) (*Driver, error) {
	var d *Driver

	link.Port = port
	link.MessageHandler = func(frame []byte) { d.HandleFrame(frame) }
	if link.LoggerFactory == nil {
		link.LoggerFactory = config.LoggerFactory
	}
	if link.Metrics == nil {
		link.Metrics = config.Metrics
	}

	serial, err := transport.NewSerial(link)
	if err != nil {
		return nil, err
	}

	config.Transport = serial
	d, err = New(config)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, serial.Close)

	if err := serial.Start(); err != nil {
		return nil, err
	}
	return d, nil
}
