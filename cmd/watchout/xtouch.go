package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"watchout/lib/xtouch"
)

func newXTouchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "xtouch",
		Short:         "Run the X-Touch surface",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runXTouch,
	}
	cmd.Flags().Bool("monitor", false, "Print decoded surface events instead of running actions")
	cmd.Flags().Bool("panel", false, "Also serve the HTTP panel")
	return cmd
}

func runXTouch(cmd *cobra.Command, args []string) error {
	if on, _ := cmd.Flags().GetBool("monitor"); on {
		defer midi.CloseDriver()
		return monitorXTouch(cmd)
	}

	c, err := newController(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	if on, _ := cmd.Flags().GetBool("panel"); on {
		c.startPanel(c.cfg.Panel.Listen)
	}
	if err := c.startXTouch(); err != nil {
		return err
	}
	waitForSignal()
	return nil
}

func (c *controller) startXTouch() error {
	c.onClose(midi.CloseDriver)
	inPort, err := xtouch.FindInPort(c.cfg.XTouch.Port)
	if err != nil {
		listMIDIPorts()
		return err
	}
	outPort, err := xtouch.FindOutPort(c.cfg.XTouch.Port)
	if err != nil {
		return err
	}
	out, err := xtouch.NewFeedback(outPort, c.cfg.XTouch.Extender)
	if err != nil {
		return err
	}

	surface := xtouch.NewSurface(c.cfg.XTouch, c.adapter, out, c.logger)
	surface.Reset()
	c.attach(surface)

	stop, err := xtouch.Listen(inPort, surface)
	if err != nil {
		return fmt.Errorf("xtouch: listen: %w", err)
	}
	c.onClose(stop)
	c.logger.Printf("[xtouch] listening on %s", inPort)
	return nil
}

// monitorXTouch prints decoded events, for finding button numbers to bind.
func monitorXTouch(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	port, err := xtouch.FindInPort(cfg.XTouch.Port)
	if err != nil {
		listMIDIPorts()
		return err
	}

	fmt.Printf("Listening on: %s\n", port)
	stop, err := midi.ListenTo(port, func(msg midi.Message, timestampms int32) {
		if event := xtouch.Decode(msg); event != nil {
			fmt.Println(event)
		}
	})
	if err != nil {
		return fmt.Errorf("xtouch: listen: %w", err)
	}
	defer stop()

	waitForSignal()
	return nil
}

func listMIDIPorts() {
	fmt.Println("Available MIDI input ports:")
	for _, p := range midi.GetInPorts() {
		fmt.Printf("  %s\n", p)
	}
}
