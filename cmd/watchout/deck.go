package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"watchout/lib/streamdeck"
)

func newDeckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "deck",
		Short:         "Run the Stream Deck surface",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDeck,
	}
	cmd.Flags().Bool("panel", false, "Also serve the HTTP panel")
	return cmd
}

func runDeck(cmd *cobra.Command, args []string) error {
	c, err := newController(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	if on, _ := cmd.Flags().GetBool("panel"); on {
		c.startPanel(c.cfg.Panel.Listen)
	}
	if err := c.startDeck(); err != nil {
		return err
	}
	waitForSignal()
	return nil
}

func (c *controller) startDeck() error {
	dev, err := streamdeck.Open()
	if err != nil {
		return err
	}
	c.onClose(func() {
		dev.ClearAllKeys()
		dev.Close()
	})
	c.logger.Printf("[deck] connected to %s %s (serial %s)", dev.Product(), dev.Model().Name, dev.SerialNumber())

	if err := dev.SetBrightness(byte(c.cfg.Deck.Brightness)); err != nil {
		return fmt.Errorf("streamdeck: brightness: %w", err)
	}

	deck := streamdeck.NewDeck(c.cfg.Deck, c.adapter, dev, c.logger)
	deck.Draw()
	c.attach(deck)

	keys := make(chan streamdeck.KeyEvent, 64)
	go func() {
		if err := dev.ReadKeys(keys); err != nil {
			c.logger.Printf("[deck] read: %v", err)
		}
		close(keys)
	}()
	go deck.Run(keys)
	return nil
}
