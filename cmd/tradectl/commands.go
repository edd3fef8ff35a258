package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/efreitasn/tradeserver/internal/beacon"
	"github.com/efreitasn/tradeserver/internal/client"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	beaconAddr string
	magic      string
	port       int
	timeout    time.Duration
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "tradectl",
		Short:        "Client for the trading server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newDiscoverCmd(opts))
	rootCmd.AddCommand(newSendCmd(opts))

	rootCmd.PersistentFlags().StringVar(&opts.beaconAddr, "beacon-addr", ":12345", "UDP address to listen on for server beacons")
	rootCmd.PersistentFlags().StringVar(&opts.magic, "magic", beacon.DefaultMagic, "Beacon payload that identifies a server")
	rootCmd.PersistentFlags().IntVar(&opts.port, "port", 12344, "Server TCP port used with a discovered host")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Discovery and round-trip timeout")

	return rootCmd
}

// newDiscoverCmd creates the discover command
func newDiscoverCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Wait for a server beacon and print the server address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := discover(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}
}

// newSendCmd creates the send command
func newSendCmd(opts *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "send COMMAND [ARGS...]",
		Short: "Send one command and print the reply",
		Long: `Send one protocol command to a server and print its reply.
Without --addr the server is found through its discovery beacon.
Example: tradectl send buy AAPL 2 10 1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				found, err := discover(ctx, opts)
				if err != nil {
					return err
				}
				addr = found
			}

			c, err := client.Dial(ctx, addr, opts.timeout)
			if err != nil {
				return fmt.Errorf("connect %s: %w", addr, err)
			}
			defer c.Close()

			reply, err := c.Send(strings.Join(args, " "))
			if err != nil {
				return err
			}
			printReply(cmd.OutOrStdout(), reply)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Server address host:port (discovered when empty)")

	return cmd
}

// discover waits for one beacon and returns the server's TCP address.
func discover(ctx context.Context, opts *options) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	conn, err := beacon.Listen(ctx, opts.beaconAddr)
	if err != nil {
		return "", fmt.Errorf("listen for beacon: %w", err)
	}
	defer conn.Close()

	from, err := beacon.Discover(ctx, conn, []byte(opts.magic))
	if err != nil {
		return "", fmt.Errorf("no server found: %w", err)
	}
	host, _, err := net.SplitHostPort(from.String())
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, strconv.Itoa(opts.port)), nil
}

// printReply writes the status line green on 200 and red otherwise.
func printReply(w io.Writer, reply string) {
	status, body, _ := strings.Cut(reply, "\n")
	paint := color.New(color.FgRed)
	if client.StatusCode(status) == 200 {
		paint = color.New(color.FgGreen)
	}
	paint.Fprintln(w, status)
	if body != "" {
		fmt.Fprint(w, body)
	}
}
