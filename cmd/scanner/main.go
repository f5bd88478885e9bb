package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"qrmang/entity"
	"qrmang/gateway"
	"qrmang/qr"
	"qrmang/scanner"
)

const statusDryRun entity.VerificationStatus = "dry_run"

// dryRunVerifier reports the decoded reference without contacting the server.
type dryRunVerifier struct{}

func (dryRunVerifier) Verify(ctx context.Context, bookingReference string) entity.VerificationResult {
	return entity.VerificationResult{
		Status:  statusDryRun,
		Message: "decoded " + bookingReference + ", not verified",
	}
}

func outcomePrinter(w io.Writer) scanner.OutcomeHandler {
	return func(ctx context.Context, outcome scanner.Outcome) {
		if outcome.Result == nil {
			fmt.Fprintf(w, "%s\t%s\n", outcome.State, outcome.Reason)
			return
		}

		result := outcome.Result
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", outcome.State, outcome.Reference, result.Status, result.Message)
		if result.Status != entity.VerificationSuccess || result.Detail == nil {
			return
		}

		detail := result.Detail
		fmt.Fprintf(w, "\t%s @ %s, %s\n", detail.EventTitle, detail.Venue, detail.EventStart.Format(time.RFC1123))
		fmt.Fprintf(w, "\t%d x %s, total %s %s\n", detail.Quantity, detail.TicketType, detail.Total.Amount, detail.Total.Currency)
		for _, attendee := range detail.Attendees {
			fmt.Fprintf(w, "\t- %s\n", attendee.Name)
		}
	}
}

func scan(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	codec := qr.NewCodec(c.String("secret"))

	var verifier scanner.Verifier = dryRunVerifier{}
	if !c.Bool("dry-run") {
		verifier = gateway.NewVerificationClient(c.String("server"), c.String("token"), c.Duration("timeout"))
	}

	s := scanner.NewScanner(
		scanner.NewDirectorySource(c.String("frames"), c.Duration("poll")),
		scanner.NewZXingDecoder(),
		scanner.NewPipeline(codec, verifier),
		outcomePrinter(c.App.Writer),
		scanner.Config{
			FramesPerSecond: c.Float64("fps"),
			AutoResume:      c.Bool("auto-resume"),
		},
	)

	if !c.Bool("auto-resume") {
		go func() {
			lines := bufio.NewScanner(os.Stdin)
			for lines.Scan() {
				s.Resume()
			}
		}()
	}

	return s.Run(ctx)
}

func encode(c *cli.Context) error {
	content, err := qr.EncodeForDisplay(c.String("reference"), c.String("secret"))
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, content)

	out := c.String("out")
	if out == "" {
		return nil
	}

	png, err := qr.NewRenderer(c.Int("size")).PNG(content)
	if err != nil {
		return err
	}

	return os.WriteFile(out, png, 0o644)
}

func newApp() *cli.App {
	secretFlag := &cli.StringFlag{
		Name:     "secret",
		Usage:    "ticket QR secret",
		EnvVars:  []string{"TICKET_QR_SECRET"},
		Required: true,
	}

	return &cli.App{
		Name:  "scanner",
		Usage: "Door scanner for ticket QR codes",
		Commands: []*cli.Command{
			{
				Name:  "scan",
				Usage: "scan frames from a directory and verify tickets",
				Flags: []cli.Flag{
					secretFlag,
					&cli.StringFlag{Name: "frames", Usage: "directory frames are dropped into", Required: true},
					&cli.StringFlag{Name: "server", Usage: "qrmang base URL", EnvVars: []string{"QRMANG_URL"}, Value: "http://localhost:8080"},
					&cli.StringFlag{Name: "token", Usage: "scanner bearer token", EnvVars: []string{"SCANNER_TOKEN"}},
					&cli.DurationFlag{Name: "timeout", Value: 5 * time.Second},
					&cli.Float64Flag{Name: "fps", Usage: "frames sampled per second", Value: 10},
					&cli.DurationFlag{Name: "poll", Usage: "how often to look for new frames, zero stops after the last one", Value: 500 * time.Millisecond},
					&cli.BoolFlag{Name: "auto-resume", Usage: "resume scanning right after an outcome instead of waiting for enter"},
					&cli.BoolFlag{Name: "dry-run", Usage: "print decoded references without verifying them"},
				},
				Action: scan,
			},
			{
				Name:  "encode",
				Usage: "print the QR content of a booking and optionally render it",
				Flags: []cli.Flag{
					secretFlag,
					&cli.StringFlag{Name: "reference", Usage: "booking reference", Required: true},
					&cli.StringFlag{Name: "out", Usage: "write the QR code PNG to this file"},
					&cli.IntFlag{Name: "size", Value: 256},
				},
				Action: encode,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
