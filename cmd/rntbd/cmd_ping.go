package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cosmodirect/rntbd/frame"
	simpleReporter "github.com/cosmodirect/rntbd/report/simple"
	"github.com/cosmodirect/rntbd/transport"
)

type PingCommand struct {
	Addr        string        `required:"" help:"Endpoint address (host:port)."`
	ReplicaPath string        `default:"/" help:"Replica path header for probe requests."`
	Count       int           `default:"10" help:"Probe request count."`
	Interval    time.Duration `default:"100ms" help:"Delay between probes."`
	Timeout     time.Duration `default:"5s" help:"Per-request timeout."`
	TLS         bool          `help:"Dial through TLS."`
	Insecure    bool          `help:"Skip TLS certificate verification."`
	Verbose     bool          `help:"Verbose output."`
}

func (c *PingCommand) Run(ctx context.Context) (err error) {
	log := zap.NewNop()
	if c.Verbose {
		log = zap.Must(zap.NewDevelopment())
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("dialing: %w", err)
	}

	reporter := simpleReporter.New()
	manager := transport.NewManager(conn, log, transport.Options{
		RequestTimeout: c.Timeout,
		Reporter:       reporter,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(reporter.Run)
	g.Go(func() error {
		defer cancel()
		return manager.Run(ctx)
	})

	err = c.probe(ctx, manager)
	err = multierr.Append(err, reporter.Close())
	return multierr.Append(err, g.Wait())
}

func (c *PingCommand) probe(ctx context.Context, manager *transport.Manager) error {
	defer manager.Close()

	records := make([]*transport.Record, 0, c.Count)
	for i := 0; i < c.Count; i++ {
		rec, err := manager.Submit(transport.Args{
			ResourceType:    frame.ResourceDatabase,
			OperationType:   frame.OperationRead,
			ReplicaPath:     c.ReplicaPath,
			PhysicalAddress: "rntbd://" + c.Addr,
		})
		if err != nil {
			return fmt.Errorf("submitting probe %d: %w", i+1, err)
		}
		records = append(records, rec)

		if i == 0 {
			// The first submit kicks off the handshake; surface its result
			// before pacing the rest.
			negotiated, err := manager.WaitContext(ctx)
			if err != nil {
				return fmt.Errorf("context negotiation: %w", err)
			}
			fmt.Printf("context established: server-agent=%q server-version=%q\n",
				negotiated.ServerAgent, negotiated.ServerVersion)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.Interval):
		}
	}

	for i, rec := range records {
		resp, err := rec.Wait(ctx)
		if err != nil {
			fmt.Printf("probe %d: %v\n", i+1, err)
			continue
		}
		fmt.Printf("probe %d: status=%d activity-id=%s\n", i+1, resp.Status, resp.ActivityID)
	}
	return nil
}

func (c *PingCommand) dial(ctx context.Context) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	dialer := net.Dialer{}
	if !c.TLS {
		return dialer.DialContext(ctx, "tcp", c.Addr)
	}

	tlsDialer := tls.Dialer{
		NetDialer: &dialer,
		Config: &tls.Config{
			InsecureSkipVerify: c.Insecure, //nolint:gosec
		},
	}
	return tlsDialer.DialContext(ctx, "tcp", c.Addr)
}
