package main

import (
	"context"

	"github.com/alecthomas/kong"
	mangokong "github.com/alecthomas/mango-kong"
)

var CLI struct {
	Ping PingCommand       `cmd:"" help:"Dial an endpoint, negotiate a connection context and drive probe requests."`
	Dump DumpCommand       `cmd:"" help:"Decode a captured frame stream and print its frames and tokens."`
	Man  mangokong.ManFlag `help:"Write man page." hidden:""`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kongCtx := kong.Parse(
		&CLI,
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.ConfigureHelp(kong.HelpOptions{
			Tree:    true,
			Compact: true,
		}),
		kong.Description(`client-side diagnostics for the RNTBD transport

The rntbd tool speaks the binary request/response protocol directly: ping
drives live probe requests through a negotiated connection context, dump
decodes captured byte streams offline.
		`),
	)
	err := kongCtx.Run()
	kongCtx.FatalIfErrorf(err)
}
