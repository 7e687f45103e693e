package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/cosmodirect/rntbd/frame"
)

type DumpCommand struct {
	File      *os.File `arg:"" help:"Capture file of raw frames, one direction of a connection."`
	Direction string   `default:"inbound" enum:"inbound,outbound" help:"Capture direction: inbound (responses) or outbound (requests)."`
	MaxBytes  int      `default:"64" help:"Payload bytes to print per frame."`
}

func (c *DumpCommand) Run() error {
	defer c.File.Close()

	data, err := io.ReadAll(c.File)
	if err != nil {
		return fmt.Errorf("reading capture: %w", err)
	}
	fmt.Printf("capture: %s\n", humanize.Bytes(uint64(len(data))))

	framer := new(frame.Framer)
	framer.Fill(data)

	var (
		n           int
		wantPayload bool
	)
	for {
		unit, err := framer.Next()
		if err != nil {
			return err
		}
		if unit == nil {
			break
		}

		if wantPayload {
			wantPayload = false
			c.printPayload(unit)
			continue
		}

		n++
		if c.Direction == "outbound" {
			wantPayload, err = c.printRequest(n, unit)
		} else {
			wantPayload, err = c.printResponse(n, unit)
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", n, err)
		}
	}

	if rest := framer.Buffered(); rest != 0 {
		fmt.Printf("trailing garbage: %d bytes\n", rest)
	}
	return nil
}

func (c *DumpCommand) printRequest(n int, unit []byte) (bool, error) {
	req, err := frame.DecodeRequest(unit)
	if err != nil {
		// The first outbound frame of a connection is the context
		// request, which carries a different catalog.
		ctxReq, ctxErr := frame.DecodeContextRequest(unit)
		if ctxErr != nil {
			return false, err
		}
		fmt.Printf("frame %d: context request protocol-version=%#08x client-version=%q user-agent=%q\n",
			n, ctxReq.ProtocolVersion, ctxReq.ClientVersion, ctxReq.UserAgent)
		return false, nil
	}
	fmt.Printf("frame %d: request resource=%#04x operation=%#04x id=%d activity-id=%s\n",
		n, req.ResourceType, req.OperationType, req.TransportRequestID, req.ActivityID)
	fmt.Printf("  headers: %s\n", req.Headers.DebugString())
	return req.HasPayload()
}

func (c *DumpCommand) printResponse(n int, unit []byte) (bool, error) {
	resp, err := frame.DecodeResponse(unit)
	if err == nil {
		fmt.Printf("frame %d: response status=%d id=%d activity-id=%s\n",
			n, resp.Status, resp.TransportRequestID, resp.ActivityID)
		fmt.Printf("  headers: %s\n", resp.Headers.DebugString())
		return resp.HasPayload()
	}

	// The first inbound frame of a connection is the context response,
	// which carries a different catalog.
	ctx, ctxErr := frame.DecodeContext(unit)
	if ctxErr != nil {
		return false, err
	}
	fmt.Printf("frame %d: context response status=%d server-agent=%q server-version=%q\n",
		n, ctx.Status, ctx.ServerAgent, ctx.ServerVersion)
	return false, nil
}

func (c *DumpCommand) printPayload(unit []byte) {
	shown := unit
	truncated := ""
	if len(shown) > c.MaxBytes {
		shown = shown[:c.MaxBytes]
		truncated = fmt.Sprintf(" (+%d bytes)", len(unit)-c.MaxBytes)
	}
	fmt.Printf("  payload %d bytes: %s%s\n", len(unit), hex.EncodeToString(shown), truncated)
}
