package visualiser

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/eeg.report/internal/playback"
)

// Client calls the Playback service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial connects to addr without transport security. The caller closes the
// returned connection.
func Dial(addr string) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return NewClient(conn), conn, nil
}

var commandMethods = map[playback.Command]string{
	playback.CmdToggle: "TogglePlay",
	playback.CmdReset:  "Reset",
	playback.CmdPrev:   "PrevSubject",
	playback.CmdNext:   "NextSubject",
}

// Status fetches the current frame.
func (c *Client) Status(ctx context.Context) (playback.Frame, error) {
	return c.unary(ctx, "Status")
}

// Do sends a playback command and returns the resulting frame.
func (c *Client) Do(ctx context.Context, cmd playback.Command) (playback.Frame, error) {
	method, ok := commandMethods[cmd]
	if !ok {
		return playback.Frame{}, fmt.Errorf("%w: %q", playback.ErrUnknownCommand, cmd)
	}
	return c.unary(ctx, method)
}

func (c *Client) unary(ctx context.Context, method string) (playback.Frame, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, &emptypb.Empty{}, out); err != nil {
		return playback.Frame{}, err
	}
	return FrameFromStruct(out)
}

// Stream calls fn for every streamed frame until ctx is cancelled, the
// server ends the stream or fn returns an error.
func (c *Client) Stream(ctx context.Context, fn func(playback.Frame) error) error {
	stream, err := c.cc.NewStream(ctx, &playbackServiceDesc.Streams[0], "/"+ServiceName+"/StreamFrames")
	if err != nil {
		return err
	}
	frames := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := frames.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := frames.CloseSend(); err != nil {
		return err
	}

	for {
		msg, err := frames.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		f, err := FrameFromStruct(msg)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
}
