package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-svc/circuitbreaker"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Client calls CheckoutService for other services. Calls go through a circuit breaker
// that only counts transport-level failures.
type Client struct {
	conn           *grpc.ClientConn
	cc             grpc.ClientConnInterface
	circuitBreaker *circuitbreaker.CircuitBreaker
	logger         *zap.Logger
}

func Dial(address string, logger *zap.Logger, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}, opts...)

	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to checkout service: %w", err)
	}

	c := NewClient(conn, logger)
	c.conn = conn
	return c, nil
}

func NewClient(cc grpc.ClientConnInterface, logger *zap.Logger) *Client {
	return &Client{
		cc:             cc,
		circuitBreaker: circuitbreaker.NewCircuitBreaker(5, 30*time.Second, circuitbreaker.WithFailurePredicate(isTransportFailure)),
		logger:         logger,
	}
}

func (c *Client) PlaceOrder(ctx context.Context, token string, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	resp := new(PlaceOrderResponse)
	err := c.invoke(ctx, token, placeOrderMethod, req, resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetOrder(ctx context.Context, token, orderID string) (*GetOrderResponse, error) {
	resp := new(GetOrderResponse)
	err := c.invoke(ctx, token, getOrderMethod, &GetOrderRequest{OrderID: orderID}, resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, token, method string, in, out any) error {
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	err := c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		return c.cc.Invoke(ctx, method, in, out, grpc.CallContentSubtype(Name))
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		c.logger.Warn("Checkout service circuit open", zap.String("method", method))
		return status.Error(codes.Unavailable, err.Error())
	}
	return err
}

func isTransportFailure(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.Unknown:
		return true
	default:
		return false
	}
}
