package grpc

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

func LoggingUnaryInterceptor() gogrpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(info.FullMethod, start, err)
		return resp, err
	}
}

func LoggingStreamInterceptor() gogrpc.StreamServerInterceptor {
	return func(srv any, ss gogrpc.ServerStream, info *gogrpc.StreamServerInfo, handler gogrpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logCall(info.FullMethod, start, err)
		return err
	}
}

func logCall(method string, start time.Time, err error) {
	entry := logrus.WithFields(logrus.Fields{
		"method":  method,
		"code":    status.Code(err).String(),
		"latency": time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Warn("grpc_request")
		return
	}
	entry.Debug("grpc_request")
}
