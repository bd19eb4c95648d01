package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/alfredjeanlab/formdesk/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var (
	errNoAuthHeader = errors.New("missing authorization header")
	errAuthScheme   = errors.New("invalid authorization scheme")
	errBadToken     = errors.New("invalid token")
)

// checkBearer validates an Authorization header value against token.
func checkBearer(header, token string) error {
	if header == "" {
		return errNoAuthHeader
	}
	provided, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return errAuthScheme
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
		return errBadToken
	}
	return nil
}

// firstMetadata returns the first value of key in the incoming metadata.
func firstMetadata(ctx context.Context, key string) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0], true
	}
	return "", true
}

// LoggingInterceptor logs one line per unary RPC with the calling actor.
// Failed calls are logged at error level with their status code.
func LoggingInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	actor, _ := firstMetadata(ctx, rpc.ActorMetadataKey)
	attrs := []any{"method", info.FullMethod, "actor", actor, "duration", time.Since(start)}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
		attrs = append(attrs, "code", status.Code(err), "error", err)
	}
	slog.Log(ctx, level, "rpc completed", attrs...)
	return resp, err
}

// RecoveryInterceptor turns a handler panic into codes.Internal.
func RecoveryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (resp any, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		slog.ErrorContext(ctx, "rpc handler panicked",
			"method", info.FullMethod,
			"panic", fmt.Sprint(r),
			"stack", string(debug.Stack()),
		)
		resp, err = nil, status.Error(codes.Internal, "internal server error")
	}()
	return handler(ctx, req)
}

// AuthInterceptor requires a bearer token in the "authorization" metadata of
// every RPC except Health. An empty token disables the check.
func AuthInterceptor(token string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if token == "" || info.FullMethod == rpc.MethodHealth {
			return handler(ctx, req)
		}
		header, ok := firstMetadata(ctx, "authorization")
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		if err := checkBearer(header, token); err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(ctx, req)
	}
}

// AuthMiddleware is the HTTP counterpart of AuthInterceptor. Health checks,
// the public ticket page API and media object downloads are exempt.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authExempt(r) {
			if err := checkBearer(r.Header.Get("Authorization"), token); err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func authExempt(r *http.Request) bool {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v1/health":
		return true
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, mediaObjectsPath+"/"):
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/v1/public/")
}
