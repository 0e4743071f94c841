package configstore

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// remoteKVServiceDesc is a hand-authored grpc.ServiceDesc for the
// RemoteKV ConfigStore's single RPC, carrying a ConfigSpec encoded as a
// structpb.Struct (well-known type) rather than a generated message — the
// supervisor has no protoc toolchain available in its build.
var remoteKVServiceDesc = grpc.ServiceDesc{
	ServiceName: "fermenator.configstore.v1.RemoteKV",
	HandlerType: (*remoteKVServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Fetch",
			Handler:    remoteKVFetchHandler,
		},
	},
	Metadata: "fermenator/configstore/remotekv.proto",
}

// remoteKVServer is implemented by whatever process hosts the ConfigSpec
// for a fleet of supervisors (a small internal service, not part of this
// module). Declared here only so RegisterService has a HandlerType.
type remoteKVServer interface {
	Fetch(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func remoteKVFetchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(remoteKVServer).Fetch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/fermenator.configstore.v1.RemoteKV/Fetch"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(remoteKVServer).Fetch(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RemoteKV is a ConfigStore backed by a gRPC key/value service, carrying
// ConfigSpec as a structpb.Struct so it travels over the wire without
// generated message types. version_token is an opaque string the remote
// service increments on every write; HasChanged performs the same Fetch
// as Load (the response includes spec_json) but only compares the
// version_token, without decoding or validating the spec.
type RemoteKV struct {
	addr            string
	refreshInterval float64
	logger          *zap.Logger

	conn   *grpc.ClientConn
	client grpc.ClientConnInterface

	lastVersionToken string
}

// RemoteKVConfig configures the RemoteKV ConfigStore's transport.
type RemoteKVConfig struct {
	Addr            string
	RefreshInterval float64
	TLSCertFile     string
	TLSKeyFile      string
	TLSCAFile       string
}

// NewRemoteKV dials addr and constructs a RemoteKV ConfigStore. TLS is
// used whenever all three of TLSCertFile/TLSKeyFile/TLSCAFile are set;
// otherwise the connection is plaintext, for use against a trusted
// localhost sidecar.
func NewRemoteKV(cfg RemoteKVConfig, logger *zap.Logger) (*RemoteKV, error) {
	var creds credentials.TransportCredentials
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" && cfg.TLSCAFile != "" {
		tlsCfg, err := buildClientTLS(cfg.TLSCertFile, cfg.TLSKeyFile, cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("configstore.NewRemoteKV: %w", err)
		}
		creds = credentials.NewTLS(tlsCfg)
	} else {
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("configstore.NewRemoteKV: dial %s: %w", cfg.Addr, err)
	}

	return &RemoteKV{
		addr:            cfg.Addr,
		refreshInterval: cfg.RefreshInterval,
		logger:          logger,
		conn:            conn,
		client:          conn,
	}, nil
}

func buildClientTLS(certFile, keyFile, caFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load client cert/key: %w", err)
	}
	caData, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read CA file %q: %w", caFile, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caData) {
		return nil, fmt.Errorf("failed to parse CA certificate from %q", caFile)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS13,
	}, nil
}

func (r *RemoteKV) fetch(ctx context.Context) (*structpb.Struct, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req := &structpb.Struct{}
	resp := new(structpb.Struct)
	if err := r.client.Invoke(ctx, "/fermenator.configstore.v1.RemoteKV/Fetch", req, resp); err != nil {
		return nil, fmt.Errorf("configstore.RemoteKV: fetch: %w", err)
	}
	return resp, nil
}

func (r *RemoteKV) Load(ctx context.Context) (*ConfigSpec, error) {
	resp, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}
	spec, token, err := decodeRemoteSpec(resp)
	if err != nil {
		return nil, err
	}
	if err := Validate(spec); err != nil {
		return nil, err
	}
	r.lastVersionToken = token
	return spec, nil
}

func (r *RemoteKV) HasChanged(ctx context.Context) (bool, error) {
	resp, err := r.fetch(ctx)
	if err != nil {
		return false, err
	}
	token, ok := resp.Fields["version_token"]
	if !ok {
		return false, fmt.Errorf("configstore.RemoteKV: response missing version_token")
	}
	return token.GetStringValue() != r.lastVersionToken, nil
}

func (r *RemoteKV) RefreshInterval() (float64, bool) {
	return r.refreshInterval, r.refreshInterval > 0
}

func (r *RemoteKV) Close() error {
	return r.conn.Close()
}
